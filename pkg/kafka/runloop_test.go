package _kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClient is an in-memory Client double: no network, no *kgo.Client,
// just enough state to drive the fold loop through every branch of
// handlePoll/handleRequest/handleCommit deterministically.
type fakeClient struct {
	mu sync.Mutex

	assignment map[TopicPartition]struct{}
	paused     map[TopicPartition]struct{}
	queued     map[TopicPartition][]Record

	seeks   map[TopicPartition]Offset
	commits []map[TopicPartition]Offset
	commitErr error

	// onPoll, when set, runs at the start of Poll, the way a real
	// client's rebalance callbacks change the assignment inside Poll.
	onPoll func()
}

func newFakeClient(assigned ...TopicPartition) *fakeClient {
	fc := &fakeClient{
		assignment: make(map[TopicPartition]struct{}),
		paused:     make(map[TopicPartition]struct{}),
		queued:     make(map[TopicPartition][]Record),
		seeks:      make(map[TopicPartition]Offset),
	}
	for _, tp := range assigned {
		fc.assignment[tp] = struct{}{}
	}
	return fc
}

func (c *fakeClient) Subscribe(topics []string) error { return nil }

func (c *fakeClient) Assignment() (map[TopicPartition]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[TopicPartition]struct{}, len(c.assignment))
	for tp := range c.assignment {
		out[tp] = struct{}{}
	}
	return out, nil
}

func (c *fakeClient) Poll(timeoutMs int) (map[TopicPartition][]Record, error) {
	if c.onPoll != nil {
		c.onPoll()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queued
	c.queued = make(map[TopicPartition][]Record)
	return out, nil
}

func (c *fakeClient) Pause(tps map[TopicPartition]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for tp := range tps {
		c.paused[tp] = struct{}{}
	}
}

func (c *fakeClient) Resume(tps map[TopicPartition]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for tp := range tps {
		delete(c.paused, tp)
	}
}

func (c *fakeClient) Seek(tp TopicPartition, offset Offset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seeks[tp] = offset
}

func (c *fakeClient) CommitAsync(offsets map[TopicPartition]Offset, callback func(map[TopicPartition]Offset, error)) {
	c.mu.Lock()
	c.commits = append(c.commits, offsets)
	err := c.commitErr
	c.mu.Unlock()
	callback(offsets, err)
}

func (c *fakeClient) enqueue(tp TopicPartition, recs ...Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queued[tp] = append(c.queued[tp], recs...)
}

func (c *fakeClient) assign(tp TopicPartition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assignment[tp] = struct{}{}
}

func (c *fakeClient) revoke(tp TopicPartition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.assignment, tp)
}

func (c *fakeClient) isPaused(tp TopicPartition) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.paused[tp]
	return ok
}

func testRunloop(client Client) *Runloop {
	cfg := DefaultConfig()
	cfg.Topics = []string{"orders"}
	cfg.PollFrequency = time.Hour // tests drive polls manually
	return NewRunloop(cfg, client, NoopDiagnostics{}, nil)
}

func TestHandleRequestAbsentWhenNotOwned(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	rl := testRunloop(newFakeClient())

	req := newRequest(tp)
	if err := rl.handleRequest(req); err != nil {
		t.Fatalf("handleRequest() error = %v", err)
	}

	_, err := req.completion.await(context.Background())
	if !errors.Is(err, ErrAbsent) {
		t.Errorf("completion error = %v, want ErrAbsent", err)
	}
}

func TestHandleRequestBufferedWhenOwned(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	rl := testRunloop(newFakeClient(tp))

	req := newRequest(tp)
	if err := rl.handleRequest(req); err != nil {
		t.Fatalf("handleRequest() error = %v", err)
	}
	if len(rl.state.PendingRequests) != 1 {
		t.Fatalf("len(PendingRequests) = %d, want 1", len(rl.state.PendingRequests))
	}
}

func TestHandleRequestBufferedDuringRebalanceEvenIfNotOwned(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	rl := testRunloop(newFakeClient())
	rl.tracker.Revoked(rl.gate.client, map[TopicPartition]struct{}{{Topic: "x", Partition: 9}: {}})

	req := newRequest(tp)
	if err := rl.handleRequest(req); err != nil {
		t.Fatalf("handleRequest() error = %v", err)
	}
	if len(rl.state.PendingRequests) != 1 {
		t.Fatal("request for unowned TP during a rebalance must be buffered, not failed")
	}
}

func TestHandlePollPauseResumeReconciliation(t *testing.T) {
	tpA := TopicPartition{Topic: "orders", Partition: 0}
	tpB := TopicPartition{Topic: "orders", Partition: 1}
	fc := newFakeClient(tpA, tpB)
	rl := testRunloop(fc)

	rl.state.AddRequest(newRequest(tpA))

	if err := rl.handlePoll(context.Background()); err != nil {
		t.Fatalf("handlePoll() error = %v", err)
	}
	if fc.isPaused(tpA) {
		t.Error("tpA has demand, must not be paused")
	}
	if !fc.isPaused(tpB) {
		t.Error("tpB has no demand, must be paused")
	}
}

func TestHandlePollFulfillsFromBufferThenFresh(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	fc := newFakeClient(tp)
	rl := testRunloop(fc)

	// First poll buffers an unrequested record.
	fc.enqueue(tp, Record{TP: tp, Offset: 0})
	if err := rl.handlePoll(context.Background()); err != nil {
		t.Fatalf("handlePoll() #1 error = %v", err)
	}
	if len(rl.state.Buffered[tp]) != 1 {
		t.Fatalf("len(Buffered[tp]) = %d, want 1", len(rl.state.Buffered[tp]))
	}

	// Now request it and poll again with a fresh record queued.
	req := newRequest(tp)
	rl.state.AddRequest(req)
	fc.enqueue(tp, Record{TP: tp, Offset: 1})

	if err := rl.handlePoll(context.Background()); err != nil {
		t.Fatalf("handlePoll() #2 error = %v", err)
	}

	records, err := req.completion.await(context.Background())
	if err != nil {
		t.Fatalf("completion error = %v", err)
	}
	if len(records) != 2 || records[0].Offset != 0 || records[1].Offset != 1 {
		t.Fatalf("records = %+v, want buffered offset 0 then fresh offset 1", records)
	}
	if _, ok := rl.state.Buffered[tp]; ok {
		t.Error("buffer entry should be dropped once fulfilled")
	}
}

func TestHandlePollDoesNotCoalesceTwoRequestsForSameTP(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	fc := newFakeClient(tp)
	rl := testRunloop(fc)

	first := newRequest(tp)
	second := newRequest(tp)
	rl.state.AddRequest(first)
	rl.state.AddRequest(second)
	fc.enqueue(tp, Record{TP: tp, Offset: 0})

	if err := rl.handlePoll(context.Background()); err != nil {
		t.Fatalf("handlePoll() error = %v", err)
	}

	records, err := first.completion.await(context.Background())
	if err != nil {
		t.Fatalf("first completion error = %v", err)
	}
	if len(records) != 1 || records[0].Offset != 0 {
		t.Fatalf("first records = %+v, want single offset 0", records)
	}

	select {
	case <-second.completion.done:
		t.Fatal("second request for the same TP must stay pending, not receive a duplicate of the fresh batch")
	default:
	}
	if len(rl.state.PendingRequests) != 1 || rl.state.PendingRequests[0].ID != second.ID {
		t.Fatal("second request must remain the sole entry in PendingRequests")
	}
}

func TestHandlePollEndsRevokedRequests(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	fc := newFakeClient(tp)
	rl := testRunloop(fc)

	req := newRequest(tp)
	rl.state.AddRequest(req)
	fc.onPoll = func() { fc.revoke(tp) }

	if err := rl.handlePoll(context.Background()); err != nil {
		t.Fatalf("handlePoll() error = %v", err)
	}

	_, err := req.completion.await(context.Background())
	if !errors.Is(err, ErrAbsent) {
		t.Errorf("completion error = %v, want ErrAbsent", err)
	}
	if len(rl.state.PendingRequests) != 0 {
		t.Error("revoked request must be removed from PendingRequests")
	}
}

func TestHandlePollOffersNewPartitionStreams(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	fc := newFakeClient()
	rl := testRunloop(fc)

	fc.onPoll = func() { fc.assign(tp) }
	if err := rl.handlePoll(context.Background()); err != nil {
		t.Fatalf("handlePoll() error = %v", err)
	}

	select {
	case take := <-rl.hub.C():
		if take.Kind != TakeValue || take.Value.TP != tp {
			t.Errorf("take = %+v, want TakeValue for %v", take, tp)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for new partition stream offer")
	}
}

func TestHandleCommitDeferredDuringRebalance(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	fc := newFakeClient(tp)
	rl := testRunloop(fc)
	rl.tracker.Revoked(fc, map[TopicPartition]struct{}{tp: {}})

	cmd := newCommitCommand(map[TopicPartition]Offset{tp: 5})
	if err := rl.handleCommit(cmd); err != nil {
		t.Fatalf("handleCommit() error = %v", err)
	}
	if len(rl.state.PendingCommits) != 1 {
		t.Fatal("commit during rebalance must be deferred")
	}
	if len(fc.commits) != 0 {
		t.Fatal("deferred commit must not reach the client yet")
	}
}

func TestHandleCommitImmediateWhenNotRebalancing(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	fc := newFakeClient(tp)
	rl := testRunloop(fc)

	cmd := newCommitCommand(map[TopicPartition]Offset{tp: 5})
	if err := rl.handleCommit(cmd); err != nil {
		t.Fatalf("handleCommit() error = %v", err)
	}

	if _, err := cmd.completion.await(context.Background()); err != nil {
		t.Fatalf("completion error = %v", err)
	}
	if len(fc.commits) != 1 {
		t.Fatalf("len(commits) = %d, want 1", len(fc.commits))
	}
	if fc.commits[0][tp] != 6 {
		t.Errorf("committed offset = %d, want 6 (mark of 5)", fc.commits[0][tp])
	}
}

func TestDoCommitAggregatesMaxMarkPerPartition(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	fc := newFakeClient(tp)
	rl := testRunloop(fc)

	c1 := newCommitCommand(map[TopicPartition]Offset{tp: 3})
	c2 := newCommitCommand(map[TopicPartition]Offset{tp: 9})
	rl.doCommit([]CommitCommand{c1, c2})

	if fc.commits[0][tp] != 10 {
		t.Errorf("aggregated mark = %d, want 10 (max(3,9)+1)", fc.commits[0][tp])
	}
	for _, cmd := range []CommitCommand{c1, c2} {
		if _, err := cmd.completion.await(context.Background()); err != nil {
			t.Errorf("completion error = %v", err)
		}
	}
}

func TestHandlePollFlushesDeferredCommitsAfterRebalanceClears(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	fc := newFakeClient(tp)
	rl := testRunloop(fc)
	rl.tracker.Revoked(fc, map[TopicPartition]struct{}{tp: {}})

	cmd := newCommitCommand(map[TopicPartition]Offset{tp: 2})
	rl.state.AddCommit(cmd)

	rl.tracker.Assigned(map[TopicPartition]struct{}{tp: {}})
	if err := rl.handlePoll(context.Background()); err != nil {
		t.Fatalf("handlePoll() error = %v", err)
	}

	if _, err := cmd.completion.await(context.Background()); err != nil {
		t.Fatalf("completion error = %v", err)
	}
	if len(rl.state.PendingCommits) != 0 {
		t.Error("PendingCommits must be cleared once flushed")
	}
}

func TestRunloopGracefulShutdownResolvesOutstandingWork(t *testing.T) {
	tp := TopicPartition{Topic: "orders", Partition: 0}
	fc := newFakeClient(tp)
	rl := testRunloop(fc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rl.Run(ctx) }()

	req := newRequest(tp)
	rl.queues.Requests.Push(req)
	time.Sleep(20 * time.Millisecond) // let the fold loop pick up the request

	rl.shutdown.Trigger()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil on graceful shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after shutdown + cancel")
	}

	_, err := req.completion.await(context.Background())
	if err == nil {
		t.Error("outstanding request must be resolved (not left pending) once Run exits")
	}
}

func TestResolveOutstandingOnExitPrefersBufferedRecordsOverAbsent(t *testing.T) {
	// End-to-end scenario 6: graceful_shutdown() with pending_requests=
	// [Req(A), Req(B)] and buffered={A:[A@0]} must resolve Req(A) with
	// [A@0], not Absent, since it can still be served from the buffer.
	tpA := TopicPartition{Topic: "orders", Partition: 0}
	tpB := TopicPartition{Topic: "orders", Partition: 1}
	rl := testRunloop(newFakeClient(tpA, tpB))

	reqA := newRequest(tpA)
	reqB := newRequest(tpB)
	rl.state.AddRequest(reqA)
	rl.state.AddRequest(reqB)
	rl.state.AddBufferedRecords(map[TopicPartition][]Record{tpA: {{TP: tpA, Offset: 0}}})

	rl.resolveOutstandingOnExit()

	recordsA, err := reqA.completion.await(context.Background())
	if err != nil {
		t.Fatalf("Req(A) completion error = %v, want records from buffer", err)
	}
	if len(recordsA) != 1 || recordsA[0].Offset != 0 {
		t.Fatalf("Req(A) records = %+v, want single offset 0 from buffer", recordsA)
	}

	_, err = reqB.completion.await(context.Background())
	if !errors.Is(err, ErrAbsent) {
		t.Errorf("Req(B) completion error = %v, want ErrAbsent (no buffer for tpB)", err)
	}

	if len(rl.state.PendingRequests) != 0 {
		t.Error("PendingRequests must be drained by resolveOutstandingOnExit")
	}
	if _, ok := rl.state.Buffered[tpA]; ok {
		t.Error("tpA's buffer entry should be consumed, not left behind")
	}
}
