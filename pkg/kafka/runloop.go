package _kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	_logger "streamloop/pkg/logger"
)

// Runloop is the single-goroutine command fold described across §3-§5:
// it owns State exclusively and is the only writer of any promise it
// hands out. Every other type in this package is either a producer
// into one of its three command queues or a read-only view (the
// PartitionHub) of what it publishes.
type Runloop struct {
	gate     *ClientGate
	tracker  *RebalanceTracker
	queues   *CommandQueues
	hub      *PartitionHub
	shutdown *ShutdownGate
	state    *State
	diag     Diagnostics
	cfg      *Config
	log      *_logger.Logger
}

// NewRunloop wires the fold's collaborators together. The
// RebalanceTracker is created here, so client's rebalance callbacks
// must be wired to rl.tracker afterwards (NewStreamConsumer builds its
// kgoClient against rl.tracker and then installs it in rl.gate).
func NewRunloop(cfg *Config, client Client, diag Diagnostics, log *_logger.Logger) *Runloop {
	if diag == nil {
		diag = NoopDiagnostics{}
	}
	hub := NewPartitionHub()
	return &Runloop{
		gate:     NewClientGate(client),
		tracker:  NewRebalanceTracker(diag),
		queues:   NewCommandQueues(cfg.PollFrequency),
		hub:      hub,
		shutdown: NewShutdownGate(hub),
		state:    NewState(),
		diag:     diag,
		cfg:      cfg,
		log:      log,
	}
}

// Hub returns the PartitionHub new PartitionStreams are offered on.
func (rl *Runloop) Hub() *PartitionHub { return rl.hub }

// Queues returns the three command sources callers enqueue onto.
func (rl *Runloop) Queues() *CommandQueues { return rl.queues }

// Shutdown returns the idempotent shutdown trigger.
func (rl *Runloop) Shutdown() *ShutdownGate { return rl.shutdown }

// Run supervises the poll ticker and the command fold loop under a
// shared errgroup: cancelling either one's context stops both, and
// Run returns once both have exited. The three command queues and the
// hub are torn down in a defer so they close on every exit path.
func (rl *Runloop) Run(ctx context.Context) error {
	defer rl.queues.Shutdown()
	defer rl.hub.End()
	defer rl.resolveOutstandingOnExit()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rl.queues.RunPollTicker(gctx)
	})
	g.Go(func() error {
		return rl.fold(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && rl.shutdown.IsSet() {
		return nil
	}
	return err
}

// resolveOutstandingOnExit satisfies §5's requirement that shutdown
// must not claim completion until every pending request and commit
// has been resolved, covering whatever the fold loop left behind on
// its way out (error, cancellation, or graceful completion). Requests
// go through the same buffer-aware path as handleShutdownRequest (§4.6.5)
// rather than being failed outright, so a request whose TP still has
// buffered records resolves with those records instead of Absent —
// required by end-to-end scenario 6.
func (rl *Runloop) resolveOutstandingOnExit() {
	pending := rl.state.PendingRequests
	rl.state.PendingRequests = nil
	for _, r := range pending {
		rl.handleShutdownRequest(r)
	}
	for _, c := range rl.state.PendingCommits {
		c.fail(ErrShutdown)
	}
	rl.state.PendingCommits = nil
}

// fold is the command fold loop (§4.6): it merges polls, requests and
// commits with a single select and dispatches each to the appropriate
// handler, diverting to shutdown handling once the gate has tripped.
func (rl *Runloop) fold(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case _, ok := <-rl.queues.Polls():
			if !ok {
				return nil
			}
			if rl.shutdown.IsSet() {
				rl.drainPendingRequestsForShutdown()
			}
			if err := rl.handlePoll(ctx); err != nil {
				rl.hub.Fail(err)
				return err
			}

		case req, ok := <-rl.queues.Requests.C():
			if !ok {
				return nil
			}
			if rl.shutdown.IsSet() {
				rl.handleShutdownRequest(req)
				continue
			}
			if err := rl.handleRequest(req); err != nil {
				rl.hub.Fail(err)
				return err
			}

		case cmd, ok := <-rl.queues.Commits.C():
			if !ok {
				return nil
			}
			// A commit during shutdown is still attempted once no
			// rebalance is in progress, per §4.6.5: shutdown only
			// changes Request and Poll handling.
			if err := rl.handleCommit(cmd); err != nil {
				rl.hub.Fail(err)
				return err
			}
		}
	}
}

// handleRequest implements §4.6.1.
func (rl *Runloop) handleRequest(req Request) error {
	var assigned map[TopicPartition]struct{}
	err := rl.gate.WithClient(func(c Client) error {
		var aerr error
		assigned, aerr = c.Assignment()
		return aerr
	})

	if err == nil {
		_, owned := assigned[req.TP]
		if !rl.tracker.Rebalancing() && !owned {
			req.fail(ErrAbsent)
			return nil
		}
	}
	// If the assignment lookup itself failed, fall through and buffer
	// the request: the next poll will reconcile against truth.
	rl.state.AddRequest(req)
	return nil
}

// handleCommit implements §4.6.2.
func (rl *Runloop) handleCommit(cmd CommitCommand) error {
	if rl.tracker.Rebalancing() {
		rl.state.AddCommit(cmd)
		return nil
	}
	rl.doCommit([]CommitCommand{cmd})
	return nil
}

// doCommit implements §4.6.3: aggregate, register the completion
// callback, and fire the asynchronous commit under the gate.
func (rl *Runloop) doCommit(cmds []CommitCommand) {
	if len(cmds) == 0 {
		return
	}

	offsets := make(map[TopicPartition]Offset)
	for _, cmd := range cmds {
		for tp, off := range cmd.Offsets {
			mark := off.Mark()
			if cur, ok := offsets[tp]; !ok || mark > cur {
				offsets[tp] = mark
			}
		}
	}

	ids := make([]uuid.UUID, 0, len(cmds))
	for _, cmd := range cmds {
		ids = append(ids, cmd.ID)
	}
	rl.diag.Emit(Event{Kind: EventCommitStarted, Offsets: offsets, CommitIDs: ids})

	onDone := func(_ map[TopicPartition]Offset, err error) {
		if err != nil {
			for _, cmd := range cmds {
				cmd.fail(err)
			}
			rl.diag.Emit(Event{Kind: EventCommitFailure, Offsets: offsets, CommitIDs: ids, Err: err})
			return
		}
		for _, cmd := range cmds {
			cmd.resolve()
		}
		rl.diag.Emit(Event{Kind: EventCommitSuccess, Offsets: offsets, CommitIDs: ids})
	}

	err := rl.gate.WithClient(func(c Client) error {
		c.CommitAsync(offsets, onDone)
		return nil
	})
	if err != nil {
		for _, cmd := range cmds {
			cmd.fail(err)
		}
		rl.diag.Emit(Event{Kind: EventCommitFailure, Offsets: offsets, CommitIDs: ids, Err: err})
	}
}

// handlePoll implements §4.6.4, the fifteen-step heart of the fold.
func (rl *Runloop) handlePoll(ctx context.Context) error {
	var (
		newlyAssigned map[TopicPartition]struct{}
		fulfilledTPs  []TopicPartition
		notFulTPs     []TopicPartition
		requestedTPs  []TopicPartition
	)

	err := rl.gate.WithClient(func(c Client) error {
		prevAssigned, err := c.Assignment()
		if err != nil {
			prevAssigned = map[TopicPartition]struct{}{}
		}

		requested := rl.state.requestedPartitions()
		for tp := range requested {
			requestedTPs = append(requestedTPs, tp)
		}

		// Step 3: pause/resume reconciliation.
		toResume := intersect(prevAssigned, requested)
		toPause := subtract(prevAssigned, requested)
		c.Resume(toResume)
		c.Pause(toPause)

		// Step 4: poll with demand-dependent timeout.
		timeout := 0
		if len(requested) > 0 {
			timeout = int(rl.cfg.PollTimeout.Milliseconds())
		}
		records, perr := c.Poll(timeout)
		if perr != nil {
			// Every Poll error (e.g. "no subscription yet") is
			// swallowed and treated as no records. The Client
			// interface has no separate error for that case, so no
			// Poll error ends the runloop: this closure never
			// returns one to WithClient.
			records = nil
		}

		// Step 5: re-check shutdown.
		if rl.shutdown.IsSet() {
			c.Pause(prevAssigned)
			return nil
		}

		// Step 6: nil records (swallowed exception) is a pure no-op.
		if records == nil {
			return nil
		}

		// Step 7: assignment deltas.
		current, cerr := c.Assignment()
		if cerr != nil {
			current = prevAssigned
		}
		newlyAssigned = subtract(current, prevAssigned)
		revoked := subtract(prevAssigned, current)

		// Step 8: buffer unrequested records.
		unrequested := make(map[TopicPartition][]Record)
		for tp, recs := range records {
			if _, wanted := requested[tp]; !wanted {
				unrequested[tp] = recs
			}
		}
		rl.state.AddBufferedRecords(unrequested)

		// Step 9: seek newly assigned partitions under Manual mode.
		if rl.cfg.OffsetRetrieval.Mode == RetrievalManual && rl.cfg.OffsetRetrieval.ManualFn != nil && len(newlyAssigned) > 0 {
			offsets := rl.cfg.OffsetRetrieval.ManualFn(newlyAssigned)
			for tp, off := range offsets {
				c.Seek(tp, off)
			}
		}

		// Step 10: end revoked requests, preserving survivor order.
		survivors := make([]Request, 0, len(rl.state.PendingRequests))
		for _, r := range rl.state.PendingRequests {
			if _, gone := revoked[r.TP]; gone {
				r.fail(ErrAbsent)
				rl.state.RemoveBufferedRecordsFor(r.TP)
				continue
			}
			survivors = append(survivors, r)
		}

		// Step 11: fulfill from buffer-then-fresh, in arrival order. Two
		// survivors for the same TP must not both be handed the same
		// fresh batch: once a TP's fresh records are consumed by one
		// request, the next same-TP request in enqueue order sees
		// nothing fresh and stays pending rather than being coalesced.
		stillPending := make([]Request, 0, len(survivors))
		for _, r := range survivors {
			have := append([]Record{}, rl.state.Buffered[r.TP]...)
			have = append(have, records[r.TP]...)
			if len(have) == 0 {
				stillPending = append(stillPending, r)
				notFulTPs = append(notFulTPs, r.TP)
				continue
			}
			r.resolve(wrapCommittable(have, rl))
			rl.state.RemoveBufferedRecordsFor(r.TP)
			delete(records, r.TP)
			fulfilledTPs = append(fulfilledTPs, r.TP)
		}
		rl.state.PendingRequests = stillPending

		return nil
	})
	if err != nil {
		return fmt.Errorf("kafka: poll: %w", err)
	}

	// Step 12: diagnostics.
	rl.diag.Emit(Event{Kind: EventPoll, Requested: requestedTPs, Fulfilled: fulfilledTPs, NotFulfilled: notFulTPs})

	// Step 13: offer new partition streams, outside the gate.
	for tp := range newlyAssigned {
		stream := newPartitionStream(tp, rl.queues.Requests, rl.diag)
		rl.hub.Offer(tp, stream)
	}

	// Step 14: flush deferred commits once the rebalance has cleared.
	if !rl.tracker.Rebalancing() && len(rl.state.PendingCommits) > 0 {
		pending := rl.state.PendingCommits
		rl.state.PendingCommits = nil
		rl.doCommit(pending)
	}

	return nil
}

// handleShutdownRequest implements the Request branch of §4.6.5.
func (rl *Runloop) handleShutdownRequest(req Request) {
	if have := rl.state.Buffered[req.TP]; len(have) > 0 {
		req.resolve(wrapCommittable(have, rl))
		rl.state.RemoveBufferedRecordsFor(req.TP)
		return
	}
	req.fail(ErrAbsent)
}

// drainPendingRequestsForShutdown implements the Poll branch of
// §4.6.5: every request still pending when shutdown was observed is
// resolved under shutdown rules before the Poll itself runs.
func (rl *Runloop) drainPendingRequestsForShutdown() {
	pending := rl.state.PendingRequests
	rl.state.PendingRequests = nil
	for _, r := range pending {
		rl.handleShutdownRequest(r)
	}
}

// wrapCommittable pairs raw records with a commit closure that
// enqueues a CommitCommand for this offset and awaits its resolution.
func wrapCommittable(recs []Record, rl *Runloop) []CommittableRecord {
	out := make([]CommittableRecord, len(recs))
	for i, r := range recs {
		rec := r
		out[i] = CommittableRecord{
			Record: rec,
			commit: func(ctx context.Context, o Offset) error {
				cmd := newCommitCommand(map[TopicPartition]Offset{rec.TP: o})
				rl.queues.Commits.Push(cmd)
				_, err := cmd.completion.await(ctx)
				return err
			},
		}
	}
	return out
}

func intersect(a, b map[TopicPartition]struct{}) map[TopicPartition]struct{} {
	out := make(map[TopicPartition]struct{})
	for tp := range a {
		if _, ok := b[tp]; ok {
			out[tp] = struct{}{}
		}
	}
	return out
}

func subtract(a, b map[TopicPartition]struct{}) map[TopicPartition]struct{} {
	out := make(map[TopicPartition]struct{})
	for tp := range a {
		if _, ok := b[tp]; !ok {
			out[tp] = struct{}{}
		}
	}
	return out
}
