package _kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

func durationMs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// kgoClient adapts a *kgo.Client to the Client interface. Rebalance
// callbacks are registered at construction time and run synchronously
// inside PollFetches on the caller's goroutine, which is exactly what
// Client requires: kgoClient.Poll calls PollFetches directly, so any
// callback kgo invokes runs under the same ClientGate critical section
// as the Poll call itself, never re-entering the gate.
type kgoClient struct {
	cl *kgo.Client

	mu         sync.Mutex
	assignment map[TopicPartition]struct{}
}

// newKgoClient builds a kgoClient wired with rebalance hooks that keep
// a local assignment set current and forward to tracker, ahead of
// constructing the underlying *kgo.Client (kgo.OnPartitionsAssigned
// and friends must be supplied as client options).
func newKgoClient(cfg *Config, tracker *RebalanceTracker) (*kgoClient, error) {
	kc := &kgoClient{assignment: make(map[TopicPartition]struct{})}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.OnPartitionsAssigned(func(_ context.Context, _ *kgo.Client, assigned map[string][]int32) {
			tps := fromKgoMap(assigned)
			kc.mu.Lock()
			for tp := range tps {
				kc.assignment[tp] = struct{}{}
			}
			kc.mu.Unlock()
			tracker.Assigned(tps)
		}),
		kgo.OnPartitionsRevoked(func(_ context.Context, cl *kgo.Client, revoked map[string][]int32) {
			tps := fromKgoMap(revoked)
			kc.mu.Lock()
			for tp := range tps {
				delete(kc.assignment, tp)
			}
			kc.mu.Unlock()
			tracker.Revoked(kc, tps)
		}),
		kgo.OnPartitionsLost(func(_ context.Context, cl *kgo.Client, lost map[string][]int32) {
			tps := fromKgoMap(lost)
			kc.mu.Lock()
			for tp := range tps {
				delete(kc.assignment, tp)
			}
			kc.mu.Unlock()
			tracker.Revoked(kc, tps)
		}),
		kgo.DisableAutoCommit(),
	}

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka: new client: %w", err)
	}
	kc.cl = cl
	return kc, nil
}

func fromKgoMap(m map[string][]int32) map[TopicPartition]struct{} {
	out := make(map[TopicPartition]struct{})
	for topic, partitions := range m {
		for _, p := range partitions {
			out[TopicPartition{Topic: topic, Partition: p}] = struct{}{}
		}
	}
	return out
}

func toKgoMap(tps map[TopicPartition]struct{}) map[string][]int32 {
	out := make(map[string][]int32)
	for tp := range tps {
		out[tp.Topic] = append(out[tp.Topic], tp.Partition)
	}
	return out
}

// Subscribe is a no-op for kgoClient: topics are fixed at construction
// via kgo.ConsumeTopics, matching franz-go's subscribe-once model.
func (c *kgoClient) Subscribe(topics []string) error {
	return nil
}

// Assignment returns the locally tracked assignment set, kept current
// by the rebalance callbacks registered at construction. franz-go does
// not expose a synchronous "current assignment" getter equivalent to
// the one this adapter needs, so the callbacks are the source of truth.
func (c *kgoClient) Assignment() (map[TopicPartition]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[TopicPartition]struct{}, len(c.assignment))
	for tp := range c.assignment {
		out[tp] = struct{}{}
	}
	return out, nil
}

// Poll calls PollFetches, which synchronously invokes any rebalance
// callback due to fire before returning. A zero timeoutMs polls
// without blocking, matching the spec's "poll(0)" when demand is
// empty. "No subscription yet" is swallowed upstream by the runloop,
// not here: kgo's ConsumeTopics subscribes at construction, so Poll
// itself never observes that condition for this adapter. An empty
// Fetches comes back as an empty, non-nil map, which the runloop
// handles as an ordinary poll that returned no records.
func (c *kgoClient) Poll(timeoutMs int) (map[TopicPartition][]Record, error) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if timeoutMs > 0 {
		ctx, cancel = context.WithTimeout(ctx, durationMs(timeoutMs))
		defer cancel()
	} else {
		var immediate context.CancelFunc
		ctx, immediate = context.WithTimeout(ctx, 0)
		defer immediate()
	}

	fetches := c.cl.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, errors.New("kafka: client closed")
	}

	out := make(map[TopicPartition][]Record)
	fetches.EachError(func(topic string, partition int32, err error) {
		// Fetch-level errors surface per partition; they are not fatal
		// to the poll as a whole, so they are dropped here and the
		// partition simply yields no records this round.
	})
	fetches.EachRecord(func(r *kgo.Record) {
		tp := TopicPartition{Topic: r.Topic, Partition: r.Partition}
		out[tp] = append(out[tp], Record{
			TP:     tp,
			Offset: Offset(r.Offset),
			Key:    r.Key,
			Value:  r.Value,
		})
	})
	return out, nil
}

// Pause halts fetch delivery for tps via PauseFetchPartitions.
func (c *kgoClient) Pause(tps map[TopicPartition]struct{}) {
	if len(tps) == 0 {
		return
	}
	c.cl.PauseFetchPartitions(toKgoMap(tps))
}

// Resume resumes fetch delivery for tps via ResumeFetchPartitions.
func (c *kgoClient) Resume(tps map[TopicPartition]struct{}) {
	if len(tps) == 0 {
		return
	}
	c.cl.ResumeFetchPartitions(toKgoMap(tps))
}

// Seek repositions tp's next fetch offset.
func (c *kgoClient) Seek(tp TopicPartition, offset Offset) {
	offsets := map[string]map[int32]kgo.Offset{
		tp.Topic: {tp.Partition: kgo.NewOffset().At(int64(offset))},
	}
	c.cl.SetOffsets(offsets)
}

// CommitAsync commits offsets through kgo's synchronous CommitRecords
// and then invokes callback on the calling goroutine with its result,
// so a failed commit reaches the failure branch. Each commit mark is
// passed as a kgo.Record stand-in at mark-1, since CommitRecords
// commits a record's offset plus one.
func (c *kgoClient) CommitAsync(offsets map[TopicPartition]Offset, callback func(map[TopicPartition]Offset, error)) {
	recs := make([]*kgo.Record, 0, len(offsets))
	for tp, off := range offsets {
		recs = append(recs, &kgo.Record{Topic: tp.Topic, Partition: tp.Partition, Offset: int64(off) - 1})
	}
	err := c.cl.CommitRecords(context.Background(), recs...)
	callback(offsets, err)
}

// Close releases the underlying client. Not part of the Client
// interface (the runloop never closes the client it is handed), but
// owned-client callers such as consumer.go use it during teardown.
func (c *kgoClient) Close() {
	c.cl.Close()
}
