package _kafka

import (
	"context"
	"fmt"

	_logger "streamloop/pkg/logger"
)

// StreamConsumer is the upstream-facing type built on top of the
// Runloop, CommandQueues and PartitionHub (§6 "To the user"). It is
// the thing application code constructs and calls Request/Commit/
// PartitionsStream/GracefulShutdown against.
type StreamConsumer struct {
	rl     *Runloop
	cancel context.CancelFunc
	done   chan struct{}
	runErr error
}

// NewStreamConsumer validates cfg, optionally ensures the configured
// topics exist, builds a kgoClient wired to the rebalance tracker, and
// returns a StreamConsumer whose Runloop is not yet running. Call
// Start to begin the command fold.
func NewStreamConsumer(ctx context.Context, cfg *Config, diag Diagnostics, log *_logger.Logger) (*StreamConsumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka: invalid config: %w", err)
	}
	if diag == nil {
		diag = NoopDiagnostics{}
	}

	if cfg.EnsureTopics {
		if err := ensureTopics(ctx, cfg); err != nil {
			return nil, err
		}
	}

	rl := NewRunloop(cfg, nil, diag, log)
	client, err := newKgoClient(cfg, rl.tracker)
	if err != nil {
		return nil, err
	}
	rl.gate = NewClientGate(client)

	return &StreamConsumer{rl: rl, done: make(chan struct{})}, nil
}

// Start launches the Runloop in the background. It returns immediately;
// use Wait (or rely on GracefulShutdown) to observe completion.
func (sc *StreamConsumer) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	sc.cancel = cancel
	go func() {
		defer close(sc.done)
		sc.runErr = sc.rl.Run(runCtx)
	}()
}

// Wait blocks until the Runloop has fully exited and returns its error.
func (sc *StreamConsumer) Wait() error {
	<-sc.done
	return sc.runErr
}

// Request enqueues a pull against tp and waits for its resolution.
func (sc *StreamConsumer) Request(ctx context.Context, tp TopicPartition) ([]CommittableRecord, error) {
	req := newRequest(tp)
	sc.rl.diag.Emit(Event{Kind: EventRequest, TP: tp, CorrelationID: req.ID})
	sc.rl.queues.Requests.Push(req)
	return req.completion.await(ctx)
}

// Commit enqueues a commit spanning any number of partitions and waits
// for it to be acknowledged or fail.
func (sc *StreamConsumer) Commit(ctx context.Context, offsets map[TopicPartition]Offset) error {
	cmd := newCommitCommand(offsets)
	sc.rl.queues.Commits.Push(cmd)
	_, err := cmd.completion.await(ctx)
	return err
}

// PartitionsStream exposes the PartitionHub's channel of newly
// assigned (topic-partition, stream) pairs.
func (sc *StreamConsumer) PartitionsStream() <-chan Take[PartitionEvent] {
	return sc.rl.hub.C()
}

// GracefulShutdown idempotently triggers shutdown, which ends the
// PartitionHub immediately and diverts every further command through
// shutdown rules, then stops the Runloop and blocks until it has fully
// torn down. Any commit still pending at that point fails with
// ErrShutdown rather than being silently dropped, per §5.
func (sc *StreamConsumer) GracefulShutdown() error {
	sc.rl.shutdown.Trigger()
	if sc.cancel != nil {
		sc.cancel()
	}
	err := sc.Wait()
	if kc, ok := sc.rl.gate.client.(*kgoClient); ok {
		kc.Close()
	}
	return err
}
