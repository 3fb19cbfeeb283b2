package _kafka

import (
	"context"
	"testing"
	"time"
)

func TestUnboundedQueuePreservesOrder(t *testing.T) {
	q := newUnboundedQueue[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}

	for i := 0; i < 5; i++ {
		select {
		case got := <-q.C():
			if got != i {
				t.Fatalf("C() = %d, want %d", got, i)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for item %d", i)
		}
	}
}

func TestUnboundedQueueDropsPushAfterShutdown(t *testing.T) {
	q := newUnboundedQueue[int]()
	q.Shutdown()
	q.Push(1)

	select {
	case v := <-q.C():
		t.Fatalf("C() delivered %d after Shutdown with no pre-existing buffer", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnboundedQueueDrainsBufferedValueAcrossShutdownRace(t *testing.T) {
	// Regression test: Push immediately followed by Shutdown (the
	// PartitionHub.End/Fail pattern) must not drop the just-pushed
	// value even if Shutdown's lock wins the race to run first.
	q := newUnboundedQueue[string]()
	q.Push("terminal")
	q.Shutdown()

	select {
	case got := <-q.C():
		if got != "terminal" {
			t.Fatalf("C() = %q, want %q", got, "terminal")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out: buffered value dropped by Shutdown")
	}
}

func TestCommandQueuesPollTickerStopsOnCancel(t *testing.T) {
	cq := NewCommandQueues(5 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- cq.RunPollTicker(ctx)
	}()

	select {
	case <-cq.Polls():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first synthetic poll")
	}

	cancel()
	select {
	case err := <-errCh:
		if err == nil {
			t.Error("RunPollTicker() error = nil, want context.Canceled")
		}
	case <-time.After(time.Second):
		t.Fatal("RunPollTicker did not return after cancellation")
	}
}
