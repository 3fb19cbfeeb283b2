package _kafka

import "sync"

// TakeKind tags the three-variant Take sum type the spec describes for
// the PartitionHub: a value, a clean end, or a failure. Go has no
// native sum types, so this is modeled as a tagged struct.
type TakeKind int

const (
	TakeValue TakeKind = iota
	TakeEnd
	TakeFail
)

// Take wraps one item flowing out of the PartitionHub.
type Take[T any] struct {
	Kind  TakeKind
	Value T
	Err   error
}

// PartitionEvent is what the hub emits to the user: a newly assigned
// topic-partition together with its dedicated record stream.
type PartitionEvent struct {
	TP     TopicPartition
	Stream *PartitionStream
}

// PartitionHub is the broadcast sink described in §4.4: an unbounded
// queue of Take[PartitionEvent], terminated by a single TakeEnd (or
// TakeFail) after which no further offers succeed.
type PartitionHub struct {
	queue *unboundedQueue[Take[PartitionEvent]]

	mu     sync.Mutex
	ended  bool
	endOne sync.Once
}

// NewPartitionHub creates an empty hub.
func NewPartitionHub() *PartitionHub {
	return &PartitionHub{queue: newUnboundedQueue[Take[PartitionEvent]]()}
}

// Offer publishes a newly assigned partition's stream. A no-op once
// the hub has ended.
func (h *PartitionHub) Offer(tp TopicPartition, stream *PartitionStream) {
	h.mu.Lock()
	ended := h.ended
	h.mu.Unlock()
	if ended {
		return
	}
	h.queue.Push(Take[PartitionEvent]{Kind: TakeValue, Value: PartitionEvent{TP: tp, Stream: stream}})
}

// End terminates the hub cleanly. Idempotent: only the first call
// offers TakeEnd and triggers the hub's own shutdown.
func (h *PartitionHub) End() {
	h.endOne.Do(func() {
		h.mu.Lock()
		h.ended = true
		h.mu.Unlock()
		h.queue.Push(Take[PartitionEvent]{Kind: TakeEnd})
		h.queue.Shutdown()
	})
}

// Fail terminates the hub with a cause. Idempotent like End.
func (h *PartitionHub) Fail(cause error) {
	h.endOne.Do(func() {
		h.mu.Lock()
		h.ended = true
		h.mu.Unlock()
		h.queue.Push(Take[PartitionEvent]{Kind: TakeFail, Err: cause})
		h.queue.Shutdown()
	})
}

// C returns the channel a consumer of the hub should range/select over.
// Once a TakeEnd or TakeFail is observed, the caller must stop reading:
// the channel is about to be torn down by the matching Shutdown.
func (h *PartitionHub) C() <-chan Take[PartitionEvent] {
	return h.queue.C()
}
