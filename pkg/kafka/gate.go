package _kafka

import "sync"

// Client is everything the runloop requires of the underlying,
// non-thread-safe Kafka consumer binding (§6 "To the client library").
// Implementations must invoke rebalance callbacks synchronously from
// within Poll, on the caller's goroutine — kgoClient (kgoclient.go)
// satisfies this by construction since franz-go's rebalance hooks run
// inside PollFetches.
type Client interface {
	Subscribe(topics []string) error
	Assignment() (map[TopicPartition]struct{}, error)
	Poll(timeoutMs int) (map[TopicPartition][]Record, error)
	Pause(tps map[TopicPartition]struct{})
	Resume(tps map[TopicPartition]struct{})
	Seek(tp TopicPartition, offset Offset)
	CommitAsync(offsets map[TopicPartition]Offset, callback func(map[TopicPartition]Offset, error))
}

// ClientGate serializes every call to the underlying client behind a
// single mutual-exclusion primitive (§4.1). Nested entry is forbidden;
// WithClient is not reentrant, matching the spec's instruction to
// linearize critical sections when the host language lacks a
// re-entrant lock.
type ClientGate struct {
	mu     sync.Mutex
	client Client
}

// NewClientGate wraps client behind a gate.
func NewClientGate(client Client) *ClientGate {
	return &ClientGate{client: client}
}

// WithClient runs f with exclusive access to the client. Rebalance
// callbacks triggered synchronously by f (e.g. inside Poll) may safely
// call back into the same Client value without re-entering the gate,
// since they run on this same goroutine while the lock is already held.
func (g *ClientGate) WithClient(f func(Client) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return f(g.client)
}
