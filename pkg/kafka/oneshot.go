package _kafka

import (
	"context"
	"sync"
)

// oneShot is a single-resolver, single-value completion primitive: the
// Go stand-in for the spec's OneShotPromise. It is resolved exactly
// once by the runloop and awaited by a producer goroutine (a partition
// stream's Next, or a commit caller).
type oneShot[T any] struct {
	done chan struct{}
	once sync.Once

	value T
	err   error
}

func newOneShot[T any]() *oneShot[T] {
	return &oneShot[T]{done: make(chan struct{})}
}

// resolve completes the one-shot. Only the first call has any effect;
// later calls are silently ignored, which is what lets handlers that
// might double-resolve under error paths stay simple.
func (o *oneShot[T]) resolve(value T, err error) {
	o.once.Do(func() {
		o.value = value
		o.err = err
		close(o.done)
	})
}

// await blocks until resolve is called or ctx is done, whichever comes
// first.
func (o *oneShot[T]) await(ctx context.Context) (T, error) {
	select {
	case <-o.done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
