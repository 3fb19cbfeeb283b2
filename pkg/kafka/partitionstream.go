package _kafka

import (
	"context"
	"errors"
)

// PartitionStream is a lazy, restartable-until-End sequence of
// CommittableRecord chunks for one topic-partition. Each Next(ctx)
// pull constructs a fresh one-shot, enqueues a Request, and awaits its
// resolution.
type PartitionStream struct {
	tp       TopicPartition
	requests *unboundedQueue[Request]
	diag     Diagnostics
	ended    bool
}

func newPartitionStream(tp TopicPartition, requests *unboundedQueue[Request], diag Diagnostics) *PartitionStream {
	return &PartitionStream{tp: tp, requests: requests, diag: diag}
}

// TopicPartition returns the partition this stream pulls from.
func (s *PartitionStream) TopicPartition() TopicPartition {
	return s.tp
}

// Next pulls the next chunk of records for this partition. A nil slice
// with a nil error never happens: Next returns either a non-empty
// chunk, or (nil, ErrStreamEnded) once the partition is revoked / the
// runloop shuts down (ErrAbsent) and on every call after that, or
// (nil, err) on a hard failure.
func (s *PartitionStream) Next(ctx context.Context) ([]CommittableRecord, error) {
	if s.ended {
		return nil, ErrStreamEnded
	}

	req := newRequest(s.tp)
	s.requests.Push(req)
	s.diag.Emit(Event{Kind: EventRequest, TP: s.tp, CorrelationID: req.ID})

	records, err := req.completion.await(ctx)
	if err != nil {
		if errors.Is(err, ErrAbsent) {
			s.ended = true
			return nil, ErrStreamEnded
		}
		return nil, err
	}
	return records, nil
}

// ErrStreamEnded is returned by Next once the stream has ended
// cleanly (revoke or shutdown). Callers should stop pulling.
var ErrStreamEnded = errors.New("streamloop: partition stream ended")
