package _kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrAbsent is the terminal, non-error signal that closes a partition
// stream cleanly: the partition was revoked, or the runloop shut down
// while the request was outstanding.
var ErrAbsent = errors.New("streamloop: partition absent")

// ErrShutdown resolves commits that were still pending when the runloop
// tore down, per the preserved Open Question in the spec: these are
// resolved with an error rather than silently dropped.
var ErrShutdown = errors.New("streamloop: runloop shut down before commit completed")

// TopicPartition identifies a single partition of a topic. It is
// comparable and safe to use as a map key.
type TopicPartition struct {
	Topic     string
	Partition int32
}

func (tp TopicPartition) String() string {
	return fmt.Sprintf("%s[%d]", tp.Topic, tp.Partition)
}

// Offset is a 0-based position within a partition.
type Offset int64

// Mark returns the commit mark for this offset: the next position to
// be read after this one has been consumed.
func (o Offset) Mark() Offset {
	return o + 1
}

// Record is a single message read from a partition. It is immutable.
type Record struct {
	TP     TopicPartition
	Offset Offset
	Key    []byte
	Value  []byte
}

// CommittableRecord pairs a Record with a closure that commits its
// offset when the caller is done processing it.
type CommittableRecord struct {
	Record

	commit func(ctx context.Context, o Offset) error
}

// Commit commits this record's offset (as a commit mark) and waits for
// the runloop to acknowledge it.
func (r CommittableRecord) Commit(ctx context.Context) error {
	return r.commit(ctx, r.Offset)
}

// Request represents a single downstream pull against one partition.
// Completion resolves exactly once, to either a non-empty slice of
// records or an error (ErrAbsent on revoke/shutdown).
type Request struct {
	ID         uuid.UUID
	TP         TopicPartition
	completion *oneShot[[]CommittableRecord]
}

func newRequest(tp TopicPartition) Request {
	return Request{
		ID:         uuid.New(),
		TP:         tp,
		completion: newOneShot[[]CommittableRecord](),
	}
}

func (r Request) resolve(records []CommittableRecord) {
	r.completion.resolve(records, nil)
}

func (r Request) fail(err error) {
	r.completion.resolve(nil, err)
}

// CommitCommand represents one user-initiated commit spanning any
// number of partitions.
type CommitCommand struct {
	ID         uuid.UUID
	Offsets    map[TopicPartition]Offset
	completion *oneShot[struct{}]
}

func newCommitCommand(offsets map[TopicPartition]Offset) CommitCommand {
	return CommitCommand{
		ID:         uuid.New(),
		Offsets:    offsets,
		completion: newOneShot[struct{}](),
	}
}

func (c CommitCommand) resolve() {
	c.completion.resolve(struct{}{}, nil)
}

func (c CommitCommand) fail(err error) {
	c.completion.resolve(struct{}{}, err)
}
