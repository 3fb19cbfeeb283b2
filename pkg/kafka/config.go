package _kafka

import (
	"time"

	_errors "streamloop/pkg/errors"
	_validator "streamloop/pkg/validator"
)

// RetrievalMode selects how a newly assigned partition's starting
// offset is determined (§6).
type RetrievalMode int

const (
	// RetrievalAuto defers entirely to the client's configured reset
	// policy. No seek is ever issued, even if ManualFn is also set —
	// this is a preserved Open Question from the source spec.
	RetrievalAuto RetrievalMode = iota
	// RetrievalManual calls ManualFn for every newly-assigned set of
	// partitions and seeks each one to the offset it returns.
	RetrievalManual
)

// OffsetRetrieval configures how starting offsets for newly assigned
// partitions are determined.
type OffsetRetrieval struct {
	Mode RetrievalMode
	// ManualFn is consulted only when Mode is RetrievalManual.
	ManualFn func(newlyAssigned map[TopicPartition]struct{}) map[TopicPartition]Offset
}

// AutoOffsetRetrieval defers to the client's own reset policy.
func AutoOffsetRetrieval() OffsetRetrieval {
	return OffsetRetrieval{Mode: RetrievalAuto}
}

// ManualOffsetRetrieval seeks every newly assigned partition using fn.
func ManualOffsetRetrieval(fn func(map[TopicPartition]struct{}) map[TopicPartition]Offset) OffsetRetrieval {
	return OffsetRetrieval{Mode: RetrievalManual, ManualFn: fn}
}

// Config is the Runloop's configuration surface (§6). Brokers, Group
// and Topics carry over from the teacher's plain Kafka config; the
// remaining fields are the ones this spec enumerates.
type Config struct {
	Brokers []string `json:"brokers" yaml:"brokers" validate:"required,min=1"`
	Group   string   `json:"group" yaml:"group" validate:"required"`
	Topics  []string `json:"topics" yaml:"topics" validate:"required,min=1"`

	// EnsureTopics runs a preflight kadm.CreateTopics call for any
	// configured topic that does not yet exist.
	EnsureTopics bool `json:"ensure_topics" yaml:"ensure_topics"`

	// PollFrequency is the interval between synthetic Poll commands.
	PollFrequency time.Duration `json:"poll_frequency" yaml:"poll_frequency" validate:"required"`
	// PollTimeout bounds client.Poll's block time when demand exists.
	PollTimeout time.Duration `json:"poll_timeout" yaml:"poll_timeout" validate:"required"`

	OffsetRetrieval OffsetRetrieval `json:"-" yaml:"-"`
}

// DefaultConfig mirrors the teacher's DefaultConfig shape, extended
// with the runloop-specific timing fields.
func DefaultConfig() *Config {
	return &Config{
		Brokers:         []string{"localhost:9092"},
		Group:           "streamloop",
		Topics:          []string{},
		PollFrequency:   200 * time.Millisecond,
		PollTimeout:     500 * time.Millisecond,
		OffsetRetrieval: AutoOffsetRetrieval(),
	}
}

// Validate checks the configuration using the shared validator package
// rather than hand-rolled if-chains, per SPEC_FULL.md §1.1.
func (c *Config) Validate() error {
	v := _validator.NewValidator(_errors.DefaultRegistry)
	errs, err := v.Validate(c, "en")
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
