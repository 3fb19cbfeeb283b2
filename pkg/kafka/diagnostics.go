package _kafka

import "github.com/google/uuid"

// EventKind tags the fire-and-forget diagnostics events enumerated in
// §6. Diagnostics are an external collaborator: the runloop never
// inspects their result, and no Diagnostics method returns an error to
// its caller — failures are the sink's problem to log and drop.
type EventKind int

const (
	EventRequest EventKind = iota
	EventRebalanceAssigned
	EventRebalanceRevoked
	EventPoll
	EventCommitStarted
	EventCommitSuccess
	EventCommitFailure
)

func (k EventKind) String() string {
	switch k {
	case EventRequest:
		return "request"
	case EventRebalanceAssigned:
		return "rebalance_assigned"
	case EventRebalanceRevoked:
		return "rebalance_revoked"
	case EventPoll:
		return "poll"
	case EventCommitStarted:
		return "commit_started"
	case EventCommitSuccess:
		return "commit_success"
	case EventCommitFailure:
		return "commit_failure"
	default:
		return "unknown"
	}
}

// Event is one diagnostics occurrence. Not every field is populated
// for every Kind; the field comments below say which kinds carry them.
type Event struct {
	Kind          EventKind
	CorrelationID uuid.UUID

	TP  TopicPartition   // EventRequest
	TPs []TopicPartition // EventRebalanceAssigned / EventRebalanceRevoked

	Requested     []TopicPartition // EventPoll
	Fulfilled     []TopicPartition // EventPoll
	NotFulfilled  []TopicPartition // EventPoll
	Offsets       map[TopicPartition]Offset
	CommitIDs     []uuid.UUID
	Err           error
}

// Diagnostics is a fire-and-forget event sink. Implementations must
// not block the runloop meaningfully and must never panic.
type Diagnostics interface {
	Emit(Event)
}

// NoopDiagnostics discards every event. It is the zero-value sink a
// Runloop uses when the caller supplies none.
type NoopDiagnostics struct{}

func (NoopDiagnostics) Emit(Event) {}

// MultiDiagnostics fans a single event out to every configured sink.
type MultiDiagnostics []Diagnostics

func (m MultiDiagnostics) Emit(e Event) {
	for _, d := range m {
		d.Emit(e)
	}
}

// eventPayloadView is the JSON-friendly projection of an Event: its
// TopicPartition-keyed maps become string-keyed, since TopicPartition
// is not itself a valid JSON map key type.
type eventPayloadView struct {
	Kind          string           `json:"kind"`
	CorrelationID string           `json:"correlation_id,omitempty"`
	TP            string           `json:"tp,omitempty"`
	TPs           []string         `json:"tps,omitempty"`
	Requested     []string         `json:"requested,omitempty"`
	Fulfilled     []string         `json:"fulfilled,omitempty"`
	NotFulfilled  []string         `json:"not_fulfilled,omitempty"`
	Offsets       map[string]int64 `json:"offsets,omitempty"`
	CommitIDs     []string         `json:"commit_ids,omitempty"`
	Err           string           `json:"error,omitempty"`
}

func eventPayload(e Event) eventPayloadView {
	v := eventPayloadView{Kind: e.Kind.String()}
	if e.CorrelationID.String() != "00000000-0000-0000-0000-000000000000" {
		v.CorrelationID = e.CorrelationID.String()
	}
	if e.TP != (TopicPartition{}) {
		v.TP = e.TP.String()
	}
	v.TPs = tpStrings(e.TPs)
	v.Requested = tpStrings(e.Requested)
	v.Fulfilled = tpStrings(e.Fulfilled)
	v.NotFulfilled = tpStrings(e.NotFulfilled)
	if len(e.Offsets) > 0 {
		v.Offsets = make(map[string]int64, len(e.Offsets))
		for tp, off := range e.Offsets {
			v.Offsets[tp.String()] = int64(off)
		}
	}
	for _, id := range e.CommitIDs {
		v.CommitIDs = append(v.CommitIDs, id.String())
	}
	if e.Err != nil {
		v.Err = e.Err.Error()
	}
	return v
}

func tpStrings(tps []TopicPartition) []string {
	if len(tps) == 0 {
		return nil
	}
	out := make([]string, len(tps))
	for i, tp := range tps {
		out[i] = tp.String()
	}
	return out
}
