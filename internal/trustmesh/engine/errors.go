package engine

import (
	"fmt"

	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

// Outcome classifies what Apply did with an event.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeDuplicate
	OutcomeRejected
	OutcomeParked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	case OutcomeParked:
		return "parked"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// RejectionError reports an event that failed validation against the
// projections. Err carries the coded domain error.
type RejectionError struct {
	Type     event.Type
	EntityID string
	Hash     string
	Topic    event.Topic
	Seq      uint64
	Err      error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("reject %s %s (hash %s, %s#%d): %v", e.Type, e.EntityID, e.Hash, e.Topic, e.Seq, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}
