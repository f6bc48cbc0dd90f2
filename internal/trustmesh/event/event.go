package event

import (
	"fmt"
	"time"
)

// Event is the envelope around one fact on the log.
//
// Type, Standard, Timestamp and Payload identify the fact and feed the hash.
// Topic, Seq and ReceivedAt are assigned by the log on delivery and never
// change the hash.
type Event struct {
	Type      Type
	Standard  Standard
	Timestamp time.Time
	Payload   Payload
	Hash      string

	Topic      Topic
	Seq        uint64
	ReceivedAt time.Time
}

// New builds a validated, hashed envelope for payload at the given instant.
//
// Timestamps are normalised to UTC millisecond precision so the same fact
// round-trips through any log backend without changing its hash.
func New(payload Payload, at time.Time) (Event, error) {
	if payload == nil {
		return Event{}, invalid("data", "payload is required")
	}
	if at.IsZero() {
		return Event{}, invalid("timestamp", "timestamp is required")
	}
	def, ok := Lookup(payload.EventType())
	if !ok {
		return Event{}, &UnknownEventError{Type: payload.EventType()}
	}
	if err := payload.Validate(); err != nil {
		return Event{}, err
	}
	evt := Event{
		Type:      def.Type,
		Standard:  def.Standard,
		Timestamp: at.UTC().Truncate(time.Millisecond),
		Payload:   payload,
	}
	hash, err := CanonicalHash(evt)
	if err != nil {
		return Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash
	return evt, nil
}

// Key returns the payload's ordering key.
func (e Event) Key() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Key()
}

// EntityID returns the payload's natural id for error reports.
func (e Event) EntityID() string {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.EntityID()
}
