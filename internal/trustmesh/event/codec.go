package event

import (
	"encoding/json"
	"strings"
	"time"
)

// wireEnvelope is the JSON shape exchanged with the log.
type wireEnvelope struct {
	Type      Type            `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	Standard  Standard        `json:"hcs_standard"`
	Hash      string          `json:"hash,omitempty"`
}

// Encode renders evt as canonical wire JSON including its hash.
func Encode(evt Event) ([]byte, error) {
	if !Known(evt.Type) {
		return nil, &UnknownEventError{Type: evt.Type}
	}
	if evt.Payload == nil {
		return nil, invalid("data", "payload is required")
	}
	hash := evt.Hash
	if hash == "" {
		computed, err := CanonicalHash(evt)
		if err != nil {
			return nil, err
		}
		hash = computed
	}
	data, err := CanonicalJSON(evt.Payload)
	if err != nil {
		return nil, malformed("encode payload", err)
	}
	return CanonicalJSON(wireEnvelope{
		Type:      evt.Type,
		Timestamp: formatTimestamp(evt.Timestamp),
		Data:      data,
		Standard:  evt.Standard,
		Hash:      hash,
	})
}

// Decode parses wire JSON into a validated Event.
//
// Unknown types yield *UnknownEventError with the raw bytes attached. Every
// other defect (bad JSON, unknown payload keys, failed schema checks, a
// standard tag or hash that disagrees with the content) is a validation error.
func Decode(raw []byte) (Event, error) {
	var wire wireEnvelope
	if err := decodeStrict(raw, &wire); err != nil {
		return Event{}, malformed("decode envelope", err)
	}
	if strings.TrimSpace(string(wire.Type)) == "" {
		return Event{}, invalid("type", "event type is required")
	}
	def, ok := Lookup(wire.Type)
	if !ok {
		kept := make([]byte, len(raw))
		copy(kept, raw)
		return Event{}, &UnknownEventError{Type: wire.Type, Raw: kept}
	}
	if wire.Standard == "" {
		wire.Standard = def.Standard
	}
	if wire.Standard != def.Standard {
		return Event{}, invalid("hcs_standard", "standard tag "+string(wire.Standard)+" does not match "+string(def.Type))
	}
	ts, err := time.Parse(time.RFC3339Nano, wire.Timestamp)
	if err != nil {
		return Event{}, malformed("parse timestamp", err)
	}
	if len(wire.Data) == 0 || string(wire.Data) == "null" {
		return Event{}, invalid("data", "payload is required")
	}
	payload, err := def.decode(wire.Data)
	if err != nil {
		return Event{}, malformed("decode "+string(def.Type)+" payload", err)
	}
	if err := payload.Validate(); err != nil {
		return Event{}, err
	}

	evt := Event{
		Type:      def.Type,
		Standard:  def.Standard,
		Timestamp: ts.UTC(),
		Payload:   payload,
	}
	hash, err := CanonicalHash(evt)
	if err != nil {
		return Event{}, err
	}
	if wire.Hash != "" && wire.Hash != hash {
		return Event{}, invalid("hash", "hash does not match event content")
	}
	evt.Hash = hash
	return evt, nil
}
