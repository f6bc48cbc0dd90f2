package event

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// CanonicalJSON renders v as deterministic JSON: object keys sorted
// lexicographically, no insignificant whitespace, HTML characters unescaped,
// and number literals preserved exactly as the first marshal produced them.
func CanonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case json.Number:
		buf.WriteString(val.String())
	default:
		return writeScalar(buf, val)
	}
	return nil
}

// writeScalar encodes strings, bools and null without HTML escaping.
func writeScalar(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode canonical: %w", err)
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	_, err := io.Copy(buf, bytes.NewReader(out))
	return err
}

// hashInput is the identifying part of an event. Log bookkeeping (topic,
// sequence, receipt time) and the hash itself are deliberately absent.
type hashInput struct {
	Type      Type     `json:"type"`
	Standard  Standard `json:"hcs_standard"`
	Timestamp string   `json:"timestamp"`
	Data      Payload  `json:"data"`
}

// CanonicalHash returns the hex SHA-256 digest of the event's identifying
// fields in canonical form.
func CanonicalHash(evt Event) (string, error) {
	if evt.Payload == nil {
		return "", invalid("data", "payload is required")
	}
	canonical, err := CanonicalJSON(hashInput{
		Type:      evt.Type,
		Standard:  evt.Standard,
		Timestamp: formatTimestamp(evt.Timestamp),
		Data:      evt.Payload,
	})
	if err != nil {
		return "", fmt.Errorf("canonical json: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}
