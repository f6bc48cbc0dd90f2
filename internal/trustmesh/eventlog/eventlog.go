package eventlog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

// ErrClosed is returned by operations on a closed log or subscription.
var ErrClosed = errors.New("event log closed")

// Receipt acknowledges an append.
type Receipt struct {
	Topic event.Topic
	Seq   uint64
	Hash  string
	// Duplicate is set when the hash was already on the topic; Seq is the
	// original position.
	Duplicate  bool
	AppendedAt time.Time
}

// Record is one entry delivered by a subscription.
type Record struct {
	Topic      event.Topic
	Seq        uint64
	Hash       string
	Raw        []byte
	ReceivedAt time.Time
}

// Appender appends events to a topic.
type Appender interface {
	Append(ctx context.Context, topic event.Topic, evt event.Event) (Receipt, error)
}

// Subscriber opens ordered subscriptions.
type Subscriber interface {
	// Subscribe delivers records with Seq > afterSeq in order. Sequences start at 1.
	Subscribe(ctx context.Context, topic event.Topic, afterSeq uint64) (Subscription, error)
}

// Subscription is a cancellable, restartable-from-offset stream.
type Subscription interface {
	// Next blocks until a record is available, ctx is done, or the
	// subscription is closed.
	Next(ctx context.Context) (Record, error)
	Close() error
}

// Log is both sides of the collaborator contract.
type Log interface {
	Appender
	Subscriber
}

// Reader is a Subscriber that can report how far a topic currently extends,
// which bounds a replay.
type Reader interface {
	Subscriber
	LatestSeq(ctx context.Context, topic event.Topic) (uint64, error)
}

// Prepare checks that evt belongs on topic and returns its wire bytes and hash.
func Prepare(topic event.Topic, evt event.Event) ([]byte, string, error) {
	want, ok := event.TopicFor(evt.Type)
	if !ok {
		return nil, "", &event.UnknownEventError{Type: evt.Type}
	}
	if want != topic {
		return nil, "", apperrors.WithMetadata(apperrors.CodeValidation, "event does not belong on topic", map[string]string{
			"type":  string(evt.Type),
			"topic": string(topic),
			"want":  string(want),
		})
	}
	raw, err := event.Encode(evt)
	if err != nil {
		return nil, "", fmt.Errorf("encode event: %w", err)
	}
	hash := evt.Hash
	if hash == "" {
		hash, err = event.CanonicalHash(evt)
		if err != nil {
			return nil, "", fmt.Errorf("hash event: %w", err)
		}
	}
	return raw, hash, nil
}

// RawHash identifies bytes that carry no canonical hash, such as records of
// unknown event types.
func RawHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return "raw:" + hex.EncodeToString(sum[:])
}
