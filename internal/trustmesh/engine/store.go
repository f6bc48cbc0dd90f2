package engine

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/eventlog"
)

const tracerName = "github.com/louisbranch/trustmesh/internal/trustmesh/engine"

// ParkedEvent is a record the engine could not interpret, kept verbatim so a
// newer build can replay it.
type ParkedEvent struct {
	Topic    event.Topic
	Seq      uint64
	Hash     string
	Type     event.Type
	Raw      []byte
	Reason   string
	ParkedAt time.Time
}

// Rejection is an entry in the rejected-event log.
type Rejection struct {
	Topic    event.Topic
	Seq      uint64
	Type     event.Type
	EntityID string
	Hash     string
	Code     apperrors.Code
	Reason   string
	At       time.Time
}

// ReputationRecord is one REPUTATION_CALCULATED audit entry.
type ReputationRecord struct {
	Snapshot event.ReputationCalculated
	Hash     string
	At       time.Time
}

// Store owns every projection. Writes take one commit lock held only for the
// in-memory check and mutation; reads go through Snapshot.
type Store struct {
	mu          sync.Mutex
	state       *projections
	applied     map[string]struct{}
	parked      []ParkedEvent
	rejected    []Rejection
	reputations []ReputationRecord
	version     uint64
	offsets     map[event.Topic]uint64
	view        *View

	logger *zap.Logger
	tracer trace.Tracer
	clock  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for rejections and parked events.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) StoreOption {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock sets the clock used to stamp parked and rejected entries.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		state:   newProjections(),
		applied: make(map[string]struct{}),
		offsets: make(map[event.Topic]uint64),
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(tracerName),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Apply validates evt against the current projections and, if it passes,
// applies it atomically. Events whose hash was already applied return
// OutcomeDuplicate without effect. Failures return OutcomeRejected with a
// *RejectionError and leave every projection untouched.
func (s *Store) Apply(ctx context.Context, evt event.Event) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "engine.apply", trace.WithAttributes(
		attribute.String("event.type", string(evt.Type)),
		attribute.String("event.hash", evt.Hash),
		attribute.String("event.topic", string(evt.Topic)),
		attribute.Int64("event.seq", int64(evt.Seq)),
	))
	defer span.End()

	outcome, err := s.apply(ctx, evt)
	span.SetAttributes(attribute.String("engine.outcome", outcome.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return outcome, err
}

func (s *Store) apply(ctx context.Context, evt event.Event) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeRejected, err
	}
	if evt.Hash == "" {
		hash, err := event.CanonicalHash(evt)
		if err != nil {
			return OutcomeRejected, s.reject(evt, err)
		}
		evt.Hash = hash
	}

	var unknown *event.UnknownEventError
	ch, err := route(evt)
	if errors.As(err, &unknown) {
		s.Park(eventlog.Record{Topic: evt.Topic, Seq: evt.Seq, Hash: evt.Hash}, err)
		return OutcomeParked, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance(evt.Topic, evt.Seq)
	if _, ok := s.applied[evt.Hash]; ok {
		return OutcomeDuplicate, nil
	}
	if err == nil {
		err = ch.check(s.state)
	}
	if err != nil {
		return OutcomeRejected, s.rejectLocked(evt, err)
	}

	ch.commit(s.state)
	s.applied[evt.Hash] = struct{}{}
	if snapshot, ok := evt.Payload.(event.ReputationCalculated); ok {
		s.reputations = append(s.reputations, ReputationRecord{Snapshot: snapshot, Hash: evt.Hash, At: evt.Timestamp})
	}
	s.version++
	s.view = nil
	return OutcomeApplied, nil
}

func (s *Store) advance(topic event.Topic, seq uint64) {
	if topic == "" || seq == 0 {
		return
	}
	if seq > s.offsets[topic] {
		s.offsets[topic] = seq
		s.view = nil
	}
}

func (s *Store) reject(evt event.Event, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(evt.Topic, evt.Seq)
	return s.rejectLocked(evt, cause)
}

func (s *Store) rejectLocked(evt event.Event, cause error) error {
	rej := &RejectionError{
		Type:     evt.Type,
		EntityID: evt.EntityID(),
		Hash:     evt.Hash,
		Topic:    evt.Topic,
		Seq:      evt.Seq,
		Err:      cause,
	}
	s.rejected = append(s.rejected, Rejection{
		Topic:    evt.Topic,
		Seq:      evt.Seq,
		Type:     evt.Type,
		EntityID: rej.EntityID,
		Hash:     evt.Hash,
		Code:     apperrors.CodeOf(cause),
		Reason:   cause.Error(),
		At:       s.clock().UTC(),
	})
	s.logger.Warn("event rejected",
		zap.String("event_type", string(evt.Type)),
		zap.String("entity_id", rej.EntityID),
		zap.String("event_hash", evt.Hash),
		zap.String("topic", string(evt.Topic)),
		zap.Uint64("seq", evt.Seq),
		zap.String("code", string(apperrors.CodeOf(cause))),
		zap.Error(cause),
	)
	return rej
}

// RejectRecord logs a record that could not be decoded at all.
func (s *Store) RejectRecord(rec eventlog.Record, cause error) error {
	return s.reject(event.Event{Topic: rec.Topic, Seq: rec.Seq, Hash: rec.Hash}, cause)
}

// Park keeps an event of unknown type. cause is usually an
// *event.UnknownEventError carrying the raw bytes.
func (s *Store) Park(rec eventlog.Record, cause error) {
	parked := ParkedEvent{
		Topic:    rec.Topic,
		Seq:      rec.Seq,
		Hash:     rec.Hash,
		Raw:      slices.Clone(rec.Raw),
		ParkedAt: s.clock().UTC(),
	}
	var unknown *event.UnknownEventError
	if errors.As(cause, &unknown) {
		parked.Type = unknown.Type
		if len(parked.Raw) == 0 {
			parked.Raw = slices.Clone(unknown.Raw)
		}
	}
	if cause != nil {
		parked.Reason = cause.Error()
	}

	s.mu.Lock()
	s.parked = append(s.parked, parked)
	s.advance(rec.Topic, rec.Seq)
	s.mu.Unlock()

	s.logger.Info("event parked",
		zap.String("event_type", string(parked.Type)),
		zap.String("topic", string(rec.Topic)),
		zap.Uint64("seq", rec.Seq),
		zap.String("event_hash", rec.Hash),
	)
}

// Parked lists parked events in the order they were parked.
func (s *Store) Parked() []ParkedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ParkedEvent, len(s.parked))
	for i, p := range s.parked {
		p.Raw = slices.Clone(p.Raw)
		out[i] = p
	}
	return out
}

// Rejections lists rejected events in the order they were rejected.
func (s *Store) Rejections() []Rejection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rejected)
}

// ReputationHistory lists the recorded reputation snapshots for account in
// log order. The history is an audit trail; scoring never reads it.
func (s *Store) ReputationHistory(account string) []ReputationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ReputationRecord
	for _, r := range s.reputations {
		if r.Snapshot.UserID == account {
			out = append(out, r)
		}
	}
	return out
}

// Applied reports whether an event with hash has been applied.
func (s *Store) Applied(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.applied[hash]
	return ok
}

// Check reports whether evt would be applied to the live projections,
// without applying it. An event whose hash was already applied passes.
func (s *Store) Check(evt event.Event) error {
	ch, err := route(evt)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if evt.Hash != "" {
		if _, ok := s.applied[evt.Hash]; ok {
			return nil
		}
	}
	return ch.check(s.state)
}

// Read runs fn against the live projections under the commit lock, without
// copying them. The view must not escape fn, and fn must not call back into
// the store.
func (s *Store) Read(fn func(*View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&View{state: s.state, version: s.version, offsets: s.offsets})
}

// Snapshot returns an immutable point-in-time View. Views are built on first
// read after a write and shared until the next write.
func (s *Store) Snapshot() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		s.view = &View{
			state:   s.state.clone(),
			version: s.version,
			offsets: maps.Clone(s.offsets),
		}
	}
	return s.view
}
