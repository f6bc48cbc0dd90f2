package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/louisbranch/trustmesh/internal/platform/id"
	"github.com/louisbranch/trustmesh/internal/trustmesh/engine"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/eventlog"
	"github.com/louisbranch/trustmesh/internal/trustmesh/poll"
)

const tracerName = "github.com/louisbranch/trustmesh/internal/trustmesh/service"

var (
	// ErrAppenderRequired indicates a missing event log appender.
	ErrAppenderRequired = errors.New("event log appender is required")
	// ErrStoreRequired indicates a missing engine store.
	ErrStoreRequired = errors.New("engine store is required")
)

// Config holds poll defaults.
type Config struct {
	PollDuration      time.Duration
	MinimumTrustScore float64
}

// DefaultConfig returns the stock poll defaults.
func DefaultConfig() Config {
	return Config{
		PollDuration:      poll.DefaultDuration,
		MinimumTrustScore: poll.DefaultMinimumTrustScore,
	}
}

// Service builds, checks and appends events.
type Service struct {
	log         eventlog.Appender
	store       *engine.Store
	cfg         Config
	clock       func() time.Time
	idGenerator func(prefix string) (string, error)
	logger      *zap.Logger
	tracer      trace.Tracer
	locks       *keyLocks
}

// Option configures a Service.
type Option func(*Service)

// WithConfig overrides the poll defaults. Zero fields keep their default.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.PollDuration > 0 {
			s.cfg.PollDuration = cfg.PollDuration
		}
		if cfg.MinimumTrustScore > 0 {
			s.cfg.MinimumTrustScore = cfg.MinimumTrustScore
		}
	}
}

// WithClock sets the clock used to stamp events.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator sets the generator for transaction, badge, poll and vote ids.
func WithIDGenerator(gen func(prefix string) (string, error)) Option {
	return func(s *Service) {
		if gen != nil {
			s.idGenerator = gen
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a Service appending to log and applying to store.
func New(log eventlog.Appender, store *engine.Store, opts ...Option) (*Service, error) {
	if log == nil {
		return nil, ErrAppenderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	s := &Service{
		log:         log,
		store:       store,
		cfg:         DefaultConfig(),
		clock:       time.Now,
		idGenerator: id.NewPrefixed,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer(tracerName),
		locks:       newKeyLocks(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Config returns the effective poll defaults.
func (s *Service) Config() Config {
	return s.cfg
}

// Snapshot returns the current engine view.
func (s *Service) Snapshot() *engine.View {
	return s.store.Snapshot()
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func (s *Service) newID(prefix string) (string, error) {
	value, err := s.idGenerator(prefix)
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", prefix, err)
	}
	return value, nil
}

// publish appends payload stamped with the current time, once it passes
// the store check.
func (s *Service) publish(ctx context.Context, payload event.Payload) (event.Event, eventlog.Receipt, error) {
	return s.publishWith(ctx, payload.Key(), func() (event.Payload, error) {
		return payload, nil
	})
}

// publishWith holds the lock for key while it builds the payload, checks it
// against the live store, appends it and applies it locally. Commands on one
// key never interleave, so nothing that fails the check reaches the log.
func (s *Service) publishWith(ctx context.Context, key string, build func() (event.Payload, error)) (event.Event, eventlog.Receipt, error) {
	unlock := s.locks.lock(key)
	defer unlock()

	payload, err := build()
	if err != nil {
		return event.Event{}, eventlog.Receipt{}, err
	}
	evt, err := event.New(payload, s.now())
	if err != nil {
		return event.Event{}, eventlog.Receipt{}, err
	}
	if evt.Key() != key {
		return event.Event{}, eventlog.Receipt{}, fmt.Errorf("%s key %q does not match held key %q", evt.Type, evt.Key(), key)
	}
	if err := s.store.Check(evt); err != nil {
		return event.Event{}, eventlog.Receipt{}, err
	}

	ctx, span := s.tracer.Start(ctx, "service.publish", trace.WithAttributes(
		attribute.String("event.type", string(evt.Type)),
		attribute.String("event.entity_id", evt.EntityID()),
	))
	defer span.End()

	evt, receipt, err := s.appendAndApply(ctx, evt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return event.Event{}, eventlog.Receipt{}, err
	}
	span.SetAttributes(
		attribute.String("event.hash", evt.Hash),
		attribute.Int64("event.seq", int64(receipt.Seq)),
		attribute.Bool("event.duplicate", receipt.Duplicate),
	)
	return evt, receipt, nil
}

func (s *Service) appendAndApply(ctx context.Context, evt event.Event) (event.Event, eventlog.Receipt, error) {
	topic, ok := event.TopicFor(evt.Type)
	if !ok {
		return event.Event{}, eventlog.Receipt{}, &event.UnknownEventError{Type: evt.Type}
	}
	receipt, err := s.log.Append(ctx, topic, evt)
	if err != nil {
		return event.Event{}, eventlog.Receipt{}, fmt.Errorf("append %s: %w", evt.Type, err)
	}
	evt.Topic = receipt.Topic
	evt.Seq = receipt.Seq
	evt.ReceivedAt = receipt.AppendedAt

	outcome, err := s.store.Apply(ctx, evt)
	if err != nil {
		// The event is on the log; every replica rejects it the same way.
		s.logger.Warn("appended event rejected locally",
			zap.String("event_type", string(evt.Type)),
			zap.String("event_hash", evt.Hash),
			zap.Uint64("seq", receipt.Seq),
			zap.Error(err),
		)
		return event.Event{}, eventlog.Receipt{}, err
	}
	s.logger.Debug("event published",
		zap.String("event_type", string(evt.Type)),
		zap.String("entity_id", evt.EntityID()),
		zap.String("topic", string(receipt.Topic)),
		zap.Uint64("seq", receipt.Seq),
		zap.Bool("duplicate", receipt.Duplicate),
		zap.String("outcome", outcome.String()),
	)
	return evt, receipt, nil
}
