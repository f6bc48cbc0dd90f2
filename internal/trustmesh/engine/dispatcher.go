package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

// DefaultLanes is the lane count used when none is configured.
const DefaultLanes = 4

const laneBuffer = 64

// ErrDispatcherClosed is returned by Submit after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Applier applies one event. *Store implements it.
type Applier interface {
	Apply(ctx context.Context, evt event.Event) (Outcome, error)
}

// ResultFunc observes every apply result, for example to count outcomes.
type ResultFunc func(evt event.Event, outcome Outcome, err error)

// Dispatcher routes events to FIFO worker lanes by hashing their ordering
// key. Events with the same key always share a lane and apply in submission
// order; different keys may apply in parallel.
type Dispatcher struct {
	applier  Applier
	lanes    []chan event.Event
	group    *errgroup.Group
	ctx      context.Context
	logger   *zap.Logger
	onResult ResultFunc

	mu     sync.RWMutex
	closed bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithResultFunc registers an observer called from the lane goroutine after
// every apply.
func WithResultFunc(fn ResultFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.onResult = fn
	}
}

// NewDispatcher starts n lanes applying to applier. Lanes stop when ctx is
// done or after Close drains them.
func NewDispatcher(ctx context.Context, applier Applier, n int, opts ...DispatcherOption) *Dispatcher {
	if n <= 0 {
		n = DefaultLanes
	}
	group, gctx := errgroup.WithContext(ctx)
	d := &Dispatcher{
		applier: applier,
		lanes:   make([]chan event.Event, n),
		group:   group,
		ctx:     gctx,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	for i := range d.lanes {
		lane := make(chan event.Event, laneBuffer)
		d.lanes[i] = lane
		group.Go(func() error {
			return d.run(gctx, lane)
		})
	}
	return d
}

// Lane returns the lane index key maps to.
func (d *Dispatcher) Lane(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(d.lanes)))
}

// Submit queues evt on its lane. It blocks only while the lane is full and
// returns early if ctx or the dispatcher context is done.
func (d *Dispatcher) Submit(ctx context.Context, evt event.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	lane := d.lanes[d.Lane(evt.Key())]
	select {
	case lane <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.ctx.Done():
		return d.ctx.Err()
	}
}

// Close stops accepting events and lets lanes drain what was queued.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, lane := range d.lanes {
		close(lane)
	}
}

// Wait blocks until every lane has exited. Cancellation of the parent
// context is not reported as an error.
func (d *Dispatcher) Wait() error {
	err := d.group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Dispatcher) run(ctx context.Context, lane <-chan event.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-lane:
			if !ok {
				return nil
			}
			outcome, err := d.applier.Apply(ctx, evt)
			if d.onResult != nil {
				d.onResult(evt, outcome, err)
			}
			if err == nil {
				continue
			}
			var rejected *RejectionError
			if errors.As(err, &rejected) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error("apply event",
				zap.String("event_type", string(evt.Type)),
				zap.String("event_hash", evt.Hash),
				zap.Error(err),
			)
		}
	}
}
