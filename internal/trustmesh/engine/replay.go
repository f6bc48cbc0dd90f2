package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/eventlog"
)

var (
	// ErrReaderRequired indicates a missing log reader.
	ErrReaderRequired = errors.New("event log reader is required")
	// ErrStoreRequired indicates a missing store.
	ErrStoreRequired = errors.New("store is required")
)

// ReplayOptions configures Replay.
type ReplayOptions struct {
	// Topics to replay; empty means every topic.
	Topics []event.Topic
	// Lanes is the dispatcher lane count.
	Lanes  int
	Logger *zap.Logger
}

// ReplayResult reports how far each topic was replayed.
type ReplayResult struct {
	LastSeq map[event.Topic]uint64
	Version uint64
}

// Replay rebuilds store from sequence 1 of every topic up to the latest
// sequence at the time Replay starts. store should be fresh; replaying into a
// populated store only skips duplicates.
func Replay(ctx context.Context, reader eventlog.Reader, store *Store, opts ReplayOptions) (ReplayResult, error) {
	if reader == nil {
		return ReplayResult{}, ErrReaderRequired
	}
	if store == nil {
		return ReplayResult{}, ErrStoreRequired
	}
	topics := opts.Topics
	if len(topics) == 0 {
		topics = event.Topics()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	until := make(map[event.Topic]uint64, len(topics))
	for _, topic := range topics {
		seq, err := reader.LatestSeq(ctx, topic)
		if err != nil {
			return ReplayResult{}, fmt.Errorf("latest seq %s: %w", topic, err)
		}
		until[topic] = seq
	}

	dispatcher := NewDispatcher(ctx, store, opts.Lanes, WithDispatcherLogger(logger))
	consumer := &Consumer{Store: store, Dispatcher: dispatcher, Logger: logger}

	last := make(map[event.Topic]uint64, len(topics))
	results := make([]uint64, len(topics))
	group, gctx := errgroup.WithContext(ctx)
	for i, topic := range topics {
		if until[topic] == 0 {
			continue
		}
		group.Go(func() error {
			sub, err := reader.Subscribe(gctx, topic, 0)
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", topic, err)
			}
			defer sub.Close()
			seq, err := consumer.Consume(gctx, sub, topic, 0, until[topic])
			results[i] = seq
			return err
		})
	}
	consumeErr := group.Wait()
	dispatcher.Close()
	waitErr := dispatcher.Wait()
	if consumeErr != nil {
		return ReplayResult{}, consumeErr
	}
	if waitErr != nil {
		return ReplayResult{}, waitErr
	}
	if err := ctx.Err(); err != nil {
		return ReplayResult{}, err
	}

	for i, topic := range topics {
		last[topic] = results[i]
	}
	logger.Info("replay complete",
		zap.Any("last_seq", last),
		zap.Uint64("version", store.Snapshot().Version()),
		zap.Int("parked", len(store.Parked())),
		zap.Int("rejected", len(store.Rejections())),
	)
	return ReplayResult{LastSeq: last, Version: store.Snapshot().Version()}, nil
}
