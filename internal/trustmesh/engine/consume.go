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

// Consumer reads topics from the log and feeds a Dispatcher.
type Consumer struct {
	Store      *Store
	Dispatcher *Dispatcher
	Logger     *zap.Logger
}

// Consume reads sub until ctx is done, the subscription ends, or until
// untilSeq is reached when it is non-zero. Sequences must be contiguous
// from afterSeq+1. Records of unknown type are parked and records that do
// not decode are rejected; both keep consumption going. It returns the last
// sequence handed to the dispatcher.
func (c *Consumer) Consume(ctx context.Context, sub eventlog.Subscription, topic event.Topic, afterSeq, untilSeq uint64) (uint64, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lastSeq := afterSeq
	for {
		if untilSeq > 0 && lastSeq >= untilSeq {
			return lastSeq, nil
		}
		rec, err := sub.Next(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return lastSeq, ctxErr
			}
			return lastSeq, err
		}
		expected := lastSeq + 1
		if rec.Seq != expected {
			return lastSeq, fmt.Errorf("event sequence gap on %s: expected %d got %d", topic, expected, rec.Seq)
		}
		if rec.Topic == "" {
			rec.Topic = topic
		}
		lastSeq = rec.Seq

		evt, err := event.Decode(rec.Raw)
		if err != nil {
			var unknown *event.UnknownEventError
			if errors.As(err, &unknown) {
				c.Store.Park(rec, err)
				continue
			}
			_ = c.Store.RejectRecord(rec, err)
			continue
		}
		evt.Topic = rec.Topic
		evt.Seq = rec.Seq
		evt.ReceivedAt = rec.ReceivedAt
		if rec.Hash != "" && rec.Hash != evt.Hash {
			logger.Warn("record hash differs from canonical hash",
				zap.String("topic", string(rec.Topic)),
				zap.Uint64("seq", rec.Seq),
				zap.String("record_hash", rec.Hash),
				zap.String("event_hash", evt.Hash),
			)
		}
		if err := c.Dispatcher.Submit(ctx, evt); err != nil {
			return lastSeq - 1, err
		}
	}
}

// ConsumeAll subscribes to every topic from its offset and consumes them
// concurrently until ctx is done or one topic fails.
func (c *Consumer) ConsumeAll(ctx context.Context, log eventlog.Subscriber, offsets map[event.Topic]uint64, topics []event.Topic) error {
	group, gctx := errgroup.WithContext(ctx)
	for _, topic := range topics {
		after := offsets[topic]
		group.Go(func() error {
			sub, err := log.Subscribe(gctx, topic, after)
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", topic, err)
			}
			defer sub.Close()
			_, err = c.Consume(gctx, sub, topic, after, 0)
			return err
		})
	}
	err := group.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
