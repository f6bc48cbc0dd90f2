package sqlite

import (
	"context"
	"sync"
	"time"

	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/eventlog"
)

// Subscribe implements eventlog.Subscriber.
func (l *Log) Subscribe(ctx context.Context, topic event.Topic, afterSeq uint64) (eventlog.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.isClosed() {
		return nil, eventlog.ErrClosed
	}
	return &subscription{log: l, topic: topic, lastSeq: afterSeq, done: make(chan struct{})}, nil
}

type subscription struct {
	log     *Log
	topic   event.Topic
	lastSeq uint64
	buf     []eventlog.Record
	done    chan struct{}
	once    sync.Once
}

func (s *subscription) Next(ctx context.Context) (eventlog.Record, error) {
	for {
		select {
		case <-s.done:
			return eventlog.Record{}, eventlog.ErrClosed
		default:
		}
		if len(s.buf) > 0 {
			rec := s.buf[0]
			s.buf = s.buf[1:]
			s.lastSeq = rec.Seq
			return rec, nil
		}

		// Grab the wake channel before querying so an append landing between
		// the query and the wait is not missed.
		wait, closed := s.log.waitChan()
		if closed {
			return eventlog.Record{}, eventlog.ErrClosed
		}
		records, err := s.log.ListRecords(ctx, s.topic, s.lastSeq, s.log.pageSize)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return eventlog.Record{}, ctxErr
			}
			return eventlog.Record{}, err
		}
		if len(records) > 0 {
			s.buf = records
			continue
		}

		timer := time.NewTimer(s.log.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return eventlog.Record{}, ctx.Err()
		case <-s.done:
			timer.Stop()
			return eventlog.Record{}, eventlog.ErrClosed
		case <-wait:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (s *subscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
