package eventlog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

// Memory is an in-process Log. It is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	topics map[event.Topic]*memoryTopic
	// notify is closed and replaced on every append to wake blocked readers.
	notify chan struct{}
	closed bool
	clock  func() time.Time
}

type memoryTopic struct {
	records []Record
	byHash  map[string]uint64
}

// NewMemory returns an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{
		topics: make(map[event.Topic]*memoryTopic),
		notify: make(chan struct{}),
		clock:  time.Now,
	}
}

// Append implements Appender.
func (m *Memory) Append(ctx context.Context, topic event.Topic, evt event.Event) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	raw, hash, err := Prepare(topic, evt)
	if err != nil {
		return Receipt{}, err
	}
	return m.AppendRaw(ctx, topic, hash, raw)
}

// AppendRaw appends pre-encoded bytes. It lets callers inject records of
// types this build cannot encode. An empty hash is replaced by RawHash(raw).
func (m *Memory) AppendRaw(ctx context.Context, topic event.Topic, hash string, raw []byte) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Receipt{}, ErrClosed
	}
	if hash == "" {
		hash = RawHash(raw)
	}
	t := m.topic(topic)
	if seq, ok := t.byHash[hash]; ok {
		rec := t.records[seq-1]
		return Receipt{Topic: topic, Seq: seq, Hash: hash, Duplicate: true, AppendedAt: rec.ReceivedAt}, nil
	}
	now := m.clock().UTC()
	rec := Record{
		Topic:      topic,
		Seq:        uint64(len(t.records)) + 1,
		Hash:       hash,
		Raw:        slices.Clone(raw),
		ReceivedAt: now,
	}
	t.records = append(t.records, rec)
	t.byHash[hash] = rec.Seq
	close(m.notify)
	m.notify = make(chan struct{})
	return Receipt{Topic: topic, Seq: rec.Seq, Hash: hash, AppendedAt: now}, nil
}

func (m *Memory) topic(name event.Topic) *memoryTopic {
	t, ok := m.topics[name]
	if !ok {
		t = &memoryTopic{byHash: make(map[string]uint64)}
		m.topics[name] = t
	}
	return t
}

// Len returns the number of records on topic.
func (m *Memory) Len(topic event.Topic) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.topics[topic]; ok {
		return len(t.records)
	}
	return 0
}

// LatestSeq returns the highest sequence on topic, zero when empty.
func (m *Memory) LatestSeq(ctx context.Context, topic event.Topic) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return uint64(m.Len(topic)), nil
}

// Subscribe implements Subscriber.
func (m *Memory) Subscribe(ctx context.Context, topic event.Topic, afterSeq uint64) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return &memorySubscription{log: m, topic: topic, next: afterSeq + 1, done: make(chan struct{})}, nil
}

// Close wakes every blocked subscription with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.notify)
	return nil
}

type memorySubscription struct {
	log   *Memory
	topic event.Topic
	next  uint64
	done  chan struct{}
	once  sync.Once
}

func (s *memorySubscription) Next(ctx context.Context) (Record, error) {
	for {
		rec, wait, err := s.poll()
		if err != nil {
			return Record{}, err
		}
		if wait == nil {
			return rec, nil
		}
		select {
		case <-ctx.Done():
			return Record{}, ctx.Err()
		case <-s.done:
			return Record{}, ErrClosed
		case <-wait:
		}
	}
}

// poll returns the next record, or a channel to wait on when none is ready.
func (s *memorySubscription) poll() (Record, <-chan struct{}, error) {
	select {
	case <-s.done:
		return Record{}, nil, ErrClosed
	default:
	}

	s.log.mu.Lock()
	defer s.log.mu.Unlock()
	if s.log.closed {
		return Record{}, nil, ErrClosed
	}
	if t, ok := s.log.topics[s.topic]; ok && s.next <= uint64(len(t.records)) {
		rec := t.records[s.next-1]
		rec.Raw = slices.Clone(rec.Raw)
		s.next++
		return rec, nil, nil
	}
	return Record{}, s.log.notify, nil
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
