package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/louisbranch/trustmesh/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/eventlog"
	"github.com/louisbranch/trustmesh/internal/trustmesh/eventlog/sqlite/migrations"
)

const (
	defaultPageSize     = 200
	defaultPollInterval = 250 * time.Millisecond
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Log is a SQLite-backed eventlog.Log.
type Log struct {
	sqlDB        *sql.DB
	pageSize     int
	pollInterval time.Duration
	clock        func() time.Time

	// writeMu serialises appends from this process so sequence allocation
	// never races; other processes are caught by the primary key.
	writeMu sync.Mutex

	mu     sync.Mutex
	notify chan struct{}
	closed bool
}

// Option configures a Log.
type Option func(*Log)

// WithPageSize sets how many records a subscription reads per query.
func WithPageSize(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithPollInterval sets how often an idle subscription re-queries.
func WithPollInterval(d time.Duration) Option {
	return func(l *Log) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithClock overrides the append timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(l *Log) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// Open opens (creating if needed) the log at path and applies migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Log, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, "log"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	l := &Log{
		sqlDB:        sqlDB,
		pageSize:     defaultPageSize,
		pollInterval: defaultPollInterval,
		clock:        time.Now,
		notify:       make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Close closes the database and wakes blocked subscriptions.
//
// Close is nil-safe so callers can defer it in all startup paths.
func (l *Log) Close() error {
	if l == nil || l.sqlDB == nil {
		return nil
	}
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.notify)
	}
	l.mu.Unlock()
	return l.sqlDB.Close()
}

// Append implements eventlog.Appender.
func (l *Log) Append(ctx context.Context, topic event.Topic, evt event.Event) (eventlog.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return eventlog.Receipt{}, err
	}
	raw, hash, err := eventlog.Prepare(topic, evt)
	if err != nil {
		return eventlog.Receipt{}, err
	}
	return l.AppendRaw(ctx, topic, hash, raw)
}

// AppendRaw appends pre-encoded bytes. An empty hash is replaced by
// eventlog.RawHash(raw).
func (l *Log) AppendRaw(ctx context.Context, topic event.Topic, hash string, raw []byte) (eventlog.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return eventlog.Receipt{}, err
	}
	if l.isClosed() {
		return eventlog.Receipt{}, eventlog.ErrClosed
	}
	if strings.TrimSpace(string(topic)) == "" {
		return eventlog.Receipt{}, fmt.Errorf("topic is required")
	}
	if hash == "" {
		hash = eventlog.RawHash(raw)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	tx, err := l.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return eventlog.Receipt{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if existing, ok, err := receiptByHash(ctx, tx, topic, hash); err != nil {
		return eventlog.Receipt{}, err
	} else if ok {
		return existing, nil
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE topic = ?", string(topic),
	).Scan(&seq); err != nil {
		return eventlog.Receipt{}, fmt.Errorf("next event seq: %w", err)
	}

	appendedAt := l.clock().UTC().Truncate(time.Millisecond)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO events (topic, seq, event_hash, appended_at, payload) VALUES (?, ?, ?, ?, ?)",
		string(topic), seq, hash, toMillis(appendedAt), raw,
	); err != nil {
		if isConstraintError(err) {
			if existing, ok, lookupErr := receiptByHash(ctx, l.sqlDB, topic, hash); lookupErr == nil && ok {
				return existing, nil
			}
		}
		return eventlog.Receipt{}, fmt.Errorf("append event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return eventlog.Receipt{}, fmt.Errorf("commit: %w", err)
	}

	l.wake()
	return eventlog.Receipt{Topic: topic, Seq: uint64(seq), Hash: hash, AppendedAt: appendedAt}, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func receiptByHash(ctx context.Context, q queryer, topic event.Topic, hash string) (eventlog.Receipt, bool, error) {
	var seq, appendedAt int64
	err := q.QueryRowContext(ctx,
		"SELECT seq, appended_at FROM events WHERE topic = ? AND event_hash = ?", string(topic), hash,
	).Scan(&seq, &appendedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return eventlog.Receipt{}, false, nil
	}
	if err != nil {
		return eventlog.Receipt{}, false, fmt.Errorf("get event by hash: %w", err)
	}
	return eventlog.Receipt{
		Topic:      topic,
		Seq:        uint64(seq),
		Hash:       hash,
		Duplicate:  true,
		AppendedAt: fromMillis(appendedAt),
	}, true, nil
}

// LatestSeq returns the highest sequence on topic, zero when empty.
func (l *Log) LatestSeq(ctx context.Context, topic event.Topic) (uint64, error) {
	var seq int64
	if err := l.sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM events WHERE topic = ?", string(topic),
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("latest event seq: %w", err)
	}
	return uint64(seq), nil
}

// ListRecords returns up to limit records on topic with Seq > afterSeq.
func (l *Log) ListRecords(ctx context.Context, topic event.Topic, afterSeq uint64, limit int) ([]eventlog.Record, error) {
	if limit <= 0 {
		limit = l.pageSize
	}
	rows, err := l.sqlDB.QueryContext(ctx,
		"SELECT seq, event_hash, appended_at, payload FROM events WHERE topic = ? AND seq > ? ORDER BY seq LIMIT ?",
		string(topic), int64(afterSeq), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var records []eventlog.Record
	for rows.Next() {
		var (
			seq, appendedAt int64
			hash            string
			payload         []byte
		)
		if err := rows.Scan(&seq, &hash, &appendedAt, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		records = append(records, eventlog.Record{
			Topic:      topic,
			Seq:        uint64(seq),
			Hash:       hash,
			Raw:        payload,
			ReceivedAt: fromMillis(appendedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return records, nil
}

func (l *Log) wake() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	close(l.notify)
	l.notify = make(chan struct{})
}

func (l *Log) waitChan() (<-chan struct{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.notify, l.closed
}

func (l *Log) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
