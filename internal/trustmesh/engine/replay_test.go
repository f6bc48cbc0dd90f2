package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/trustmesh/internal/trustmesh/badge"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/eventlog"
)

// fingerprint renders everything a reader can observe in a view.
func fingerprint(v *View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "version=%d\n", v.Version())
	for _, p := range v.Profiles() {
		fmt.Fprintf(&b, "profile %s %s %+v\n", p.AccountID, p.DisplayName, v.Counters(p.AccountID))
	}
	accounts := v.TrustAccounts()
	for _, a := range accounts {
		for g := range v.AllIncoming(a) {
			fmt.Fprintf(&b, "grant %s %s->%s %s\n", g.TransactionID, g.Sender, g.Recipient, g.Staked)
		}
		for _, c := range accounts {
			if bal := v.Balance(a, c); bal.Count > 0 {
				fmt.Fprintf(&b, "balance %s->%s %d %s\n", a, c, bal.Count, bal.StakedTotal)
			}
		}
		fmt.Fprintf(&b, "rarity %s %v\n", a, v.CountByRarity(a))
		snap := ComputeReputation(context.Background(), v, a, 10, t0)
		fmt.Fprintf(&b, "reputation %s %v %s\n", a, snap.OverallScore, snap.Milestone.Level)
	}
	for _, p := range v.Polls() {
		fmt.Fprintf(&b, "poll %s %v %d\n", p.ID, p.Tally(), p.TotalVotes())
	}
	return b.String()
}

func TestReplayIsDeterministic(t *testing.T) {
	log := appendAll(t, scenarioEvents(t))

	var prints []string
	for _, lanes := range []int{1, 4, 4, 16} {
		store := NewStore()
		res, err := Replay(context.Background(), log, store, ReplayOptions{Lanes: lanes})
		if err != nil {
			t.Fatalf("replay with %d lanes: %v", lanes, err)
		}
		if res.LastSeq[event.TopicPolls] != 5 {
			t.Fatalf("poll topic last seq = %d, want 5", res.LastSeq[event.TopicPolls])
		}
		if got := len(store.Rejections()); got != 1 {
			t.Fatalf("rejections = %d, want 1 (the low-trust vote)", got)
		}
		prints = append(prints, fingerprint(store.Snapshot()))
	}
	for i := 1; i < len(prints); i++ {
		if prints[i] != prints[0] {
			t.Fatalf("replay %d differs:\n%s\nvs\n%s", i, prints[i], prints[0])
		}
	}
}

func TestReplayWithIDsSharedAcrossKeys(t *testing.T) {
	var events []event.Event
	for i := range 64 {
		at := t0.Add(time.Duration(i) * time.Second)
		tx := fmt.Sprintf("tx-%02d", i)
		events = append(events,
			newEvent(t, trustGiven(tx, fmt.Sprintf("A%02d", i), "B", 1), at),
			newEvent(t, trustGiven(tx, fmt.Sprintf("C%02d", i), "D", 2), at),
		)
		if i%4 == 0 {
			id := fmt.Sprintf("b-%02d", i)
			events = append(events,
				newEvent(t, badgeIssued(id, "B", badge.RarityRare), at),
				newEvent(t, badgeIssued(id, "D", badge.RarityCommon), at),
			)
		}
	}
	log := appendAll(t, events)

	var first string
	for run := range 20 {
		store := NewStore()
		if _, err := Replay(context.Background(), log, store, ReplayOptions{Lanes: 8}); err != nil {
			t.Fatalf("replay %d: %v", run, err)
		}
		if got := len(store.Rejections()); got != 0 {
			t.Fatalf("replay %d rejections = %d, want 0: %v", run, got, store.Rejections())
		}
		view := store.Snapshot()
		if b, d := view.Received("B").Count, view.Received("D").Count; b != 64 || d != 64 {
			t.Fatalf("replay %d received B=%d D=%d, want 64 each", run, b, d)
		}
		if b, d := view.CountByRarity("B")[badge.RarityRare], view.CountByRarity("D")[badge.RarityCommon]; b != 16 || d != 16 {
			t.Fatalf("replay %d badges B=%d D=%d, want 16 each", run, b, d)
		}
		got := fingerprint(view)
		if run == 0 {
			first = got
			continue
		}
		if got != first {
			t.Fatalf("replay %d differs:\n%s\nvs\n%s", run, got, first)
		}
	}
}

func TestReplayScenarioState(t *testing.T) {
	log := appendAll(t, scenarioEvents(t))
	store := NewStore()
	res, err := Replay(context.Background(), log, store, ReplayOptions{})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	view := store.Snapshot()
	if res.Version != view.Version() || view.Version() != 16 {
		t.Fatalf("version = %d (result %d), want 16", view.Version(), res.Version)
	}
	if got := view.Received("B").Count; got != 3 {
		t.Fatalf("received(B) = %d, want 3", got)
	}
	p, err := view.Poll("p-1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	tally := p.Tally()
	if tally["O1"] != 2 || tally["O2"] != 1 {
		t.Fatalf("tally = %v", tally)
	}
	if view.Offsets()[event.TopicProfiles] != 4 {
		t.Fatalf("offsets = %v", view.Offsets())
	}
}

func TestReplayParksUnknownTypes(t *testing.T) {
	log := eventlog.NewMemory()
	ctx := context.Background()
	raw := []byte(`{"type":"TRUST_REVOKED","timestamp":"2026-09-01T12:00:00Z","data":{"transaction_id":"tx-1"}}`)
	if _, err := log.AppendRaw(ctx, event.TopicTrustTokens, "", raw); err != nil {
		t.Fatalf("append raw: %v", err)
	}
	if _, err := log.AppendRaw(ctx, event.TopicTrustTokens, "", []byte(`{"type":`)); err != nil {
		t.Fatalf("append raw: %v", err)
	}
	if _, err := log.Append(ctx, event.TopicTrustTokens, newEvent(t, trustGiven("tx-2", "A", "B", 3), t0)); err != nil {
		t.Fatalf("append: %v", err)
	}

	store := NewStore()
	if _, err := Replay(ctx, log, store, ReplayOptions{Lanes: 2}); err != nil {
		t.Fatalf("replay: %v", err)
	}
	parked := store.Parked()
	if len(parked) != 1 || parked[0].Type != "TRUST_REVOKED" || parked[0].Seq != 1 {
		t.Fatalf("parked = %+v", parked)
	}
	if string(parked[0].Raw) != string(raw) {
		t.Fatalf("parked raw = %s", parked[0].Raw)
	}
	if got := len(store.Rejections()); got != 1 {
		t.Fatalf("rejections = %d, want 1 for the malformed record", got)
	}
	if got := store.Snapshot().Balance("A", "B").Count; got != 1 {
		t.Fatalf("balance = %d, want 1", got)
	}
	if got := store.Snapshot().Offsets()[event.TopicTrustTokens]; got != 3 {
		t.Fatalf("offset = %d, want 3", got)
	}
}

func TestReplayRequiresCollaborators(t *testing.T) {
	if _, err := Replay(context.Background(), nil, NewStore(), ReplayOptions{}); !errors.Is(err, ErrReaderRequired) {
		t.Fatalf("err = %v, want ErrReaderRequired", err)
	}
	if _, err := Replay(context.Background(), eventlog.NewMemory(), nil, ReplayOptions{}); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("err = %v, want ErrStoreRequired", err)
	}
}

type fakeSubscription struct {
	records []eventlog.Record
}

func (f *fakeSubscription) Next(ctx context.Context) (eventlog.Record, error) {
	if len(f.records) == 0 {
		<-ctx.Done()
		return eventlog.Record{}, ctx.Err()
	}
	rec := f.records[0]
	f.records = f.records[1:]
	return rec, nil
}

func (f *fakeSubscription) Close() error { return nil }

func TestConsumeDetectsSequenceGap(t *testing.T) {
	evt := newEvent(t, trustGiven("tx-1", "A", "B", 1), t0)
	raw, err := event.Encode(evt)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	sub := &fakeSubscription{records: []eventlog.Record{
		{Topic: event.TopicTrustTokens, Seq: 1, Raw: raw},
		{Topic: event.TopicTrustTokens, Seq: 3, Raw: raw},
	}}

	store := NewStore()
	d := NewDispatcher(context.Background(), store, 1)
	c := &Consumer{Store: store, Dispatcher: d}
	last, err := c.Consume(context.Background(), sub, event.TopicTrustTokens, 0, 0)
	d.Close()
	_ = d.Wait()

	if err == nil || err.Error() != "event sequence gap on trust_tokens: expected 2 got 3" {
		t.Fatalf("err = %v", err)
	}
	if last != 1 {
		t.Fatalf("last = %d, want 1", last)
	}
}

func TestConsumeStopsOnCancel(t *testing.T) {
	store := NewStore()
	d := NewDispatcher(context.Background(), store, 1)
	defer func() {
		d.Close()
		_ = d.Wait()
	}()
	c := &Consumer{Store: store, Dispatcher: d}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	last, err := c.Consume(ctx, &fakeSubscription{}, event.TopicPolls, 7, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if last != 7 {
		t.Fatalf("last = %d, want 7", last)
	}
}

func TestConsumeAllFollowsLiveAppends(t *testing.T) {
	log := eventlog.NewMemory()
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(ctx, store, 2)
	c := &Consumer{Store: store, Dispatcher: d}
	done := make(chan error, 1)
	go func() {
		done <- c.ConsumeAll(ctx, log, nil, event.Topics())
	}()

	if _, err := log.Append(ctx, event.TopicTrustTokens, newEvent(t, trustGiven("tx-1", "A", "B", 2), t0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for store.Snapshot().Balance("A", "B").Count != 1 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for live event")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("consume all: %v", err)
	}
	d.Close()
	if err := d.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
