package profile

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

var createdAt = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func created(t *testing.T, id string) Profile {
	t.Helper()
	evt, err := event.New(event.ProfileCreated{
		ProfileID:      id,
		DisplayName:    "Ada",
		Visibility:     event.VisibilityPublic,
		ShowTrustScore: true,
	}, createdAt)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	p, err := FromEvent(evt)
	if err != nil {
		t.Fatalf("from event: %v", err)
	}
	return p
}

func TestDirectoryCreateOnce(t *testing.T) {
	d := NewDirectory()
	if err := d.ApplyCreated(created(t, "A")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := d.ApplyCreated(created(t, "A")); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	p, err := d.Get("A")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.DisplayName != "Ada" || !p.ShowTrustScore || !p.CreatedAt.Equal(createdAt) {
		t.Fatalf("profile = %+v", p)
	}
	if _, err := d.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDirectoryCountersBeforeProfile(t *testing.T) {
	d := NewDirectory()
	later := createdAt.Add(time.Hour)
	d.RecordTrust("A", "B", decimal.NewFromInt(10), later)
	d.RecordTrust("C", "B", decimal.NewFromInt(5), later)
	d.RecordBadge("B", later)

	if err := d.ApplyCreated(created(t, "B")); err != nil {
		t.Fatalf("create: %v", err)
	}
	p, err := d.Get("B")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.TokensReceived != 2 || p.BadgeCount != 1 {
		t.Fatalf("counters = %+v", p.Counters)
	}
	if !p.StakeReceived.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("stake received = %s", p.StakeReceived)
	}
	if !slices.Equal(p.Connections, []string{"A", "C"}) {
		t.Fatalf("connections = %v", p.Connections)
	}
	if !p.UpdatedAt.Equal(later) {
		t.Fatalf("updated at = %v, want %v", p.UpdatedAt, later)
	}

	a := d.CountersFor("A")
	if a.TokensGiven != 1 || !a.TotalStaked.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("sender counters = %+v", a)
	}
}

func TestDirectoryRecordsReputation(t *testing.T) {
	d := NewDirectory()
	d.RecordReputation(event.ReputationCalculated{UserID: "A", OverallScore: 12.5, Version: 3}, createdAt)
	d.RecordReputation(event.ReputationCalculated{UserID: "A", OverallScore: 20, Version: 7}, createdAt.Add(time.Minute))
	c := d.CountersFor("A")
	if c.Reputation == nil || c.Reputation.OverallScore != 20 {
		t.Fatalf("reputation = %+v", c.Reputation)
	}
}

func TestDirectoryCloneIsIndependent(t *testing.T) {
	d := NewDirectory()
	d.RecordTrust("A", "B", decimal.NewFromInt(1), createdAt)
	clone := d.Clone()
	d.RecordTrust("A", "C", decimal.NewFromInt(1), createdAt)

	if got := clone.CountersFor("A"); got.TokensGiven != 1 || len(got.Connections) != 1 {
		t.Fatalf("clone counters = %+v", got)
	}
	if got := d.CountersFor("A"); got.TokensGiven != 2 || len(got.Connections) != 2 {
		t.Fatalf("live counters = %+v", got)
	}
}

func TestDirectoryList(t *testing.T) {
	d := NewDirectory()
	for _, id := range []string{"C", "A", "B"} {
		if err := d.ApplyCreated(created(t, id)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	var ids []string
	for _, p := range d.List() {
		ids = append(ids, p.AccountID)
	}
	if !slices.Equal(ids, []string{"A", "B", "C"}) {
		t.Fatalf("list = %v", ids)
	}
}
