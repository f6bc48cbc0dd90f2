package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/louisbranch/trustmesh/internal/trustmesh/badge"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/eventlog"
)

var t0 = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newEvent(t *testing.T, p event.Payload, at time.Time) event.Event {
	t.Helper()
	evt, err := event.New(p, at)
	if err != nil {
		t.Fatalf("new %s: %v", p.EventType(), err)
	}
	return evt
}

func trustGiven(tx, sender, recipient string, stake int64) event.TrustTokenGiven {
	return event.TrustTokenGiven{
		TransactionID: tx,
		Sender:        sender,
		Recipient:     recipient,
		TrustType:     "professional",
		Staked:        decimal.NewFromInt(stake),
	}
}

func badgeIssued(id, recipient string, rarity badge.Rarity) event.BadgeIssued {
	return event.BadgeIssued{
		HashinalID: id,
		Name:       "Badge " + id,
		BadgeType:  string(badge.KindAchievement),
		Category:   "achievement",
		Rarity:     string(rarity),
		Recipient:  recipient,
		IssuedBy:   "issuer",
	}
}

func pollCreated(id string, minTrust float64, opens time.Time) event.PollCreated {
	return event.PollCreated{
		PollID:   id,
		Title:    "Community Champion",
		PollType: "recognition_voting",
		Options: []event.PollOption{
			{OptionID: "O1", Nominee: "B", DisplayName: "Bea"},
			{OptionID: "O2", Nominee: "C", DisplayName: "Cy"},
		},
		Timeline: event.PollTimeline{
			VotingOpens:  opens,
			VotingCloses: opens.Add(168 * time.Hour),
		},
		Eligibility: event.PollEligibility{MinimumTrustScore: minTrust},
	}
}

func voteCast(pollID, voteID, option, voter string, trust float64) event.VoteCast {
	return event.VoteCast{
		PollID:         pollID,
		VoteID:         voteID,
		SelectedOption: option,
		Voter:          voter,
		VoterProfile:   event.VoterProfile{TrustScore: trust, EligibilityMet: true},
		VoteWeight:     1,
	}
}

func mustApply(t *testing.T, s *Store, evt event.Event) {
	t.Helper()
	outcome, err := s.Apply(context.Background(), evt)
	if err != nil {
		t.Fatalf("apply %s: %v", evt.Type, err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("apply %s outcome = %s", evt.Type, outcome)
	}
}

// appendAll writes events to their topics on a fresh memory log.
func appendAll(t *testing.T, events []event.Event) *eventlog.Memory {
	t.Helper()
	log := eventlog.NewMemory()
	for _, evt := range events {
		topic, _ := event.TopicFor(evt.Type)
		if _, err := log.Append(context.Background(), topic, evt); err != nil {
			t.Fatalf("append %s: %v", evt.Type, err)
		}
	}
	return log
}

// scenarioEvents is a mixed history touching every projection.
func scenarioEvents(t *testing.T) []event.Event {
	t.Helper()
	var events []event.Event
	at := t0
	next := func(p event.Payload) {
		events = append(events, newEvent(t, p, at))
		at = at.Add(time.Second)
	}
	for _, id := range []string{"A", "B", "C", "D"} {
		next(event.ProfileCreated{ProfileID: id, DisplayName: "User " + id, Visibility: event.VisibilityPublic})
	}
	next(trustGiven("tx-1", "A", "B", 25))
	next(trustGiven("tx-2", "B", "C", 15))
	next(trustGiven("tx-3", "C", "D", 50))
	next(trustGiven("tx-4", "D", "B", 5))
	next(trustGiven("tx-5", "C", "B", 0))
	next(badgeIssued("b-1", "B", badge.RarityRare))
	next(badgeIssued("b-2", "B", badge.RarityCommon))
	next(badgeIssued("b-3", "D", badge.RarityLegendary))
	next(pollCreated("p-1", 50, at))
	next(voteCast("p-1", "v-1", "O1", "A", 80))
	next(voteCast("p-1", "v-2", "O2", "C", 40))
	next(voteCast("p-1", "v-3", "O2", "D", 90))
	next(voteCast("p-1", "v-4", "O1", "C", 60))
	return events
}
