package poll

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

var now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func twoOptionSpec() CreateSpec {
	return CreateSpec{
		ID:    "p-1",
		Title: "Community Champion",
		Options: []Option{
			{ID: "O1", Nominee: "0.0.1", DisplayName: "Ada"},
			{ID: "O2", Nominee: "0.0.2", DisplayName: "Bea"},
		},
		Duration:    DefaultDuration,
		Eligibility: Eligibility{MinimumTrustScore: 50},
	}
}

func mustPoll(t *testing.T, spec CreateSpec) *Poll {
	t.Helper()
	p, err := New(spec, now)
	if err != nil {
		t.Fatalf("new poll: %v", err)
	}
	return p
}

func vote(id, option, voter string, trust float64, at time.Time) Vote {
	return Vote{PollID: "p-1", VoteID: id, OptionID: option, Voter: voter, TrustScore: trust, Weight: 1, Timestamp: at}
}

func TestNewPoll(t *testing.T) {
	p := mustPoll(t, twoOptionSpec())
	if !p.ClosesAt.Equal(now.Add(168 * time.Hour)) {
		t.Fatalf("closes at = %v", p.ClosesAt)
	}
	if p.Kind != KindRecognitionVoting {
		t.Fatalf("kind = %q", p.Kind)
	}
	tally := p.Tally()
	if len(tally) != 2 || tally["O1"] != 0 || tally["O2"] != 0 {
		t.Fatalf("tally = %v", tally)
	}
}

func TestNewPollRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateSpec)
	}{
		{name: "no options", mutate: func(s *CreateSpec) { s.Options = nil }},
		{name: "blank title", mutate: func(s *CreateSpec) { s.Title = " " }},
		{name: "zero duration", mutate: func(s *CreateSpec) { s.Duration = 0 }},
		{name: "duplicate option", mutate: func(s *CreateSpec) { s.Options[1].ID = "O1" }},
		{name: "blank option id", mutate: func(s *CreateSpec) { s.Options[0].ID = "" }},
		{name: "negative minimum", mutate: func(s *CreateSpec) { s.Eligibility.MinimumTrustScore = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := twoOptionSpec()
			tt.mutate(&spec)
			_, err := New(spec, now)
			if !errors.Is(err, ErrInvalidPoll) {
				t.Fatalf("expected ErrInvalidPoll, got %v", err)
			}
		})
	}
}

func TestStatusDerivedFromClock(t *testing.T) {
	p := mustPoll(t, twoOptionSpec())
	tests := []struct {
		at   time.Time
		want Status
	}{
		{now.Add(-time.Second), StatusCreated},
		{now, StatusOpen},
		{p.ClosesAt.Add(-time.Nanosecond), StatusOpen},
		{p.ClosesAt, StatusClosed},
		{p.ClosesAt.Add(time.Hour), StatusClosed},
	}
	for _, tt := range tests {
		if got := p.Status(tt.at); got != tt.want {
			t.Errorf("Status(%v) = %s, want %s", tt.at, got, tt.want)
		}
	}
}

func TestEligibilityScenario(t *testing.T) {
	p := mustPoll(t, twoOptionSpec())

	err := p.CastVote(vote("v-1", "O1", "low", 40, now.Add(time.Minute)))
	if !errors.Is(err, ErrIneligibleVoter) {
		t.Fatalf("expected ErrIneligibleVoter, got %v", err)
	}
	if p.Tally()["O1"] != 0 || p.TotalVotes() != 0 {
		t.Fatal("ineligible vote must not be tallied")
	}

	if err := p.CastVote(vote("v-2", "O1", "high", 80, now.Add(2*time.Minute))); err != nil {
		t.Fatalf("cast: %v", err)
	}
	if p.Tally()["O1"] != 1 {
		t.Fatalf("tally O1 = %d, want 1", p.Tally()["O1"])
	}

	res, err := p.Resolve(p.ClosesAt)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Winner != "O1" || res.TotalVotes != 1 || res.Tied {
		t.Fatalf("resolution = %+v", res)
	}
}

func TestVoteRejections(t *testing.T) {
	tests := []struct {
		name  string
		elig  Eligibility
		prior []Vote
		vote  Vote
		want  error
	}{
		{
			name: "after close",
			vote: vote("v", "O1", "x", 90, now.Add(DefaultDuration)),
			want: ErrPollClosed,
		},
		{
			name: "before open",
			vote: vote("v", "O1", "x", 90, now.Add(-time.Minute)),
			want: ErrPollClosed,
		},
		{
			name: "unknown option",
			vote: vote("v", "O9", "x", 90, now),
			want: ErrUnknownOption,
		},
		{
			name: "verification required",
			elig: Eligibility{RequiresVerification: true},
			vote: vote("v", "O1", "x", 90, now),
			want: ErrIneligibleVoter,
		},
		{
			name:  "one vote per voter",
			elig:  Eligibility{OneVotePerVoter: true},
			prior: []Vote{vote("v-0", "O2", "x", 90, now)},
			vote:  vote("v", "O1", "x", 90, now.Add(time.Second)),
			want:  ErrIneligibleVoter,
		},
		{
			name:  "duplicate vote id",
			prior: []Vote{vote("v", "O2", "x", 90, now)},
			vote:  vote("v", "O1", "y", 90, now.Add(time.Second)),
			want:  ErrAlreadyExists,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := twoOptionSpec()
			spec.Eligibility = tt.elig
			p := mustPoll(t, spec)
			for _, v := range tt.prior {
				if err := p.CastVote(v); err != nil {
					t.Fatalf("prior vote: %v", err)
				}
			}
			before := p.TotalVotes()
			if err := p.CastVote(tt.vote); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if p.TotalVotes() != before {
				t.Fatal("rejected vote must not be recorded")
			}
		})
	}
}

func TestRepeatVotesAllowedByDefault(t *testing.T) {
	spec := twoOptionSpec()
	spec.Eligibility = Eligibility{}
	p := mustPoll(t, spec)
	for i, id := range []string{"v-1", "v-2"} {
		if err := p.CastVote(vote(id, "O1", "same", 10, now.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("cast %s: %v", id, err)
		}
	}
	if p.Tally()["O1"] != 2 {
		t.Fatalf("tally = %v", p.Tally())
	}
}

func TestResolveBeforeCloseFails(t *testing.T) {
	p := mustPoll(t, twoOptionSpec())
	_, err := p.Resolve(p.ClosesAt.Add(-time.Millisecond))
	if !errors.Is(err, ErrPollStillOpen) {
		t.Fatalf("expected ErrPollStillOpen, got %v", err)
	}
}

func TestResolveTieBreaks(t *testing.T) {
	spec := twoOptionSpec()
	spec.Eligibility = Eligibility{}
	spec.Options = append(spec.Options, Option{ID: "O3"})

	t.Run("earliest first vote", func(t *testing.T) {
		p := mustPoll(t, spec)
		casts := []Vote{
			vote("a", "O2", "u1", 0, now.Add(1*time.Second)),
			vote("b", "O1", "u2", 0, now.Add(2*time.Second)),
			vote("c", "O1", "u3", 0, now.Add(3*time.Second)),
			vote("d", "O2", "u4", 0, now.Add(4*time.Second)),
		}
		for _, v := range casts {
			if err := p.CastVote(v); err != nil {
				t.Fatalf("cast: %v", err)
			}
		}
		res, err := p.Resolve(p.ClosesAt)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if res.Winner != "O2" || !res.Tied {
			t.Fatalf("resolution = %+v, want O2 by tie-break", res)
		}
	})

	t.Run("option order on equal instants", func(t *testing.T) {
		p := mustPoll(t, spec)
		for _, v := range []Vote{
			vote("a", "O3", "u1", 0, now),
			vote("b", "O2", "u2", 0, now),
		} {
			if err := p.CastVote(v); err != nil {
				t.Fatalf("cast: %v", err)
			}
		}
		res, err := p.Resolve(p.ClosesAt)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if res.Winner != "O2" {
			t.Fatalf("winner = %s, want O2", res.Winner)
		}
	})

	t.Run("clear majority", func(t *testing.T) {
		p := mustPoll(t, spec)
		for _, v := range []Vote{
			vote("a", "O1", "u1", 0, now),
			vote("b", "O3", "u2", 0, now.Add(time.Second)),
			vote("c", "O3", "u3", 0, now.Add(2*time.Second)),
		} {
			if err := p.CastVote(v); err != nil {
				t.Fatalf("cast: %v", err)
			}
		}
		res, err := p.Resolve(p.ClosesAt)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if res.Winner != "O3" || res.Tied {
			t.Fatalf("resolution = %+v", res)
		}
	})
}

func TestResolveNoVotes(t *testing.T) {
	p := mustPoll(t, twoOptionSpec())
	res, err := p.Resolve(p.ClosesAt)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Winner != "" || res.TotalVotes != 0 {
		t.Fatalf("resolution = %+v", res)
	}
}

func TestPollEventRoundTrip(t *testing.T) {
	p := mustPoll(t, twoOptionSpec())
	evt, err := event.New(p.ToEvent(), now)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	rebuilt, err := FromEvent(evt)
	if err != nil {
		t.Fatalf("from event: %v", err)
	}
	if rebuilt.ID != p.ID || !rebuilt.ClosesAt.Equal(p.ClosesAt) || len(rebuilt.Options) != 2 {
		t.Fatalf("rebuilt = %+v", rebuilt)
	}
	if rebuilt.Eligibility != p.Eligibility {
		t.Fatalf("eligibility = %+v, want %+v", rebuilt.Eligibility, p.Eligibility)
	}

	v := vote("v-1", "O1", "x", 75, now)
	v.Verified = true
	vevt, err := event.New(v.ToEvent(), now)
	if err != nil {
		t.Fatalf("new vote event: %v", err)
	}
	got, err := VoteFromEvent(vevt)
	if err != nil {
		t.Fatalf("vote from event: %v", err)
	}
	if !got.Verified || got.TrustScore != 75 || !got.Timestamp.Equal(now) {
		t.Fatalf("vote = %+v", got)
	}
}

func TestBook(t *testing.T) {
	b := NewBook()
	p := mustPoll(t, twoOptionSpec())
	if err := b.ApplyCreated(p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := b.ApplyCreated(p); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	if err := b.CastVote(vote("v-1", "O1", "x", 60, now)); err != nil {
		t.Fatalf("cast: %v", err)
	}

	unknown := vote("v-2", "O1", "x", 60, now)
	unknown.PollID = "missing"
	if err := b.CastVote(unknown); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	clone := b.Clone()
	if err := b.CastVote(vote("v-3", "O2", "y", 60, now)); err != nil {
		t.Fatalf("cast: %v", err)
	}
	got, err := clone.Get("p-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalVotes() != 1 {
		t.Fatalf("clone votes = %d, want 1", got.TotalVotes())
	}
	if live, _ := b.Get("p-1"); live.TotalVotes() != 2 {
		t.Fatalf("live votes = %d, want 2", live.TotalVotes())
	}
	if p.TotalVotes() != 0 {
		t.Fatal("book must not share state with the created poll")
	}
	if len(b.List()) != 1 || b.Len() != 1 {
		t.Fatalf("list = %d", len(b.List()))
	}
}
