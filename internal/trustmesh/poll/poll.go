package poll

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

// Defaults applied when configuration does not override them.
const (
	DefaultDuration          = 168 * time.Hour
	DefaultMinimumTrustScore = 50.0
	KindRecognitionVoting    = "recognition_voting"
)

// Status is the derived lifecycle state of a poll.
type Status string

const (
	StatusCreated Status = "created"
	StatusOpen    Status = "open"
	StatusClosed  Status = "closed"
)

// Option is one choice offered by a poll.
type Option struct {
	ID          string
	Nominee     string
	DisplayName string
	Rationale   string
}

// Eligibility gates who may vote.
type Eligibility struct {
	MinimumTrustScore    float64
	RequiresVerification bool
	// OneVotePerVoter rejects a second vote from the same voter.
	OneVotePerVoter bool
}

// CreateSpec describes a poll to create.
type CreateSpec struct {
	ID          string
	Title       string
	Description string
	Kind        string
	Options     []Option
	Duration    time.Duration
	Eligibility Eligibility
}

// Poll is a poll and its accumulated votes. The option set is fixed at
// creation; only votes accumulate.
type Poll struct {
	ID          string
	Title       string
	Description string
	Kind        string
	Options     []Option
	OpensAt     time.Time
	ClosesAt    time.Time
	Eligibility Eligibility

	tally     map[string]int
	firstVote map[string]time.Time
	votes     []Vote
	voteIDs   map[string]struct{}
	voters    map[string]struct{}
}

// New validates spec and opens a poll at now that closes after spec.Duration.
func New(spec CreateSpec, now time.Time) (*Poll, error) {
	if spec.Duration <= 0 {
		return nil, invalidPoll("duration must be positive", map[string]string{"duration": spec.Duration.String()})
	}
	opens := now.UTC()
	return build(spec.ID, spec.Title, spec.Description, spec.Kind, spec.Options, opens, opens.Add(spec.Duration), spec.Eligibility)
}

// FromEvent rebuilds an empty poll from a COMMUNITY_POLL_CREATED event.
func FromEvent(evt event.Event) (*Poll, error) {
	payload, ok := evt.Payload.(event.PollCreated)
	if !ok {
		return nil, fmt.Errorf("poll: unexpected payload %T for %s", evt.Payload, evt.Type)
	}
	options := make([]Option, 0, len(payload.Options))
	for _, o := range payload.Options {
		options = append(options, Option{ID: o.OptionID, Nominee: o.Nominee, DisplayName: o.DisplayName, Rationale: o.Rationale})
	}
	return build(payload.PollID, payload.Title, payload.Description, payload.PollType, options,
		payload.Timeline.VotingOpens.UTC(), payload.Timeline.VotingCloses.UTC(), Eligibility{
			MinimumTrustScore:    payload.Eligibility.MinimumTrustScore,
			RequiresVerification: payload.Eligibility.RequiresVerification,
			OneVotePerVoter:      payload.Eligibility.OneVotePerVoter,
		})
}

func build(id, title, description, kind string, options []Option, opens, closes time.Time, elig Eligibility) (*Poll, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidPoll("poll id is required", nil)
	}
	if strings.TrimSpace(title) == "" {
		return nil, invalidPoll("title is required", map[string]string{"poll_id": id})
	}
	if len(options) == 0 {
		return nil, invalidPoll("at least one option is required", map[string]string{"poll_id": id})
	}
	if !closes.After(opens) {
		return nil, invalidPoll("voting must close after it opens", map[string]string{"poll_id": id})
	}
	if elig.MinimumTrustScore < 0 {
		return nil, invalidPoll("minimum trust score must not be negative", map[string]string{"poll_id": id})
	}
	seen := make(map[string]struct{}, len(options))
	tally := make(map[string]int, len(options))
	for _, o := range options {
		if strings.TrimSpace(o.ID) == "" {
			return nil, invalidPoll("option id is required", map[string]string{"poll_id": id})
		}
		if _, dup := seen[o.ID]; dup {
			return nil, invalidPoll("duplicate option id", map[string]string{"poll_id": id, "option_id": o.ID})
		}
		seen[o.ID] = struct{}{}
		tally[o.ID] = 0
	}
	if kind == "" {
		kind = KindRecognitionVoting
	}
	return &Poll{
		ID:          id,
		Title:       title,
		Description: description,
		Kind:        kind,
		Options:     slices.Clone(options),
		OpensAt:     opens,
		ClosesAt:    closes,
		Eligibility: elig,
		tally:       tally,
		firstVote:   make(map[string]time.Time),
		voteIDs:     make(map[string]struct{}),
		voters:      make(map[string]struct{}),
	}, nil
}

// ToEvent renders the poll definition as a COMMUNITY_POLL_CREATED payload.
func (p *Poll) ToEvent() event.PollCreated {
	options := make([]event.PollOption, 0, len(p.Options))
	for _, o := range p.Options {
		options = append(options, event.PollOption{OptionID: o.ID, Nominee: o.Nominee, DisplayName: o.DisplayName, Rationale: o.Rationale})
	}
	return event.PollCreated{
		PollID:      p.ID,
		Title:       p.Title,
		Description: p.Description,
		PollType:    p.Kind,
		Options:     options,
		Timeline:    event.PollTimeline{VotingOpens: p.OpensAt, VotingCloses: p.ClosesAt},
		Eligibility: event.PollEligibility{
			MinimumTrustScore:    p.Eligibility.MinimumTrustScore,
			RequiresVerification: p.Eligibility.RequiresVerification,
			OneVotePerVoter:      p.Eligibility.OneVotePerVoter,
		},
	}
}

// Status derives the lifecycle state at now.
func (p *Poll) Status(now time.Time) Status {
	switch {
	case now.Before(p.OpensAt):
		return StatusCreated
	case now.Before(p.ClosesAt):
		return StatusOpen
	default:
		return StatusClosed
	}
}

// HasOption reports whether the poll offers option id.
func (p *Poll) HasOption(id string) bool {
	_, ok := p.tally[id]
	return ok
}

// Tally returns a copy of the vote count per option.
func (p *Poll) Tally() map[string]int {
	return maps.Clone(p.tally)
}

// Votes returns the recorded votes in application order.
func (p *Poll) Votes() []Vote {
	return slices.Clone(p.votes)
}

// TotalVotes returns the number of recorded votes.
func (p *Poll) TotalVotes() int {
	return len(p.votes)
}

// Clone returns an independent copy of the poll and its votes.
func (p *Poll) Clone() *Poll {
	out := *p
	out.Options = slices.Clone(p.Options)
	out.tally = maps.Clone(p.tally)
	out.firstVote = maps.Clone(p.firstVote)
	out.votes = slices.Clone(p.votes)
	out.voteIDs = maps.Clone(p.voteIDs)
	out.voters = maps.Clone(p.voters)
	return &out
}
