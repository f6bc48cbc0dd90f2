package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/louisbranch/trustmesh/internal/trustmesh/engine"
	"github.com/louisbranch/trustmesh/internal/trustmesh/poll"
)

// PollInput describes a poll to open now.
type PollInput struct {
	Title       string
	Description string
	Kind        string
	Options     []poll.Option
	// Duration defaults to the configured poll duration.
	Duration time.Duration
	// MinimumTrustScore defaults to the configured minimum when nil.
	MinimumTrustScore    *float64
	RequiresVerification bool
	OneVotePerVoter      bool
}

// CreatePoll appends COMMUNITY_POLL_CREATED for a poll opening now.
func (s *Service) CreatePoll(ctx context.Context, in PollInput) (*poll.Poll, error) {
	pollID, err := s.newID("poll")
	if err != nil {
		return nil, err
	}
	duration := in.Duration
	if duration == 0 {
		duration = s.cfg.PollDuration
	}
	minTrust := s.cfg.MinimumTrustScore
	if in.MinimumTrustScore != nil {
		minTrust = *in.MinimumTrustScore
	}
	p, err := poll.New(poll.CreateSpec{
		ID:          pollID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Kind:        in.Kind,
		Options:     in.Options,
		Duration:    duration,
		Eligibility: poll.Eligibility{
			MinimumTrustScore:    minTrust,
			RequiresVerification: in.RequiresVerification,
			OneVotePerVoter:      in.OneVotePerVoter,
		},
	}, s.now())
	if err != nil {
		return nil, err
	}
	if _, _, err := s.publish(ctx, p.ToEvent()); err != nil {
		return nil, err
	}
	var created *poll.Poll
	s.store.Read(func(v *engine.View) {
		created, err = v.Poll(pollID)
	})
	return created, err
}

// VoteInput describes a vote to cast now.
type VoteInput struct {
	PollID   string
	OptionID string
	Voter    string
	// TrustScore is the voter's standing as attested by the caller. It is
	// checked against the poll's minimum.
	TrustScore float64
	Verified   bool
	// Weight defaults to 1.
	Weight float64
}

// CastVote appends POLL_VOTE_CAST after checking the window, the option and
// the voter's eligibility against the live poll.
func (s *Service) CastVote(ctx context.Context, in VoteInput) (poll.Vote, error) {
	voteID, err := s.newID("vote")
	if err != nil {
		return poll.Vote{}, err
	}
	weight := in.Weight
	if weight == 0 {
		weight = 1
	}
	v := poll.Vote{
		PollID:         strings.TrimSpace(in.PollID),
		VoteID:         voteID,
		OptionID:       strings.TrimSpace(in.OptionID),
		Voter:          strings.TrimSpace(in.Voter),
		TrustScore:     in.TrustScore,
		Verified:       in.Verified,
		Weight:         weight,
		EligibilityMet: true,
	}
	published, _, err := s.publish(ctx, v.ToEvent())
	if err != nil {
		return poll.Vote{}, err
	}
	return poll.VoteFromEvent(published)
}

// ResolvePoll returns the winner of a closed poll. It appends nothing.
func (s *Service) ResolvePoll(ctx context.Context, pollID string) (poll.Resolution, error) {
	var p *poll.Poll
	var err error
	s.store.Read(func(v *engine.View) {
		p, err = v.Poll(strings.TrimSpace(pollID))
	})
	if err != nil {
		return poll.Resolution{}, err
	}
	res, err := p.Resolve(s.now())
	if err != nil {
		return poll.Resolution{}, err
	}
	s.logger.Info("poll resolved",
		zap.String("poll_id", res.PollID),
		zap.String("winner", res.Winner),
		zap.Int("total_votes", res.TotalVotes),
		zap.Bool("tied", res.Tied),
	)
	return res, nil
}
