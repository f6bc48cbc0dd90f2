package poll

import (
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

// Vote is one immutable vote fact.
type Vote struct {
	PollID         string
	VoteID         string
	OptionID       string
	Voter          string
	TrustScore     float64
	Verified       bool
	EligibilityMet bool
	Weight         float64
	Timestamp      time.Time
}

// VoteFromEvent converts a POLL_VOTE_CAST event into a Vote stamped with the
// event time.
func VoteFromEvent(evt event.Event) (Vote, error) {
	payload, ok := evt.Payload.(event.VoteCast)
	if !ok {
		return Vote{}, fmt.Errorf("poll: unexpected payload %T for %s", evt.Payload, evt.Type)
	}
	return Vote{
		PollID:         payload.PollID,
		VoteID:         payload.VoteID,
		OptionID:       payload.SelectedOption,
		Voter:          payload.Voter,
		TrustScore:     payload.VoterProfile.TrustScore,
		Verified:       payload.VoterProfile.VerificationStatus == event.VerificationVerified,
		EligibilityMet: payload.VoterProfile.EligibilityMet,
		Weight:         payload.VoteWeight,
		Timestamp:      evt.Timestamp,
	}, nil
}

// ToEvent renders the vote as a POLL_VOTE_CAST payload.
func (v Vote) ToEvent() event.VoteCast {
	status := ""
	if v.Verified {
		status = event.VerificationVerified
	}
	return event.VoteCast{
		PollID:         v.PollID,
		VoteID:         v.VoteID,
		SelectedOption: v.OptionID,
		Voter:          v.Voter,
		VoterProfile: event.VoterProfile{
			TrustScore:         v.TrustScore,
			EligibilityMet:     v.EligibilityMet,
			VerificationStatus: status,
		},
		VoteWeight: v.Weight,
	}
}

// CheckVote reports whether v may be cast at now without recording it.
// The window is checked first, then the option, then eligibility.
func (p *Poll) CheckVote(v Vote, now time.Time) error {
	if status := p.Status(now); status != StatusOpen {
		return apperrors.WithMetadata(apperrors.CodePollClosed, ErrPollClosed.Message, map[string]string{
			"poll_id": p.ID,
			"status":  string(status),
		})
	}
	if !p.HasOption(v.OptionID) {
		return apperrors.WithMetadata(apperrors.CodeUnknownOption, ErrUnknownOption.Message, map[string]string{
			"poll_id":   p.ID,
			"option_id": v.OptionID,
		})
	}
	if _, dup := p.voteIDs[v.VoteID]; dup {
		return apperrors.WithMetadata(apperrors.CodeAlreadyExists, "vote already recorded", map[string]string{
			"poll_id": p.ID,
			"vote_id": v.VoteID,
		})
	}
	return p.checkEligibility(v)
}

func (p *Poll) checkEligibility(v Vote) error {
	ineligible := func(reason string) error {
		return apperrors.WithMetadata(apperrors.CodeIneligibleVoter, ErrIneligibleVoter.Message, map[string]string{
			"poll_id": p.ID,
			"voter":   v.Voter,
			"reason":  reason,
		})
	}
	if v.TrustScore < p.Eligibility.MinimumTrustScore {
		return ineligible("trust score " + strconv.FormatFloat(v.TrustScore, 'f', -1, 64) +
			" below minimum " + strconv.FormatFloat(p.Eligibility.MinimumTrustScore, 'f', -1, 64))
	}
	if p.Eligibility.RequiresVerification && !v.Verified {
		return ineligible("verification required")
	}
	if p.Eligibility.OneVotePerVoter {
		if _, voted := p.voters[v.Voter]; voted {
			return ineligible("already voted")
		}
	}
	return nil
}

// CastVote checks v at its own timestamp and records it.
func (p *Poll) CastVote(v Vote) error {
	if err := p.CheckVote(v, v.Timestamp); err != nil {
		return err
	}
	p.tally[v.OptionID]++
	if _, ok := p.firstVote[v.OptionID]; !ok {
		p.firstVote[v.OptionID] = v.Timestamp
	}
	v.EligibilityMet = true
	p.votes = append(p.votes, v)
	p.voteIDs[v.VoteID] = struct{}{}
	p.voters[v.Voter] = struct{}{}
	return nil
}
