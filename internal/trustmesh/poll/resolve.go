package poll

import (
	"time"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
)

// Resolution is the outcome of a closed poll.
type Resolution struct {
	PollID string
	// Winner is the winning option id, empty when nobody voted.
	Winner     string
	Tally      map[string]int
	TotalVotes int
	// Tied reports whether the winner was chosen by a tie-break.
	Tied       bool
	ResolvedAt time.Time
}

// Resolve returns the winner once the voting window has closed.
func (p *Poll) Resolve(now time.Time) (Resolution, error) {
	if p.Status(now) != StatusClosed {
		return Resolution{}, apperrors.WithMetadata(apperrors.CodePollStillOpen, ErrPollStillOpen.Message, map[string]string{
			"poll_id":       p.ID,
			"voting_closes": p.ClosesAt.Format(time.RFC3339),
		})
	}
	res := Resolution{
		PollID:     p.ID,
		Tally:      p.Tally(),
		TotalVotes: len(p.votes),
		ResolvedAt: now.UTC(),
	}
	if len(p.votes) == 0 {
		return res, nil
	}

	best := -1
	for i, o := range p.Options {
		count := p.tally[o.ID]
		if count == 0 {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		leader := p.Options[best].ID
		switch {
		case count > p.tally[leader]:
			best = i
			res.Tied = false
		case count == p.tally[leader]:
			res.Tied = true
			// Earlier first vote wins; equal instants keep option order.
			if p.firstVote[o.ID].Before(p.firstVote[leader]) {
				best = i
			}
		}
	}
	res.Winner = p.Options[best].ID
	return res, nil
}
