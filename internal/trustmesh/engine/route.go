package engine

import (
	"fmt"

	"github.com/louisbranch/trustmesh/internal/trustmesh/badge"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/poll"
	"github.com/louisbranch/trustmesh/internal/trustmesh/profile"
	"github.com/louisbranch/trustmesh/internal/trustmesh/trust"
)

// change is an event converted to domain terms. check must not mutate;
// commit runs only after check succeeded under the same lock.
type change struct {
	check  func(p *projections) error
	commit func(p *projections)
}

// projections groups the state the store owns. Views hold clones of it.
type projections struct {
	profiles *profile.Directory
	ledger   *trust.Ledger
	badges   *badge.Registry
	polls    *poll.Book
}

func newProjections() *projections {
	return &projections{
		profiles: profile.NewDirectory(),
		ledger:   trust.NewLedger(),
		badges:   badge.NewRegistry(),
		polls:    poll.NewBook(),
	}
}

func (p *projections) clone() *projections {
	return &projections{
		profiles: p.profiles.Clone(),
		ledger:   p.ledger.Clone(),
		badges:   p.badges.Clone(),
		polls:    p.polls.Clone(),
	}
}

// route converts evt into a change. It is pure and runs outside the lock.
func route(evt event.Event) (change, error) {
	switch evt.Type {
	case event.TypeProfileCreate:
		prof, err := profile.FromEvent(evt)
		if err != nil {
			return change{}, err
		}
		return change{
			check:  func(p *projections) error { return p.profiles.Check(prof) },
			commit: func(p *projections) { _ = p.profiles.ApplyCreated(prof) },
		}, nil

	case event.TypeTrustTokenGiven:
		g, err := trust.GrantFromEvent(evt)
		if err != nil {
			return change{}, err
		}
		return change{
			check: func(p *projections) error { return p.ledger.Check(g) },
			commit: func(p *projections) {
				_ = p.ledger.ApplyTrustGiven(g)
				p.profiles.RecordTrust(g.Sender, g.Recipient, g.Staked, g.Timestamp)
			},
		}, nil

	case event.TypeBadgeIssued:
		b, err := badge.FromEvent(evt)
		if err != nil {
			return change{}, err
		}
		return change{
			check: func(p *projections) error { return p.badges.Check(b) },
			commit: func(p *projections) {
				_ = p.badges.ApplyBadgeIssued(b)
				p.profiles.RecordBadge(b.Recipient, b.IssuedAt)
			},
		}, nil

	case event.TypeReputationCalculated:
		snapshot, ok := evt.Payload.(event.ReputationCalculated)
		if !ok {
			return change{}, fmt.Errorf("engine: unexpected payload %T for %s", evt.Payload, evt.Type)
		}
		at := evt.Timestamp
		return change{
			check: func(*projections) error { return nil },
			commit: func(p *projections) {
				p.profiles.RecordReputation(snapshot, at)
			},
		}, nil

	case event.TypePollCreated:
		created, err := poll.FromEvent(evt)
		if err != nil {
			return change{}, err
		}
		return change{
			check:  func(p *projections) error { return p.polls.CheckCreate(created) },
			commit: func(p *projections) { _ = p.polls.ApplyCreated(created) },
		}, nil

	case event.TypeVoteCast:
		v, err := poll.VoteFromEvent(evt)
		if err != nil {
			return change{}, err
		}
		return change{
			check:  func(p *projections) error { return p.polls.CheckVote(v) },
			commit: func(p *projections) { _ = p.polls.CastVote(v) },
		}, nil

	default:
		return change{}, &event.UnknownEventError{Type: evt.Type}
	}
}
