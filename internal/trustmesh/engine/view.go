package engine

import (
	"context"
	"iter"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/trustmesh/internal/trustmesh/badge"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/poll"
	"github.com/louisbranch/trustmesh/internal/trustmesh/profile"
	"github.com/louisbranch/trustmesh/internal/trustmesh/reputation"
	"github.com/louisbranch/trustmesh/internal/trustmesh/trust"
)

// View is an immutable, consistent read of every projection at one store
// version. It is safe for concurrent use.
type View struct {
	state   *projections
	version uint64
	offsets map[event.Topic]uint64
}

// Version counts the events applied when the view was taken.
func (v *View) Version() uint64 {
	return v.version
}

// Offsets returns the highest sequence seen per topic.
func (v *View) Offsets() map[event.Topic]uint64 {
	return maps.Clone(v.offsets)
}

// Profile returns the account's profile with counters.
func (v *View) Profile(account string) (profile.Profile, error) {
	return v.state.profiles.Get(account)
}

// Profiles lists every profile sorted by account id.
func (v *View) Profiles() []profile.Profile {
	return v.state.profiles.List()
}

// Counters returns the cached counters for account, with or without a profile.
func (v *View) Counters(account string) profile.Counters {
	return v.state.profiles.CountersFor(account)
}

// Balance returns the directed trust balance from a to b.
func (v *View) Balance(a, b string) trust.Balance {
	return v.state.ledger.Balance(a, b)
}

// Received summarises trust received by account.
func (v *View) Received(account string) trust.Summary {
	return v.state.ledger.Received(account)
}

// Given summarises trust given by account.
func (v *View) Given(account string) trust.Summary {
	return v.state.ledger.Given(account)
}

// AllIncoming yields grants received by account in timestamp order.
func (v *View) AllIncoming(account string) iter.Seq[trust.Grant] {
	return v.state.ledger.AllIncoming(account)
}

// AllOutgoing yields grants sent by account in timestamp order.
func (v *View) AllOutgoing(account string) iter.Seq[trust.Grant] {
	return v.state.ledger.AllOutgoing(account)
}

// TrustAccounts lists every account on either side of a grant.
func (v *View) TrustAccounts() []string {
	return v.state.ledger.Accounts()
}

// BadgesFor returns the account's badges in issuance order.
func (v *View) BadgesFor(account string) []badge.Badge {
	return v.state.badges.BadgesFor(account)
}

// CountByRarity counts the account's badges per rarity.
func (v *View) CountByRarity(account string) map[badge.Rarity]int {
	return v.state.badges.CountByRarity(account)
}

// Badge returns the badge with id issued to recipient.
func (v *View) Badge(recipient, id string) (badge.Badge, bool) {
	return v.state.badges.Get(recipient, id)
}

// Poll returns a copy of the poll with id.
func (v *View) Poll(id string) (*poll.Poll, error) {
	return v.state.polls.Get(id)
}

// Polls lists every poll sorted by id.
func (v *View) Polls() []*poll.Poll {
	return v.state.polls.List()
}

// ComputeReputation scores account from one consistent view. The result is
// never read back as an input to later computations.
func ComputeReputation(ctx context.Context, view *View, account string, activity float64, at time.Time) reputation.Snapshot {
	_, span := otel.Tracer(tracerName).Start(ctx, "engine.compute_reputation", trace.WithAttributes(
		attribute.String("account", account),
		attribute.Int64("store.version", int64(view.Version())),
	))
	defer span.End()

	snap := reputation.Compute(reputation.Gather(view, account), activity, at)
	span.SetAttributes(
		attribute.Float64("reputation.overall", snap.OverallScore),
		attribute.String("reputation.milestone", string(snap.Milestone.Level)),
	)
	return snap
}
