package reputation

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/louisbranch/trustmesh/internal/trustmesh/badge"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/trust"
)

// Component caps and weights.
const (
	MaxTrust    = 40.0
	MaxBadges   = 30.0
	MaxActivity = 30.0

	TrustWeight    = 0.4
	BadgesWeight   = 0.3
	ActivityWeight = 0.3
)

// TrustInputs are the trust-ledger facts reputation depends on.
type TrustInputs struct {
	Received     int
	AverageLevel float64
	StakedTotal  decimal.Decimal
}

// BadgeInputs are badge counts per rarity.
type BadgeInputs struct {
	Common    int
	Rare      int
	Legendary int
}

// Inputs gathers the projection facts for one account.
type Inputs struct {
	UserID string
	Trust  TrustInputs
	Badges BadgeInputs
	// Version is the store version the inputs were read at.
	Version uint64
}

// Component is one weighted part of the score with the raw inputs it used.
type Component struct {
	Score  float64
	Weight float64
	Inputs map[string]float64
}

// Breakdown groups the three components.
type Breakdown struct {
	Trust    Component
	Badges   Component
	Activity Component
}

// Snapshot is the result of one computation.
type Snapshot struct {
	UserID       string
	OverallScore float64
	Breakdown    Breakdown
	Milestone    Milestone
	ComputedAt   time.Time
	Version      uint64
}

// Source is a consistent read view over the trust and badge projections.
type Source interface {
	Received(account string) trust.Summary
	CountByRarity(account string) map[badge.Rarity]int
	Version() uint64
}

// Gather reads the inputs for account from one consistent source.
func Gather(src Source, account string) Inputs {
	received := src.Received(account)
	counts := src.CountByRarity(account)
	return Inputs{
		UserID: account,
		Trust: TrustInputs{
			Received:     received.Count,
			AverageLevel: received.AverageLevel,
			StakedTotal:  received.StakedTotal,
		},
		Badges: BadgeInputs{
			Common:    counts[badge.RarityCommon],
			Rare:      counts[badge.RarityRare],
			Legendary: counts[badge.RarityLegendary],
		},
		Version: src.Version(),
	}
}

// Compute scores in. activity is clamped to [0, 30]; a non-finite activity
// counts as zero.
func Compute(in Inputs, activity float64, at time.Time) Snapshot {
	trustScore := TrustScore(in.Trust)
	badgeScore := BadgeScore(in.Badges)
	activityScore := clamp(activity, 0, MaxActivity)

	overall := round1(trustScore*TrustWeight + badgeScore*BadgesWeight + activityScore*ActivityWeight)

	return Snapshot{
		UserID:       in.UserID,
		OverallScore: overall,
		Breakdown: Breakdown{
			Trust: Component{
				Score:  trustScore,
				Weight: TrustWeight,
				Inputs: map[string]float64{
					"received_count":  float64(in.Trust.Received),
					"avg_trust_level": in.Trust.AverageLevel,
					"staked_total":    in.Trust.StakedTotal.InexactFloat64(),
				},
			},
			Badges: Component{
				Score:  badgeScore,
				Weight: BadgesWeight,
				Inputs: map[string]float64{
					"common":    float64(in.Badges.Common),
					"rare":      float64(in.Badges.Rare),
					"legendary": float64(in.Badges.Legendary),
				},
			},
			Activity: Component{
				Score:  activityScore,
				Weight: ActivityWeight,
				Inputs: map[string]float64{"supplied": sanitize(activity)},
			},
		},
		Milestone:  ResolveMilestone(overall),
		ComputedAt: at.UTC(),
		Version:    in.Version,
	}
}

// TrustScore is min(received*2, 30) + avg_level*5 + min(staked/10, 10), capped
// at 40. It is not rounded; only the overall score is.
func TrustScore(in TrustInputs) float64 {
	count := math.Min(float64(in.Received)*2, 30)
	level := clamp(in.AverageLevel, 0, 5) * 5
	stake := decimal.Min(in.StakedTotal.Div(decimal.NewFromInt(10)), decimal.NewFromInt(10))
	if stake.IsNegative() {
		stake = decimal.Zero
	}
	return math.Min(count+level+stake.InexactFloat64(), MaxTrust)
}

// BadgeScore weights common 5, rare 10, legendary 20, capped at 30.
func BadgeScore(in BadgeInputs) float64 {
	raw := in.Common*5 + in.Rare*10 + in.Legendary*20
	return clamp(float64(raw), 0, MaxBadges)
}

// ToEvent renders the snapshot as a REPUTATION_CALCULATED payload.
func (s Snapshot) ToEvent() event.ReputationCalculated {
	return event.ReputationCalculated{
		UserID:       s.UserID,
		OverallScore: s.OverallScore,
		Breakdown: event.ReputationBreakdown{
			Trust:    toEventComponent(s.Breakdown.Trust),
			Badges:   toEventComponent(s.Breakdown.Badges),
			Activity: toEventComponent(s.Breakdown.Activity),
		},
		Milestone: event.ReputationMilestone{
			Level:    string(s.Milestone.Level),
			Benefits: s.Milestone.Benefits,
		},
		Version: s.Version,
	}
}

func toEventComponent(c Component) event.ReputationComponent {
	return event.ReputationComponent{Score: c.Score, Weight: c.Weight, Inputs: c.Inputs}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	v = sanitize(v)
	return math.Max(lo, math.Min(v, hi))
}

func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}
