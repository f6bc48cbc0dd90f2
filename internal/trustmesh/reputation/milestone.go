package reputation

import "slices"

// Level names a reputation tier.
type Level string

const (
	LevelNewMember       Level = "NEW_MEMBER"
	LevelActiveMember    Level = "ACTIVE_MEMBER"
	LevelTrustedMember   Level = "TRUSTED_MEMBER"
	LevelCommunityLeader Level = "COMMUNITY_LEADER"
)

// Milestone is a tier and the fixed set of benefits it unlocks.
type Milestone struct {
	Level    Level
	Benefits []string
}

type threshold struct {
	min       float64
	milestone Milestone
}

// thresholds are evaluated highest first; the first match wins.
var thresholds = []threshold{
	{min: 90, milestone: Milestone{Level: LevelCommunityLeader, Benefits: []string{"event_hosting", "badge_issuing", "trust_verification"}}},
	{min: 75, milestone: Milestone{Level: LevelTrustedMember, Benefits: []string{"vip_access", "mentor_eligibility"}}},
	{min: 50, milestone: Milestone{Level: LevelActiveMember, Benefits: []string{"full_participation", "voting_rights"}}},
}

var newMember = Milestone{Level: LevelNewMember, Benefits: []string{"basic_participation"}}

// ResolveMilestone returns the milestone reached by score.
func ResolveMilestone(score float64) Milestone {
	for _, t := range thresholds {
		if score >= t.min {
			return clone(t.milestone)
		}
	}
	return clone(newMember)
}

func clone(m Milestone) Milestone {
	return Milestone{Level: m.Level, Benefits: slices.Clone(m.Benefits)}
}

// Rank orders levels from NEW_MEMBER (0) to COMMUNITY_LEADER (3).
// Unknown levels rank below NEW_MEMBER.
func (l Level) Rank() int {
	switch l {
	case LevelNewMember:
		return 0
	case LevelActiveMember:
		return 1
	case LevelTrustedMember:
		return 2
	case LevelCommunityLeader:
		return 3
	default:
		return -1
	}
}
