package event

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payload is the closed set of event bodies. Only types in this package
// implement it.
type Payload interface {
	// EventType names the event kind the payload belongs to.
	EventType() Type
	// Key is the ordering key: events sharing a key must be applied in log order.
	Key() string
	// EntityID identifies the fact for error reports.
	EntityID() string
	// Validate checks structural requirements of the schema.
	Validate() error

	isPayload()
}

// Visibility values accepted on profiles.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
	VisibilityFriends = "friends"
)

// ProfileCreated creates an account profile. PROFILE_CREATE, HCS-11.
type ProfileCreated struct {
	ProfileID          string `json:"profile_id"`
	DisplayName        string `json:"display_name"`
	SchemaVersion      string `json:"schema_version,omitempty"`
	Visibility         string `json:"visibility"`
	AllowTrustRequests bool   `json:"allow_trust_requests"`
	ShowTrustScore     bool   `json:"show_trust_score"`
}

func (ProfileCreated) EventType() Type    { return TypeProfileCreate }
func (p ProfileCreated) Key() string      { return p.ProfileID }
func (p ProfileCreated) EntityID() string { return p.ProfileID }
func (ProfileCreated) isPayload()         {}

func (p ProfileCreated) Validate() error {
	if strings.TrimSpace(p.ProfileID) == "" {
		return invalid("profile_id", "profile id is required")
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		return invalid("display_name", "display name is required")
	}
	switch p.Visibility {
	case VisibilityPublic, VisibilityPrivate, VisibilityFriends:
	default:
		return invalid("visibility", "visibility must be public, private, or friends")
	}
	return nil
}

// TrustTokenGiven records one trust token from sender to recipient.
// TRUST_TOKEN_GIVEN, HCS-20.
type TrustTokenGiven struct {
	TransactionID string `json:"transaction_id"`
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	TrustType     string `json:"trust_type"`
	Relationship  string `json:"relationship,omitempty"`
	// Level is the sender's 1-5 confidence; zero means the trust type default.
	Level   int             `json:"trust_level,omitempty"`
	Staked  decimal.Decimal `json:"trst_staked"`
	Context string          `json:"context,omitempty"`
	// PreviousBalance and NewBalance are the recipient's received count before
	// and after this token; when present NewBalance must be PreviousBalance+1.
	PreviousBalance int `json:"previous_balance"`
	NewBalance      int `json:"new_balance"`
}

func (TrustTokenGiven) EventType() Type    { return TypeTrustTokenGiven }
func (t TrustTokenGiven) Key() string      { return PairKey(t.Sender, t.Recipient) }
func (t TrustTokenGiven) EntityID() string { return t.TransactionID }
func (TrustTokenGiven) isPayload()         {}

func (t TrustTokenGiven) Validate() error {
	if strings.TrimSpace(t.TransactionID) == "" {
		return invalid("transaction_id", "transaction id is required")
	}
	if strings.TrimSpace(t.Sender) == "" {
		return invalid("sender", "sender is required")
	}
	if strings.TrimSpace(t.Recipient) == "" {
		return invalid("recipient", "recipient is required")
	}
	if strings.TrimSpace(t.TrustType) == "" {
		return invalid("trust_type", "trust type is required")
	}
	if t.Level < 0 || t.Level > 5 {
		return invalid("trust_level", "trust level must be between 1 and 5")
	}
	if (t.PreviousBalance != 0 || t.NewBalance != 0) && t.NewBalance != t.PreviousBalance+1 {
		return invalid("new_balance", "new balance must equal previous balance plus one")
	}
	return nil
}

// PairKey is the ordering key of a directed account pair.
func PairKey(sender, recipient string) string {
	return sender + "->" + recipient
}

// BadgeIssued records a badge awarded to a recipient. BADGE_ISSUED, HCS-5.
type BadgeIssued struct {
	HashinalID      string            `json:"hashinal_id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	BadgeType       string            `json:"badge_type"`
	Category        string            `json:"category"`
	Rarity          string            `json:"rarity"`
	Recipient       string            `json:"recipient"`
	IssuedBy        string            `json:"issued_by"`
	BackgroundColor string            `json:"background_color"`
	IconURL         string            `json:"icon_url"`
	BorderStyle     string            `json:"border_style"`
	Points          int               `json:"points"`
	Level           int               `json:"level,omitempty"`
	Achievements    []string          `json:"achievements,omitempty"`
	IssuanceContext map[string]string `json:"issuance_context,omitempty"`
}

func (BadgeIssued) EventType() Type    { return TypeBadgeIssued }
func (b BadgeIssued) Key() string      { return b.Recipient }
func (b BadgeIssued) EntityID() string { return b.HashinalID }
func (BadgeIssued) isPayload()         {}

func (b BadgeIssued) Validate() error {
	if strings.TrimSpace(b.HashinalID) == "" {
		return invalid("hashinal_id", "badge id is required")
	}
	if strings.TrimSpace(b.Name) == "" {
		return invalid("name", "badge name is required")
	}
	if strings.TrimSpace(b.Recipient) == "" {
		return invalid("recipient", "recipient is required")
	}
	if strings.TrimSpace(b.IssuedBy) == "" {
		return invalid("issued_by", "issuer is required")
	}
	if strings.TrimSpace(b.Rarity) == "" {
		return invalid("rarity", "rarity is required")
	}
	if b.Level < 0 {
		return invalid("level", "level must not be negative")
	}
	return nil
}

// ReputationComponent is one weighted part of a reputation score.
type ReputationComponent struct {
	Score  float64            `json:"score"`
	Weight float64            `json:"weight"`
	Inputs map[string]float64 `json:"details,omitempty"`
}

// ReputationBreakdown groups the three reputation components.
type ReputationBreakdown struct {
	Trust    ReputationComponent `json:"trust"`
	Badges   ReputationComponent `json:"badges"`
	Activity ReputationComponent `json:"activity"`
}

// ReputationMilestone names a tier and the benefits it unlocks.
type ReputationMilestone struct {
	Level    string   `json:"level"`
	Benefits []string `json:"benefits"`
}

// ReputationCalculated is the audit record of one reputation computation.
// REPUTATION_CALCULATED, HCS-2. It is never read back as an input.
type ReputationCalculated struct {
	UserID       string              `json:"user_id"`
	OverallScore float64             `json:"overall_score"`
	Breakdown    ReputationBreakdown `json:"breakdown"`
	Milestone    ReputationMilestone `json:"milestone"`
	// Version is the store version the computation observed.
	Version uint64 `json:"version"`
}

func (ReputationCalculated) EventType() Type    { return TypeReputationCalculated }
func (r ReputationCalculated) Key() string      { return r.UserID }
func (r ReputationCalculated) EntityID() string { return r.UserID }
func (ReputationCalculated) isPayload()         {}

func (r ReputationCalculated) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return invalid("user_id", "user id is required")
	}
	if r.OverallScore < 0 || r.OverallScore > 100 {
		return invalid("overall_score", "overall score must be between 0 and 100")
	}
	if strings.TrimSpace(r.Milestone.Level) == "" {
		return invalid("milestone", "milestone level is required")
	}
	return nil
}

// PollOption is one nominee in a poll.
type PollOption struct {
	OptionID    string `json:"option_id"`
	Nominee     string `json:"nominee"`
	DisplayName string `json:"display_name"`
	Rationale   string `json:"rationale,omitempty"`
}

// PollTimeline bounds the voting window.
type PollTimeline struct {
	VotingOpens  time.Time `json:"voting_opens"`
	VotingCloses time.Time `json:"voting_closes"`
}

// PollEligibility gates who may vote.
type PollEligibility struct {
	MinimumTrustScore    float64 `json:"minimum_trust_score"`
	RequiresVerification bool    `json:"requires_verification"`
	OneVotePerVoter      bool    `json:"one_vote_per_voter,omitempty"`
}

// PollCreated opens a community poll. COMMUNITY_POLL_CREATED, HCS-8.
type PollCreated struct {
	PollID      string          `json:"poll_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	PollType    string          `json:"poll_type"`
	Options     []PollOption    `json:"options"`
	Timeline    PollTimeline    `json:"timeline"`
	Eligibility PollEligibility `json:"eligibility"`
}

func (PollCreated) EventType() Type    { return TypePollCreated }
func (p PollCreated) Key() string      { return p.PollID }
func (p PollCreated) EntityID() string { return p.PollID }
func (PollCreated) isPayload()         {}

func (p PollCreated) Validate() error {
	if strings.TrimSpace(p.PollID) == "" {
		return invalid("poll_id", "poll id is required")
	}
	if p.Timeline.VotingOpens.IsZero() || p.Timeline.VotingCloses.IsZero() {
		return invalid("timeline", "voting window is required")
	}
	return nil
}

// VoterProfile is the voter's standing at cast time.
type VoterProfile struct {
	TrustScore         float64 `json:"trust_score"`
	EligibilityMet     bool    `json:"eligibility_met"`
	VerificationStatus string  `json:"verification_status,omitempty"`
}

// VerificationVerified marks a verified voter.
const VerificationVerified = "verified"

// VoteCast records one vote in a poll. POLL_VOTE_CAST, HCS-9.
type VoteCast struct {
	PollID         string       `json:"poll_id"`
	VoteID         string       `json:"vote_id"`
	SelectedOption string       `json:"selected_option"`
	Voter          string       `json:"voter"`
	VoterProfile   VoterProfile `json:"voter_profile"`
	VoteWeight     float64      `json:"vote_weight"`
}

func (VoteCast) EventType() Type    { return TypeVoteCast }
func (v VoteCast) Key() string      { return v.PollID }
func (v VoteCast) EntityID() string { return v.VoteID }
func (VoteCast) isPayload()         {}

func (v VoteCast) Validate() error {
	if strings.TrimSpace(v.PollID) == "" {
		return invalid("poll_id", "poll id is required")
	}
	if strings.TrimSpace(v.VoteID) == "" {
		return invalid("vote_id", "vote id is required")
	}
	if strings.TrimSpace(v.SelectedOption) == "" {
		return invalid("selected_option", "selected option is required")
	}
	if strings.TrimSpace(v.Voter) == "" {
		return invalid("voter", "voter is required")
	}
	if v.VoteWeight < 0 {
		return invalid("vote_weight", "vote weight must not be negative")
	}
	return nil
}
