package badge

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

// Badge is an issued badge. It is never mutated or revoked.
type Badge struct {
	ID              string
	Name            string
	Description     string
	Kind            Kind
	Category        string
	Rarity          Rarity
	Recipient       string
	IssuedBy        string
	IssuedAt        time.Time
	Traits          Traits
	Points          int
	Level           int
	Achievements    []string
	IssuanceContext map[string]string
}

// FromEvent converts a BADGE_ISSUED event into a Badge, checking rarity,
// kind, and that any traits or points carried by the event match the table.
// Omitted traits and points are derived.
func FromEvent(evt event.Event) (Badge, error) {
	payload, ok := evt.Payload.(event.BadgeIssued)
	if !ok {
		return Badge{}, fmt.Errorf("badge: unexpected payload %T for %s", evt.Payload, evt.Type)
	}
	rarity, err := ParseRarity(payload.Rarity)
	if err != nil {
		return Badge{}, err
	}
	kind, err := ParseKind(payload.BadgeType)
	if err != nil {
		return Badge{}, err
	}
	traits := DeriveTraits(payload.Category, rarity)
	points := Points(rarity)
	if err := checkTrait("background_color", payload.BackgroundColor, traits.BackgroundColor); err != nil {
		return Badge{}, err
	}
	if err := checkTrait("icon_url", payload.IconURL, traits.IconURL); err != nil {
		return Badge{}, err
	}
	if err := checkTrait("border_style", payload.BorderStyle, traits.BorderStyle); err != nil {
		return Badge{}, err
	}
	if payload.Points != 0 && payload.Points != points {
		return Badge{}, apperrors.WithMetadata(apperrors.CodeValidation, ErrTraitMismatch.Message, map[string]string{
			"field": "points",
			"got":   strconv.Itoa(payload.Points),
			"want":  strconv.Itoa(points),
		})
	}
	return Badge{
		ID:              payload.HashinalID,
		Name:            payload.Name,
		Description:     payload.Description,
		Kind:            kind,
		Category:        payload.Category,
		Rarity:          rarity,
		Recipient:       payload.Recipient,
		IssuedBy:        payload.IssuedBy,
		IssuedAt:        evt.Timestamp,
		Traits:          traits,
		Points:          points,
		Level:           payload.Level,
		Achievements:    slices.Clone(payload.Achievements),
		IssuanceContext: maps.Clone(payload.IssuanceContext),
	}, nil
}

func checkTrait(field, got, want string) error {
	if got == "" || got == want {
		return nil
	}
	return apperrors.WithMetadata(apperrors.CodeValidation, ErrTraitMismatch.Message, map[string]string{
		"field": field,
		"got":   got,
		"want":  want,
	})
}

type badgeKey struct {
	recipient string
	id        string
}

// Registry is the badge projection. Writes are serialised by the engine store.
// Badge ids are unique per recipient.
type Registry struct {
	badges      map[badgeKey]Badge
	byRecipient map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		badges:      make(map[badgeKey]Badge),
		byRecipient: make(map[string][]string),
	}
}

// Check reports whether b could be applied without changing the registry.
func (r *Registry) Check(b Badge) error {
	if _, err := ParseRarity(string(b.Rarity)); err != nil {
		return err
	}
	if _, ok := r.badges[badgeKey{recipient: b.Recipient, id: b.ID}]; ok {
		return apperrors.WithMetadata(apperrors.CodeAlreadyExists, ErrDuplicateBadge.Message,
			map[string]string{"hashinal_id": b.ID, "recipient": b.Recipient})
	}
	return nil
}

// ApplyBadgeIssued records b.
func (r *Registry) ApplyBadgeIssued(b Badge) error {
	if err := r.Check(b); err != nil {
		return err
	}
	r.badges[badgeKey{recipient: b.Recipient, id: b.ID}] = b
	r.byRecipient[b.Recipient] = append(r.byRecipient[b.Recipient], b.ID)
	return nil
}

// Get returns the badge with the given id issued to recipient.
func (r *Registry) Get(recipient, id string) (Badge, bool) {
	b, ok := r.badges[badgeKey{recipient: recipient, id: id}]
	return b, ok
}

// BadgesFor returns the account's badges in issuance order.
func (r *Registry) BadgesFor(account string) []Badge {
	ids := r.byRecipient[account]
	out := make([]Badge, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.badges[badgeKey{recipient: account, id: id}])
	}
	return out
}

// CountByRarity counts the account's badges per rarity. Every rarity is
// present in the result, zero when the account holds none.
func (r *Registry) CountByRarity(account string) map[Rarity]int {
	counts := make(map[Rarity]int, 3)
	for _, rarity := range Rarities() {
		counts[rarity] = 0
	}
	for _, id := range r.byRecipient[account] {
		counts[r.badges[badgeKey{recipient: account, id: id}].Rarity]++
	}
	return counts
}

// Count returns how many badges the account holds.
func (r *Registry) Count(account string) int {
	return len(r.byRecipient[account])
}

// Len returns the number of issued badges.
func (r *Registry) Len() int {
	return len(r.badges)
}

// Clone returns an independent copy. Badges are immutable so only the
// indexes are copied deeply.
func (r *Registry) Clone() *Registry {
	out := &Registry{
		badges:      maps.Clone(r.badges),
		byRecipient: make(map[string][]string, len(r.byRecipient)),
	}
	for account, ids := range r.byRecipient {
		out.byRecipient[account] = slices.Clone(ids)
	}
	return out
}
