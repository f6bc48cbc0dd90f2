package service

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/louisbranch/trustmesh/internal/trustmesh/badge"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

// BadgeInput describes a badge to issue.
type BadgeInput struct {
	Name            string
	Description     string
	Kind            badge.Kind
	Category        string
	Rarity          badge.Rarity
	Recipient       string
	IssuedBy        string
	Level           int
	Achievements    []string
	IssuanceContext map[string]string
}

// IssueBadge appends BADGE_ISSUED with traits and points derived from the
// category and rarity.
func (s *Service) IssueBadge(ctx context.Context, in BadgeInput) (badge.Badge, error) {
	rarity, err := badge.ParseRarity(string(in.Rarity))
	if err != nil {
		return badge.Badge{}, err
	}
	badgeID, err := s.newID("badge")
	if err != nil {
		return badge.Badge{}, err
	}
	traits := badge.DeriveTraits(in.Category, rarity)
	published, _, err := s.publish(ctx, event.BadgeIssued{
		HashinalID:      badgeID,
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		BadgeType:       string(in.Kind),
		Category:        in.Category,
		Rarity:          string(rarity),
		Recipient:       strings.TrimSpace(in.Recipient),
		IssuedBy:        strings.TrimSpace(in.IssuedBy),
		BackgroundColor: traits.BackgroundColor,
		IconURL:         traits.IconURL,
		BorderStyle:     traits.BorderStyle,
		Points:          badge.Points(rarity),
		Level:           in.Level,
		Achievements:    slices.Clone(in.Achievements),
		IssuanceContext: maps.Clone(in.IssuanceContext),
	})
	if err != nil {
		return badge.Badge{}, err
	}
	return badge.FromEvent(published)
}
