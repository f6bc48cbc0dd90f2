package service

import (
	"context"
	"strings"

	"github.com/louisbranch/trustmesh/internal/trustmesh/engine"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/profile"
)

// ProfileInput describes a profile to create.
type ProfileInput struct {
	AccountID   string
	DisplayName string
	// Visibility defaults to public.
	Visibility         string
	AllowTrustRequests bool
	ShowTrustScore     bool
}

// CreateProfile appends PROFILE_CREATE for a new account.
func (s *Service) CreateProfile(ctx context.Context, in ProfileInput) (profile.Profile, error) {
	visibility := strings.ToLower(strings.TrimSpace(in.Visibility))
	if visibility == "" {
		visibility = event.VisibilityPublic
	}
	evt, _, err := s.publish(ctx, event.ProfileCreated{
		ProfileID:          strings.TrimSpace(in.AccountID),
		DisplayName:        strings.TrimSpace(in.DisplayName),
		SchemaVersion:      profile.SchemaVersion,
		Visibility:         visibility,
		AllowTrustRequests: in.AllowTrustRequests,
		ShowTrustScore:     in.ShowTrustScore,
	})
	if err != nil {
		return profile.Profile{}, err
	}
	var p profile.Profile
	s.store.Read(func(v *engine.View) {
		p, err = v.Profile(evt.EntityID())
	})
	return p, err
}
