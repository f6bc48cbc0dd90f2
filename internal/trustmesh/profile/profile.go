// Package profile projects PROFILE_CREATE facts and keeps per-account
// counters fed by trust, badge, and reputation events.
package profile

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

// SchemaVersion is the HCS-11 profile schema written by this build.
const SchemaVersion = "1.0"

// ErrAlreadyExists indicates a second PROFILE_CREATE for the same account.
var ErrAlreadyExists = apperrors.New(apperrors.CodeAlreadyExists, "profile already exists")

// ErrNotFound indicates an account without a profile.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "profile not found")

// Counters are cached aggregates kept alongside a profile.
type Counters struct {
	TokensGiven    int
	TokensReceived int
	// TotalStaked is what the account staked on others.
	TotalStaked   decimal.Decimal
	StakeReceived decimal.Decimal
	BadgeCount    int
	Connections   []string
	// Reputation is the last recorded snapshot. It is a record only and is
	// never used as an input to scoring.
	Reputation *event.ReputationCalculated
}

// Profile is one account's profile with its counters.
type Profile struct {
	AccountID          string
	DisplayName        string
	Visibility         string
	AllowTrustRequests bool
	ShowTrustScore     bool
	SchemaVersion      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Counters
}

type counters struct {
	given, received int
	staked          decimal.Decimal
	stakeReceived   decimal.Decimal
	badges          int
	connections     map[string]struct{}
	reputation      *event.ReputationCalculated
	updatedAt       time.Time
}

// Directory holds every profile plus counters for accounts that were
// mentioned before (or without) their PROFILE_CREATE.
type Directory struct {
	profiles map[string]Profile
	counters map[string]*counters
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		profiles: make(map[string]Profile),
		counters: make(map[string]*counters),
	}
}

// FromEvent converts a PROFILE_CREATE event into a Profile without counters.
func FromEvent(evt event.Event) (Profile, error) {
	payload, ok := evt.Payload.(event.ProfileCreated)
	if !ok {
		return Profile{}, fmt.Errorf("profile: unexpected payload %T for %s", evt.Payload, evt.Type)
	}
	return Profile{
		AccountID:          payload.ProfileID,
		DisplayName:        payload.DisplayName,
		Visibility:         payload.Visibility,
		AllowTrustRequests: payload.AllowTrustRequests,
		ShowTrustScore:     payload.ShowTrustScore,
		SchemaVersion:      payload.SchemaVersion,
		CreatedAt:          evt.Timestamp,
		UpdatedAt:          evt.Timestamp,
	}, nil
}

// Check reports whether p could be created.
func (d *Directory) Check(p Profile) error {
	if _, ok := d.profiles[p.AccountID]; ok {
		return apperrors.WithMetadata(apperrors.CodeAlreadyExists, ErrAlreadyExists.Message,
			map[string]string{"profile_id": p.AccountID})
	}
	return nil
}

// ApplyCreated records a new profile.
func (d *Directory) ApplyCreated(p Profile) error {
	if err := d.Check(p); err != nil {
		return err
	}
	p.Counters = Counters{}
	d.profiles[p.AccountID] = p
	return nil
}

func (d *Directory) countersFor(account string) *counters {
	c, ok := d.counters[account]
	if !ok {
		c = &counters{
			staked:        decimal.Zero,
			stakeReceived: decimal.Zero,
			connections:   make(map[string]struct{}),
		}
		d.counters[account] = c
	}
	return c
}

// RecordTrust updates both parties' counters for one trust grant.
func (d *Directory) RecordTrust(sender, recipient string, staked decimal.Decimal, at time.Time) {
	s := d.countersFor(sender)
	s.given++
	s.staked = s.staked.Add(staked)
	s.connections[recipient] = struct{}{}
	s.touch(at)

	r := d.countersFor(recipient)
	r.received++
	r.stakeReceived = r.stakeReceived.Add(staked)
	r.connections[sender] = struct{}{}
	r.touch(at)
}

// RecordBadge increments the recipient's badge count.
func (d *Directory) RecordBadge(recipient string, at time.Time) {
	c := d.countersFor(recipient)
	c.badges++
	c.touch(at)
}

// RecordReputation stores the account's latest reputation snapshot in log order.
func (d *Directory) RecordReputation(snapshot event.ReputationCalculated, at time.Time) {
	c := d.countersFor(snapshot.UserID)
	copied := snapshot
	c.reputation = &copied
	c.touch(at)
}

func (c *counters) touch(at time.Time) {
	if at.After(c.updatedAt) {
		c.updatedAt = at
	}
}

// Get returns the profile for account with its counters.
func (d *Directory) Get(account string) (Profile, error) {
	p, ok := d.profiles[account]
	if !ok {
		return Profile{}, apperrors.WithMetadata(apperrors.CodeNotFound, ErrNotFound.Message,
			map[string]string{"profile_id": account})
	}
	if c, ok := d.counters[account]; ok {
		p.Counters = c.export()
		if c.updatedAt.After(p.UpdatedAt) {
			p.UpdatedAt = c.updatedAt
		}
	} else {
		p.Counters = Counters{TotalStaked: decimal.Zero, StakeReceived: decimal.Zero}
	}
	return p, nil
}

// CountersFor returns the counters of account whether or not it has a profile.
func (d *Directory) CountersFor(account string) Counters {
	c, ok := d.counters[account]
	if !ok {
		return Counters{TotalStaked: decimal.Zero, StakeReceived: decimal.Zero}
	}
	return c.export()
}

func (c *counters) export() Counters {
	out := Counters{
		TokensGiven:    c.given,
		TokensReceived: c.received,
		TotalStaked:    c.staked,
		StakeReceived:  c.stakeReceived,
		BadgeCount:     c.badges,
		Connections:    slices.Sorted(maps.Keys(c.connections)),
	}
	if c.reputation != nil {
		copied := *c.reputation
		out.Reputation = &copied
	}
	return out
}

// Exists reports whether the account has a profile.
func (d *Directory) Exists(account string) bool {
	_, ok := d.profiles[account]
	return ok
}

// List returns every profile sorted by account id.
func (d *Directory) List() []Profile {
	ids := slices.Sorted(maps.Keys(d.profiles))
	out := make([]Profile, 0, len(ids))
	for _, id := range ids {
		p, _ := d.Get(id)
		out = append(out, p)
	}
	return out
}

// Len returns the number of profiles.
func (d *Directory) Len() int {
	return len(d.profiles)
}

// Clone returns an independent copy.
func (d *Directory) Clone() *Directory {
	out := &Directory{
		profiles: maps.Clone(d.profiles),
		counters: make(map[string]*counters, len(d.counters)),
	}
	for account, c := range d.counters {
		copied := *c
		copied.connections = maps.Clone(c.connections)
		out.counters[account] = &copied
	}
	return out
}
