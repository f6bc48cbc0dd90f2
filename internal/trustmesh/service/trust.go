package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/louisbranch/trustmesh/internal/trustmesh/engine"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
	"github.com/louisbranch/trustmesh/internal/trustmesh/trust"
)

// TrustInput describes a trust token to give.
type TrustInput struct {
	Sender       string
	Recipient    string
	Type         trust.Type
	Relationship string
	// Level is 1-5; zero takes the trust type default.
	Level   int
	Staked  decimal.Decimal
	Context string
}

// GiveTrust appends TRUST_TOKEN_GIVEN. The audit balances record the
// recipient's received count when the event was built.
func (s *Service) GiveTrust(ctx context.Context, in TrustInput) (trust.Grant, error) {
	txID, err := s.newID("tt")
	if err != nil {
		return trust.Grant{}, err
	}
	sender := strings.TrimSpace(in.Sender)
	recipient := strings.TrimSpace(in.Recipient)
	published, _, err := s.publishWith(ctx, event.PairKey(sender, recipient), func() (event.Payload, error) {
		var previous int
		s.store.Read(func(v *engine.View) {
			previous = v.Received(recipient).Count
		})
		return event.TrustTokenGiven{
			TransactionID:   txID,
			Sender:          sender,
			Recipient:       recipient,
			TrustType:       string(in.Type),
			Relationship:    in.Relationship,
			Level:           in.Level,
			Staked:          in.Staked,
			Context:         in.Context,
			PreviousBalance: previous,
			NewBalance:      previous + 1,
		}, nil
	})
	if err != nil {
		return trust.Grant{}, err
	}
	return trust.GrantFromEvent(published)
}
