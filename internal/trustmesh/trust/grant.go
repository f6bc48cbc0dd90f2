package trust

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
	"github.com/louisbranch/trustmesh/internal/trustmesh/event"
)

// Type classifies the nature of a trust grant.
type Type string

const (
	TypePersonal     Type = "personal"
	TypeProfessional Type = "professional"
	TypeCommunity    Type = "community"
)

// ParseType returns the trust type named by s.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypePersonal, TypeProfessional, TypeCommunity:
		return t, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeValidation, ErrUnknownTrustType.Message,
			map[string]string{"trust_type": s})
	}
}

// DefaultLevel is the level assumed when a grant omits one.
func (t Type) DefaultLevel() int {
	switch t {
	case TypePersonal:
		return 3
	case TypeProfessional:
		return 4
	case TypeCommunity:
		return 5
	default:
		return 0
	}
}

// Grant is one trust token from Sender to Recipient.
type Grant struct {
	TransactionID string
	Sender        string
	Recipient     string
	Type          Type
	Relationship  string
	// Level is the sender's 1-5 confidence, already defaulted by Type.
	Level     int
	Staked    decimal.Decimal
	Context   string
	Timestamp time.Time
	// PreviousBalance and NewBalance are the recipient counts claimed by the event.
	PreviousBalance int
	NewBalance      int
}

// GrantFromEvent converts a TRUST_TOKEN_GIVEN event into a Grant.
func GrantFromEvent(evt event.Event) (Grant, error) {
	payload, ok := evt.Payload.(event.TrustTokenGiven)
	if !ok {
		return Grant{}, fmt.Errorf("trust: unexpected payload %T for %s", evt.Payload, evt.Type)
	}
	typ, err := ParseType(payload.TrustType)
	if err != nil {
		return Grant{}, err
	}
	level := payload.Level
	if level == 0 {
		level = typ.DefaultLevel()
	}
	return Grant{
		TransactionID:   payload.TransactionID,
		Sender:          payload.Sender,
		Recipient:       payload.Recipient,
		Type:            typ,
		Relationship:    payload.Relationship,
		Level:           level,
		Staked:          payload.Staked,
		Context:         payload.Context,
		Timestamp:       evt.Timestamp,
		PreviousBalance: payload.PreviousBalance,
		NewBalance:      payload.NewBalance,
	}, nil
}

// validate checks the relationship rules that do not depend on ledger state.
func (g Grant) validate() error {
	if g.Sender == g.Recipient {
		return apperrors.WithMetadata(apperrors.CodeInvalidRelationship, ErrSelfTrust.Message,
			map[string]string{"account": g.Sender, "transaction_id": g.TransactionID})
	}
	if g.Staked.IsNegative() {
		return apperrors.WithMetadata(apperrors.CodeInvalidRelationship, ErrNegativeStake.Message,
			map[string]string{"staked": g.Staked.String(), "transaction_id": g.TransactionID})
	}
	if _, err := ParseType(string(g.Type)); err != nil {
		return err
	}
	if g.Level < 1 || g.Level > 5 {
		return apperrors.WithMetadata(apperrors.CodeValidation, "trust level must be between 1 and 5",
			map[string]string{"trust_level": strconv.Itoa(g.Level)})
	}
	return nil
}
