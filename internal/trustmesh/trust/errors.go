package trust

import apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"

var (
	// ErrSelfTrust indicates a grant whose sender and recipient are the same account.
	ErrSelfTrust = apperrors.New(apperrors.CodeInvalidRelationship, "an account cannot trust itself")
	// ErrNegativeStake indicates a grant staking a negative amount.
	ErrNegativeStake = apperrors.New(apperrors.CodeInvalidRelationship, "staked amount must not be negative")
	// ErrUnknownTrustType indicates a trust type outside personal, professional, community.
	ErrUnknownTrustType = apperrors.New(apperrors.CodeValidation, "unknown trust type")
	// ErrDuplicateTransaction indicates a transaction id that was already applied.
	ErrDuplicateTransaction = apperrors.New(apperrors.CodeAlreadyExists, "trust transaction already recorded")
)
