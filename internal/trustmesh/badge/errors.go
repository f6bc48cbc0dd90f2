package badge

import apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"

var (
	// ErrInvalidRarity indicates a rarity outside common, rare, legendary.
	ErrInvalidRarity = apperrors.New(apperrors.CodeInvalidRarity, "unknown badge rarity")
	// ErrUnknownBadgeType indicates a badge type outside the defined set.
	ErrUnknownBadgeType = apperrors.New(apperrors.CodeValidation, "unknown badge type")
	// ErrTraitMismatch indicates traits or points that differ from the derivation table.
	ErrTraitMismatch = apperrors.New(apperrors.CodeValidation, "badge traits do not match category and rarity")
	// ErrDuplicateBadge indicates a badge id that was already issued.
	ErrDuplicateBadge = apperrors.New(apperrors.CodeAlreadyExists, "badge already issued")
)
