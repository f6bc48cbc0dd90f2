package badge

import apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"

// Rarity grades how scarce a badge is.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

// Rarities lists every rarity from most to least common.
func Rarities() []Rarity {
	return []Rarity{RarityCommon, RarityRare, RarityLegendary}
}

// ParseRarity returns the rarity named by s. Unknown names are rejected
// rather than defaulted.
func ParseRarity(s string) (Rarity, error) {
	switch r := Rarity(s); r {
	case RarityCommon, RarityRare, RarityLegendary:
		return r, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeInvalidRarity, ErrInvalidRarity.Message,
			map[string]string{"rarity": s})
	}
}

// Kind is the badge_type of a badge.
type Kind string

const (
	KindAchievement  Kind = "achievement"
	KindPersonality  Kind = "personality"
	KindSkill        Kind = "skill"
	KindContribution Kind = "contribution"
)

// ParseKind returns the badge kind named by s.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindAchievement, KindPersonality, KindSkill, KindContribution:
		return k, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeValidation, ErrUnknownBadgeType.Message,
			map[string]string{"badge_type": s})
	}
}

// Points returns the point value of a rarity.
func Points(r Rarity) int {
	switch r {
	case RarityCommon:
		return 25
	case RarityRare:
		return 50
	case RarityLegendary:
		return 100
	default:
		return 0
	}
}

// Traits is the deterministic visual rendering of a badge.
type Traits struct {
	BackgroundColor string
	IconURL         string
	BorderStyle     string
}

const defaultColor = "#95A5A6"

var categoryColors = map[string]string{
	"style":       "#FF6B9D",
	"leadership":  "#45B7D1",
	"community":   "#4ECDC4",
	"skill":       "#96CEB4",
	"achievement": "#FFEAA7",
}

var rarityBorders = map[Rarity]string{
	RarityCommon:    "silver",
	RarityRare:      "golden",
	RarityLegendary: "platinum",
}

// IconBaseURL is where badge icons are served from.
const IconBaseURL = "https://trustmesh.app/badges/"

// DeriveTraits returns the visual traits for a category and rarity. The
// category is matched exactly and used verbatim in the icon URL; unknown
// categories get the default colour.
func DeriveTraits(category string, r Rarity) Traits {
	color, ok := categoryColors[category]
	if !ok {
		color = defaultColor
	}
	return Traits{
		BackgroundColor: color,
		IconURL:         IconBaseURL + category + "_" + string(r) + ".svg",
		BorderStyle:     rarityBorders[r],
	}
}
