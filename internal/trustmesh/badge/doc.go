// Package badge projects BADGE_ISSUED facts into a registry of immutable badges.
//
// Visual traits and point values are pure functions of category and rarity.
// The registry recomputes both on apply so that a replayed history always
// renders identically; an event that disagrees with the table is rejected.
package badge
