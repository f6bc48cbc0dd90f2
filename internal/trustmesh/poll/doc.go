// Package poll implements community polls: creation, the eligibility gate,
// vote tallying, and winner resolution.
//
// A poll's status is never stored. It is derived from the clock relative to
// the stored voting window, so stored state and time cannot disagree:
//
//	now < OpensAt             created
//	OpensAt <= now < ClosesAt open
//	now >= ClosesAt           closed
//
// Resolution picks the highest tally. Ties go to the option whose first vote
// arrived earliest, then to option order, so replaying the same votes always
// yields the same winner.
package poll
