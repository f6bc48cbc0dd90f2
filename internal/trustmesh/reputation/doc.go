// Package reputation computes account reputation from trust and badge
// projections plus a caller-supplied activity signal.
//
// Computation is pure: identical inputs always yield the identical score and
// milestone. Results are appended to the log as REPUTATION_CALCULATED audit
// records, but a prior record is never read back as an input; the current
// value is always recomputed.
package reputation
