// Package trust projects TRUST_TOKEN_GIVEN facts into a directed trust ledger.
//
// Each grant is an immutable fact. The ledger balance between two accounts is
// the count of grants plus the cumulative stake, so balances only ever grow.
// There is no revocation: decay, if it is ever wanted, arrives as a new event
// type that adds to history.
//
// Queries return copies or lazy sequences; callers never see ledger internals.
package trust
