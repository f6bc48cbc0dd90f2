// Package event defines the envelope, payload schemas, and canonical encoding
// for facts recorded on the trust log.
//
// Why this package exists:
//   - It closes the set of event kinds: every payload is one of six fixed
//     schemas, decoded strictly so unknown keys never drift into projections.
//   - It owns the canonical hash, the idempotency and audit primitive every
//     consumer uses to detect duplicate delivery.
//   - It keeps log bookkeeping (topic, sequence, receipt time) out of the hash
//     input so redelivered facts hash identically.
//
// Events with an unrecognised type are not errors to be dropped: Decode returns
// an UnknownEventError carrying the raw bytes so callers can park them for a
// future version of the engine.
package event
