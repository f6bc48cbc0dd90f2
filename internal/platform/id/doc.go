// Package id generates identifiers for events and entities recorded on the
// trust log.
//
// Identifiers are UUIDv4 values encoded as lowercase base32 (RFC 4648) with no
// padding, so they are 26 characters long and safe in URLs and topic payloads.
// Prefixed forms ("tt_", "badge_", "poll_", "vote_") mirror the entity kind so
// a raw log line is readable without decoding the envelope.
package id
