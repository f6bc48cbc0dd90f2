// Package engine owns every projection and applies events to them.
//
// Why this package exists:
// - One Store holds the profile, trust, badge, and poll projections so a
// reputation computation can read all of them at a single log position.
// - Events are deduplicated by canonical hash and routed by type; an event is
// validated against current state before anything is mutated, so a rejected
// event never leaves a partial apply behind.
// - Readers get immutable Views built copy-on-read and cached until the next
// write; no query holds the commit lock.
// - A Dispatcher fans events out to worker lanes by hashing their ordering
// key, keeping per-key order while unrelated keys apply in parallel.
//
// Unknown event types are parked with their raw bytes, never dropped.
package engine
