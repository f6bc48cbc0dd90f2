// Package eventlog defines what the engine needs from the external ordered
// log and provides an in-memory implementation.
//
// Why this package exists:
// - The engine never talks to a transport directly; it appends and
// subscribes through these interfaces, so the consensus service can be swapped
// for SQLite or memory in tests.
// - Records carry raw wire bytes so events of types this build does not know
// still reach the engine and can be parked.
// - Appends are idempotent by canonical hash: re-appending an identical event
// returns the original receipt marked Duplicate.
package eventlog
