// Package sqlite provides a durable append-only event log on SQLite.
//
// Each topic has its own contiguous sequence starting at 1. The pair
// (topic, event_hash) is unique, so appending an identical event twice
// returns the first receipt marked Duplicate instead of a second row.
// Subscriptions page through the table and wait on in-process appends or a
// poll interval, whichever comes first, so writers in other processes are
// also observed.
package sqlite
