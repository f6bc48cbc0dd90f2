// Package service is the command side of the trust engine.
//
// Each operation reads one fresh engine view, rejects input the projections
// would refuse, builds the event, appends it to the log, and applies it to
// the local store so the caller observes its own write. Events later
// redelivered by a subscription are dropped by hash.
package service
