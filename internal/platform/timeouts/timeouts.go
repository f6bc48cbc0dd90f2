// Package timeouts defines shared timeout constants for the trust engine
// daemon.
package timeouts

import "time"

// HealthProbe caps a single gRPC health check call.
const HealthProbe = time.Second

// HealthBackoff is the longest wait between health probes.
const HealthBackoff = time.Second

// Shutdown limits how long the daemon waits for the health server and the
// trace exporter to stop.
const Shutdown = 5 * time.Second
