// Package timeouts defines the timeout values shared by guildboard commands.
package timeouts

import "time"

// ReadHeader limits how long the ops HTTP listener waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the ops HTTP listener waits for in-flight
// requests during graceful shutdown.
const Shutdown = 5 * time.Second

// Maintenance bounds a single maintenance command run.
const Maintenance = 2 * time.Minute
