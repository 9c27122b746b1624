// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown stops background upkeep and releases pooled memory.
type GracefulShutdown interface {
	// Shutdown stops owned goroutines and frees every resting block.
	// Blocks still held by callers remain the callers' responsibility.
	Shutdown() error
}
