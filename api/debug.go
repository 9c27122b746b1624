// Package api
// Author: momentics
//
// Live introspection of pools and platform for diagnostics.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState evaluates every probe and returns a name->value snapshot.
	DumpState() map[string]any

	// RegisterProbe adds or replaces a named probe.
	RegisterProbe(name string, fn func() any)
}
