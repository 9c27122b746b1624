// Package control
// Author: momentics <momentics@gmail.com>
//
// Hot-reload, pool metrics, configuration control, and debug introspection layer.
// Part of hioload-memcache.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads and merged updates with reload listeners
//   - YAML file configuration for pool sets
//   - Prometheus export of pool counters
//   - State export, debug hooks, and probe registration
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
