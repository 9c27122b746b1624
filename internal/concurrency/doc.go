// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lock-free primitives for hioload-memcache: a segmented node arena, a
// tagged-head intrusive stack over it, and OS thread pinning.
package concurrency
