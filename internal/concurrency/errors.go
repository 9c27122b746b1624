// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

var (
	// ErrArenaExhausted indicates every addressable arena slot is in use.
	ErrArenaExhausted = errors.New("arena slots exhausted")

	// ErrPinUnsupported is returned where threads cannot be pinned to a CPU.
	ErrPinUnsupported = errors.New("thread pinning not supported on this platform")
)
