// Package pool
// Author: momentics <momentics@gmail.com>
//
// Fixed-size block pools ("memory caches") for hot paths that repeatedly need
// same-size buffers. Blocks are recycled instead of allocated per acquire:
// only Upkeep allocates or frees, Acquire and Release are pure bookkeeping.
//
// Two variants share the Cache interface:
//   - LockedPool: a slice of free blocks behind one mutex; every operation,
//     upkeep included, fully serializes.
//   - LockFreePool: a tagged-head lock-free stack; Acquire/Release never block,
//     and Upkeep steals the whole list, retargets it privately and reinstalls it.
//     Exactly one goroutine should drive Upkeep (see Upkeeper).
//
// Acquire on an empty pool returns nil; backpressure is the caller's decision.
// Buffers are never zeroed: residual data from a previous tenant is visible.
package pool
