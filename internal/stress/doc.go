// Package stress
// Author: momentics <momentics@gmail.com>
//
// Concurrent acquire/release workloads against a pool.Cache, with one
// upkeeper goroutine running alongside the users. Every run checks that no
// block is handed to two holders at once and that held payloads stay intact.
package stress
