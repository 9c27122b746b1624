// File: pool/upkeeper.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Upkeeper is the single upkeep actor: one goroutine calling Upkeep on every
// registered cache, either on a fixed period or continuously.

package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/containerd/log"

	"github.com/momentics/hioload-memcache/api"
)

// ErrUpkeeperRunning is returned by Run when another Run is active.
var ErrUpkeeperRunning = errors.New("upkeeper already running")

// Upkeeper drives Upkeep for a set of caches.
// Interval 0 means spin: upkeep back to back, yielding between rounds.
type Upkeeper struct {
	mu     sync.RWMutex
	caches []api.MemCache

	interval atomic.Int64
	rounds   atomic.Uint64
	running  atomic.Bool

	roundMu sync.Mutex // serializes rounds; Upkeep has a single caller
	stopped bool

	retune   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewUpkeeper creates an idle upkeeper; start it with Run.
func NewUpkeeper(interval time.Duration, caches ...api.MemCache) *Upkeeper {
	u := &Upkeeper{
		caches: append([]api.MemCache(nil), caches...),
		retune: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	u.interval.Store(int64(interval))
	return u
}

// Add registers another cache. Safe while running.
func (u *Upkeeper) Add(mc api.MemCache) {
	u.mu.Lock()
	u.caches = append(u.caches, mc)
	u.mu.Unlock()
}

// Interval returns the current period.
func (u *Upkeeper) Interval() time.Duration { return time.Duration(u.interval.Load()) }

// SetInterval changes the period; a running loop picks it up immediately.
func (u *Upkeeper) SetInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	u.interval.Store(int64(d))
	select {
	case u.retune <- struct{}{}:
	default:
	}
}

// Rounds returns how many upkeep rounds completed.
func (u *Upkeeper) Rounds() uint64 { return u.rounds.Load() }

// RunOnce upkeeps every registered cache once. It is a no-op after Stop.
func (u *Upkeeper) RunOnce() {
	u.roundMu.Lock()
	defer u.roundMu.Unlock()
	if u.stopped {
		return
	}
	u.mu.RLock()
	caches := u.caches
	u.mu.RUnlock()
	for _, mc := range caches {
		mc.Upkeep()
	}
	u.rounds.Add(1)
}

// Run loops until ctx is done or Stop is called, then returns nil.
// Only one Run may be active at a time.
func (u *Upkeeper) Run(ctx context.Context) error {
	if !u.running.CompareAndSwap(false, true) {
		return ErrUpkeeperRunning
	}
	defer u.running.Store(false)

	logger := log.G(ctx).WithField("interval", u.Interval())
	logger.Debug("upkeeper started")
	defer func() {
		logger.WithField("rounds", u.Rounds()).Debug("upkeeper stopped")
	}()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-u.stopCh:
			return nil
		default:
		}

		u.RunOnce()

		d := u.Interval()
		if d <= 0 {
			runtime.Gosched()
			continue
		}
		timer.Reset(d)
		select {
		case <-ctx.Done():
			return nil
		case <-u.stopCh:
			return nil
		case <-u.retune:
		case <-timer.C:
		}
	}
}

// Stop ends Run and waits for an in-flight round, so caches may be closed
// right after it returns. It is terminal: a stopped upkeeper cannot be restarted.
func (u *Upkeeper) Stop() {
	u.stopOnce.Do(func() {
		u.roundMu.Lock()
		u.stopped = true
		close(u.stopCh)
		u.roundMu.Unlock()
	})
}
