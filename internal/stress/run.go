// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stress

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/containerd/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-memcache/api"
	"github.com/momentics/hioload-memcache/fake"
	"github.com/momentics/hioload-memcache/internal/concurrency"
	"github.com/momentics/hioload-memcache/pool"
)

var (
	// ErrViolation wraps every detected corruption, double handout or double free.
	ErrViolation = errors.New("stress: invariant violated")
	// ErrNotConverged means a locked pool missed its minimum after the final upkeep.
	ErrNotConverged = errors.New("stress: free list did not converge")
)

// maxRandom is the range of the per-iteration coin, below half acquires.
const maxRandom = 1000

// Result summarizes one run.
type Result struct {
	Scenario         Scenario      `json:"scenario"`
	Order            Order         `json:"order"`
	Variant          string        `json:"variant"`
	Users            int           `json:"users"`
	Acquires         uint64        `json:"acquires"`
	FailedAcquires   uint64        `json:"failed_acquires"`
	AllocationEvents uint64        `json:"allocation_events"`
	MinFreeBlocks    int           `json:"min_free_blocks"`
	FinalFree        int           `json:"final_free"`
	Converged        bool          `json:"converged"`
	Duration         time.Duration `json:"duration"`
	Violations       uint64        `json:"violations"`
	Stats            api.PoolStats `json:"stats"`
}

// FailedPct is the share of acquire attempts that found the pool empty.
func (r Result) FailedPct() float64 { return pct(r.FailedAcquires, r.Acquires) }

// AllocationPct relates allocation events to acquire attempts.
func (r Result) AllocationPct() float64 { return pct(r.AllocationEvents, r.Acquires) }

func pct(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

type runner struct {
	cache pool.Cache
	opts  Options

	holders    sync.Map // *pool.Block -> user id
	acquires   atomic.Uint64
	failed     atomic.Uint64
	violations atomic.Uint64
}

// Run drives cache with opts.Users users and one upkeeper for opts.Duration
// or until ctx is done. All held blocks are released before the final
// upkeep, so a healthy pool ends with exactly its minimum free.
func Run(ctx context.Context, cache pool.Cache, opts Options) (Result, error) {
	opts.applyDefaults()
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if opts.Scenario == Verify && cache.BlockSize() < fake.RecordSize {
		return Result{}, errors.Wrapf(api.ErrInvalidArgument,
			"verify needs %d-byte blocks, pool has %d", fake.RecordSize, cache.BlockSize())
	}

	logger := log.G(ctx).WithFields(log.Fields{
		"pool":     cache.Name(),
		"scenario": opts.Scenario,
		"order":    opts.Order,
		"users":    opts.Users,
	})

	r := &runner{cache: cache, opts: opts}
	upkeeper := pool.NewUpkeeper(opts.UpkeepInterval, cache)
	if opts.OnUpkeeper != nil {
		opts.OnUpkeeper(upkeeper)
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	start := time.Now()
	g.Go(func() error { return upkeeper.Run(gctx) })
	for id := 0; id < opts.Users; id++ {
		g.Go(func() error {
			if opts.PinUsers {
				if err := concurrency.PinCurrentThread(id); err != nil {
					logger.WithError(err).WithField("user", id).Warn("running unpinned")
				}
			}
			return r.user(gctx, id)
		})
	}
	err := g.Wait()
	elapsed := time.Since(start)
	upkeeper.Stop()

	cache.Upkeep()
	res := Result{
		Scenario:         opts.Scenario,
		Order:            opts.Order,
		Variant:          cache.Stats().Variant,
		Users:            opts.Users,
		Acquires:         r.acquires.Load(),
		FailedAcquires:   r.failed.Load(),
		AllocationEvents: cache.AllocationEvents(),
		MinFreeBlocks:    cache.MinFreeBlocks(),
		FinalFree:        cache.FreeBlocks(),
		Duration:         elapsed,
		Violations:       r.violations.Load(),
		Stats:            cache.Stats(),
	}
	res.Converged = res.FinalFree == res.MinFreeBlocks

	logger.WithFields(log.Fields{
		"acquires":   res.Acquires,
		"failed_pct": res.FailedPct(),
		"alloc_pct":  res.AllocationPct(),
		"final_free": res.FinalFree,
		"violations": res.Violations,
		"upkeeps":    upkeeper.Rounds(),
		"elapsed":    elapsed,
		"merged":     res.Stats.Merged,
		"dropped":    res.Stats.Dropped,
		"converged":  res.Converged,
	}).Info("stress run finished")

	if err != nil {
		return res, err
	}
	if res.Violations > 0 {
		return res, errors.Wrapf(ErrViolation, "%d violations", res.Violations)
	}
	if !res.Converged && res.Variant == string(pool.VariantLocked) {
		return res, errors.Wrapf(ErrNotConverged, "%d free, want %d", res.FinalFree, res.MinFreeBlocks)
	}
	return res, nil
}

func (r *runner) user(ctx context.Context, id int) (err error) {
	rng := rand.New(rand.NewSource(r.opts.Seed + int64(id)))
	held := newHolder(r.opts.Order, min(r.opts.MaxHeld, 1024))
	defer func() {
		if p := recover(); p != nil {
			r.violations.Add(1)
			err = errors.Wrapf(ErrViolation, "user %d: %v", id, p)
		}
		r.drain(held)
	}()

	done := ctx.Done()
	for {
		select {
		case <-done:
			return nil
		default:
		}
		if r.opts.Scenario == Ordered {
			err = r.ordered(id)
		} else {
			err = r.random(id, rng, held)
		}
		if err != nil {
			return err
		}
	}
}

func (r *runner) ordered(id int) error {
	b, err := r.acquire(id)
	if b == nil || err != nil {
		return err
	}
	r.release(b)
	return nil
}

func (r *runner) random(id int, rng *rand.Rand, held holder) error {
	n := rng.Intn(maxRandom) + 1
	if n < maxRandom/2 {
		if held.len() < r.opts.MaxHeld {
			b, err := r.acquire(id)
			if err != nil {
				return err
			}
			if b != nil {
				m := mark{value: n}
				if r.opts.Scenario == Verify {
					rec := pool.As[fake.Record](b)
					rec.Set(n)
					m.digest = rec.Digest()
				}
				held.push(b, m)
			}
		}
	} else if b, _, ok := held.pop(); ok {
		r.release(b)
	}

	if r.opts.Scenario != Verify {
		return nil
	}
	return held.each(func(b *pool.Block, m mark) error {
		rec := pool.As[fake.Record](b)
		if !rec.Verify(m.value) || rec.Digest() != m.digest {
			r.violations.Add(1)
			return errors.Wrapf(ErrViolation, "user %d: block %p lost its payload %d", id, b, m.value)
		}
		return nil
	})
}

// acquire counts every attempt and checks the block has no other holder.
func (r *runner) acquire(id int) (*pool.Block, error) {
	r.acquires.Add(1)
	b := r.cache.Acquire()
	if b == nil {
		r.failed.Add(1)
		return nil, nil
	}
	if other, dup := r.holders.LoadOrStore(b, id); dup {
		r.violations.Add(1)
		return nil, errors.Wrapf(ErrViolation, "block %p handed to user %d while held by user %v", b, id, other)
	}
	return b, nil
}

func (r *runner) release(b *pool.Block) {
	r.holders.Delete(b)
	r.cache.Release(b)
}

// drain releases everything still held. A panicking release is counted and
// skipped so the remaining blocks still go back.
func (r *runner) drain(held holder) {
	for {
		b, _, ok := held.pop()
		if !ok {
			return
		}
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.violations.Add(1)
				}
			}()
			r.release(b)
		}()
	}
}
