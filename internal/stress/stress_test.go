package stress_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/momentics/hioload-memcache/api"
	"github.com/momentics/hioload-memcache/fake"
	"github.com/momentics/hioload-memcache/internal/stress"
	"github.com/momentics/hioload-memcache/pool"
)

// sameBlockCache hands out one block over and over, held or not.
type sameBlockCache struct {
	pool.Cache
	block *pool.Block
}

func (c *sameBlockCache) Acquire() *pool.Block {
	if c.block == nil {
		c.block = c.Cache.Acquire()
	}
	return c.block
}

// scribblingCache overwrites the previously handed out block on every Acquire.
type scribblingCache struct {
	pool.Cache
	last *pool.Block
}

func (c *scribblingCache) Acquire() *pool.Block {
	if c.last != nil {
		for i := range c.last.Bytes() {
			c.last.Bytes()[i] = 0xFF
		}
	}
	c.last = c.Cache.Acquire()
	return c.last
}

// lateFreeCache panics on Release once the deadline has passed, which is
// when users drain their held blocks.
type lateFreeCache struct {
	pool.Cache
	deadline time.Time
}

func (c *lateFreeCache) Release(b *pool.Block) {
	if time.Now().After(c.deadline) {
		panic("pool: block released twice")
	}
	c.Cache.Release(b)
}

func runDuration() time.Duration {
	if testing.Short() {
		return 50 * time.Millisecond
	}
	return 300 * time.Millisecond
}

var _ = Describe("Run", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	newPool := func(v pool.Variant, minFree, blockSize int, opts ...pool.Option) pool.Cache {
		p, err := pool.New(v, minFree, blockSize, opts...)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(p.Close)
		return p
	}

	DescribeTable("keeps every invariant",
		func(v pool.Variant, sc stress.Scenario, order stress.Order, users int, interval time.Duration) {
			minFree := 3
			if sc == stress.Verify {
				minFree = 100
			}
			p := newPool(v, minFree, fake.RecordSize)

			res, err := stress.Run(ctx, p, stress.Options{
				Scenario:       sc,
				Order:          order,
				Duration:       runDuration(),
				Users:          users,
				UpkeepInterval: interval,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Violations).To(BeZero())
			Expect(res.Acquires).To(BeNumerically(">", 0))
			Expect(res.FailedAcquires).To(BeNumerically("<=", res.Acquires))
			Expect(res.AllocationEvents).To(BeNumerically(">=", 1))
			Expect(res.FinalFree).To(Equal(minFree))
			Expect(res.Converged).To(BeTrue())
			Expect(res.Stats.InUse()).To(BeZero())
			Expect(res.Stats.Dropped).To(BeZero())
		},
		Entry("locked ordered", pool.VariantLocked, stress.Ordered, stress.LIFO, 1, time.Duration(0)),
		Entry("locked random", pool.VariantLocked, stress.Random, stress.LIFO, 1, 10*time.Millisecond),
		Entry("locked verify", pool.VariantLocked, stress.Verify, stress.LIFO, 1, 10*time.Millisecond),
		Entry("locked verify fifo, 4 users", pool.VariantLocked, stress.Verify, stress.FIFO, 4, time.Millisecond),
		Entry("lock-free ordered", pool.VariantLockFree, stress.Ordered, stress.LIFO, 1, time.Duration(0)),
		Entry("lock-free random", pool.VariantLockFree, stress.Random, stress.LIFO, 1, 10*time.Millisecond),
		Entry("lock-free verify", pool.VariantLockFree, stress.Verify, stress.LIFO, 1, 10*time.Millisecond),
		Entry("lock-free random fifo, 4 users, spinning", pool.VariantLockFree, stress.Random, stress.FIFO, 4, time.Duration(0)),
		Entry("lock-free verify, 4 users", pool.VariantLockFree, stress.Verify, stress.LIFO, 4, time.Millisecond),
	)

	It("reports loss under the drop policy without failing", func() {
		p := newPool(pool.VariantLockFree, 3, 8, pool.WithReinstallPolicy(pool.ReinstallDrop))
		res, err := stress.Run(ctx, p, stress.Options{
			Scenario: stress.Random,
			Duration: runDuration(),
			Users:    2,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Violations).To(BeZero())
		Expect(res.Stats.InUse()).To(BeZero(), "dropped blocks are accounted")
	})

	It("runs with pinned users", func() {
		p := newPool(pool.VariantLockFree, 8, 8)
		res, err := stress.Run(ctx, p, stress.Options{
			Scenario: stress.Random,
			Duration: 20 * time.Millisecond,
			Users:    2,
			PinUsers: true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Converged).To(BeTrue())
	})

	It("applies defaults", func() {
		p := newPool(pool.VariantLocked, 1, 8)
		ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		res, err := stress.Run(ctx, p, stress.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Scenario).To(Equal(stress.Ordered))
		Expect(res.Order).To(Equal(stress.LIFO))
		Expect(res.Users).To(Equal(1))
		Expect(res.Duration).To(BeNumerically("<", stress.DefaultDuration))
	})

	It("hands the upkeeper to OnUpkeeper", func() {
		p := newPool(pool.VariantLockFree, 2, 8)
		var seen *pool.Upkeeper
		_, err := stress.Run(ctx, p, stress.Options{
			Duration:   10 * time.Millisecond,
			OnUpkeeper: func(u *pool.Upkeeper) { seen = u },
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).NotTo(BeNil())
		Expect(seen.Rounds()).To(BeNumerically(">=", 1))
	})

	Context("with a broken pool", func() {
		It("detects a block handed out twice", func() {
			p := &sameBlockCache{Cache: newPool(pool.VariantLocked, 2, 8)}
			res, err := stress.Run(ctx, p, stress.Options{Scenario: stress.Random, Duration: time.Second})
			Expect(err).To(MatchError(stress.ErrViolation))
			Expect(res.Violations).To(BeNumerically(">=", 1))
		})

		It("detects a double free", func() {
			p := &sameBlockCache{Cache: newPool(pool.VariantLockFree, 2, 8)}
			res, err := stress.Run(ctx, p, stress.Options{Scenario: stress.Ordered, Duration: time.Second})
			Expect(err).To(MatchError(stress.ErrViolation))
			Expect(res.Violations).To(BeNumerically(">=", 1))
		})

		It("fails the run when draining held blocks panics", func() {
			const d = 100 * time.Millisecond
			p := &lateFreeCache{Cache: newPool(pool.VariantLockFree, 16, 8), deadline: time.Now().Add(d)}
			res, err := stress.Run(ctx, p, stress.Options{Scenario: stress.Random, Users: 2, Duration: d})
			Expect(err).To(MatchError(stress.ErrViolation))
			Expect(res.Violations).To(BeNumerically(">=", 1))
		})

		It("detects payload corruption", func() {
			p := &scribblingCache{Cache: newPool(pool.VariantLocked, 100, fake.RecordSize)}
			res, err := stress.Run(ctx, p, stress.Options{Scenario: stress.Verify, Duration: time.Second})
			Expect(err).To(MatchError(stress.ErrViolation))
			Expect(res.Violations).To(BeNumerically(">=", 1))
		})
	})

	DescribeTable("rejects bad options",
		func(opts stress.Options, blockSize int) {
			p := newPool(pool.VariantLocked, 1, blockSize)
			_, err := stress.Run(ctx, p, opts)
			Expect(err).To(MatchError(api.ErrInvalidArgument))
		},
		Entry("scenario", stress.Options{Scenario: "chaos"}, 8),
		Entry("order", stress.Options{Order: "random"}, 8),
		Entry("users", stress.Options{Users: -1}, 8),
		Entry("interval", stress.Options{UpkeepInterval: -time.Second}, 8),
		Entry("verify on small blocks", stress.Options{Scenario: stress.Verify}, 4),
	)
})

var _ = Describe("Result", func() {
	It("computes percentages", func() {
		r := stress.Result{Acquires: 200, FailedAcquires: 50, AllocationEvents: 2}
		Expect(r.FailedPct()).To(BeNumerically("~", 25.0))
		Expect(r.AllocationPct()).To(BeNumerically("~", 1.0))
		Expect(stress.Result{}.FailedPct()).To(BeZero())
	})
})

var _ = Describe("Parsing", func() {
	It("accepts known names", func() {
		sc, err := stress.ParseScenario("Verify")
		Expect(err).NotTo(HaveOccurred())
		Expect(sc).To(Equal(stress.Verify))
		o, err := stress.ParseOrder("FIFO")
		Expect(err).NotTo(HaveOccurred())
		Expect(o).To(Equal(stress.FIFO))
	})
})
