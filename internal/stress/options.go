// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stress

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-memcache/api"
	"github.com/momentics/hioload-memcache/pool"
)

// Scenario is the per-user workload.
type Scenario string

const (
	// Ordered acquires and immediately releases.
	Ordered Scenario = "ordered"
	// Random flips a coin between acquire-and-hold and release.
	Random Scenario = "random"
	// Verify is Random plus payload writes and checks on every held block.
	Verify Scenario = "verify"
)

// Order decides which held block a user releases next.
type Order string

const (
	LIFO Order = "lifo"
	FIFO Order = "fifo"
)

const (
	DefaultSeed     = 1729
	DefaultMaxHeld  = 100000
	DefaultDuration = 5 * time.Second
)

// Options configure Run. Zero values take defaults.
type Options struct {
	Scenario       Scenario
	Order          Order
	Duration       time.Duration
	Users          int
	UpkeepInterval time.Duration // 0 spins
	MaxHeld        int
	Seed           int64
	PinUsers       bool // pin user i to the i-th allowed CPU where supported

	// OnUpkeeper, if set, sees the upkeeper before it starts, e.g. to put
	// it under runtime control.
	OnUpkeeper func(*pool.Upkeeper)
}

// ParseScenario accepts the Scenario names case-insensitively.
func ParseScenario(s string) (Scenario, error) {
	switch sc := Scenario(strings.ToLower(s)); sc {
	case Ordered, Random, Verify:
		return sc, nil
	}
	return "", errors.Wrapf(api.ErrInvalidArgument, "unknown scenario %q", s)
}

// ParseOrder accepts "lifo" or "fifo".
func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(s)); o {
	case LIFO, FIFO:
		return o, nil
	}
	return "", errors.Wrapf(api.ErrInvalidArgument, "unknown release order %q", s)
}

func (o *Options) applyDefaults() {
	if o.Scenario == "" {
		o.Scenario = Ordered
	}
	if o.Order == "" {
		o.Order = LIFO
	}
	if o.Duration == 0 {
		o.Duration = DefaultDuration
	}
	if o.Users == 0 {
		o.Users = 1
	}
	if o.MaxHeld == 0 {
		o.MaxHeld = DefaultMaxHeld
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
}

// Validate checks option ranges after defaults are applied.
func (o Options) Validate() error {
	if _, err := ParseScenario(string(o.Scenario)); err != nil {
		return err
	}
	if _, err := ParseOrder(string(o.Order)); err != nil {
		return err
	}
	switch {
	case o.Duration < 0:
		return errors.Wrapf(api.ErrInvalidArgument, "duration %s is negative", o.Duration)
	case o.Users < 0:
		return errors.Wrapf(api.ErrInvalidArgument, "users %d is negative", o.Users)
	case o.UpkeepInterval < 0:
		return errors.Wrapf(api.ErrInvalidArgument, "upkeep interval %s is negative", o.UpkeepInterval)
	case o.MaxHeld < 0:
		return errors.Wrapf(api.ErrInvalidArgument, "max held %d is negative", o.MaxHeld)
	}
	return nil
}
