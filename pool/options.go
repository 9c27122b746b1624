// File: pool/options.go
// Package pool defines functional options for pool construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"fmt"
	"strings"

	"github.com/containerd/log"
	"github.com/pkg/errors"

	"github.com/momentics/hioload-memcache/api"
)

// ReinstallPolicy decides what a lock-free upkeep does with blocks released
// while it held the free list privately.
type ReinstallPolicy int

const (
	// ReinstallMerge pushes blocks released during upkeep back onto the list.
	ReinstallMerge ReinstallPolicy = iota
	// ReinstallDrop discards them, reproducing the historical block loss.
	ReinstallDrop
)

func (p ReinstallPolicy) String() string {
	switch p {
	case ReinstallMerge:
		return "merge"
	case ReinstallDrop:
		return "drop"
	default:
		return fmt.Sprintf("ReinstallPolicy(%d)", int(p))
	}
}

// ParseReinstallPolicy accepts "merge" or "drop"; empty means merge.
func ParseReinstallPolicy(s string) (ReinstallPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "merge":
		return ReinstallMerge, nil
	case "drop":
		return ReinstallDrop, nil
	}
	return 0, errors.Wrapf(api.ErrInvalidArgument, "unknown reinstall policy %q", s)
}

// Variant selects the free-list implementation.
type Variant string

const (
	VariantLocked   Variant = "locked"
	VariantLockFree Variant = "lockfree"
)

// ParseVariant accepts "locked", "mutex", "lockfree" or "lock-free".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "locked", "mutex":
		return VariantLocked, nil
	case "lockfree", "lock-free":
		return VariantLockFree, nil
	}
	return "", errors.Wrapf(api.ErrInvalidArgument, "unknown pool variant %q", s)
}

// Option customizes pool construction.
type Option func(*poolConfig)

type poolConfig struct {
	name       string
	logger     *log.Entry
	policy     ReinstallPolicy
	maxBlocks  int
	windowHook func() // runs between retarget and reinstall of a lock-free upkeep
}

// WithName sets the pool name used in logs, metrics and probes.
func WithName(name string) Option {
	return func(c *poolConfig) {
		c.name = name
	}
}

// WithLogger sets the entry upkeep logs through. Defaults to log.L.
func WithLogger(l *log.Entry) Option {
	return func(c *poolConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReinstallPolicy selects the lock-free reinstall behavior.
// Ignored by LockedPool.
func WithReinstallPolicy(p ReinstallPolicy) Option {
	return func(c *poolConfig) {
		c.policy = p
	}
}

// WithMaxBlocks bounds the blocks a lock-free pool can track at once
// (free plus held). Ignored by LockedPool.
func WithMaxBlocks(n int) Option {
	return func(c *poolConfig) {
		c.maxBlocks = n
	}
}

func newPoolConfig(v Variant, minFreeBlocks, blockSize int, opts []Option) (poolConfig, error) {
	if blockSize <= 0 {
		return poolConfig{}, errors.Wrapf(api.ErrInvalidArgument, "block size %d must be positive", blockSize)
	}
	if minFreeBlocks < 0 {
		return poolConfig{}, errors.Wrapf(api.ErrInvalidArgument, "min free blocks %d must not be negative", minFreeBlocks)
	}
	cfg := poolConfig{
		name:   fmt.Sprintf("%s-%d", v, blockSize),
		logger: log.L,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = cfg.logger.WithFields(log.Fields{
		"pool":       cfg.name,
		"block_size": blockSize,
	})
	return cfg, nil
}
