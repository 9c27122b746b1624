package pool

// WithWindowHook runs fn inside the lock-free upkeep window, after the free
// list was retargeted privately and before it is reinstalled.
func WithWindowHook(fn func()) Option {
	return func(c *poolConfig) {
		c.windowHook = fn
	}
}

// IsHeld reports whether b is currently marked as handed out.
func IsHeld(b *Block) bool { return b.held.Load() }
