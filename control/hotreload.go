// control/hotreload.go
// Manages global hot-reload hooks, e.g. re-reading the config file on SIGHUP.
// Adds a TriggerHotReloadSync for deterministic test notification.

package control

import "sync"

var (
	reloadMu    sync.Mutex
	reloadHooks []func()
)

// RegisterReloadHook adds a new component reload listener.
func RegisterReloadHook(fn func()) {
	reloadMu.Lock()
	reloadHooks = append(reloadHooks, fn)
	reloadMu.Unlock()
}

func hooks() []func() {
	reloadMu.Lock()
	defer reloadMu.Unlock()
	return append([]func(){}, reloadHooks...)
}

// TriggerHotReload dispatches all reload hooks asynchronously.
func TriggerHotReload() {
	for _, fn := range hooks() {
		go fn()
	}
}

// TriggerHotReloadSync invokes all reload hooks synchronously (for test determinism).
func TriggerHotReloadSync() {
	for _, fn := range hooks() {
		fn()
	}
}

// ResetReloadHooks drops every registered hook.
func ResetReloadHooks() {
	reloadMu.Lock()
	reloadHooks = nil
	reloadMu.Unlock()
}
