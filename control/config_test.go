package control_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-memcache/api"
	"github.com/momentics/hioload-memcache/control"
)

func TestConfigStore_SetAndSnapshot(t *testing.T) {
	cs := control.NewConfigStore()
	assert.Empty(t, cs.GetSnapshot())

	var reloads int
	cs.OnReload(func() { reloads++ })
	cs.SetConfig(map[string]any{"a": 1})
	cs.SetConfig(map[string]any{"b": "x", "a": 2})

	assert.Equal(t, 2, reloads, "listeners run synchronously")
	assert.Equal(t, map[string]any{"a": 2, "b": "x"}, cs.GetSnapshot())

	snap := cs.GetSnapshot()
	snap["a"] = 99
	v, ok := cs.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v, "snapshot is a copy")
}

func TestConfigStore_ListenerMaySetConfig(t *testing.T) {
	cs := control.NewConfigStore()
	cs.OnReload(func() {
		if _, ok := cs.Get("derived"); !ok {
			cs.SetConfig(map[string]any{"derived": true})
		}
	})
	cs.SetConfig(map[string]any{"k": 1})
	v, ok := cs.Get("derived")
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestConfigStore_Duration(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    time.Duration
		wantErr bool
	}{
		{"string", "5ms", 5 * time.Millisecond, false},
		{"duration", 2 * time.Second, 2 * time.Second, false},
		{"int nanos", 1000, time.Microsecond, false},
		{"int64 nanos", int64(1000), time.Microsecond, false},
		{"bad string", "soon", 0, true},
		{"bad type", 1.5, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := control.NewConfigStore()
			cs.SetConfig(map[string]any{control.KeyUpkeepInterval: tt.value})
			d, ok, err := cs.Duration(control.KeyUpkeepInterval)
			assert.True(t, ok)
			if tt.wantErr {
				assert.ErrorIs(t, err, api.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}

	_, ok, err := control.NewConfigStore().Duration("missing")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestHotReloadHooks(t *testing.T) {
	control.ResetReloadHooks()
	t.Cleanup(control.ResetReloadHooks)

	var calls int
	control.RegisterReloadHook(func() { calls++ })
	control.RegisterReloadHook(func() { calls += 10 })
	control.TriggerHotReloadSync()
	assert.Equal(t, 11, calls)

	done := make(chan struct{})
	control.ResetReloadHooks()
	control.RegisterReloadHook(func() { close(done) })
	control.TriggerHotReload()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("async hook did not run")
	}
}
