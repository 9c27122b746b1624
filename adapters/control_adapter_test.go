package adapters_test

import (
	"testing"
	"time"

	"github.com/containerd/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-memcache/adapters"
	"github.com/momentics/hioload-memcache/api"
	"github.com/momentics/hioload-memcache/control"
	"github.com/momentics/hioload-memcache/pool"
)

func TestControlAdapterBasic(t *testing.T) {
	ctrl := adapters.NewControlAdapter()
	assert.Empty(t, ctrl.GetConfig(), "expected empty config on init")

	require.NoError(t, ctrl.SetConfig(map[string]any{"k": 1}))
	assert.Equal(t, 1, ctrl.GetConfig()["k"])

	called := false
	ctrl.OnReload(func() { called = true })
	require.NoError(t, ctrl.SetConfig(map[string]any{"x": 2}))
	assert.True(t, called, "reload hook not called")

	ctrl.SetMetric("stress.users", 8)
	ctrl.RegisterDebugProbe("answer", func() any { return 42 })
	stats := ctrl.Stats()
	assert.Equal(t, 8, stats["stress.users"])
	assert.Equal(t, 42, stats["debug.answer"])
	assert.Contains(t, stats, "debug.platform.cpus")
	assert.NotContains(t, stats, control.KeyVariant)

	require.NoError(t, ctrl.SetConfig(map[string]any{control.KeyVariant: "locked"}))
	assert.Equal(t, "locked", ctrl.Stats()[control.KeyVariant])
}

func TestControlAdapter_RegisterPool(t *testing.T) {
	ctrl := adapters.NewControlAdapter()
	p, err := pool.New(pool.VariantLockFree, 2, 32, pool.WithName("frames"))
	require.NoError(t, err)
	defer p.Close()
	p.Upkeep()

	require.NoError(t, ctrl.RegisterPool(p))
	assert.ErrorIs(t, ctrl.RegisterPool(p), api.ErrInvalidArgument)

	stats, ok := ctrl.Stats()["debug.pool.frames"].(api.PoolStats)
	require.True(t, ok)
	assert.Equal(t, 2, stats.FreeBlocks)

	families, err := ctrl.Metrics().Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestControlAdapter_UpkeepIntervalHotReload(t *testing.T) {
	ctrl := adapters.NewControlAdapter()
	u := pool.NewUpkeeper(time.Second)
	ctrl.AttachUpkeeper(u)

	require.NoError(t, ctrl.SetConfig(map[string]any{control.KeyUpkeepInterval: "5ms"}))
	assert.Equal(t, 5*time.Millisecond, u.Interval())

	require.NoError(t, ctrl.SetConfig(map[string]any{control.KeyUpkeepInterval: 0}))
	assert.Zero(t, u.Interval())

	late := pool.NewUpkeeper(time.Hour)
	ctrl.AttachUpkeeper(late)
	assert.Zero(t, late.Interval(), "configured interval applies on attach")
}

func TestControlAdapter_RejectsBadRuntimeValues(t *testing.T) {
	ctrl := adapters.NewControlAdapter()
	u := pool.NewUpkeeper(time.Second)
	ctrl.AttachUpkeeper(u)

	tests := []map[string]any{
		{control.KeyUpkeepInterval: "later"},
		{control.KeyUpkeepInterval: "-1s"},
		{control.KeyLogLevel: 3},
		{control.KeyVariant: "slab"},
	}
	for _, cfg := range tests {
		assert.ErrorIs(t, ctrl.SetConfig(cfg), api.ErrInvalidArgument, "%v", cfg)
	}
	assert.Empty(t, ctrl.GetConfig())
	assert.Equal(t, time.Second, u.Interval())
}

func TestControlAdapter_LogLevel(t *testing.T) {
	prev := log.GetLevel()
	t.Cleanup(func() { log.L.Logger.SetLevel(prev) })

	ctrl := adapters.NewControlAdapter()
	require.NoError(t, ctrl.SetConfig(map[string]any{control.KeyLogLevel: "debug"}))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}
