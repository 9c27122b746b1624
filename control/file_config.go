// control/file_config.go
// Author: momentics <momentics@gmail.com>
//
// YAML configuration file for pool sets.

package control

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-memcache/api"
	"github.com/momentics/hioload-memcache/pool"
)

// EnvConfigPath names the variable that supplies the default config path.
const EnvConfigPath = "HIOLOAD_MEMCACHE_CONFIG"

const (
	defaultUpkeepInterval = 10 * time.Millisecond
	defaultLogLevel       = "info"
)

var logLevels = []string{"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic"}

// PoolConfig describes one pool.
type PoolConfig struct {
	Name            string `yaml:"name"`
	BlockSize       int    `yaml:"block_size"`
	MinFreeBlocks   int    `yaml:"min_free_blocks"`
	ReinstallPolicy string `yaml:"reinstall_policy"`
}

// FileConfig is the on-disk configuration.
//
//	variant: lockfree
//	upkeep_interval: 10ms
//	log_level: info
//	pools:
//	  - name: frames
//	    block_size: 4096
//	    min_free_blocks: 256
type FileConfig struct {
	Variant        string        `yaml:"variant"`
	UpkeepInterval time.Duration `yaml:"upkeep_interval"`
	LogLevel       string        `yaml:"log_level"`
	Pools          []PoolConfig  `yaml:"pools"`
}

// DefaultConfigPath returns $HIOLOAD_MEMCACHE_CONFIG, or "" when unset.
func DefaultConfigPath() string {
	return os.Getenv(EnvConfigPath)
}

// LoadFileConfig reads, defaults and validates a YAML config.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return ParseFileConfig(data)
}

// ParseFileConfig decodes YAML bytes, applies defaults and validates.
func ParseFileConfig(data []byte) (*FileConfig, error) {
	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset top-level fields.
func (c *FileConfig) ApplyDefaults() {
	if c.Variant == "" {
		c.Variant = string(pool.VariantLockFree)
	}
	if c.UpkeepInterval == 0 {
		c.UpkeepInterval = defaultUpkeepInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// Validate checks every field; the first problem is returned.
func (c *FileConfig) Validate() error {
	if _, err := pool.ParseVariant(c.Variant); err != nil {
		return errors.Wrap(err, "variant")
	}
	if c.UpkeepInterval < 0 {
		return errors.Wrapf(api.ErrInvalidArgument, "upkeep_interval %s is negative", c.UpkeepInterval)
	}
	if !validLogLevel(c.LogLevel) {
		return errors.Wrapf(api.ErrInvalidArgument, "log_level %q", c.LogLevel)
	}
	seen := make(map[string]bool, len(c.Pools))
	for i, p := range c.Pools {
		if p.BlockSize <= 0 {
			return errors.Wrapf(api.ErrInvalidArgument, "pools[%d]: block_size %d must be positive", i, p.BlockSize)
		}
		if p.MinFreeBlocks < 0 {
			return errors.Wrapf(api.ErrInvalidArgument, "pools[%d]: min_free_blocks %d is negative", i, p.MinFreeBlocks)
		}
		if _, err := pool.ParseReinstallPolicy(p.ReinstallPolicy); err != nil {
			return errors.Wrapf(err, "pools[%d]", i)
		}
		if p.Name != "" {
			if seen[p.Name] {
				return errors.Wrapf(api.ErrInvalidArgument, "pools[%d]: duplicate name %q", i, p.Name)
			}
			seen[p.Name] = true
		}
	}
	return nil
}

// Runtime returns the keys a ConfigStore accepts at runtime.
func (c *FileConfig) Runtime() map[string]any {
	return map[string]any{
		KeyVariant:        c.Variant,
		KeyUpkeepInterval: c.UpkeepInterval,
		KeyLogLevel:       c.LogLevel,
	}
}

// Build creates the configured pools. Each pool is upkept once.
func (c *FileConfig) Build(opts ...pool.Option) ([]pool.Cache, error) {
	v, err := pool.ParseVariant(c.Variant)
	if err != nil {
		return nil, err
	}
	out := make([]pool.Cache, 0, len(c.Pools))
	for _, pc := range c.Pools {
		policy, _ := pool.ParseReinstallPolicy(pc.ReinstallPolicy)
		popts := append([]pool.Option{pool.WithReinstallPolicy(policy)}, opts...)
		if pc.Name != "" {
			popts = append(popts, pool.WithName(pc.Name))
		}
		p, err := pool.New(v, pc.MinFreeBlocks, pc.BlockSize, popts...)
		if err != nil {
			for _, built := range out {
				built.Close()
			}
			return nil, errors.Wrapf(err, "pool %q", pc.Name)
		}
		p.Upkeep()
		out = append(out, p)
	}
	return out, nil
}

func validLogLevel(level string) bool {
	level = strings.ToLower(level)
	for _, l := range logLevels {
		if l == level {
			return true
		}
	}
	return false
}
