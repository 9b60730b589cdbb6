// Package config handles DepGraph configuration via environment
// variables and an optional YAML file.
//
// Configuration is loaded with LoadFromEnv(), optionally overlaid from a
// YAML file with LoadFile(), and validated with Validate() before use.
// Environment variables are prefixed with DEPGRAPH_.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
//	fmt.Printf("Impact workers: %d\n", cfg.Impact.Workers)
//
// Environment Variables:
//   - DEPGRAPH_CACHE_PATHS_SIZE=1000
//   - DEPGRAPH_CACHE_SCCS_SIZE=1000
//   - DEPGRAPH_CACHE_TOPO_SIZE=1000
//   - DEPGRAPH_CACHE_IMPACT_SIZE=1000
//   - DEPGRAPH_CACHE_TTL=5m           (0 = no expiration)
//   - DEPGRAPH_IMPACT_WORKERS=4
//   - DEPGRAPH_IMPACT_PARALLEL_THRESHOLD=1000
//   - DEPGRAPH_IMPACT_TIMEOUT=0       (0 = no deadline)
//   - DEPGRAPH_POOL_ENABLED=true
//   - DEPGRAPH_VERBOSE=false
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all DepGraph configuration.
//
// Use LoadFromEnv() to create a Config from environment variables, then
// optionally LoadFile() to overlay a YAML file.
type Config struct {
	// Cache sizes the four analysis result caches
	Cache CacheConfig `yaml:"cache"`

	// Impact tunes the impact analyzer's worker pool
	Impact ImpactConfig `yaml:"impact"`

	// Pool controls traversal object pooling
	Pool PoolConfig `yaml:"pool"`

	// Verbose enables commit-path logging
	Verbose bool `yaml:"verbose"`
}

// CacheConfig holds per-cache entry limits and a shared TTL.
type CacheConfig struct {
	// PathsSize is the max entry count of the shortest-path cache
	PathsSize int `yaml:"paths_size"`
	// SCCsSize is the max entry count of the SCC cache
	SCCsSize int `yaml:"sccs_size"`
	// TopoSize is the max entry count of the topological order cache
	TopoSize int `yaml:"topo_size"`
	// ImpactSize is the max entry count of the impact result cache
	ImpactSize int `yaml:"impact_size"`
	// TTL applies to all four caches (0 = entries never expire)
	TTL time.Duration `yaml:"-"`
}

// UnmarshalYAML decodes a cache section, accepting Go duration strings
// ("5m", "90s") for the ttl field.
func (c *CacheConfig) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		PathsSize  int    `yaml:"paths_size"`
		SCCsSize   int    `yaml:"sccs_size"`
		TopoSize   int    `yaml:"topo_size"`
		ImpactSize int    `yaml:"impact_size"`
		TTL        string `yaml:"ttl"`
	}{
		PathsSize:  c.PathsSize,
		SCCsSize:   c.SCCsSize,
		TopoSize:   c.TopoSize,
		ImpactSize: c.ImpactSize,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.PathsSize = raw.PathsSize
	c.SCCsSize = raw.SCCsSize
	c.TopoSize = raw.TopoSize
	c.ImpactSize = raw.ImpactSize
	if raw.TTL != "" {
		d, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return fmt.Errorf("cache ttl: %w", err)
		}
		c.TTL = d
	}
	return nil
}

// ImpactConfig holds impact analyzer tuning.
type ImpactConfig struct {
	// Workers is the frontier expansion pool size
	Workers int `yaml:"workers"`
	// ParallelThreshold is the node count above which levels expand in
	// parallel
	ParallelThreshold int `yaml:"parallel_threshold"`
	// Timeout is the default impact deadline (0 = none)
	Timeout time.Duration `yaml:"-"`
}

// UnmarshalYAML decodes an impact section, accepting Go duration strings
// for the timeout field.
func (c *ImpactConfig) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		Workers           int    `yaml:"workers"`
		ParallelThreshold int    `yaml:"parallel_threshold"`
		Timeout           string `yaml:"timeout"`
	}{
		Workers:           c.Workers,
		ParallelThreshold: c.ParallelThreshold,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Workers = raw.Workers
	c.ParallelThreshold = raw.ParallelThreshold
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("impact timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// PoolConfig holds object pool settings.
type PoolConfig struct {
	// Enabled controls whether traversal slices are pooled
	Enabled bool `yaml:"enabled"`
	// MaxCap limits the capacity of slices kept pooled
	MaxCap int `yaml:"max_cap"`
}

// LoadFromEnv loads configuration from DEPGRAPH_* environment variables,
// falling back to defaults.
func LoadFromEnv() *Config {
	cfg := &Config{}

	cfg.Cache.PathsSize = getEnvInt("DEPGRAPH_CACHE_PATHS_SIZE", 1000)
	cfg.Cache.SCCsSize = getEnvInt("DEPGRAPH_CACHE_SCCS_SIZE", 1000)
	cfg.Cache.TopoSize = getEnvInt("DEPGRAPH_CACHE_TOPO_SIZE", 1000)
	cfg.Cache.ImpactSize = getEnvInt("DEPGRAPH_CACHE_IMPACT_SIZE", 1000)
	cfg.Cache.TTL = getEnvDuration("DEPGRAPH_CACHE_TTL", 0)

	cfg.Impact.Workers = getEnvInt("DEPGRAPH_IMPACT_WORKERS", 4)
	cfg.Impact.ParallelThreshold = getEnvInt("DEPGRAPH_IMPACT_PARALLEL_THRESHOLD", 1000)
	cfg.Impact.Timeout = getEnvDuration("DEPGRAPH_IMPACT_TIMEOUT", 0)

	cfg.Pool.Enabled = getEnvBool("DEPGRAPH_POOL_ENABLED", true)
	cfg.Pool.MaxCap = getEnvInt("DEPGRAPH_POOL_MAX_CAP", 65536)

	cfg.Verbose = getEnvBool("DEPGRAPH_VERBOSE", false)

	return cfg
}

// LoadFile overlays YAML configuration from path onto cfg.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Cache.PathsSize <= 0 || c.Cache.SCCsSize <= 0 || c.Cache.TopoSize <= 0 || c.Cache.ImpactSize <= 0 {
		return fmt.Errorf("cache sizes must be positive")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache TTL must not be negative")
	}
	if c.Impact.Workers <= 0 {
		return fmt.Errorf("impact workers must be positive, got %d", c.Impact.Workers)
	}
	if c.Impact.ParallelThreshold < 0 {
		return fmt.Errorf("impact parallel threshold must not be negative")
	}
	if c.Impact.Timeout < 0 {
		return fmt.Errorf("impact timeout must not be negative")
	}
	if c.Pool.MaxCap <= 0 {
		return fmt.Errorf("pool max cap must be positive, got %d", c.Pool.MaxCap)
	}
	return nil
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Try parsing as seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
