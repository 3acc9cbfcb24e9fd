// Package config provides configuration loading and access for the terrain
// streaming core.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all tunables recognized by the terrain core (spec §6).
type Config struct {
	Chunk     ChunkConfig     `yaml:"chunk"`
	Residency ResidencyConfig `yaml:"residency"`
	Mesher    MesherConfig    `yaml:"mesher"`
	Jobs      JobsConfig      `yaml:"jobs"`
}

// ChunkConfig controls chunk sizing.
type ChunkConfig struct {
	// Side is the voxel count per chunk axis. Must be a power of 2 >= 16.
	Side int `yaml:"side"`
}

// ResidencyConfig controls the residency tick's selection and eviction policy.
type ResidencyConfig struct {
	MaxActive            int     `yaml:"max_active"`
	MaxLoaded            int     `yaml:"max_loaded"`
	MaxNewJobsPerTick    int     `yaml:"max_new_jobs_per_tick"`
	HysteresisBias       float32 `yaml:"hysteresis_bias"`
}

// MesherConfig controls the dual-contouring mesher and its SDF cache halo.
type MesherConfig struct {
	SdfBoundary int `yaml:"sdf_boundary"`
	QefIter     int `yaml:"qef_iter"`
}

// JobsConfig controls the worker pool.
type JobsConfig struct {
	// WorkerCount <= 0 means derive from runtime.NumCPU (¾ of it, min 1).
	WorkerCount int `yaml:"worker_count"`
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded-default configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// The embedded defaults are a build-time invariant; a failure here
		// means defaults.yaml and this struct have drifted apart.
		panic(fmt.Sprintf("config: invalid embedded defaults: %v", err))
	}
	return cfg
}

// Validate checks the invariants spec §6 requires of chunkSide and friends.
func (c *Config) Validate() error {
	if c.Chunk.Side < 16 || c.Chunk.Side&(c.Chunk.Side-1) != 0 {
		return fmt.Errorf("config: chunk.side must be a power of 2 >= 16, got %d", c.Chunk.Side)
	}
	if c.Residency.MaxActive <= 0 {
		return fmt.Errorf("config: residency.max_active must be positive, got %d", c.Residency.MaxActive)
	}
	if c.Residency.MaxLoaded < c.Residency.MaxActive {
		return fmt.Errorf("config: residency.max_loaded must be >= max_active")
	}
	if c.Residency.MaxNewJobsPerTick <= 0 {
		return fmt.Errorf("config: residency.max_new_jobs_per_tick must be positive")
	}
	if c.Mesher.SdfBoundary < 2 {
		return fmt.Errorf("config: mesher.sdf_boundary must be >= 2, got %d", c.Mesher.SdfBoundary)
	}
	if c.Mesher.QefIter <= 0 {
		return fmt.Errorf("config: mesher.qef_iter must be positive")
	}
	return nil
}
