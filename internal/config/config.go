package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for gocrowd.
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Remote   RemoteConfig   `mapstructure:"remote"   yaml:"remote"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// PipelineConfig controls the scheduler loop.
type PipelineConfig struct {
	Name            string        `mapstructure:"name"              yaml:"name"`
	Period          time.Duration `mapstructure:"period"            yaml:"period"`
	MinSleep        time.Duration `mapstructure:"min_sleep"         yaml:"min_sleep"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"    yaml:"max_concurrent"`
}

// StorageConfig selects and configures the checkpoint backend.
type StorageConfig struct {
	// Backend is "mongo", "bunt", or "none".
	Backend string `mapstructure:"backend"   yaml:"backend"`

	MongoURI string `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDB  string `mapstructure:"mongo_db"  yaml:"mongo_db"`

	BuntPath string `mapstructure:"bunt_path" yaml:"bunt_path"`
}

// RemoteConfig controls how the platform is polled.
type RemoteConfig struct {
	PageSize          int `mapstructure:"page_size"           yaml:"page_size"`
	PoolCacheCapacity int `mapstructure:"pool_cache_capacity"  yaml:"pool_cache_capacity"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Name:          "",
			Period:        60 * time.Second,
			MinSleep:      10 * time.Second,
			MaxConcurrent: 16,
		},
		Storage: StorageConfig{
			Backend:  "bunt",
			MongoDB:  "gocrowd",
			BuntPath: "./gocrowd.db",
		},
		Remote: RemoteConfig{
			PageSize:          50,
			PoolCacheCapacity: 128,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
