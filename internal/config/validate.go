package config

import (
	"fmt"
)

// Validate checks the configuration for invalid values. It does not
// warn about a pipeline.min_sleep set below the 10s floor the
// scheduler recommends — callers that care should compare it against
// pipeline.MinSleepSeconds themselves and log accordingly.
func Validate(cfg *Config) error {
	if cfg.Pipeline.Period <= 0 {
		return fmt.Errorf("pipeline.period must be > 0")
	}
	if cfg.Pipeline.MinSleep < 0 {
		return fmt.Errorf("pipeline.min_sleep must be >= 0")
	}
	if cfg.Pipeline.MaxConcurrent < 1 {
		return fmt.Errorf("pipeline.max_concurrent must be >= 1, got %d", cfg.Pipeline.MaxConcurrent)
	}

	switch cfg.Storage.Backend {
	case "mongo":
		if cfg.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required when storage.backend is 'mongo'")
		}
		if cfg.Storage.MongoDB == "" {
			return fmt.Errorf("storage.mongo_db is required when storage.backend is 'mongo'")
		}
	case "bunt":
		if cfg.Storage.BuntPath == "" {
			return fmt.Errorf("storage.bunt_path is required when storage.backend is 'bunt'")
		}
	case "none":
	default:
		return fmt.Errorf("storage.backend must be 'mongo', 'bunt', or 'none', got %q", cfg.Storage.Backend)
	}

	if cfg.Remote.PageSize < 1 {
		return fmt.Errorf("remote.page_size must be >= 1, got %d", cfg.Remote.PageSize)
	}
	if cfg.Remote.PoolCacheCapacity < 0 {
		return fmt.Errorf("remote.pool_cache_capacity must be >= 0, got %d", cfg.Remote.PoolCacheCapacity)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}
