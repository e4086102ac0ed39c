package cache

import (
	"context"
	"fmt"
)

// Store drivers accepted by New.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Config selects and configures a store.
type Config struct {
	// Driver is one of memory|file|redis. Empty means memory.
	Driver string

	File  FileStoreConfig
	Redis RedisConfig

	// Resilient wraps the store in a ResilientStore configured by Resilience.
	Resilient  bool
	Resilience ResilienceConfig

	// NearSize, when positive, keeps that many pages in an in-process LRU
	// in front of the store (see TieredStore). Ignored for the memory driver.
	NearSize int
}

// New builds the store described by cfg.
func New(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Driver {
	case DriverMemory, "":
		store = NewMemoryStore()
	case DriverFile:
		store, err = NewFileStore(cfg.File)
	case DriverRedis:
		store, err = NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Resilient {
		store = NewResilientStore(store, cfg.Resilience)
	}
	if cfg.NearSize > 0 && cfg.Driver != DriverMemory && cfg.Driver != "" {
		return NewTieredStore(store, cfg.NearSize)
	}
	return store, nil
}
