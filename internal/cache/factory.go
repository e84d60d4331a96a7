package cache

import (
	"fmt"

	platformconfig "github.com/carbonledger/api/internal/platform/config"
)

// approximate entry size used to turn a memory budget into a key budget
const approxEntryBytes = 512

// Services bundles the caches the API uses.
type Services struct {
	// Lookups caches read-mostly query results; disabled when caching is off.
	Lookups *Store
	// Revocations always has a backend so logout works without a cache configured.
	Revocations *Revocations

	backend Backend
}

// NewBackend creates the byte store selected by cfg.Backend. When caching is
// disabled a memory store is returned.
func NewBackend(cfg platformconfig.CacheConfig) (Backend, error) {
	backend := BackendType(cfg.Backend)
	if !cfg.Enabled || backend == "" {
		backend = BackendMemory
	}

	switch backend {
	case BackendRedis:
		return NewRedisCache(RedisOptions{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		})
	case BackendMemory:
		maxKeys := 0
		if cfg.MaxMemory > 0 {
			maxKeys = int(cfg.MaxMemory / approxEntryBytes)
		}
		return NewMemoryCache(maxKeys, cfg.CleanupInterval), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidBackend, cfg.Backend)
	}
}

// NewServices wires the lookup cache and the revocation list over one backend.
func NewServices(cfg platformconfig.CacheConfig) (*Services, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return &Services{
		Lookups: NewStore(backend, StoreConfig{
			Enabled: cfg.Enabled,
			Prefix:  cfg.Prefix,
			TTL:     cfg.TTL,
		}),
		Revocations: NewRevocations(NewStore(backend, StoreConfig{
			Enabled: true,
			Prefix:  cfg.Prefix,
			TTL:     cfg.TTL,
		})),
		backend: backend,
	}, nil
}

func (s *Services) Close() error {
	return s.backend.Close()
}
