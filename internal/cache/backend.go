package cache

import (
	"context"
	"errors"
	"time"
)

// Backend is a byte store with per-key TTLs.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeletePattern removes keys matching a glob with * wildcards.
	DeletePattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, key string) (bool, error)
	Stats() Stats
	Close() error
}

type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Keys      int64 `json:"keys"`
	Evictions int64 `json:"evictions"`
}

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrCacheDisabled   = errors.New("cache disabled")
	ErrInvalidBackend  = errors.New("invalid cache backend")
	ErrMalformedRecord = errors.New("malformed cache record")
	ErrUnavailable     = errors.New("cache backend unavailable")
)

// BackendType names a Backend implementation in configuration.
type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendRedis  BackendType = "redis"
)
