package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/carbonledger/api/internal/pkg/log"
)

type StoreConfig struct {
	Enabled bool
	Prefix  string
	TTL     time.Duration
}

// Store keeps JSON values under prefixed keys. A disabled or nil Store answers
// with ErrCacheDisabled so callers fall through to the database.
type Store struct {
	backend Backend
	prefix  string
	ttl     time.Duration
	enabled bool
}

func NewStore(backend Backend, cfg StoreConfig) *Store {
	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{backend: backend, prefix: prefix, ttl: ttl, enabled: cfg.Enabled}
}

func (s *Store) IsEnabled() bool {
	return s != nil && s.enabled && s.backend != nil
}

// Get decodes the value at key into out.
func (s *Store) Get(ctx context.Context, key string, out interface{}) error {
	if !s.IsEnabled() {
		return ErrCacheDisabled
	}
	raw, err := s.backend.Get(ctx, s.prefix+key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Warn("cache get %s: %v", key, err)
		}
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
	}
	return nil
}

// Put stores value at key. A positive ttl overrides the store default.
func (s *Store) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.IsEnabled() {
		return ErrCacheDisabled
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, s.prefix+key, raw, ttl); err != nil {
		log.Warn("cache set %s: %v", key, err)
		return err
	}
	return nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	if !s.IsEnabled() {
		return false, ErrCacheDisabled
	}
	return s.backend.Exists(ctx, s.prefix+key)
}

// Invalidate drops every key matching pattern.
func (s *Store) Invalidate(ctx context.Context, pattern string) error {
	if !s.IsEnabled() {
		return ErrCacheDisabled
	}
	if err := s.backend.DeletePattern(ctx, s.prefix+pattern); err != nil {
		log.Warn("cache invalidate %s: %v", pattern, err)
		return err
	}
	return nil
}

// Key derives "<namespace>:<16 hex chars>" from params, independent of map order.
func Key(namespace string, params map[string]interface{}) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	h.Write([]byte(namespace))
	for _, name := range names {
		v, err := json.Marshal(params[name])
		if err != nil {
			v = []byte(fmt.Sprint(params[name]))
		}
		fmt.Fprintf(h, ";%s=%s", name, v)
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}
