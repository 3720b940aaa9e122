package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ppiankov/arkitecto/internal/model"
)

// KeyPrefix namespaces every cache key; bump the version when the cached format changes
const KeyPrefix = "arkitecto:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from its parts (provider, models, instruction...).
// Parts are separated so that ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return KeyPrefix + hex.EncodeToString(hash[:])
}

// New builds the cache described by the configuration: memory backed by
// disk, or a no-op cache when disabled
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Noop{}
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// Noop is a Cache that stores nothing
type Noop struct{}

func (Noop) Get(string) ([]byte, bool)               { return nil, false }
func (Noop) Set(string, []byte, time.Duration) error { return nil }
func (Noop) Delete(string) error                     { return nil }
func (Noop) Clear() error                            { return nil }
