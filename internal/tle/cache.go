package tle

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/OlivierFch/sky-track/internal/kv"
	"github.com/OlivierFch/sky-track/internal/metrics"
)

// CachePrefix scopes every key this cache reads or writes.
const CachePrefix = "tle_cache_"

// CacheTTL is how long a fetched element set stays fresh.
const CacheTTL = 6 * time.Hour

// EvictMode selects which entries Evict removes.
type EvictMode string

const (
	EvictAll     EvictMode = "all"
	EvictExpired EvictMode = "expired"
	EvictSingle  EvictMode = "single"
)

// ParseEvictMode validates a user-supplied mode string.
func ParseEvictMode(s string) (EvictMode, error) {
	switch m := EvictMode(s); m {
	case EvictAll, EvictExpired, EvictSingle:
		return m, nil
	case "":
		return EvictExpired, nil
	default:
		return "", fmt.Errorf("unknown evict mode %q", s)
	}
}

// cacheEntry is the stored JSON envelope. Expiry is Unix milliseconds.
type cacheEntry struct {
	Expiry int64     `json:"expiry"`
	Data   Ephemeris `json:"data"`
}

// Cache is a TTL cache of element sets keyed by object name, persisted in a
// kv.Store under CachePrefix.
type Cache struct {
	store  kv.Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithTTL overrides CacheTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock overrides the wall clock used for expiry decisions.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a Cache over store.
func NewCache(store kv.Store, logger *slog.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		store:  store,
		ttl:    CacheTTL,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(name string) string {
	return CachePrefix + name
}

// Load returns the cached element set for name if present and not expired.
// Unreadable entries and store failures are reported as absence.
func (c *Cache) Load(name string) (Ephemeris, bool) {
	raw, ok, err := c.store.Get(cacheKey(name))
	if err != nil {
		c.logger.Warn("TLE cache read failed", "component", "tle", "name", name, "error", err)
		metrics.IncCacheMiss()
		return Ephemeris{}, false
	}
	if !ok {
		metrics.IncCacheMiss()
		return Ephemeris{}, false
	}

	var e cacheEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.logger.Debug("TLE cache entry unreadable", "component", "tle", "name", name, "error", err)
		metrics.IncCacheMiss()
		return Ephemeris{}, false
	}

	if c.now().UnixMilli() >= e.Expiry {
		metrics.IncCacheMiss()
		return Ephemeris{}, false
	}

	metrics.IncCacheHit()
	return e.Data, true
}

// Save stores eph under name, replacing any existing entry, with expiry now+ttl.
func (c *Cache) Save(name string, eph Ephemeris) error {
	data, err := json.Marshal(cacheEntry{
		Expiry: c.now().Add(c.ttl).UnixMilli(),
		Data:   eph,
	})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := c.store.Set(cacheKey(name), string(data)); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Evict removes entries according to mode and returns how many were removed.
// EvictSingle requires name; the other modes ignore it.
func (c *Cache) Evict(mode EvictMode, name string) (int, error) {
	keys, err := c.store.Keys()
	if err != nil {
		return 0, fmt.Errorf("listing cache keys: %w", err)
	}

	now := c.now().UnixMilli()
	removed := 0

	for _, key := range keys {
		if !strings.HasPrefix(key, CachePrefix) {
			continue
		}

		var remove bool
		switch mode {
		case EvictAll:
			remove = true
		case EvictSingle:
			remove = name != "" && key == cacheKey(name)
		case EvictExpired:
			remove = c.expired(key, now)
		default:
			return removed, fmt.Errorf("unknown evict mode %q", mode)
		}
		if !remove {
			continue
		}

		if err := c.store.Delete(key); err != nil {
			return removed, fmt.Errorf("evicting %s: %w", key, err)
		}
		removed++
	}

	metrics.AddCacheEvictions(string(mode), removed)
	if removed > 0 {
		c.logger.Info("TLE cache evicted", "component", "tle", "mode", mode, "removed", removed)
	}
	return removed, nil
}

// expired reports whether the entry at key is past its expiry or cannot be
// decoded the way Load decodes it.
func (c *Cache) expired(key string, now int64) bool {
	raw, ok, err := c.store.Get(key)
	if err != nil || !ok {
		return false
	}

	var e cacheEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return true
	}
	return now > e.Expiry
}
