package config

import (
	"strings"
	"time"
)

// CacheConfig drives the Redis response cache in front of /v1.  Entries are
// keyed by route and normalised query string.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool // upper-case HTTP methods eligible for caching
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int64 // 0 stores bodies of any size
}

// LoadCacheConfig reads CACHE_*.  The restaurant table is never written by
// this service, so a short TTL only absorbs bursts of identical searches.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      map[string]bool{},
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "dashcache"),
		MaxBodyBytes: int64(envInt("CACHE_MAX_BODY_BYTES", 1<<20)),
	}
	for _, m := range strings.Split(envStr("CACHE_METHODS", "GET"), ",") {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			cfg.Methods[m] = true
		}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}
