package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"listingscout/internal/scraper"
	"listingscout/pkg/errors"
)

// SeenKey returns the dedup cache key for a listing URL. URLs are
// hashed so arbitrary length and characters never leak into key space.
func SeenKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return "seen:" + hex.EncodeToString(sum[:])
}

func resultKey(query string, pages int) string {
	return fmt.Sprintf("result:%s:p%d", strings.ToLower(strings.TrimSpace(query)), pages)
}

// ResultCache stores whole scrape results keyed by query and page
// count, so repeated lookups within the TTL skip the site entirely.
type ResultCache struct {
	cache CacheService
	ttl   time.Duration
}

// NewResultCache creates a result cache on top of any CacheService
func NewResultCache(c CacheService, ttl time.Duration) *ResultCache {
	return &ResultCache{
		cache: c,
		ttl:   ttl,
	}
}

// Get returns the cached result for a query, or false on a miss.
// An entry that no longer decodes is dropped and counts as a miss.
func (r *ResultCache) Get(query string, pages int) (*scraper.ScrapeResult, bool) {
	key := resultKey(query, pages)
	data, err := r.cache.Get(key)
	if err != nil {
		return nil, false
	}

	var result scraper.ScrapeResult
	if err := json.Unmarshal(data, &result); err != nil {
		_ = r.cache.Delete(key)
		return nil, false
	}
	return &result, true
}

// Set stores a scrape result under the configured TTL
func (r *ResultCache) Set(query string, pages int, result *scraper.ScrapeResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.NewCache("failed to encode scrape result", err)
	}
	if err := r.cache.Set(resultKey(query, pages), data, r.ttl); err != nil {
		return errors.NewCache("failed to store scrape result", err)
	}
	return nil
}
