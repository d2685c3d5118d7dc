// Package discovery provides catalog-wide flavor search with result
// caching and request coalescing.
package discovery

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/feastwise/larder/internal/db"
	"github.com/feastwise/larder/pkg/flavor"
)

// Search configuration constants.
const (
	// Cache configuration
	defaultCacheTTL        = 30 * time.Second // Short TTL for freshness
	defaultCacheMaxSize    = 200              // Max cached results
	cacheEvictionPercent   = 10               // Evict 10% when cache is full
	cacheEvictionThreshold = 80               // Start eviction scan at 80% capacity
	cacheCleanupInterval   = time.Minute      // Cleanup expired cache every minute

	// Latency tracking
	slowQueryThresholdNs = 100 * 1e6 // 100ms threshold for slow query logging

	// Result limits
	defaultResultLimit = 10
	maxResultLimit     = 50
)

// Query sources for the resolved search vector.
const (
	SourceRequest = "request"
	SourceProfile = "profile"
)

// CatalogSearcher ranks the catalog by flavor similarity.
type CatalogSearcher interface {
	SearchRecipesByFlavor(ctx context.Context, query flavor.Vector, tags []string, limit int) ([]db.RecipeSimilarity, error)
}

// ProfileSource resolves a user's stored taste profile.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (flavor.Vector, error)
}

// Params contains parameters for a discovery search.
type Params struct {
	UserID string
	Query  flavor.Vector
	Tags   []string
	Limit  int
	// HasQuery marks Query as caller-supplied. When false the user's
	// stored profile drives the search instead.
	HasQuery bool
}

// Result contains one discovery search response.
type Result struct {
	QuerySource string                `json:"query_source"`
	Query       flavor.Vector         `json:"query_vector"`
	Results     []db.RecipeSimilarity `json:"results"`
	TotalCount  int                   `json:"total_count"`
}

// Metrics tracks discovery search statistics.
type Metrics struct {
	TotalSearches     int64
	ProfileSearches   int64
	CacheHits         int64
	CoalescedRequests int64
	SearchErrors      int64
	TotalLatencyNs    int64
}

// GetStats returns the current search statistics.
func (m *Metrics) GetStats() map[string]any {
	total := atomic.LoadInt64(&m.TotalSearches)
	totalLatency := atomic.LoadInt64(&m.TotalLatencyNs)

	avgLatencyMs := float64(0)
	if total > 0 {
		avgLatencyMs = float64(totalLatency) / float64(total) / 1e6
	}

	return map[string]any{
		"total_searches":     total,
		"profile_searches":   atomic.LoadInt64(&m.ProfileSearches),
		"cache_hits":         atomic.LoadInt64(&m.CacheHits),
		"coalesced_requests": atomic.LoadInt64(&m.CoalescedRequests),
		"search_errors":      atomic.LoadInt64(&m.SearchErrors),
		"avg_latency_ms":     avgLatencyMs,
	}
}

// cachedResult stores a cached search result with expiry.
type cachedResult struct {
	result    *Result
	expiresAt time.Time
}

// Manager provides flavor search over the catalog with a TTL result
// cache and singleflight coalescing of identical concurrent requests.
type Manager struct {
	ctx           context.Context
	cancel        context.CancelFunc
	catalog       CatalogSearcher
	profiles      ProfileSource
	metrics       *Metrics
	searchGroup   singleflight.Group
	resultCache   map[string]*cachedResult
	cacheTTL      time.Duration
	cacheMaxSize  int
	resultCacheMu sync.RWMutex
}

// NewManager creates a new discovery manager.
func NewManager(catalog CatalogSearcher, profiles ProfileSource) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		ctx:          ctx,
		cancel:       cancel,
		catalog:      catalog,
		profiles:     profiles,
		metrics:      &Metrics{},
		resultCache:  make(map[string]*cachedResult),
		cacheTTL:     defaultCacheTTL,
		cacheMaxSize: defaultCacheMaxSize,
	}
	// Start cache cleanup goroutine
	go m.cleanupCacheLoop()
	return m
}

// Close stops background goroutines.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Search resolves the query vector and ranks the catalog against it.
// Identical concurrent requests are coalesced into one store query,
// and results are cached for a short TTL. Profile-driven entries are
// keyed by user id, so a profile update can serve at most one stale
// TTL window.
func (m *Manager) Search(ctx context.Context, params Params) (*Result, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Nanoseconds()
		atomic.AddInt64(&m.metrics.TotalSearches, 1)
		atomic.AddInt64(&m.metrics.TotalLatencyNs, latency)

		if latency > slowQueryThresholdNs {
			log.Warn().
				Str("user_id", params.UserID).
				Dur("latency", time.Duration(latency)).
				Msg("Slow discovery search")
		}
	}()

	if params.Limit <= 0 {
		params.Limit = defaultResultLimit
	}
	if params.Limit > maxResultLimit {
		params.Limit = maxResultLimit
	}
	params.Tags = normalizeTags(params.Tags)

	cacheKey := m.getCacheKey(params)
	if cached, ok := m.getFromCache(cacheKey); ok {
		return cached, nil
	}

	// Coalesce concurrent identical requests into one execution
	result, err, shared := m.searchGroup.Do(cacheKey, func() (any, error) {
		return m.executeSearch(ctx, params)
	})
	if shared {
		atomic.AddInt64(&m.metrics.CoalescedRequests, 1)
	}
	if err != nil {
		atomic.AddInt64(&m.metrics.SearchErrors, 1)
		return nil, err
	}

	searchResult := result.(*Result)
	m.putInCache(cacheKey, searchResult)

	return searchResult, nil
}

// executeSearch performs the actual search without caching/coalescing.
func (m *Manager) executeSearch(ctx context.Context, params Params) (*Result, error) {
	query := params.Query
	source := SourceRequest
	if !params.HasQuery {
		profile, err := m.profiles.Profile(ctx, params.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve profile for %q: %w", params.UserID, err)
		}
		query = profile
		source = SourceProfile
		atomic.AddInt64(&m.metrics.ProfileSearches, 1)
	}

	hits, err := m.catalog.SearchRecipesByFlavor(ctx, query, params.Tags, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}

	return &Result{
		QuerySource: source,
		Query:       query,
		Results:     hits,
		TotalCount:  len(hits),
	}, nil
}

// Metrics returns the search metrics for monitoring.
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// CacheStats returns current cache statistics.
func (m *Manager) CacheStats() map[string]any {
	m.resultCacheMu.RLock()
	cacheSize := len(m.resultCache)
	m.resultCacheMu.RUnlock()

	return map[string]any{
		"size":     cacheSize,
		"max_size": m.cacheMaxSize,
		"ttl_sec":  m.cacheTTL.Seconds(),
	}
}

// ClearCache clears the result cache.
func (m *Manager) ClearCache() {
	m.resultCacheMu.Lock()
	m.resultCache = make(map[string]*cachedResult)
	m.resultCacheMu.Unlock()
}

// normalizeTags lowercases, trims and sorts the tag allow-list so
// equivalent lists produce identical cache keys.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// getCacheKey generates a cache key from search params. FNV-64a over
// the fields is fast and collision-safe for cache keys.
func (m *Manager) getCacheKey(params Params) string {
	h := fnv.New64a()

	if params.HasQuery {
		h.Write([]byte{'v'})
		for _, axis := range params.Query {
			h.Write([]byte(strconv.FormatFloat(axis, 'g', -1, 64)))
			h.Write([]byte{','})
		}
	} else {
		h.Write([]byte{'u'})
		h.Write([]byte(params.UserID))
	}
	h.Write([]byte{'|'})
	h.Write([]byte(strings.Join(params.Tags, ",")))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(params.Limit)))

	return strconv.FormatUint(h.Sum64(), 36)
}

// getFromCache retrieves a result from cache if valid.
func (m *Manager) getFromCache(key string) (*Result, bool) {
	m.resultCacheMu.RLock()
	defer m.resultCacheMu.RUnlock()

	if cached, ok := m.resultCache[key]; ok {
		if time.Now().Before(cached.expiresAt) {
			atomic.AddInt64(&m.metrics.CacheHits, 1)
			return cached.result, true
		}
	}
	return nil, false
}

// putInCache stores a result in the cache. Expired-entry scans only
// run at threshold capacity, keeping the common path cheap.
func (m *Manager) putInCache(key string, result *Result) {
	m.resultCacheMu.Lock()
	defer m.resultCacheMu.Unlock()

	now := time.Now()
	cacheLen := len(m.resultCache)

	evictionThreshold := (m.cacheMaxSize * cacheEvictionThreshold) / 100
	if cacheLen >= evictionThreshold {
		for k, v := range m.resultCache {
			if now.After(v.expiresAt) {
				delete(m.resultCache, k)
			}
		}
		cacheLen = len(m.resultCache)
	}

	// Still at capacity: evict a slice of entries in random map order
	if cacheLen >= m.cacheMaxSize {
		evictCount := max(m.cacheMaxSize*cacheEvictionPercent/100, 1)
		evicted := 0
		for k := range m.resultCache {
			delete(m.resultCache, k)
			evicted++
			if evicted >= evictCount {
				break
			}
		}
	}

	m.resultCache[key] = &cachedResult{
		result:    result,
		expiresAt: now.Add(m.cacheTTL),
	}
}

// cleanupCacheLoop periodically removes expired cache entries.
func (m *Manager) cleanupCacheLoop() {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanupExpiredCache()
		}
	}
}

// cleanupExpiredCache removes expired entries from the cache.
func (m *Manager) cleanupExpiredCache() {
	m.resultCacheMu.Lock()
	defer m.resultCacheMu.Unlock()

	now := time.Now()
	for key, cached := range m.resultCache {
		if now.After(cached.expiresAt) {
			delete(m.resultCache, key)
		}
	}
}
