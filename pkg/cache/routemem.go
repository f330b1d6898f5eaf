package cache

import (
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"datachat-be/pkg/store"
)

// RoutePattern is one remembered successful route
type RoutePattern struct {
	Step      store.RouteStep `json:"step"`
	Category  string          `json:"category"`
	Quality   float64         `json:"quality"`
	LatencyMs int64           `json:"latency_ms"`
	HitCount  int             `json:"hit_count"`
	StoredAt  time.Time       `json:"stored_at"`
}

// RouteMemory remembers which single step answered a query well so the
// path decision can reuse it. Consumed only by the fast-path heuristic;
// losing it costs latency, never correctness.
type RouteMemory struct {
	cache *gocache.Cache
}

func NewRouteMemory(ttl time.Duration) *RouteMemory {
	return &RouteMemory{
		cache: gocache.New(ttl, 30*time.Minute),
	}
}

var nonWordPattern = regexp.MustCompile(`[^a-z0-9\s]+`)

// NormalizeQuery reduces a query to its lookup form: lowercase, no
// punctuation, collapsed whitespace
func NormalizeQuery(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = nonWordPattern.ReplaceAllString(q, " ")
	return strings.Join(strings.Fields(q), " ")
}

// Store remembers the first (primary) step of a successful route under
// both the normalized query and its category
func (m *RouteMemory) Store(query, category string, step store.RouteStep, quality float64, latencyMs int64) {
	pattern := &RoutePattern{
		Step:      step,
		Category:  category,
		Quality:   quality,
		LatencyMs: latencyMs,
		StoredAt:  time.Now(),
	}

	if existing, found := m.lookupKey("q:" + NormalizeQuery(query)); found {
		pattern.HitCount = existing.HitCount + 1
		// A repeat observation smooths quality rather than overwriting it
		pattern.Quality = 0.7*existing.Quality + 0.3*quality
	}

	m.cache.Set("q:"+NormalizeQuery(query), pattern, gocache.DefaultExpiration)
	m.cache.Set("c:"+category, pattern, gocache.DefaultExpiration)
}

// Lookup finds a remembered route for this exact query, falling back to
// its category
func (m *RouteMemory) Lookup(query, category string) (*RoutePattern, bool) {
	if p, found := m.lookupKey("q:" + NormalizeQuery(query)); found {
		return p, true
	}
	return m.lookupKey("c:" + category)
}

func (m *RouteMemory) lookupKey(key string) (*RoutePattern, bool) {
	if x, found := m.cache.Get(key); found {
		return x.(*RoutePattern), true
	}
	return nil, false
}
