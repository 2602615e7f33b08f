// Package cache implements the tier-2 fingerprint cache: an in-memory
// hot list of recently-used query plans, backed by a durable cold table
// in the store, matched by a weighted similarity score over keyword
// overlap, embedding cosine distance, and temporal bucket agreement.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"jotx/internal/domain"
	"jotx/internal/store/sqlite"
)

// matchThreshold is the minimum similarity score for a hot-list entry to
// be considered a match for an incoming query's fingerprint.
const matchThreshold = 0.90

// hotListSize caps the in-memory cache; anything evicted still lives in
// the cold SQLite table and can be reloaded on the next Warm.
const hotListSize = 100

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "i": {}, "me": {}, "my": {}, "from": {},
	"in": {}, "on": {}, "at": {}, "show": {}, "find": {}, "get": {},
	"list": {}, "give": {}, "used": {}, "ran": {}, "did": {},
}

// BuildFingerprint derives a fingerprint from a lowercased query and its
// (optional) embedding. Keywords exclude stop words and tokens of length
// <= 2; temporal bucket recognition is a simple substring scan.
func BuildFingerprint(query string, embedding []float32) domain.Fingerprint {
	lower := strings.ToLower(query)
	return domain.Fingerprint{
		Query:     lower,
		Keywords:  extractKeywords(lower),
		Temporal:  extractTemporal(lower),
		Embedding: embedding,
	}
}

func extractKeywords(query string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.Fields(query) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if len(w) <= 2 {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func extractTemporal(query string) domain.TimeRangeKind {
	switch {
	case strings.Contains(query, "yesterday"):
		return domain.TimeRangeYesterday
	case strings.Contains(query, "today"):
		return domain.TimeRangeToday
	case strings.Contains(query, "last week"):
		return domain.TimeRangeLastWeek
	case strings.Contains(query, "last month"):
		return domain.TimeRangeLastMonth
	default:
		return domain.TimeRangeNone
	}
}

// Similarity scores two fingerprints in [0, 1]: 60% embedding cosine,
// 30% keyword Jaccard, 10% exact temporal-bucket agreement.
func Similarity(a, b domain.Fingerprint) float32 {
	var score float32
	score += sqlite.CosineSimilarity(a.Embedding, b.Embedding) * 0.6
	score += jaccard(a.Keywords, b.Keywords) * 0.3
	if a.Temporal == b.Temporal {
		score += 0.1
	}
	return score
}

func jaccard(a, b map[string]struct{}) float32 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float32(inter) / float32(union)
}

type hotEntry struct {
	query string
	rec   domain.CacheRecord
}

// Cache is the tier-2 fingerprint cache: an in-memory hot set, evicted by
// least (hit-count, last-used) into the cold sqlite.Store table, which is
// also the source of truth reloaded on Warm.
type Cache struct {
	store *sqlite.Store

	mu    sync.Mutex
	byKey map[string]*hotEntry
}

// New wraps store's cold fingerprint_cache table with an in-memory hot set.
func New(store *sqlite.Store) *Cache {
	return &Cache{
		store: store,
		byKey: make(map[string]*hotEntry, hotListSize),
	}
}

// Warm loads the most-recently-used cold records into the hot set.
func (c *Cache) Warm(ctx context.Context) error {
	recs, err := c.store.CacheWarmSet(ctx, hotListSize)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range recs {
		c.insertLocked(rec)
	}
	return nil
}

// Find returns the best hot-set match for fp whose similarity meets
// matchThreshold, if any. On a hit, the matched entry's hit-count and
// last-used are bumped in the hot set immediately; the caller is still
// responsible for calling RecordHit to keep the cold table in step.
func (c *Cache) Find(fp domain.Fingerprint) (domain.QueryPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var best *hotEntry
	var bestScore float32
	for _, he := range c.byKey {
		score := Similarity(fp, he.rec.Fingerprint)
		if score > bestScore {
			bestScore = score
			best = he
		}
	}
	if best == nil || bestScore < matchThreshold {
		return domain.QueryPlan{}, false
	}
	best.rec.HitCount++
	best.rec.LastUsed = time.Now().Unix()
	return best.rec.Plan, true
}

// RecordHit bumps the cold table's hit counter for query; the caller
// already resolved the hit via Find.
func (c *Cache) RecordHit(ctx context.Context, query string) error {
	return c.store.CacheRecordHit(ctx, query)
}

// Insert admits a new (query, fingerprint, plan) into both the hot set
// and the cold table, evicting the hot set's least (hit-count, last-used)
// entry if at capacity.
func (c *Cache) Insert(ctx context.Context, query string, fp domain.Fingerprint, plan domain.QueryPlan) error {
	rec := domain.CacheRecord{Query: query, Fingerprint: fp, Plan: plan, HitCount: 1, LastUsed: time.Now().Unix()}
	if err := c.store.CacheUpsert(ctx, rec); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.insertLocked(rec)
	return nil
}

// insertLocked requires c.mu held.
func (c *Cache) insertLocked(rec domain.CacheRecord) {
	if he, exists := c.byKey[rec.Query]; exists {
		he.rec = rec
		return
	}
	if len(c.byKey) >= hotListSize {
		c.evictLocked()
	}
	c.byKey[rec.Query] = &hotEntry{query: rec.Query, rec: rec}
}

// evictLocked removes the entry with the lowest (hit-count, last-used)
// pair, requires c.mu held.
func (c *Cache) evictLocked() {
	var victim *hotEntry
	for _, he := range c.byKey {
		if victim == nil ||
			he.rec.HitCount < victim.rec.HitCount ||
			(he.rec.HitCount == victim.rec.HitCount && he.rec.LastUsed < victim.rec.LastUsed) {
			victim = he
		}
	}
	if victim != nil {
		delete(c.byKey, victim.query)
	}
}
