package sqlite

import (
	"context"
	"sort"
	"sync"
)

// vecIndex is an in-memory cache of entry embeddings that avoids SQLite
// I/O on every dense search. Loaded lazily on first use, updated
// incrementally on insert/delete. Grounded on the teacher's vecIndex.
type vecIndex struct {
	mu      sync.RWMutex
	entries map[int64][]float32
	loaded  bool
}

func newVecIndex() *vecIndex {
	return &vecIndex{entries: make(map[int64][]float32)}
}

type vecHit struct {
	id    int64
	score float32
}

// search returns entry ids ranked by cosine similarity to queryVec,
// highest first, truncated to limit. Returns nil if not yet loaded.
func (idx *vecIndex) search(queryVec []float32, limit int) []vecHit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.loaded {
		return nil
	}

	hits := make([]vecHit, 0, len(idx.entries))
	for id, emb := range idx.entries {
		sim := CosineSimilarity(queryVec, emb)
		if sim <= 0 {
			continue
		}
		hits = append(hits, vecHit{id: id, score: sim})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (idx *vecIndex) put(id int64, emb []float32) {
	if emb == nil {
		return
	}
	idx.mu.Lock()
	idx.entries[id] = emb
	idx.mu.Unlock()
}

func (idx *vecIndex) remove(id int64) {
	idx.mu.Lock()
	delete(idx.entries, id)
	idx.mu.Unlock()
}

func (idx *vecIndex) isLoaded() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.loaded
}

func (idx *vecIndex) size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// loadFromDB populates the index from the entries table. Safe to call
// concurrently; only the first caller actually loads.
func (idx *vecIndex) loadFromDB(ctx context.Context, s *Store) error {
	idx.mu.Lock()
	if idx.loaded {
		idx.mu.Unlock()
		return nil
	}
	idx.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM entries WHERE embedding IS NOT NULL ORDER BY timestamp DESC LIMIT 1000`)
	if err != nil {
		return err
	}
	defer rows.Close()

	entries := make(map[int64][]float32)
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			continue
		}
		if emb := bytesToFloat32(blob); emb != nil {
			entries[id] = emb
		}
	}

	idx.mu.Lock()
	idx.entries = entries
	idx.loaded = true
	idx.mu.Unlock()

	return rows.Err()
}
