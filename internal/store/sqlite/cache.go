package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"jotx/internal/domain"
)

// fingerprintJSON / planJSON are the wire shapes persisted in the cold
// table; kept separate from domain.Fingerprint/domain.QueryPlan so the
// on-disk format doesn't need to track every in-memory representation
// detail (e.g. the keyword set, which is a map in memory).
type fingerprintJSON struct {
	Query     string        `json:"query"`
	Keywords  []string      `json:"keywords"`
	Temporal  string        `json:"temporal"`
	Embedding []float32     `json:"embedding"`
}

func toFingerprintJSON(fp domain.Fingerprint) fingerprintJSON {
	kws := make([]string, 0, len(fp.Keywords))
	for k := range fp.Keywords {
		kws = append(kws, k)
	}
	return fingerprintJSON{
		Query:     fp.Query,
		Keywords:  kws,
		Temporal:  string(fp.Temporal),
		Embedding: fp.Embedding,
	}
}

func (f fingerprintJSON) toDomain() domain.Fingerprint {
	set := make(map[string]struct{}, len(f.Keywords))
	for _, k := range f.Keywords {
		set[k] = struct{}{}
	}
	return domain.Fingerprint{
		Query:     f.Query,
		Keywords:  set,
		Temporal:  domain.TimeRangeKind(f.Temporal),
		Embedding: f.Embedding,
	}
}

// CacheUpsert inserts or replaces a cold cache row by query. Used on tier-3
// admission (hit_count=1, last_used=now) and is idempotent: inserting the
// same (query, fingerprint, plan) twice leaves one record whose last_used
// is the later timestamp.
func (s *Store) CacheUpsert(ctx context.Context, rec domain.CacheRecord) error {
	fpJSON, err := json.Marshal(toFingerprintJSON(rec.Fingerprint))
	if err != nil {
		return domain.WrapOp("store.cache_upsert", domain.KindStorage, err)
	}
	planJSON, err := json.Marshal(rec.Plan)
	if err != nil {
		return domain.WrapOp("store.cache_upsert", domain.KindStorage, err)
	}
	now := time.Now().Unix()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fingerprint_cache (query, fingerprint_json, plan_json, hit_count, last_used, created_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(query) DO UPDATE SET
			fingerprint_json = excluded.fingerprint_json,
			plan_json        = excluded.plan_json,
			last_used        = excluded.last_used
	`, rec.Query, string(fpJSON), string(planJSON), now, now)
	if err != nil {
		return domain.WrapOp("store.cache_upsert", domain.KindStorage, err)
	}
	return nil
}

// CacheRecordHit bumps hit_count and last_used for an existing row.
func (s *Store) CacheRecordHit(ctx context.Context, query string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE fingerprint_cache SET hit_count = hit_count + 1, last_used = ? WHERE query = ?`,
		time.Now().Unix(), query)
	if err != nil {
		return domain.WrapOp("store.cache_record_hit", domain.KindStorage, err)
	}
	return nil
}

// CacheWarmSet loads the top-N cold rows by last_used DESC, used to warm
// the in-memory hot list on startup.
func (s *Store) CacheWarmSet(ctx context.Context, n int) ([]domain.CacheRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, fingerprint_json, plan_json, hit_count, last_used, created_at
		 FROM fingerprint_cache ORDER BY last_used DESC LIMIT ?`, n)
	if err != nil {
		return nil, domain.WrapOp("store.cache_warm_set", domain.KindStorage, err)
	}
	defer rows.Close()

	var out []domain.CacheRecord
	for rows.Next() {
		var rec domain.CacheRecord
		var fpJSON, planJSON string
		if err := rows.Scan(&rec.Query, &fpJSON, &planJSON, &rec.HitCount, &rec.LastUsed, &rec.CreatedAt); err != nil {
			continue
		}
		var fpw fingerprintJSON
		if err := json.Unmarshal([]byte(fpJSON), &fpw); err != nil {
			continue
		}
		rec.Fingerprint = fpw.toDomain()
		if err := json.Unmarshal([]byte(planJSON), &rec.Plan); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
