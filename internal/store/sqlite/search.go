package sqlite

import (
	"context"
	"fmt"
	"strings"

	"jotx/internal/domain"
)

// SingleTermSearch is the §4.7 "lexical single-term path": FTS prefix
// match for queries of length ≥ 3, LIKE for shorter ones; kind=shell;
// ordered by an exact working-dir match first, then times_run DESC, then
// timestamp DESC; capped at 50 rows (the caller re-scores and truncates
// to 20).
func (s *Store) SingleTermSearch(ctx context.Context, term, ctxDir string) ([]domain.Entry, error) {
	if len(term) >= 3 {
		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT %s FROM entries e
			JOIN entries_fts f ON f.rowid = e.id
			WHERE e.kind = 'shell' AND entries_fts MATCH ?
			ORDER BY (e.working_dir = ?) DESC, e.times_run DESC, e.timestamp DESC
			LIMIT 50`, prefixed(entryColumns, "e.")),
			ftsPrefix(term), ctxDir)
		if err != nil {
			// FTS5 syntax error on odd input — fall back to LIKE.
			return s.likeTermSearch(ctx, term, ctxDir)
		}
		defer rows.Close()
		return scanEntries(rows)
	}
	return s.likeTermSearch(ctx, term, ctxDir)
}

func (s *Store) likeTermSearch(ctx context.Context, term, ctxDir string) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM entries
		WHERE kind = 'shell' AND content LIKE ?
		ORDER BY (working_dir = ?) DESC, times_run DESC, timestamp DESC
		LIMIT 50`, entryColumns),
		"%"+term+"%", ctxDir)
	if err != nil {
		return nil, domain.WrapOp("store.like_search", domain.KindStorage, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// PlannedSearch is the §4.7 "lexical planned path": FTS OR-of-prefixes
// over plan keywords (empty keywords → match-all), optional kind filter,
// time-range and working-directory boosts folded into the ORDER BY,
// capped at 50 rows.
func (s *Store) PlannedSearch(ctx context.Context, plan domain.QueryPlan, ctxDir string) ([]domain.Entry, error) {
	ftsQuery := "*"
	if len(plan.Keywords) > 0 {
		parts := make([]string, len(plan.Keywords))
		for i, kw := range plan.Keywords {
			parts[i] = ftsPrefix(kw)
		}
		ftsQuery = strings.Join(parts, " OR ")
	}

	where := []string{"entries_fts MATCH ?"}
	args := []any{ftsQuery}
	if plan.Kind != "" {
		where = append(where, "e.kind = ?")
		args = append(args, string(plan.Kind))
	}

	timeBoost := "0"
	if plan.TimeRange.Kind != domain.TimeRangeNone {
		timeBoost = fmt.Sprintf(
			`CASE WHEN e.timestamp BETWEEN %d AND %d THEN 50
			      WHEN e.timestamp BETWEEN %d AND %d THEN 25
			      ELSE 0 END`,
			plan.TimeRange.Start, plan.TimeRange.End,
			plan.TimeRange.Start-86400, plan.TimeRange.End+86400)
	}

	dirBoost := "0"
	if plan.Filters.WorkingDir != "" {
		dirBoost = "CASE WHEN e.working_dir = ? THEN 15 " +
			"WHEN e.working_dir LIKE ? OR ? LIKE (e.working_dir || '%') THEN 8 ELSE 0 END"
		args = append(args, plan.Filters.WorkingDir, plan.Filters.WorkingDir+"%", plan.Filters.WorkingDir)
	} else if ctxDir != "" {
		dirBoost = "CASE WHEN e.working_dir = ? THEN 15 ELSE 0 END"
		args = append(args, ctxDir)
	}

	query := fmt.Sprintf(`
		SELECT %s, (%s) + (%s) AS boost FROM entries e
		JOIN entries_fts f ON f.rowid = e.id
		WHERE %s
		ORDER BY boost DESC, e.times_run DESC, e.timestamp DESC
		LIMIT 50`, prefixed(entryColumns, "e."), timeBoost, dirBoost, strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.WrapOp("store.planned_search", domain.KindStorage, err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var kind string
		var embBlob []byte
		var boost float64
		if err := rows.Scan(
			&e.ID, &kind, &e.Content, &e.Timestamp, &e.TimesRun,
			&e.WorkingDir, &e.User, &e.Host, &e.AppName, &e.WindowTitle,
			&e.GitRepo, &e.GitBranch, &embBlob, &e.CreatedAt, &e.UpdatedAt, &boost,
		); err != nil {
			continue
		}
		e.Kind = domain.EntryKind(kind)
		if embBlob != nil {
			e.Embedding = bytesToFloat32(embBlob)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DenseSearch embeds nothing itself — it takes a precomputed query
// vector and returns entries above threshold, preferring the in-memory
// vector index and falling back to a scan of up to 1000 most-recent
// embedded entries.
func (s *Store) DenseSearch(ctx context.Context, queryVec []float32, threshold float32, limit int) ([]domain.SearchResult, error) {
	if !s.vecIdx.isLoaded() {
		if err := s.vecIdx.loadFromDB(ctx, s); err != nil {
			s.logger.Warn("dense search: vec index load failed, scanning", "error", err)
			return s.denseScan(ctx, queryVec, threshold, limit)
		}
	}

	hits := s.vecIdx.search(queryVec, limit*4) // overfetch before threshold filter
	if hits == nil {
		return s.denseScan(ctx, queryVec, threshold, limit)
	}

	var out []domain.SearchResult
	for _, h := range hits {
		if h.score <= threshold {
			continue
		}
		e, err := s.getEntry(ctx, h.id)
		if err != nil {
			continue
		}
		out = append(out, domain.SearchResult{Entry: e, Score: float64(h.score)})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) denseScan(ctx context.Context, queryVec []float32, threshold float32, limit int) ([]domain.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM entries WHERE embedding IS NOT NULL
		ORDER BY timestamp DESC LIMIT 1000`, entryColumns))
	if err != nil {
		return nil, domain.WrapOp("store.dense_scan", domain.KindStorage, err)
	}
	defer rows.Close()

	var out []domain.SearchResult
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			continue
		}
		sim := CosineSimilarity(queryVec, e.Embedding)
		if float32(sim) <= threshold {
			continue
		}
		out = append(out, domain.SearchResult{Entry: e, Score: float64(sim)})
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	sortResultsDesc(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) getEntry(ctx context.Context, id int64) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT %s FROM entries WHERE id = ?", entryColumns), id)
	return scanEntry(row)
}

func scanEntries(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]domain.Entry, error) {
	var out []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func sortResultsDesc(rs []domain.SearchResult) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && rs[j].Score > rs[j-1].Score; j-- {
			rs[j], rs[j-1] = rs[j-1], rs[j]
		}
	}
}

// ftsPrefix sanitizes a term into an FTS5 prefix-match token: `term*`.
// FTS5 special characters are stripped since keywords here are plain
// lowercased words, never user-controlled query syntax.
func ftsPrefix(term string) string {
	var b strings.Builder
	for _, r := range term {
		if r == '"' || r == '*' || r == ':' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String() + "*"
}

// prefixed rewrites a comma-separated column list to carry a table prefix.
func prefixed(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
