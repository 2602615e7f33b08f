package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"jotx/internal/domain"
	"jotx/internal/store/sqlite"
)

// PluginHub is the C8 post-processing seam: dispatches on_search_after
// across registered plugins, letting them reorder, drop, or replace rows.
// Plugin failures are the hub's concern (logged, treated as Continue);
// the executor only consumes the final list.
type PluginHub interface {
	DispatchSearchAfter(ctx context.Context, query string, results []domain.SearchResult) ([]domain.SearchResult, error)
}

// Executor runs the three search paths described in §4.7 against a
// sqlite.Store, re-scoring and finishing (dedup, truncate, post-process)
// each one the same way.
type Executor struct {
	store     *sqlite.Store
	embed     domain.EmbeddingProvider
	hub       PluginHub
	threshold float32
	log       *slog.Logger
	now       func() time.Time
}

// New builds an Executor. embed may be nil if dense search is never
// requested; hub may be nil to skip post-processing entirely.
func New(store *sqlite.Store, embed domain.EmbeddingProvider, hub PluginHub, threshold float32, log *slog.Logger) *Executor {
	return &Executor{store: store, embed: embed, hub: hub, threshold: threshold, log: log, now: time.Now}
}

// DirectSearch is the tier-1 single-term lexical path.
func (x *Executor) DirectSearch(ctx context.Context, term, ctxDir string) ([]domain.SearchResult, error) {
	entries, err := x.store.SingleTermSearch(ctx, term, ctxDir)
	if err != nil {
		return nil, err
	}
	return x.postProcess(ctx, term, rescore(entries, term, ctxDir))
}

// PlannedSearch dispatches a resolved plan to either the lexical planned
// path or the dense path, per plan.UseSemantic.
func (x *Executor) PlannedSearch(ctx context.Context, plan domain.QueryPlan, ctxDir string) ([]domain.SearchResult, error) {
	plan.TimeRange = ResolveTimeRange(plan.TimeRange, x.now())
	queryText := strings.Join(plan.Keywords, " ")

	if plan.UseSemantic {
		return x.denseSearch(ctx, queryText, plan, ctxDir)
	}

	entries, err := x.store.PlannedSearch(ctx, plan, ctxDir)
	if err != nil {
		return nil, err
	}
	return x.postProcess(ctx, queryText, rescore(entries, queryText, ctxDir))
}

func (x *Executor) denseSearch(ctx context.Context, queryText string, plan domain.QueryPlan, ctxDir string) ([]domain.SearchResult, error) {
	if x.embed == nil {
		return nil, domain.NewError("search.dense", domain.KindUnavailable, "no embedding provider configured")
	}
	vecs, err := x.embed.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, domain.WrapOp("search.dense_embed", domain.KindUnavailable, err)
	}
	if len(vecs) == 0 {
		return nil, domain.NewError("search.dense_embed", domain.KindUnavailable, "empty embedding result")
	}

	threshold := x.threshold
	if threshold <= 0 {
		threshold = 0.5
	}
	results, err := x.store.DenseSearch(ctx, vecs[0], threshold, maxResults)
	if err != nil {
		return nil, err
	}
	return x.postProcess(ctx, queryText, finalize(results))
}

// rescore applies RelevanceScore + FrequencyBonus to each lexical-path
// row, reordering on the recomputed scalar score.
func rescore(entries []domain.Entry, query, ctxDir string) []domain.SearchResult {
	out := make([]domain.SearchResult, len(entries))
	for i, e := range entries {
		score := RelevanceScore(e.Content, query, e.WorkingDir, ctxDir) + FrequencyBonus(e.TimesRun)
		out[i] = domain.SearchResult{Entry: e, Score: score}
	}
	return finalize(out)
}

// finalize sorts by score descending, dedups by content (keeping the
// highest-scoring occurrence), and truncates to maxResults.
func finalize(results []domain.SearchResult) []domain.SearchResult {
	sortDesc(results)
	deduped := dedupByContent(results)
	if len(deduped) > maxResults {
		deduped = deduped[:maxResults]
	}
	return deduped
}

func sortDesc(rs []domain.SearchResult) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && rs[j].Score > rs[j-1].Score; j-- {
			rs[j], rs[j-1] = rs[j-1], rs[j]
		}
	}
}

func dedupByContent(results []domain.SearchResult) []domain.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Entry.Content]; ok {
			continue
		}
		seen[r.Entry.Content] = struct{}{}
		out = append(out, r)
	}
	return out
}

func (x *Executor) postProcess(ctx context.Context, query string, results []domain.SearchResult) ([]domain.SearchResult, error) {
	if x.hub == nil {
		return results, nil
	}
	out, err := x.hub.DispatchSearchAfter(ctx, query, results)
	if err != nil {
		x.log.Warn("search post-process hook failed, keeping unmodified results", "error", err)
		return results, nil
	}
	return out, nil
}
