package planner

import (
	"context"
	"log/slog"
	"strings"

	"jotx/internal/cache"
	"jotx/internal/domain"
)

// Decision is the outcome of Plan: exactly one of Answer, DirectTerm, or
// Plan is meaningful, selected by Intent and which tier resolved it.
type Decision struct {
	Intent domain.Intent
	// Answer holds the model's direct response to a knowledge query.
	Answer string
	// DirectTerm is set when the query was too short to plan (tier 1):
	// the executor should run a single-term lexical search on it.
	DirectTerm string
	// Plan is set for tier 2 (cache hit) and tier 3 (model interpret).
	Plan domain.QueryPlan
	// FromCache reports whether Plan came from the fingerprint cache.
	FromCache bool
}

// SampleSource supplies candidate entries for tier-3 exemplar selection;
// the caller (usecase layer) owns the store query, the planner only ranks
// and diverse-filters what it's given.
type SampleSource func(ctx context.Context, limit int) ([]domain.Entry, error)

// Planner implements the three-tier retrieval dispatch: direct lexical
// search for trivial queries, the fingerprint cache, and the LLM
// interpreter as a last resort.
type Planner struct {
	llm   domain.LLMClient
	cache *cache.Cache
	embed domain.TryEmbedder
	log   *slog.Logger
}

// New builds a Planner. embed may be nil, in which case tier 2 is always
// skipped (consistent with "if C1 is busy or fails, skip this tier").
func New(llm domain.LLMClient, c *cache.Cache, embed domain.TryEmbedder, log *slog.Logger) *Planner {
	return &Planner{llm: llm, cache: c, embed: embed, log: log}
}

// Plan resolves query into a Decision. corpusSize and samples feed the
// tier-3 adaptive exemplar selection; samples is only invoked if tier 3 is
// actually reached.
func (p *Planner) Plan(ctx context.Context, query, directory string, corpusSize int, samples SampleSource) (Decision, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Decision{}, domain.NewError("planner.plan", domain.KindInvalidInput, "empty query")
	}

	intent := ClassifyIntent(trimmed)
	if intent == domain.IntentKnowledge {
		answer, err := p.llm.Answer(ctx, trimmed)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Intent: intent, Answer: answer}, nil
	}

	if len(strings.Fields(trimmed)) <= 1 {
		return Decision{Intent: intent, DirectTerm: trimmed}, nil
	}

	if plan, ok := p.tryCache(ctx, trimmed); ok {
		return Decision{Intent: intent, Plan: plan, FromCache: true}, nil
	}

	return p.tryInterpret(ctx, trimmed, directory, corpusSize, samples, intent)
}

// tryCache attempts tier 2. Any failure (busy encoder, cache miss) simply
// returns ok=false; it never surfaces an error, per §4.6.
func (p *Planner) tryCache(ctx context.Context, query string) (domain.QueryPlan, bool) {
	if p.embed == nil {
		return domain.QueryPlan{}, false
	}
	vec, ok, err := p.embed.TryEmbed(ctx, query)
	if !ok || err != nil {
		if err != nil {
			p.log.Debug("fingerprint embed skipped", "error", err)
		}
		return domain.QueryPlan{}, false
	}

	fp := cache.BuildFingerprint(query, vec)
	plan, hit := p.cache.Find(fp)
	if !hit {
		return domain.QueryPlan{}, false
	}
	if err := p.cache.RecordHit(ctx, query); err != nil {
		p.log.Debug("fingerprint cache hit not recorded", "error", err)
	}
	return plan, true
}

// tryInterpret runs tier 3: select exemplars, call the model, cache the
// resulting plan. A model timeout degrades to a direct lexical search
// rather than surfacing, per §5's cancellation policy; any other error
// surfaces to the caller.
func (p *Planner) tryInterpret(ctx context.Context, query, directory string, corpusSize int, samples SampleSource, intent domain.Intent) (Decision, error) {
	sz := detectModelSize(p.llm.ModelName())
	n := sampleCount(sz)

	var exemplars []domain.Entry
	if samples != nil {
		candidates, err := samples(ctx, n*4)
		if err != nil {
			p.log.Debug("sample fetch failed, interpreting without exemplars", "error", err)
		} else {
			var queryVec []float32
			if p.embed != nil {
				if vec, ok, embErr := p.embed.TryEmbed(ctx, query); ok && embErr == nil {
					queryVec = vec
				}
			}
			exemplars = SelectSamples(queryVec, candidates, n, corpusSize)
		}
	}

	plan, err := p.llm.Interpret(ctx, query, directory, exemplars)
	if err != nil {
		if kind, ok := domain.KindOf(err); ok && kind == domain.KindTimeout {
			return Decision{Intent: intent, DirectTerm: query}, nil
		}
		return Decision{}, err
	}

	if p.embed != nil {
		if vec, ok, embErr := p.embed.TryEmbed(ctx, query); ok && embErr == nil {
			fp := cache.BuildFingerprint(query, vec)
			if cacheErr := p.cache.Insert(ctx, query, fp, plan); cacheErr != nil {
				p.log.Debug("plan cache insert failed", "error", cacheErr)
			}
		}
	}

	return Decision{Intent: intent, Plan: plan}, nil
}
