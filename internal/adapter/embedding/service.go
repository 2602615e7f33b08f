package embedding

import (
	"context"
	"sync"

	"jotx/internal/domain"
)

// Service is the C1 embedding singleton: one inner encoder instance with
// serialized access. At most one in-flight call; TryEmbed gives the
// fingerprint-builder tier a non-blocking attempt that fails fast
// (domain.ErrUnavailable) instead of waiting for a concurrent call.
type Service struct {
	inner domain.EmbeddingProvider
	mu    sync.Mutex
}

// New wraps inner (typically an LRU-cached OllamaProvider) as the
// process-wide singleton embedding service.
func New(inner domain.EmbeddingProvider) *Service {
	return &Service{inner: inner}
}

// Embed blocks until the encoder is free, then embeds texts.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Embed(ctx, texts)
}

// TryEmbed returns ok=false immediately if another call is in flight,
// rather than blocking — the contract the planner's tier-2 fingerprint
// build relies on to skip gracefully when the encoder is busy.
func (s *Service) TryEmbed(ctx context.Context, text string) ([]float32, bool, error) {
	if !s.mu.TryLock() {
		return nil, false, nil
	}
	defer s.mu.Unlock()

	vecs, err := s.inner.Embed(ctx, []string{text})
	if err != nil {
		return nil, true, domain.WrapOp("embedding_service.try_embed", domain.KindUnavailable, err)
	}
	if len(vecs) == 0 {
		return nil, true, domain.NewError("embedding_service.try_embed", domain.KindUnavailable, "empty output")
	}
	return vecs[0], true, nil
}

func (s *Service) Dimensions() int { return s.inner.Dimensions() }
func (s *Service) Name() string    { return s.inner.Name() }

var (
	_ domain.EmbeddingProvider = (*Service)(nil)
	_ domain.TryEmbedder       = (*Service)(nil)
)
