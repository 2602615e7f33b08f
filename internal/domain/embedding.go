package domain

import "context"

// EmbeddingProvider is the interface for text embedding backends.
type EmbeddingProvider interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the dimensionality of the embedding vectors.
	Dimensions() int
	// Name returns the provider's identifier (e.g., "openai", "gemini").
	Name() string
}

// TryEmbedder is an optional capability of an EmbeddingProvider: a
// non-blocking single-text embed used by the fingerprint tier, which
// must skip rather than wait when the encoder is busy.
type TryEmbedder interface {
	// TryEmbed returns ok=false immediately (instead of blocking) if the
	// encoder is currently serving another call.
	TryEmbed(ctx context.Context, text string) (vec []float32, ok bool, err error)
}
