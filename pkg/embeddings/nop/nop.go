// Package nop is the "none" embedding provider: it always returns an
// empty vector. Deployments with no embedder API key configured wire
// this in so write paths proceed and retrieval degrades to lexical-only,
// per spec.md §6 ("Embedder API key absent → embedder always returns
// empty").
package nop

import "context"

// Embedder is a no-op embeddings.Embedder.
type Embedder struct{}

// NewEmbedder returns a no-op embedder.
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// Embed always returns an empty vector and a nil error — embedding
// absence is communicated through the zero-length slice, not an error,
// so callers need no special-casing beyond checking len() == 0.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}
