package retrieval

import (
	"context"

	"github.com/loomware/memstate/pkg/embeddings"
	"github.com/loomware/memstate/pkg/llmcap"
	"github.com/loomware/memstate/pkg/storage"
)

// Service picks between the simple and LLM-expanded variants per
// deployment configuration (spec.md §6 "use_retrieval_expand").
type Service struct {
	simple   *Simple
	expanded *Expanded
	useExpand bool
}

// New builds a Service. caller may be nil; when it is, or when useExpand
// is false, every Search call uses the simple variant regardless of mode.
func New(store storage.Driver, embedder embeddings.Embedder, caller llmcap.Caller, useExpand bool) *Service {
	return &Service{
		simple:    NewSimple(store, embedder),
		expanded:  NewExpanded(store, embedder, caller),
		useExpand: useExpand && caller != nil,
	}
}

// Search dispatches to whichever variant is active for this deployment.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	if s.useExpand {
		return s.expanded.Search(ctx, req)
	}
	return s.simple.Search(ctx, req)
}
