package retrieval

import (
	"context"

	"github.com/loomware/memstate/pkg/embeddings"
	"github.com/loomware/memstate/pkg/memory"
	"github.com/loomware/memstate/pkg/storage"
)

// Simple implements the single-embedding, single-search variant.
type Simple struct {
	store    storage.Driver
	embedder embeddings.Embedder
}

// NewSimple builds a Simple retriever.
func NewSimple(store storage.Driver, embedder embeddings.Embedder) *Simple {
	return &Simple{store: store, embedder: embedder}
}

// Search embeds the query best-effort, runs one SearchMemories call, and
// returns results tagged mode=simple.
func (s *Simple) Search(ctx context.Context, req Request) (Result, error) {
	if req.Query == "" {
		return Result{Memories: []memory.Scored{}, Mode: ModeSimple, UsedQueries: []string{}, Predicates: []string{}}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	var vec []float32
	if s.embedder != nil {
		if v, err := s.embedder.Embed(ctx, req.Query); err == nil {
			vec = v
		}
	}

	rows, err := s.store.SearchMemories(ctx, storage.SearchMemoriesParams{
		ProjectID:      req.ProjectID,
		SubjectID:      req.SubjectID,
		Query:          req.Query,
		QueryEmbedding: vec,
		Limit:          limit,
		MinScore:       req.MinScore,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Memories:    rows,
		Mode:        ModeSimple,
		UsedQueries: []string{req.Query},
		Predicates:  []string{},
	}, nil
}
