package retrieval

import (
	"context"
	"sort"

	"github.com/loomware/memstate/pkg/embeddings"
	"github.com/loomware/memstate/pkg/llmcap"
	"github.com/loomware/memstate/pkg/memory"
	"github.com/loomware/memstate/pkg/storage"
)

// Expanded implements the classify → dispatch → rerank pipeline (spec.md
// §4.D "LLM-expanded variant"). It is only wired in when an LLM capability
// is configured and retrieval expansion is enabled for the deployment.
type Expanded struct {
	store    storage.Driver
	embedder embeddings.Embedder
	caller   llmcap.Caller
}

// NewExpanded builds an Expanded retriever.
func NewExpanded(store storage.Driver, embedder embeddings.Embedder, caller llmcap.Caller) *Expanded {
	return &Expanded{store: store, embedder: embedder, caller: caller}
}

// Search classifies the query, dispatches to the mode-specific strategy,
// and reranks when the dispatch step calls for it.
func (e *Expanded) Search(ctx context.Context, req Request) (Result, error) {
	if req.Query == "" {
		return Result{Memories: []memory.Scored{}, Mode: ModeIndirect, UsedQueries: []string{}, Predicates: []string{}}, nil
	}

	c := classify(ctx, e.caller, req.Query, req.ConversationContext)

	switch c.Mode {
	case ModeBroad:
		return e.dispatchBroad(ctx, req)
	case ModeDirect:
		return e.dispatchDirect(ctx, req, c)
	default:
		return e.dispatchIndirect(ctx, req, c)
	}
}

func effectiveLimit(req Request) int {
	if req.Limit > 0 {
		return req.Limit
	}
	return DefaultSearchLimit
}

func (e *Expanded) dispatchBroad(ctx context.Context, req Request) (Result, error) {
	limit := effectiveLimit(req)
	listLimit := limit * 3
	if listLimit > MaxSearchLimit {
		listLimit = MaxSearchLimit
	}

	rows, err := e.store.ListMemories(ctx, storage.ListMemoriesParams{
		ProjectID:         req.ProjectID,
		SubjectID:         req.SubjectID,
		Limit:             listLimit,
		IncludeDeleted:    false,
		IncludeSuperseded: false,
	})
	if err != nil {
		return Result{}, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Importance != rows[j].Importance {
			return rows[i].Importance > rows[j].Importance
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	truncateAt := limit
	if truncateAt < 20 {
		truncateAt = 20
	}
	if truncateAt > len(rows) {
		truncateAt = len(rows)
	}
	rows = rows[:truncateAt]

	out := make([]memory.Scored, len(rows))
	for i, m := range rows {
		out[i] = memory.Scored{Memory: m, Score: 100, EffectiveScore: float64(m.Importance)}
	}

	return Result{
		Memories:    out,
		Mode:        ModeBroad,
		UsedQueries: []string{req.Query},
		Predicates:  []string{},
	}, nil
}

func (e *Expanded) dispatchDirect(ctx context.Context, req Request, c Classification) (Result, error) {
	limit := effectiveLimit(req)
	querySet := capStrings(dedupeQueries(append([]string{req.Query}, c.SearchHints...)), QuerySetCap)

	candidates := e.searchQuerySet(ctx, req, querySet, limit)

	var claimBacked []memory.Scored
	if len(c.Predicates) > 0 {
		claimBacked = e.claimBackedCandidates(ctx, req.ProjectID, req.SubjectID, c.Predicates)
		mergeKeepMax(candidates, claimBacked)
	}

	ranked := mapValuesSortedByEffectiveDesc(candidates)
	topK := limit
	if topK > 5 {
		topK = 5
	}

	var final []memory.Scored
	switch {
	case len(claimBacked) > 0:
		final = takeTop(ranked, topK)
	case len(ranked) > limit:
		final = rerank(ctx, e.caller, req.Query, ranked, topK)
	default:
		final = takeTop(ranked, topK)
	}

	return Result{Memories: final, Mode: ModeDirect, UsedQueries: querySet, Predicates: c.Predicates}, nil
}

func (e *Expanded) dispatchIndirect(ctx context.Context, req Request, c Classification) (Result, error) {
	limit := effectiveLimit(req)
	querySet := capStrings(dedupeQueries(append(append([]string{req.Query}, c.SearchHints...), c.ExpandedQueries...)), QuerySetCap)

	candidates := e.searchQuerySet(ctx, req, querySet, limit)
	ranked := mapValuesSortedByEffectiveDesc(candidates)

	var final []memory.Scored
	if len(ranked) > limit {
		final = rerank(ctx, e.caller, req.Query, ranked, limit)
	} else {
		final = takeTop(ranked, limit)
	}

	return Result{Memories: final, Mode: ModeIndirect, UsedQueries: querySet, Predicates: c.Predicates}, nil
}

// searchQuerySet runs SearchMemories once per query in order, applying a
// rank-position penalty to each result before merging by memory id and
// keeping the highest-effective-score variant (spec.md §4.D step 2).
func (e *Expanded) searchQuerySet(ctx context.Context, req Request, querySet []string, limit int) map[string]memory.Scored {
	searchLimit := limit * 2
	if searchLimit > MaxSearchLimit {
		searchLimit = MaxSearchLimit
	}

	acc := make(map[string]memory.Scored)
	for _, q := range querySet {
		var vec []float32
		if e.embedder != nil {
			if v, err := e.embedder.Embed(ctx, q); err == nil {
				vec = v
			}
		}
		rows, err := e.store.SearchMemories(ctx, storage.SearchMemoriesParams{
			ProjectID:      req.ProjectID,
			SubjectID:      req.SubjectID,
			Query:          q,
			QueryEmbedding: vec,
			Limit:          searchLimit,
			MinScore:       req.MinScore,
		})
		if err != nil {
			continue
		}
		mergeKeepMax(acc, applyRankPenalty(rows))
	}
	return acc
}

func (e *Expanded) claimBackedCandidates(ctx context.Context, projectID, subjectID string, predicates []string) []memory.Scored {
	slots, err := e.store.GetCurrentTruth(ctx, projectID, subjectID, true)
	if err != nil {
		return nil
	}

	predSet := make(map[string]bool, len(predicates))
	for _, p := range predicates {
		predSet[p] = true
	}

	var out []memory.Scored
	for _, slot := range slots {
		if slot.ActiveClaimID == nil {
			continue
		}
		detail, err := e.store.GetClaim(ctx, projectID, *slot.ActiveClaimID)
		if err != nil {
			continue
		}
		c := detail.Claim
		if !predSet[c.Predicate] || c.SourceMemoryID == nil {
			continue
		}
		m, err := e.store.GetMemory(ctx, projectID, *c.SourceMemoryID)
		if err != nil || m.IsDeleted || m.Status != memory.StatusActive {
			continue
		}
		out = append(out, memory.Scored{Memory: m, Score: 100, EffectiveScore: 120})
	}
	return out
}

func dedupeQueries(qs []string) []string {
	seen := make(map[string]bool, len(qs))
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}

func applyRankPenalty(rows []memory.Scored) []memory.Scored {
	out := make([]memory.Scored, len(rows))
	for i, r := range rows {
		factor := 1 - 0.03*float64(i)
		r.EffectiveScore *= factor
		out[i] = r
	}
	return out
}

func mergeKeepMax(acc map[string]memory.Scored, rows []memory.Scored) {
	for _, r := range rows {
		existing, ok := acc[r.ID]
		if !ok || r.EffectiveScore > existing.EffectiveScore {
			acc[r.ID] = r
		}
	}
}

func mapValuesSortedByEffectiveDesc(acc map[string]memory.Scored) []memory.Scored {
	out := make([]memory.Scored, 0, len(acc))
	for _, v := range acc {
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveScore > out[j].EffectiveScore
	})
	return out
}

func takeTop(rows []memory.Scored, n int) []memory.Scored {
	if n > len(rows) {
		n = len(rows)
	}
	return rows[:n]
}
