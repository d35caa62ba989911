package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/loomware/memstate/pkg/llmcap"
	"github.com/loomware/memstate/pkg/memory"
)

const minRerankTextLen = 10

const rerankSystemPrompt = `Rank the documents below by relevance to the query. Respond with JSON only:

{"results":[{"index":int,"relevant":bool,"score":0-1}]}

index refers to the 0-based position of the document in the list. Include an
entry for every document you consider relevant; omit ones that aren't.`

type rerankItem struct {
	Index    int     `json:"index"`
	Relevant bool    `json:"relevant"`
	Score    float64 `json:"score"`
}

type rerankResponse struct {
	Results []rerankItem `json:"results"`
}

// rerank filters candidates to those with sufficiently long memory text,
// and — when the filtered set is larger than topK — asks the LLM to rank
// them, falling back to the first topK of the filtered set on any failure
// (spec.md §4.D step 3).
func rerank(ctx context.Context, caller llmcap.Caller, query string, candidates []memory.Scored, topK int) []memory.Scored {
	filtered := make([]memory.Scored, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Text) >= minRerankTextLen {
			filtered = append(filtered, c)
		}
	}

	if len(filtered) <= topK {
		return filtered
	}

	if caller == nil {
		return filtered[:topK]
	}

	var b strings.Builder
	b.WriteString("Query: ")
	b.WriteString(query)
	b.WriteString("\n\nDocuments:\n")
	for i, c := range filtered {
		fmt.Fprintf(&b, "[%d] %s\n", i, truncateText(c.Text, 500))
	}

	raw, err := caller.CallJSON(ctx, llmcap.Request{
		System:      rerankSystemPrompt,
		User:        b.String(),
		JSONMode:    true,
		Deadline:    RerankDeadline,
		Temperature: 0,
	})
	if err != nil {
		return filtered[:topK]
	}

	var resp rerankResponse
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Results) == 0 {
		return filtered[:topK]
	}

	winners := make([]memory.Scored, 0, len(resp.Results))
	for _, item := range resp.Results {
		if !item.Relevant {
			continue
		}
		idx := item.Index
		if idx < 0 {
			idx = 0
		}
		if idx >= len(filtered) {
			idx = len(filtered) - 1
		}
		cand := filtered[idx]
		rerankScore := item.Score * 100
		if rerankScore > cand.Score {
			cand.Score = rerankScore
		}
		if rerankScore > cand.EffectiveScore {
			cand.EffectiveScore = rerankScore
		}
		winners = append(winners, cand)
	}

	if len(winners) == 0 {
		return filtered[:topK]
	}

	sort.SliceStable(winners, func(i, j int) bool {
		return winners[i].Score > winners[j].Score
	})
	if len(winners) > topK {
		winners = winners[:topK]
	}
	return winners
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
