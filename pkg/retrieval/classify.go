package retrieval

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/loomware/memstate/pkg/llmcap"
)

// Classification is the classifier's structured output (spec.md §4.D step 1).
type Classification struct {
	Mode            Mode     `json:"mode"`
	Predicates      []string `json:"predicates"`
	SearchHints     []string `json:"search_hints"`
	ExpandedQueries []string `json:"expanded_queries"`
}

const classifySystemPrompt = `Classify a memory-search query. Respond with JSON only:

{"mode":"broad"|"direct"|"indirect","predicates":[string,max 3],
"search_hints":[string,max 3],"expanded_queries":[string,max 3]}

"broad" means the user wants a general listing, not a targeted search.
"direct" means the query names something specific enough for a direct lookup.
"indirect" means the query requires paraphrasing or expansion to find a match.
predicates should name claim predicates (e.g. "lives_in") that would answer the
query directly, if any apply.`

// defaultClassification is used whenever classification fails or returns an
// invalid mode (spec.md §4.D step 1).
func defaultClassification() Classification {
	return Classification{
		Mode:            ModeIndirect,
		Predicates:      []string{},
		SearchHints:     []string{},
		ExpandedQueries: []string{},
	}
}

func classify(ctx context.Context, caller llmcap.Caller, query string, conversationContext []string) Classification {
	if caller == nil {
		return defaultClassification()
	}

	ctxLines := conversationContext
	if len(ctxLines) > ConversationContextCap {
		ctxLines = ctxLines[len(ctxLines)-ConversationContextCap:]
	}

	var b strings.Builder
	if len(ctxLines) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, line := range ctxLines {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Query: ")
	b.WriteString(query)

	raw, err := caller.CallJSON(ctx, llmcap.Request{
		System:      classifySystemPrompt,
		User:        b.String(),
		JSONMode:    true,
		Deadline:    ClassifyDeadline,
		Temperature: 0,
	})
	if err != nil {
		return defaultClassification()
	}

	var c Classification
	if err := json.Unmarshal(raw, &c); err != nil {
		return defaultClassification()
	}

	switch c.Mode {
	case ModeBroad, ModeDirect, ModeIndirect:
	default:
		return defaultClassification()
	}

	c.Predicates = capStrings(c.Predicates, 3)
	c.SearchHints = capStrings(c.SearchHints, 3)
	c.ExpandedQueries = capStrings(c.ExpandedQueries, 3)
	return c
}

func capStrings(s []string, max int) []string {
	if s == nil {
		return []string{}
	}
	if len(s) > max {
		return s[:max]
	}
	return s
}
