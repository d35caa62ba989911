package extraction

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/loomware/memstate/pkg/llmcap"
)

// Deadline is the fixed timeout the LLM variant allows its model call,
// per spec.md §4.C/§5.
const Deadline = 4 * time.Second

const systemPrompt = `You extract durable memories and structured claims from a single
piece of user text. Respond with JSON matching exactly this shape and nothing else:

{"memories":[{"text":string,"kind":"fact"|"preference"|"context"|"note"|"event"|"trait",
"importance":0-100,"confidence":0-1,"is_temporal":bool,"visibility":"private"|"shared"|"public",
"tags":[string],"claims":[{"predicate":string,"object_value":string,
"claim_type":"fact"|"preference"|"goal"|"event","confidence":0-1}]}]}

Prefer durable facts and preferences over momentary chatter. If nothing worth
remembering is present, return {"memories":[]}.`

// LLM implements the model-backed extraction variant. It always falls
// through to Fallback on any failure — timeout, transport error,
// unparseable JSON, an empty memories array, or a response that fails
// schema validation.
type LLM struct {
	caller   llmcap.Caller
	Fallback *Heuristic
}

// NewLLM wraps caller with the heuristic variant as its documented fallback.
func NewLLM(caller llmcap.Caller) *LLM {
	return &LLM{caller: caller, Fallback: NewHeuristic()}
}

// Extract issues a single structured-JSON call and falls back to the
// heuristic variant on any failure.
func (l *LLM) Extract(ctx context.Context, req Request) Result {
	raw, err := l.caller.CallJSON(ctx, llmcap.Request{
		System:      systemPrompt,
		User:        buildUserPrompt(req),
		JSONMode:    true,
		Deadline:    Deadline,
		Temperature: 0.2,
	})
	if err != nil {
		return l.Fallback.Extract(req)
	}

	result, ok := parseResult(raw)
	if !ok || len(result.Memories) == 0 {
		return l.Fallback.Extract(req)
	}

	return result
}

func buildUserPrompt(req Request) string {
	var b strings.Builder
	if len(req.ConversationContext) > 0 {
		ctx := req.ConversationContext
		if len(ctx) > 5 {
			ctx = ctx[len(ctx)-5:]
		}
		b.WriteString("Recent conversation:\n")
		for _, line := range ctx {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Text to extract from:\n")
	b.WriteString(req.Text)
	return b.String()
}

// parseResult validates the decoded Result against the schema this
// package expects, rejecting anything with an unrecognized kind,
// visibility, or claim type.
func parseResult(raw json.RawMessage) (Result, bool) {
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, false
	}
	for i := range result.Memories {
		m := &result.Memories[i]
		if !validKind[string(m.Kind)] {
			return Result{}, false
		}
		if m.Visibility == "" {
			m.Visibility = "private"
		} else if !validVisibility[string(m.Visibility)] {
			return Result{}, false
		}
		if m.Tags == nil {
			m.Tags = []string{}
		}
		for _, c := range m.Claims {
			if !validClaimType[c.ClaimType] {
				return Result{}, false
			}
		}
	}
	return result, true
}

var validKind = map[string]bool{
	"fact": true, "preference": true, "context": true,
	"note": true, "event": true, "trait": true,
}

var validVisibility = map[string]bool{
	"private": true, "shared": true, "public": true,
}

var validClaimType = map[string]bool{
	"fact": true, "preference": true, "goal": true, "event": true,
}
