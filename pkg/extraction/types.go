// Package extraction turns free text into normalized memory+claim
// candidates, with an LLM variant backed by a deterministic heuristic
// fallback.
package extraction

import "github.com/loomware/memstate/pkg/memory"

// ExtractedClaim is one claim candidate derived from input text.
type ExtractedClaim struct {
	Predicate   string  `json:"predicate"`
	ObjectValue string  `json:"object_value"`
	ClaimType   string  `json:"claim_type"`
	Confidence  float64 `json:"confidence"`
}

// ExtractedMemory is one memory candidate, with its derived claims.
type ExtractedMemory struct {
	Text        string            `json:"text"`
	Kind        memory.Kind       `json:"kind"`
	Importance  int               `json:"importance"`
	Confidence  float64           `json:"confidence"`
	IsTemporal  bool              `json:"is_temporal"`
	Visibility  memory.Visibility `json:"visibility"`
	Tags        []string          `json:"tags"`
	Claims      []ExtractedClaim  `json:"claims"`
}

// Result is the normalized output shape shared by both variants.
type Result struct {
	Memories []ExtractedMemory `json:"memories"`
}

// Request bundles the extraction inputs.
type Request struct {
	Text               string
	Force              bool
	ConversationContext []string
}
