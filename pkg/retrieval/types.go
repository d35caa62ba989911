// Package retrieval answers memory search requests, either with a single
// direct storage lookup or, when an LLM capability is configured and
// expansion is enabled, a classify → dispatch → rerank pipeline.
package retrieval

import (
	"time"

	"github.com/loomware/memstate/pkg/memory"
)

// Mode is the retrieval strategy that actually produced a Result.
type Mode string

const (
	ModeSimple   Mode = "simple"
	ModeBroad    Mode = "broad"
	ModeDirect   Mode = "direct"
	ModeIndirect Mode = "indirect"
)

// Request is a single search call.
type Request struct {
	ProjectID           string
	SubjectID            string
	Query                string
	Limit                int
	MinScore             float64
	ConversationContext  []string
}

// Result is the shared response shape across both variants.
type Result struct {
	Memories    []memory.Scored `json:"memories"`
	Mode        Mode            `json:"mode"`
	UsedQueries []string        `json:"used_queries"`
	Predicates  []string        `json:"predicates"`
}

const (
	// ClassifyDeadline bounds the query-classification call.
	ClassifyDeadline = 2 * time.Second
	// RerankDeadline bounds the rerank call.
	RerankDeadline = 3 * time.Second

	// QuerySetCap is the maximum number of distinct queries dispatched per
	// request in direct/indirect mode.
	QuerySetCap = 6
	// ConversationContextCap is the maximum number of trailing conversation
	// turns passed to the classifier.
	ConversationContextCap = 5

	// DefaultSearchLimit and MaxSearchLimit bound SearchMemories calls.
	DefaultSearchLimit = 25
	MaxSearchLimit     = 200

	// DuplicateSimilarityThreshold and the conflict band are shared with
	// the memory orchestrator (spec.md §4.D constraint table).
	DuplicateSimilarityThreshold = 85.0
	ConflictBandLow              = 60.0
	ConflictBandHigh             = 85.0
)
