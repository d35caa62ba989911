package storage

import (
	"time"

	"github.com/loomware/memstate/pkg/claim"
)

// ListMemoriesParams are the inputs to Driver.ListMemories (spec.md §4.A).
type ListMemoriesParams struct {
	ProjectID          string
	SubjectID          string
	Limit              int
	Offset             int
	IncludeDeleted     bool
	IncludeSuperseded  bool
}

// SearchMemoriesParams are the inputs to Driver.SearchMemories (spec.md §4.A).
type SearchMemoriesParams struct {
	ProjectID      string
	SubjectID      string
	Query          string
	QueryEmbedding []float32
	Limit          int
	MinScore       float64
}

// CreateMemoryInput is the caller-supplied subset of Memory fields accepted
// by Driver.CreateMemory; defaulting/clamping happens inside the driver per
// spec.md §4.A.
type CreateMemoryInput struct {
	ID         string
	ProjectID  string
	SubjectID  string
	Text       string
	Kind       string
	Visibility string
	Importance *int
	Confidence *float64
	IsTemporal bool
	Tags       []string
	Metadata   map[string]any
	Embedding  []float32
	SourceType string
}

// UpdateMemoryInput carries only the fields PATCH actually supplied; nil
// pointers/slices mean "leave unchanged".
type UpdateMemoryInput struct {
	Text       *string
	Kind       *string
	Visibility *string
	Importance *int
	Confidence *float64
	IsTemporal *bool
	Tags       []string
	Metadata   map[string]any
	Embedding  []float32
	EmbeddingSet bool
}

// CreateClaimInput is the input to Driver.CreateClaim's atomic transaction
// (spec.md §4.F "Create").
type CreateClaimInput struct {
	ClaimID        string
	ProjectID      string
	SubjectID      string
	Predicate      string
	ObjectValue    string
	Slot           string
	ClaimType      string
	Confidence     *float64
	Importance     *float64
	Tags           []string
	SourceMemoryID *string
	SubjectEntity  string
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	Embedding      []float32
}

// RetractClaimResult is the return shape of Driver.RetractClaim (spec.md
// §4.F "Retract" step 6).
type RetractClaimResult struct {
	Success          bool    `json:"success"`
	ClaimID          string  `json:"claim_id"`
	Slot             string  `json:"slot"`
	PreviousClaimID  *string `json:"previous_claim_id,omitempty"`
	RestoredPrevious bool    `json:"restored_previous"`
}

// RecallEventFilter selects MemoryRecallEvent rows by chat id (ascending
// time) or memory id (descending time, limited), per spec.md §4.A.
type RecallEventFilter struct {
	ProjectID string
	ChatID    string
	MemoryID  string
	Limit     int
}

// RecallStats is the aggregate view over MemoryRecallEvent rows (spec.md
// §4.A "aggregate statistics").
type RecallStats struct {
	Count            int64      `json:"count"`
	DistinctChats    int64      `json:"distinct_chats"`
	DistinctSubjects int64      `json:"distinct_subjects"`
	AvgScore         float64    `json:"avg_score"`
	MinTimestamp     *time.Time `json:"min_ts,omitempty"`
	MaxTimestamp     *time.Time `json:"max_ts,omitempty"`
}

// RecallEvent is one audit row recording a memory's use in a recall
// (spec.md §3 "MemoryRecallEvent").
type RecallEvent struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	MemoryID     string    `json:"memory_id"`
	ChatID       string    `json:"chat_id,omitempty"`
	MessageIndex int       `json:"message_index"`
	Score        float64   `json:"score"`
	RequestType  string    `json:"request_type,omitempty"`
	ModelID      string    `json:"model_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClaimGraph is the combined view returned by Driver.GetClaimGraph: claims,
// their edges, and a histogram of edge types (spec.md §6 "/graph").
type ClaimGraph struct {
	Claims         []claim.Claim  `json:"claims"`
	Edges          []claim.Edge   `json:"edges"`
	EdgeTypeCounts map[string]int `json:"edge_type_counts"`
}

// ClaimHistory groups a subject's claims by slot alongside the supersedes
// edges linking them (spec.md §6 "/history").
type ClaimHistory struct {
	BySlot          map[string][]claim.Claim `json:"by_slot"`
	SupersedesEdges []claim.Edge             `json:"supersedes_edges"`
}

// ClaimDetail is the combined view returned for a single claim: the claim
// row, its assertions, its outgoing/incoming edges, and its supersession
// chain (edges of type "supersedes"), per spec.md §6 "GET /claims/:id".
type ClaimDetail struct {
	Claim         claim.Claim       `json:"claim"`
	Assertions    []claim.Assertion `json:"assertions"`
	Edges         []claim.Edge      `json:"edges"`
	Supersessions []claim.Edge      `json:"supersessions"`
}

// SlotGroups buckets a subject's slots by lifecycle status for the
// "/slots" grouped view (spec.md §6).
type SlotGroups struct {
	Active     []claim.Slot `json:"active"`
	Superseded []claim.Slot `json:"superseded"`
	Other      []claim.Slot `json:"other"`
}
