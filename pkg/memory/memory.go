// Package memory defines the durable Memory entity and its lifecycle
// enums. A Memory is a subject-scoped textual record of user context or
// fact; the memory orchestrator (package memoryorch) governs its creation,
// mutation, soft-deletion, and supersession.
package memory

import "time"

// Kind enumerates the shape of a memory's content.
type Kind string

const (
	KindFact       Kind = "fact"
	KindPreference Kind = "preference"
	KindContext    Kind = "context"
	KindNote       Kind = "note"
	KindEvent      Kind = "event"
	KindTrait      Kind = "trait"
)

// Visibility enumerates who a memory is shared with.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityShared  Visibility = "shared"
	VisibilityPublic  Visibility = "public"
)

// Status enumerates a memory's position in the supersession lifecycle.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuperseded Status = "superseded"
)

const (
	// TextMaxLen is the maximum accepted length of Memory.Text.
	TextMaxLen = 10_000

	// EmbeddingDim is the fixed embedding dimensionality assumed across
	// the deployment (invariant 5 of spec.md §3).
	EmbeddingDim = 1536

	// DefaultImportance, DefaultConfidence, DefaultKind, DefaultVisibility,
	// and DefaultSourceType are the defaults CreateMemory applies when the
	// caller omits a field, per spec.md §4.A.
	DefaultImportance            = 50
	DefaultConfidence            = 0.95
	DefaultKind                  = KindFact
	DefaultVisibility            = VisibilityPrivate
	DefaultSourceType            = "explicit"
	MinImportance, MaxImportance = 0, 100
)

// Memory is a durable, subject-scoped textual record of user context or
// fact, per spec.md §3.
type Memory struct {
	ID               string         `json:"id"`
	ProjectID        string         `json:"project_id"`
	SubjectID        string         `json:"subject_id"`
	Text             string         `json:"text"`
	Kind             Kind           `json:"kind"`
	Visibility       Visibility     `json:"visibility"`
	Importance       int            `json:"importance"`
	Confidence       float64        `json:"confidence"`
	IsTemporal       bool           `json:"is_temporal"`
	Tags             []string       `json:"tags"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Embedding        []float32      `json:"-"`
	Status           Status         `json:"status"`
	SupersededBy     *string        `json:"superseded_by,omitempty"`
	IsDeleted        bool           `json:"is_deleted"`
	SourceType       string         `json:"source_type"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	LastReinforcedAt time.Time      `json:"last_reinforced_at"`
}

// Scored wraps a Memory with the two ranking signals the storage facade's
// SearchMemories and the retrieval pipeline attach to each candidate
// (spec.md §4.A, §4.D).
type Scored struct {
	Memory
	Score          float64 `json:"score"`
	EffectiveScore float64 `json:"effective_score"`
}

// ClampImportance clamps an importance value into [MinImportance, MaxImportance].
func ClampImportance(v int) int {
	switch {
	case v < MinImportance:
		return MinImportance
	case v > MaxImportance:
		return MaxImportance
	default:
		return v
	}
}

// ClampConfidence clamps a confidence value into [0, 1].
func ClampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
