// Package claim defines the structured assertion types derived from
// memories — Claim, ClaimAssertion, ClaimEdge, and SlotState — and the
// truth-state invariant they jointly maintain: at most one active winning
// claim per (project, subject, slot) triple (spec.md §3 invariant 1-2).
package claim

import (
	"strings"
	"time"
)

// Type enumerates the semantic category of a claim's predicate.
type Type string

const (
	TypeFact       Type = "fact"
	TypePreference Type = "preference"
	TypeGoal       Type = "goal"
	TypeEvent      Type = "event"
)

// Status enumerates a claim's position in the retraction lifecycle.
type Status string

const (
	StatusActive    Status = "active"
	StatusRetracted Status = "retracted"
)

// Claim is a structured (predicate, object_value) assertion derived from
// or attached to a memory (spec.md §3).
type Claim struct {
	ClaimID        string     `json:"claim_id"`
	ProjectID      string     `json:"project_id"`
	SubjectID      string     `json:"subject_id"`
	Predicate      string     `json:"predicate"`
	ObjectValue    string     `json:"object_value"`
	Slot           string     `json:"slot"`
	ClaimType      Type       `json:"claim_type"`
	Confidence     float64    `json:"confidence"`
	Importance     float64    `json:"importance"`
	Tags           []string   `json:"tags"`
	SourceMemoryID *string    `json:"source_memory_id,omitempty"`
	SubjectEntity  string     `json:"subject_entity"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	RetractedAt    *time.Time `json:"retracted_at,omitempty"`
	RetractReason  string     `json:"retract_reason,omitempty"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	Embedding      []float32  `json:"-"`
}

// AssertionValueType is the typed discriminator carried by ClaimAssertion
// (spec.md §9: "assertions carry a typed discriminator").
type AssertionValueType string

const (
	ValueString AssertionValueType = "string"
	ValueNumber AssertionValueType = "number"
	ValueDate   AssertionValueType = "date"
	ValueJSON   AssertionValueType = "json"
)

// Assertion is one recorded evidence occurrence for a Claim.
type Assertion struct {
	AssertionID string             `json:"assertion_id"`
	ClaimID     string             `json:"claim_id"`
	MemoryID    *string            `json:"memory_id,omitempty"`
	ValueType   AssertionValueType `json:"value_type"`
	ValueString string             `json:"value_string,omitempty"`
	ValueNumber *float64           `json:"value_number,omitempty"`
	ValueDate   *time.Time         `json:"value_date,omitempty"`
	ValueJSON   []byte             `json:"value_json,omitempty"`
	Confidence  float64            `json:"confidence"`
	Status      Status             `json:"status"`
	FirstSeenAt time.Time          `json:"first_seen_at"`
	LastSeenAt  time.Time          `json:"last_seen_at"`
}

// EdgeType enumerates the relation a ClaimEdge records between two claims.
type EdgeType string

const (
	EdgeSupersedes EdgeType = "supersedes"
	EdgeSupports   EdgeType = "supports"
	EdgeDuplicates EdgeType = "duplicates"
	EdgeRelated    EdgeType = "related"
	EdgeRetracts   EdgeType = "retracts"
)

// Edge is a typed directed relation between two claims, unique on
// (project, from, to, type) (spec.md §3).
type Edge struct {
	ProjectID  string    `json:"project_id"`
	FromClaim  string    `json:"from_claim"`
	ToClaim    string    `json:"to_claim"`
	Type       EdgeType  `json:"type"`
	Weight     float64   `json:"weight"`
	ReasonCode string    `json:"reason_code,omitempty"`
	ReasonText string    `json:"reason_text,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SlotStatus enumerates the lifecycle of a (project, subject, slot) triple.
type SlotStatus string

const (
	SlotActive     SlotStatus = "active"
	SlotSuperseded SlotStatus = "superseded"
	SlotRetracted  SlotStatus = "retracted"
)

// Slot is the per-(project, subject, slot) row recording the current
// winning claim, primary-keyed on the triple (spec.md §3).
type Slot struct {
	ProjectID         string     `json:"project_id"`
	SubjectID         string     `json:"subject_id"`
	Slot              string     `json:"slot"`
	ActiveClaimID     *string    `json:"active_claim_id,omitempty"`
	Status            SlotStatus `json:"status"`
	ReplacedByClaimID *string    `json:"replaced_by_claim_id,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// InferType derives a claim's Type from its predicate when the caller does
// not supply one explicitly (spec.md §4.F step 1).
func InferType(predicate string) Type {
	switch {
	case hasAnyPrefix(predicate, "favorite_", "likes_", "dislikes_"):
		return TypePreference
	case strings.Contains(predicate, "goal") || hasAnyPrefix(predicate, "wants_"):
		return TypeGoal
	case hasAnyPrefix(predicate, "did_", "event_"):
		return TypeEvent
	default:
		return TypeFact
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
