// Package claimorch is the claim orchestrator: it validates claim writes
// and delegates the atomic create/retract transactions to storage.Driver,
// which owns the truth-state invariant itself (spec.md §4.F).
package claimorch

import (
	"context"

	"github.com/google/uuid"

	"github.com/loomware/memstate/pkg/claim"
	"github.com/loomware/memstate/pkg/storage"
)

// Service is the claim orchestrator.
type Service struct {
	store storage.Driver
}

// New builds a claim orchestrator over store.
func New(store storage.Driver) *Service {
	return &Service{store: store}
}

// CreateInput is the caller-supplied subset of a claim create request.
type CreateInput struct {
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
	Embedding      []float32
}

// Create validates required fields and delegates to the storage facade's
// atomic claim-write transaction (spec.md §4.F "Create").
func (s *Service) Create(ctx context.Context, in CreateInput) (claim.Claim, error) {
	if in.SubjectID == "" {
		return claim.Claim{}, claim.ErrSubjectRequired
	}
	if in.Predicate == "" {
		return claim.Claim{}, claim.ErrPredicateRequired
	}
	if in.ObjectValue == "" {
		return claim.Claim{}, claim.ErrObjectValueRequired
	}

	claimID := in.ClaimID
	if claimID == "" {
		claimID = "clm_" + uuid.NewString()
	}

	return s.store.CreateClaim(ctx, storage.CreateClaimInput{
		ClaimID:        claimID,
		ProjectID:      in.ProjectID,
		SubjectID:      in.SubjectID,
		Predicate:      in.Predicate,
		ObjectValue:    in.ObjectValue,
		Slot:           in.Slot,
		ClaimType:      in.ClaimType,
		Confidence:     in.Confidence,
		Importance:     in.Importance,
		Tags:           in.Tags,
		SourceMemoryID: in.SourceMemoryID,
		SubjectEntity:  in.SubjectEntity,
		Embedding:      in.Embedding,
	})
}

// Retract delegates to the storage facade's atomic retraction transaction
// (spec.md §4.F "Retract"). A missing claim is reported via
// RetractClaimResult.Success=false, not an error, per step 1.
func (s *Service) Retract(ctx context.Context, projectID, claimID, reason string) (storage.RetractClaimResult, error) {
	return s.store.RetractClaim(ctx, projectID, claimID, reason)
}
