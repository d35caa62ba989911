package claim

import "errors"

var (
	// ErrNotFound is returned when a claim id does not resolve to a row.
	ErrNotFound = errors.New("claim not found")

	// ErrRetracted is returned by operations that refuse to act on an
	// already-retracted claim.
	ErrRetracted = errors.New("claim is retracted")

	// ErrSlotNotFound is returned when a (project, subject, slot) triple
	// has no Slot row yet — GetCurrentSlot's miss case, distinct from the
	// triple existing with no active winner.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrPredicateRequired, ErrObjectValueRequired, ErrSlotRequired, and
	// ErrSubjectRequired are validation errors raised by the claim
	// orchestrator before any storage call is made.
	ErrPredicateRequired   = errors.New("predicate is required")
	ErrObjectValueRequired = errors.New("object_value is required")
	ErrSlotRequired        = errors.New("slot is required")
	ErrSubjectRequired     = errors.New("subject_id is required")
)
