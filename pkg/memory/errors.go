package memory

import "errors"

var (
	// ErrNotFound is returned when a memory id does not resolve to a row.
	ErrNotFound = errors.New("memory not found")

	// ErrDeleted is returned by operations that refuse to act on a
	// soft-deleted memory (e.g. RestoreMemory precondition failures are
	// reported separately; this is for read/write paths that must 404).
	ErrDeleted = errors.New("memory is deleted")

	// ErrAlreadyExists is returned when CreateMemory is given an explicit
	// id that already exists (spec.md §4.A: "duplicate-key failures
	// surface as an AlreadyExists error, not a silent overwrite").
	ErrAlreadyExists = errors.New("memory already exists")

	// ErrTextRequired, ErrTextTooLong, and ErrSubjectRequired are
	// validation errors raised by the memory orchestrator before any
	// storage call is made.
	ErrTextRequired    = errors.New("text is required")
	ErrTextTooLong     = errors.New("text exceeds maximum length")
	ErrSubjectRequired = errors.New("subject_id is required")
)
