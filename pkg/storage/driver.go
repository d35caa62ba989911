// Package storage defines the typed operations the rest of the service
// performs against persistent state (spec.md §4.A). Driver is the single
// capability interface every orchestrator and read path depends on; it
// abstracts query and index details (SQL dialect, vector-index choice)
// behind explicit, project/subject-scoped methods.
package storage

import (
	"context"

	"github.com/loomware/memstate/pkg/claim"
	"github.com/loomware/memstate/pkg/memory"
)

// Driver is the storage facade. Every method takes an explicit project id
// (and usually a subject id) and returns typed rows — no query building
// leaks past this boundary.
type Driver interface {
	ListMemories(ctx context.Context, p ListMemoriesParams) ([]memory.Memory, error)
	SearchMemories(ctx context.Context, p SearchMemoriesParams) ([]memory.Scored, error)
	CreateMemory(ctx context.Context, in CreateMemoryInput) (memory.Memory, error)
	GetMemory(ctx context.Context, projectID, id string) (memory.Memory, error)
	UpdateMemory(ctx context.Context, projectID, id string, in UpdateMemoryInput) (memory.Memory, error)
	DeleteMemory(ctx context.Context, projectID, id string) (deleted bool, err error)
	RestoreMemory(ctx context.Context, projectID, id string) (mem memory.Memory, restored bool, err error)

	FindDuplicateMemory(ctx context.Context, projectID, subjectID string, embedding []float32, threshold float64) (*memory.Memory, error)
	FindConflictingMemories(ctx context.Context, projectID, subjectID string, embedding []float32, minSim, maxSim float64, limit int) ([]memory.Memory, error)
	SupersedeMemories(ctx context.Context, projectID string, ids []string, supersededBy string) (transitioned int, err error)
	ListSupersededMemories(ctx context.Context, projectID, subjectID string, limit, offset int) ([]memory.Memory, error)

	CreateClaim(ctx context.Context, in CreateClaimInput) (claim.Claim, error)
	RetractClaim(ctx context.Context, projectID, claimID, reason string) (RetractClaimResult, error)
	GetClaim(ctx context.Context, projectID, claimID string) (ClaimDetail, error)

	GetCurrentTruth(ctx context.Context, projectID, subjectID string, includeSource bool) ([]claim.Slot, error)
	GetCurrentSlot(ctx context.Context, projectID, subjectID, slot string) (claim.Slot, error)
	GetSlots(ctx context.Context, projectID, subjectID string, limit int) (SlotGroups, error)
	GetClaimGraph(ctx context.Context, projectID, subjectID string, limit int) (ClaimGraph, error)
	GetClaimHistory(ctx context.Context, projectID, subjectID, slot string, limit int) (ClaimHistory, error)
	GetClaimsByMemory(ctx context.Context, projectID, memoryID string) ([]claim.Claim, error)

	RecordRecallEvent(ctx context.Context, ev RecallEvent) error
	GetRecallEvents(ctx context.Context, f RecallEventFilter) ([]RecallEvent, error)
	GetRecallStats(ctx context.Context, projectID string, f RecallEventFilter) (RecallStats, error)

	// Ping reports whether the underlying store is reachable, for the
	// composed health check (spec.md §6 GET /health).
	Ping(ctx context.Context) error

	Close() error
}
