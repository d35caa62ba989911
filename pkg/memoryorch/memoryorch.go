// Package memoryorch is the memory orchestrator: it owns the only code
// path allowed to mutate memories, driving embedding, duplicate/conflict
// detection, supersession, event emission, and asynchronous claim
// extraction around each write (spec.md §4.E).
package memoryorch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loomware/memstate/pkg/embeddings"
	"github.com/loomware/memstate/pkg/eventstream"
	"github.com/loomware/memstate/pkg/extractworker"
	"github.com/loomware/memstate/pkg/memory"
	"github.com/loomware/memstate/pkg/storage"
)

const (
	duplicateThreshold = 85.0
	conflictBandLow    = 60.0
	conflictBandHigh   = 85.0
	conflictLimit      = 50
)

// Service is the memory orchestrator.
type Service struct {
	store     storage.Driver
	bus       eventstream.Bus
	embedder  embeddings.Embedder
	extractor *extractworker.Pool
	logger    *zap.Logger
}

// New builds a memory orchestrator. extractor may be nil, in which case
// asynchronous claim extraction (step 9) is skipped.
func New(store storage.Driver, bus eventstream.Bus, embedder embeddings.Embedder, extractor *extractworker.Pool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, bus: bus, embedder: embedder, extractor: extractor, logger: logger}
}

// CreateInput is the caller-supplied subset of a memory create request.
type CreateInput struct {
	ID            string
	ProjectID     string
	SubjectID     string
	Text          string
	Kind          string
	Visibility    string
	Importance    *int
	Confidence    *float64
	IsTemporal    bool
	Tags          []string
	Metadata      map[string]any
	SourceType    string
	ExtractClaims bool
	NoSupersede   bool
}

// CreateResult is the outcome of a memory create. Response returns the
// flat wire shape POST /memories actually documents (spec.md §4.E step 10,
// §8 scenarios 1-3); CreateResult itself is never serialized directly.
type CreateResult struct {
	Memory          memory.Memory
	Created         bool
	Skipped         bool
	SkipReason      string
	SupersededCount int
	SupersededIDs   []string
}

// Response flattens the result into {id, subject_id, text, kind,
// created, superseded_count, superseded_ids} on success, or
// {id: null, created: false, skipped: true, reason} when the write was
// skipped as a duplicate.
func (r CreateResult) Response() map[string]any {
	if r.Skipped {
		return map[string]any{
			"id":      nil,
			"created": false,
			"skipped": true,
			"reason":  r.SkipReason,
		}
	}
	return map[string]any{
		"id":               r.Memory.ID,
		"subject_id":       r.Memory.SubjectID,
		"text":             r.Memory.Text,
		"kind":             r.Memory.Kind,
		"created":          r.Created,
		"superseded_count": r.SupersededCount,
		"superseded_ids":   r.SupersededIDs,
	}
}

// Create runs the full memory-write pipeline.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	if in.SubjectID == "" {
		return CreateResult{}, memory.ErrSubjectRequired
	}
	if in.Text == "" {
		return CreateResult{}, memory.ErrTextRequired
	}
	if len(in.Text) > memory.TextMaxLen {
		return CreateResult{}, memory.ErrTextTooLong
	}

	var embedding []float32
	if s.embedder != nil {
		if v, err := s.embedder.Embed(ctx, in.Text); err == nil {
			embedding = v
		} else {
			s.logger.Debug("embedding failed, proceeding without one", zap.Error(err))
		}
	}

	if len(embedding) > 0 && !in.NoSupersede {
		dup, err := s.store.FindDuplicateMemory(ctx, in.ProjectID, in.SubjectID, embedding, duplicateThreshold)
		if err != nil {
			return CreateResult{}, err
		}
		if dup != nil {
			return CreateResult{Skipped: true, SkipReason: "duplicate"}, nil
		}
	}

	var conflictIDs []string
	if len(embedding) > 0 && !in.NoSupersede {
		conflicts, err := s.store.FindConflictingMemories(ctx, in.ProjectID, in.SubjectID, embedding, conflictBandLow, conflictBandHigh, conflictLimit)
		if err != nil {
			return CreateResult{}, err
		}
		for _, c := range conflicts {
			conflictIDs = append(conflictIDs, c.ID)
		}
	}

	id := in.ID
	if id == "" {
		id = "mem_" + uuid.NewString()
	}

	created, err := s.store.CreateMemory(ctx, storage.CreateMemoryInput{
		ID:         id,
		ProjectID:  in.ProjectID,
		SubjectID:  in.SubjectID,
		Text:       in.Text,
		Kind:       in.Kind,
		Visibility: in.Visibility,
		Importance: in.Importance,
		Confidence: in.Confidence,
		IsTemporal: in.IsTemporal,
		Tags:       in.Tags,
		Metadata:   in.Metadata,
		Embedding:  embedding,
		SourceType: in.SourceType,
	})
	if err != nil {
		return CreateResult{}, err
	}

	result := CreateResult{Memory: created, Created: true}

	if len(conflictIDs) > 0 {
		n, err := s.store.SupersedeMemories(ctx, in.ProjectID, conflictIDs, created.ID)
		if err != nil {
			return CreateResult{}, err
		}
		result.SupersededCount = n
		result.SupersededIDs = conflictIDs
	}

	if s.bus != nil {
		s.bus.Emit(in.ProjectID, in.SubjectID, eventstream.TypeMemoryCreated, memoryProjection(created))
		for _, supID := range result.SupersededIDs {
			s.bus.Emit(in.ProjectID, in.SubjectID, eventstream.TypeMemorySuperseded, map[string]any{
				"id":            supID,
				"superseded_by": created.ID,
			})
		}
	}

	if in.ExtractClaims && !in.NoSupersede && s.extractor != nil {
		s.extractor.Enqueue(extractworker.Job{
			ProjectID:   in.ProjectID,
			SubjectID:   in.SubjectID,
			NewMemoryID: created.ID,
			NewText:     created.Text,
		})
	}

	return result, nil
}

func memoryProjection(m memory.Memory) map[string]any {
	return map[string]any{
		"id":         m.ID,
		"subject_id": m.SubjectID,
		"text":       m.Text,
		"kind":       m.Kind,
		"visibility": m.Visibility,
		"importance": m.Importance,
		"tags":       m.Tags,
		"created_at": m.CreatedAt,
	}
}

// PatchInput carries only the fields PATCH actually supplied.
type PatchInput struct {
	Text       *string
	Kind       *string
	Visibility *string
	Importance *int
	Confidence *float64
	IsTemporal *bool
	Tags       []string
	Metadata   map[string]any
}

// Patch applies only the supplied fields, recomputing the embedding when
// Text changes and an embedder is configured (spec.md §4.E "PATCH").
func (s *Service) Patch(ctx context.Context, projectID, id string, in PatchInput) (memory.Memory, error) {
	existing, err := s.store.GetMemory(ctx, projectID, id)
	if err != nil {
		return memory.Memory{}, err
	}
	if existing.IsDeleted {
		return memory.Memory{}, memory.ErrDeleted
	}

	update := storage.UpdateMemoryInput{
		Kind:       in.Kind,
		Visibility: in.Visibility,
		Importance: in.Importance,
		Confidence: in.Confidence,
		IsTemporal: in.IsTemporal,
		Tags:       in.Tags,
		Metadata:   in.Metadata,
	}

	if in.Text != nil {
		update.Text = in.Text
		if s.embedder != nil {
			if v, err := s.embedder.Embed(ctx, *in.Text); err == nil {
				update.Embedding = v
				update.EmbeddingSet = true
			}
		}
	}

	updated, err := s.store.UpdateMemory(ctx, projectID, id, update)
	if err != nil {
		return memory.Memory{}, err
	}

	if s.bus != nil {
		s.bus.Emit(projectID, updated.SubjectID, eventstream.TypeMemoryUpdated, memoryProjection(updated))
	}

	return updated, nil
}

// Delete soft-deletes a memory, emitting memory.deleted only when a row
// actually transitioned (spec.md §4.E "DELETE").
func (s *Service) Delete(ctx context.Context, projectID, id string) (bool, error) {
	existing, err := s.store.GetMemory(ctx, projectID, id)
	if err != nil {
		return false, err
	}

	deleted, err := s.store.DeleteMemory(ctx, projectID, id)
	if err != nil {
		return false, err
	}

	if deleted && s.bus != nil {
		s.bus.Emit(projectID, existing.SubjectID, eventstream.TypeMemoryDeleted, map[string]any{
			"id":         id,
			"deleted_at": time.Now().UTC(),
		})
	}

	return deleted, nil
}

// Restore reactivates a superseded memory, or reports restored=false when
// it was already active (spec.md §4.E "RESTORE").
func (s *Service) Restore(ctx context.Context, projectID, id string) (memory.Memory, bool, error) {
	m, restored, err := s.store.RestoreMemory(ctx, projectID, id)
	if err != nil {
		return memory.Memory{}, false, err
	}

	if restored && s.bus != nil {
		s.bus.Emit(projectID, m.SubjectID, eventstream.TypeMemoryUpdated, memoryProjection(m))
	}

	return m, restored, nil
}
