package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/loomware/memstate/pkg/memoryorch"
	"github.com/loomware/memstate/pkg/storage"
)

// handleListMemories handles GET /api/v1/memories (spec.md §6).
func (s *Server) handleListMemories(c *fiber.Ctx) error {
	memories, err := s.store.ListMemories(c.Context(), storage.ListMemoriesParams{
		ProjectID:         projectID(c),
		SubjectID:         c.Query("subject_id"),
		Limit:             c.QueryInt("limit", 50),
		Offset:            c.QueryInt("offset", 0),
		IncludeDeleted:    c.QueryBool("include_deleted", false),
		IncludeSuperseded: c.QueryBool("include_superseded", false),
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(map[string]any{"memories": memories, "count": len(memories)})
}

// createMemoryRequest is the POST /api/v1/memories body (spec.md §6).
type createMemoryRequest struct {
	ID            string         `json:"id"`
	SubjectID     string         `json:"subject_id"`
	Text          string         `json:"text"`
	Kind          string         `json:"kind"`
	Visibility    string         `json:"visibility"`
	Importance    *int           `json:"importance"`
	Confidence    *float64       `json:"confidence"`
	IsTemporal    bool           `json:"is_temporal"`
	Tags          []string       `json:"tags"`
	Metadata      map[string]any `json:"metadata"`
	SourceType    string         `json:"source_type"`
	ExtractClaims *bool          `json:"extract_claims"`
	NoSupersede   bool           `json:"no_supersede"`
}

// handleCreateMemory handles POST /api/v1/memories (spec.md §4.E, §6).
// extract_claims defaults to true here, not in the orchestrator, since the
// orchestrator takes an already-resolved boolean.
func (s *Server) handleCreateMemory(c *fiber.Ctx) error {
	var body createMemoryRequest
	if err := c.BodyParser(&body); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_json_body", err.Error())
	}

	extractClaims := true
	if body.ExtractClaims != nil {
		extractClaims = *body.ExtractClaims
	}

	result, err := s.memories.Create(c.Context(), memoryorch.CreateInput{
		ID:            body.ID,
		ProjectID:     projectID(c),
		SubjectID:     body.SubjectID,
		Text:          body.Text,
		Kind:          body.Kind,
		Visibility:    body.Visibility,
		Importance:    body.Importance,
		Confidence:    body.Confidence,
		IsTemporal:    body.IsTemporal,
		Tags:          body.Tags,
		Metadata:      body.Metadata,
		SourceType:    body.SourceType,
		ExtractClaims: extractClaims,
		NoSupersede:   body.NoSupersede,
	})
	if err != nil {
		return mapError(c, err)
	}
	if result.Skipped {
		return c.JSON(result.Response())
	}
	return c.Status(fiber.StatusCreated).JSON(result.Response())
}

// handleGetMemory handles GET /api/v1/memories/:id (spec.md §6).
func (s *Server) handleGetMemory(c *fiber.Ctx) error {
	m, err := s.store.GetMemory(c.Context(), projectID(c), c.Params("id"))
	if err != nil {
		return mapError(c, err)
	}
	if m.IsDeleted {
		return writeError(c, fiber.StatusNotFound, "memory_deleted", "memory is deleted")
	}
	return c.JSON(m)
}

// handlePatchMemory handles PATCH /api/v1/memories/:id (spec.md §4.E, §6).
func (s *Server) handlePatchMemory(c *fiber.Ctx) error {
	var body struct {
		Text       *string        `json:"text"`
		Kind       *string        `json:"kind"`
		Visibility *string        `json:"visibility"`
		Importance *int           `json:"importance"`
		Confidence *float64       `json:"confidence"`
		IsTemporal *bool          `json:"is_temporal"`
		Tags       []string       `json:"tags"`
		Metadata   map[string]any `json:"metadata"`
	}
	if err := c.BodyParser(&body); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_json_body", err.Error())
	}

	updated, err := s.memories.Patch(c.Context(), projectID(c), c.Params("id"), memoryorch.PatchInput{
		Text:       body.Text,
		Kind:       body.Kind,
		Visibility: body.Visibility,
		Importance: body.Importance,
		Confidence: body.Confidence,
		IsTemporal: body.IsTemporal,
		Tags:       body.Tags,
		Metadata:   body.Metadata,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(updated)
}

// handleDeleteMemory handles DELETE /api/v1/memories/:id (spec.md §4.E, §6).
func (s *Server) handleDeleteMemory(c *fiber.Ctx) error {
	deleted, err := s.memories.Delete(c.Context(), projectID(c), c.Params("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(map[string]any{"deleted": deleted})
}

// handleRestoreMemory handles POST /api/v1/memories/:id/restore (spec.md
// §4.E, §6). A soft-deleted memory reports 400 memory_deleted here,
// distinct from the 404 every other read/write path reports for the same
// underlying sentinel (spec.md §7 note).
func (s *Server) handleRestoreMemory(c *fiber.Ctx) error {
	m, restored, err := s.memories.Restore(c.Context(), projectID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, storage.ErrDeleted) {
			return writeError(c, fiber.StatusBadRequest, "memory_deleted", "cannot restore a soft-deleted memory")
		}
		return mapError(c, err)
	}
	return c.JSON(map[string]any{"memory": m, "restored": restored})
}

// handleMemoryClaims handles GET /api/v1/memories/:id/claims (spec.md §6).
func (s *Server) handleMemoryClaims(c *fiber.Ctx) error {
	claims, err := s.store.GetClaimsByMemory(c.Context(), projectID(c), c.Params("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(map[string]any{"claims": claims, "count": len(claims)})
}

// handleListSuperseded handles GET /api/v1/memories/superseded (spec.md §6).
func (s *Server) handleListSuperseded(c *fiber.Ctx) error {
	memories, err := s.store.ListSupersededMemories(c.Context(), projectID(c), c.Query("subject_id"), c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(map[string]any{"memories": memories, "count": len(memories)})
}

// handleRecallEvents handles GET /api/v1/memories/recalls (spec.md §6).
// chat_id takes precedence over memory_id when both are supplied.
func (s *Server) handleRecallEvents(c *fiber.Ctx) error {
	chatID := c.Query("chat_id")
	memoryID := c.Query("memory_id")
	if chatID == "" && memoryID == "" {
		return writeError(c, fiber.StatusBadRequest, "missing_parameter", "chat_id or memory_id is required")
	}

	filter := storage.RecallEventFilter{
		ProjectID: projectID(c),
		ChatID:    chatID,
		MemoryID:  memoryID,
		Limit:     c.QueryInt("limit", 50),
	}

	if c.QueryBool("stats", false) {
		stats, err := s.store.GetRecallStats(c.Context(), projectID(c), filter)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(stats)
	}

	events, err := s.store.GetRecallEvents(c.Context(), filter)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(map[string]any{"events": events, "count": len(events)})
}
