package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/loomware/memstate/pkg/claimorch"
	"github.com/loomware/memstate/pkg/extraction"
	"github.com/loomware/memstate/pkg/memory"
	"github.com/loomware/memstate/pkg/memoryorch"
	"github.com/loomware/memstate/pkg/retrieval"
)

// handleSearchMemories handles GET /api/v1/memories/search (spec.md §4.D,
// §6). When distance=true each result is annotated with its cosine
// distance (1 - score/100) alongside the similarity score.
func (s *Server) handleSearchMemories(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return writeError(c, fiber.StatusBadRequest, "q_required", "q is required")
	}

	result, err := s.retrieval.Search(c.Context(), retrieval.Request{
		ProjectID:           projectID(c),
		SubjectID:           c.Query("subject_id"),
		Query:               q,
		Limit:               c.QueryInt("limit", retrieval.DefaultSearchLimit),
		MinScore:            queryFloat(c, "min_score", 0),
		ConversationContext: queryList(c, "context"),
	})
	if err != nil {
		return mapError(c, err)
	}

	if !c.QueryBool("distance", false) {
		return c.JSON(result)
	}

	type scoredWithDistance struct {
		memory.Scored
		Distance float64 `json:"distance"`
	}
	annotated := make([]scoredWithDistance, len(result.Memories))
	for i, m := range result.Memories {
		annotated[i] = scoredWithDistance{Scored: m, Distance: 1 - m.Score/100}
	}

	return c.JSON(map[string]any{
		"memories":     annotated,
		"mode":         result.Mode,
		"used_queries": result.UsedQueries,
		"predicates":   result.Predicates,
	})
}

// extractMemoriesRequest is the POST /api/v1/memories/extract body
// (spec.md §6).
type extractMemoriesRequest struct {
	SubjectID           string   `json:"subject_id"`
	Text                string   `json:"text"`
	Force               bool     `json:"force"`
	Learn               bool     `json:"learn"`
	ConversationContext []string `json:"conversation_context"`
}

// handleExtractMemories handles POST /api/v1/memories/extract (spec.md
// §4.C, §6, and the testable property in §8: learn=false runs extraction
// without persisting anything). When learn=true, each extracted memory is
// written through the memory orchestrator (with ExtractClaims disabled,
// since the claims are already in hand) and its derived claims are
// written through the claim orchestrator, attributed to the new memory.
func (s *Server) handleExtractMemories(c *fiber.Ctx) error {
	var body extractMemoriesRequest
	if err := c.BodyParser(&body); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_json_body", err.Error())
	}
	if body.SubjectID == "" {
		return writeError(c, fiber.StatusBadRequest, "subject_id_required", "subject_id is required")
	}
	if body.Text == "" {
		return writeError(c, fiber.StatusBadRequest, "text_required", "text is required")
	}

	result := s.extractor.Extract(c.Context(), extraction.Request{
		Text:                body.Text,
		Force:               body.Force,
		ConversationContext: body.ConversationContext,
	})

	if body.Learn {
		pid := projectID(c)
		for _, em := range result.Memories {
			created, err := s.memories.Create(c.Context(), memoryorch.CreateInput{
				ProjectID:     pid,
				SubjectID:     body.SubjectID,
				Text:          em.Text,
				Kind:          string(em.Kind),
				Visibility:    string(em.Visibility),
				Importance:    intPtr(em.Importance),
				Confidence:    floatPtr(em.Confidence),
				IsTemporal:    em.IsTemporal,
				Tags:          em.Tags,
				SourceType:    "extracted",
				ExtractClaims: false,
			})
			if err != nil {
				return mapError(c, err)
			}

			sourceID := created.Memory.ID
			for _, ec := range em.Claims {
				if _, err := s.claims.Create(c.Context(), claimorch.CreateInput{
					ProjectID:      pid,
					SubjectID:      body.SubjectID,
					Predicate:      ec.Predicate,
					ObjectValue:    ec.ObjectValue,
					ClaimType:      ec.ClaimType,
					Confidence:     floatPtr(ec.Confidence),
					SourceMemoryID: &sourceID,
				}); err != nil {
					s.logger.Warn("extract: failed to persist derived claim", zap.Error(err))
				}
			}
		}
	}

	return c.JSON(map[string]any{
		"learned":         body.Learn,
		"extracted_count": len(result.Memories),
		"memories":        result.Memories,
	})
}
