package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/loomware/memstate/pkg/claim"
	"github.com/loomware/memstate/pkg/claimorch"
)

// slotResponse enriches a claim.Slot with the predicate/object_value of
// its active claim, since the bare slot row only carries the winning
// claim's id (spec.md §8 scenario 4 asserts object_value on this route).
type slotResponse struct {
	claim.Slot
	Predicate   string `json:"predicate,omitempty"`
	ObjectValue string `json:"object_value,omitempty"`
}

func (s *Server) enrichSlot(ctx context.Context, projectID string, slot claim.Slot) (slotResponse, error) {
	resp := slotResponse{Slot: slot}
	if slot.ActiveClaimID == nil {
		return resp, nil
	}
	detail, err := s.store.GetClaim(ctx, projectID, *slot.ActiveClaimID)
	if err != nil {
		return resp, err
	}
	resp.Predicate = detail.Claim.Predicate
	resp.ObjectValue = detail.Claim.ObjectValue
	return resp, nil
}

func (s *Server) enrichSlots(ctx context.Context, projectID string, slots []claim.Slot) ([]slotResponse, error) {
	out := make([]slotResponse, 0, len(slots))
	for _, slot := range slots {
		resp, err := s.enrichSlot(ctx, projectID, slot)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// createClaimRequest is the POST /api/v1/claims body (spec.md §4.F, §6).
type createClaimRequest struct {
	ClaimID        string   `json:"id"`
	SubjectID      string   `json:"subject_id"`
	Predicate      string   `json:"predicate"`
	ObjectValue    string   `json:"object_value"`
	Slot           string   `json:"slot"`
	ClaimType      string   `json:"claim_type"`
	Confidence     *float64 `json:"confidence"`
	Importance     *float64 `json:"importance"`
	Tags           []string `json:"tags"`
	SourceMemoryID *string  `json:"source_memory_id"`
	SubjectEntity  string   `json:"subject_entity"`
}

// handleCreateClaim handles POST /api/v1/claims (spec.md §4.F, §6).
func (s *Server) handleCreateClaim(c *fiber.Ctx) error {
	var body createClaimRequest
	if err := c.BodyParser(&body); err != nil {
		return writeError(c, fiber.StatusBadRequest, "invalid_json_body", err.Error())
	}

	created, err := s.claims.Create(c.Context(), claimorch.CreateInput{
		ClaimID:        body.ClaimID,
		ProjectID:      projectID(c),
		SubjectID:      body.SubjectID,
		Predicate:      body.Predicate,
		ObjectValue:    body.ObjectValue,
		Slot:           body.Slot,
		ClaimType:      body.ClaimType,
		Confidence:     body.Confidence,
		Importance:     body.Importance,
		Tags:           body.Tags,
		SourceMemoryID: body.SourceMemoryID,
		SubjectEntity:  body.SubjectEntity,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// handleRetractClaim handles POST /api/v1/claims/:id/retract (spec.md
// §4.F, §6). A missing claim is reported via RetractClaimResult.Success
// rather than an error (spec.md §4.F "Retract" step 1), so it always
// returns 200.
func (s *Server) handleRetractClaim(c *fiber.Ctx) error {
	var body struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "invalid_json_body", err.Error())
		}
	}

	result, err := s.claims.Retract(c.Context(), projectID(c), c.Params("id"), body.Reason)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(result)
}

// handleGetClaim handles GET /api/v1/claims/:id (spec.md §6).
func (s *Server) handleGetClaim(c *fiber.Ctx) error {
	detail, err := s.store.GetClaim(c.Context(), projectID(c), c.Params("id"))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(detail)
}

// handleSubjectTruth handles GET /api/v1/claims/subject/:subjectId/truth
// (spec.md §6).
func (s *Server) handleSubjectTruth(c *fiber.Ctx) error {
	slots, err := s.store.GetCurrentTruth(c.Context(), projectID(c), c.Params("subjectId"), c.QueryBool("include_source", false))
	if err != nil {
		return mapError(c, err)
	}
	enriched, err := s.enrichSlots(c.Context(), projectID(c), slots)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(map[string]any{"slots": enriched, "count": len(enriched)})
}

// handleSubjectSlot handles GET
// /api/v1/claims/subject/:subjectId/slot/:slot (spec.md §6).
func (s *Server) handleSubjectSlot(c *fiber.Ctx) error {
	slot, err := s.store.GetCurrentSlot(c.Context(), projectID(c), c.Params("subjectId"), c.Params("slot"))
	if err != nil {
		return mapError(c, err)
	}
	resp, err := s.enrichSlot(c.Context(), projectID(c), slot)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(resp)
}

// handleSubjectSlots handles GET /api/v1/claims/subject/:subjectId/slots
// (spec.md §6).
func (s *Server) handleSubjectSlots(c *fiber.Ctx) error {
	groups, err := s.store.GetSlots(c.Context(), projectID(c), c.Params("subjectId"), c.QueryInt("limit", 100))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(groups)
}

// handleSubjectGraph handles GET /api/v1/claims/subject/:subjectId/graph
// (spec.md §6).
func (s *Server) handleSubjectGraph(c *fiber.Ctx) error {
	graph, err := s.store.GetClaimGraph(c.Context(), projectID(c), c.Params("subjectId"), c.QueryInt("limit", 100))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(graph)
}

// handleSubjectHistory handles GET
// /api/v1/claims/subject/:subjectId/history (spec.md §6).
func (s *Server) handleSubjectHistory(c *fiber.Ctx) error {
	history, err := s.store.GetClaimHistory(c.Context(), projectID(c), c.Params("subjectId"), c.Query("slot"), c.QueryInt("limit", 100))
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(history)
}
