package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/loomware/memstate/pkg/claim"
	"github.com/loomware/memstate/pkg/memory"
	"github.com/loomware/memstate/pkg/storage"
)

// ErrorResponse is the JSON error body shape for every non-2xx response
// (spec.md §7).
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: code, Message: message})
}

// validationCodes maps a validation sentinel to its wire error code
// (spec.md §7 taxonomy).
var validationCodes = map[error]string{
	memory.ErrSubjectRequired: "subject_id_required",
	memory.ErrTextRequired:    "text_required",
	memory.ErrTextTooLong:     "text_too_long",
	claim.ErrSubjectRequired:  "subject_id_required",
	claim.ErrPredicateRequired:   "predicate_required",
	claim.ErrObjectValueRequired: "object_value_required",
	claim.ErrSlotRequired:        "slot_required",
}

// mapError converts a domain/storage error into the appropriate HTTP
// status and error body (spec.md §7). Handlers that need to distinguish a
// status code the taxonomy doesn't cover generically (restore's 400 on
// memory_deleted) check the sentinel themselves before falling back here.
func mapError(c *fiber.Ctx, err error) error {
	var notFound storage.ErrNotFound
	switch {
	case errors.As(err, &notFound):
		return writeError(c, fiber.StatusNotFound, notFound.Kind+"_not_found", err.Error())
	case errors.Is(err, memory.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "memory_not_found", err.Error())
	case errors.Is(err, memory.ErrDeleted), errors.Is(err, storage.ErrDeleted):
		return writeError(c, fiber.StatusNotFound, "memory_deleted", err.Error())
	case errors.Is(err, claim.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "claim_not_found", err.Error())
	case errors.Is(err, claim.ErrSlotNotFound):
		return writeError(c, fiber.StatusNotFound, "slot_not_found", err.Error())
	}

	for sentinel, code := range validationCodes {
		if errors.Is(err, sentinel) {
			return writeError(c, fiber.StatusBadRequest, code, err.Error())
		}
	}

	return writeError(c, fiber.StatusInternalServerError, "server_error", err.Error())
}
