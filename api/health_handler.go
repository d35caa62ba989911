package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// storagePingBudget bounds how long the health check waits on the storage
// driver before reporting it down (spec.md §6, §12 "health check
// composition").
const storagePingBudget = 500 * time.Millisecond

// handleHealth is the liveness probe; it does not require project context
// (spec.md §6). It additionally pings the storage driver so an operator
// sees a degraded database rather than a bare "ok" from a server that
// can't actually serve anything.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), storagePingBudget)
	defer cancel()

	status := "ok"
	storageStatus := "up"
	if err := s.store.Ping(ctx); err != nil {
		status = "degraded"
		storageStatus = "down"
	}

	if status != "ok" {
		c.Status(fiber.StatusServiceUnavailable)
	}
	return c.JSON(map[string]any{"status": status, "storage": storageStatus})
}
