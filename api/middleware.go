package api

import "github.com/gofiber/fiber/v2"

const localsProjectID = "project_id"

// requireProject resolves project context per spec.md §6: X-Project-Id
// header first, then the configured default. Every /api/v1 route runs
// behind this middleware; /health does not.
func (s *Server) requireProject(c *fiber.Ctx) error {
	id := c.Get("X-Project-Id")
	if id == "" {
		id = s.config.DefaultProjectID
	}
	if id == "" {
		return writeError(c, fiber.StatusBadRequest, "project_id_required", "X-Project-Id header or a configured default project id is required")
	}
	c.Locals(localsProjectID, id)
	return c.Next()
}

func projectID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsProjectID).(string)
	return id
}
