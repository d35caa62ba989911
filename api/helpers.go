package api

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func queryFloat(c *fiber.Ctx, key string, def float64) float64 {
	v := c.Query(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// queryList splits a "|"-delimited query parameter, the convention the
// search endpoint uses for conversation_context (spec.md §6
// "context=…").
func queryList(c *fiber.Ctx, key string) []string {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	return strings.Split(v, "|")
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
