// Package nop is the "simple" mode LLM capability: it never calls out and
// always reports no content, per spec.md §6's ai_mode=simple configuration.
package nop

import (
	"context"
	"encoding/json"

	"github.com/loomware/memstate/pkg/llmcap"
)

// Caller is a no-op llmcap.Caller.
type Caller struct{}

// New returns a no-op caller.
func New() *Caller {
	return &Caller{}
}

// CallJSON always reports no content — callers fall back to heuristics.
func (c *Caller) CallJSON(ctx context.Context, req llmcap.Request) (json.RawMessage, error) {
	return nil, llmcap.ErrNoContent
}

var _ llmcap.Caller = (*Caller)(nil)
