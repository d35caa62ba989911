// Package llmcap defines the LLM capability injected into extraction and
// other services that need a model call: Request in, raw JSON out. It makes
// no assumption about which provider wire format backs it.
package llmcap

import (
	"context"
	"encoding/json"
	"time"
)

// Request is a single-turn completion request.
type Request struct {
	System      string
	User        string
	JSONMode    bool
	Deadline    time.Duration
	Temperature float64
}

// Caller calls a configured upstream model and returns its answer as raw
// JSON. Implementations decide how to get there — chat-completions style,
// a single response field, whatever the provider speaks — but always hand
// back JSON the caller can unmarshal directly, or an error.
type Caller interface {
	CallJSON(ctx context.Context, req Request) (json.RawMessage, error)
}
