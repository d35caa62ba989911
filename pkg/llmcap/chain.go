package llmcap

import (
	"context"
	"encoding/json"
)

// chain tries each Caller in order and returns the first successful result,
// falling through to the next on any error. It's the "auto" ai_mode
// selection: prefer a primary model, fall back to a secondary, and finally
// to whatever no-op/heuristic path the last Caller in the chain represents.
type chain struct {
	callers []Caller
}

// Chain composes callers into a single fallback Caller. An empty chain
// behaves like a Caller that always returns ErrNoContent.
func Chain(callers ...Caller) Caller {
	return &chain{callers: callers}
}

func (c *chain) CallJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	lastErr := error(ErrNoContent)
	for _, caller := range c.callers {
		raw, err := caller.CallJSON(ctx, req)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

var _ Caller = (*chain)(nil)
