package llmcap

import "errors"

// ErrCall wraps any failure a Caller implementation encounters talking to
// its backend. Extraction falls back to its heuristic variant on it per
// spec.md §9 rather than surfacing it to the caller.
var ErrCall = errors.New("llm call failed")

// ErrNoContent is returned when the upstream responded successfully but no
// strategy could locate any content in the payload.
var ErrNoContent = errors.New("llm response had no extractable content")
