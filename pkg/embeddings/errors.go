package embeddings

import "errors"

// ErrEmbedding wraps any failure an Embedder implementation encounters
// talking to its backend. Orchestrators treat it as "no embedding" per
// spec.md §9 ("Embed(text) → vector (possibly empty)") rather than
// surfacing it to the caller.
var ErrEmbedding = errors.New("embedding failed")
