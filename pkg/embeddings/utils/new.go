// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/loomware/memstate/pkg/embeddings"
	"github.com/loomware/memstate/pkg/embeddings/nop"
	"github.com/loomware/memstate/pkg/embeddings/ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "", "none":
		return nop.NewEmbedder(), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
