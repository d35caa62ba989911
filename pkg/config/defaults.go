package config

const (
	defaultServerListen = ":8081"
	defaultProjectID    = "default"

	// defaultAIMode is "auto": prefer the primary LLM, fall back to
	// secondary, then to the degraded simple path (spec.md §6).
	defaultAIMode = "auto"

	defaultEmbeddingProvider   = "none"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:           defaultServerListen,
			DefaultProjectID: defaultProjectID,
		},
		AI: AIConfig{
			Mode: defaultAIMode,
		},
		PrimaryLLM: LLMConfig{
			Provider: "none",
		},
		SecondaryLLM: LLMConfig{
			Provider: "none",
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
	}
}
