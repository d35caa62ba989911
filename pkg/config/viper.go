package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/loomware/memstate/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the MEMSTATE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (MEMSTATE_SERVER_LISTEN, MEMSTATE_STORAGE_POSTGRES_DSN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: MEMSTATE_SERVER_LISTEN, MEMSTATE_AI_MODE, etc.
	v.SetEnvPrefix("MEMSTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.default_project_id", d.Server.DefaultProjectID)

	// Storage
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// AI
	v.SetDefault("ai.mode", d.AI.Mode)
	v.SetDefault("ai.use_retrieval_expand", d.AI.UseRetrievalExpand)
	v.SetDefault("ai.retrieval_model", d.AI.RetrievalModel)

	// LLMs
	v.SetDefault("primary_llm.provider", d.PrimaryLLM.Provider)
	v.SetDefault("primary_llm.base_url", d.PrimaryLLM.BaseURL)
	v.SetDefault("primary_llm.api_key", d.PrimaryLLM.APIKey)
	v.SetDefault("primary_llm.model", d.PrimaryLLM.Model)
	v.SetDefault("secondary_llm.provider", d.SecondaryLLM.Provider)
	v.SetDefault("secondary_llm.base_url", d.SecondaryLLM.BaseURL)
	v.SetDefault("secondary_llm.api_key", d.SecondaryLLM.APIKey)
	v.SetDefault("secondary_llm.model", d.SecondaryLLM.Model)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
}
