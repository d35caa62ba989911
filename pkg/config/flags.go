package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands.
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagServerListen     = "server-listen"
	FlagDefaultProjectID = "default-project-id"
	FlagPostgresDSN      = "postgres-dsn"
	FlagAIMode           = "ai-mode"
	FlagUseRetrieveExp   = "use-retrieval-expand"
	FlagRetrievalModel   = "retrieval-model"
	FlagPrimaryProvider  = "primary-llm-provider"
	FlagPrimaryBaseURL   = "primary-llm-base-url"
	FlagPrimaryAPIKey    = "primary-llm-api-key"
	FlagPrimaryModel     = "primary-llm-model"
	FlagSecondaryProvider = "secondary-llm-provider"
	FlagSecondaryBaseURL  = "secondary-llm-base-url"
	FlagSecondaryAPIKey   = "secondary-llm-api-key"
	FlagSecondaryModel    = "secondary-llm-model"
	FlagEmbeddingProvider = "embedding-provider"
	FlagEmbeddingBaseURL  = "embedding-base-url"
	FlagEmbeddingModel    = "embedding-model"
	FlagEmbeddingDims     = "embedding-dimensions"
)

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}

// ServeFlagSet is the registry for "memstated serve"'s flags.
var ServeFlagSet = FlagSet{
	FlagServerListen: {
		Name: "listen", Shorthand: "l", ViperKey: "server.listen",
		Description: "Address for the API server to listen on",
	},
	FlagDefaultProjectID: {
		Name: "default-project-id", ViperKey: "server.default_project_id",
		Description: "Project id used when a request omits X-Project-Id",
	},
	FlagPostgresDSN: {
		Name: "postgres-dsn", Shorthand: "d", ViperKey: "storage.postgres_dsn",
		Description: "Postgres DSN (empty uses the in-memory driver)",
	},
	FlagAIMode: {
		Name: "ai-mode", ViperKey: "ai.mode",
		Description: "LLM selection mode: auto, primary_llm, secondary_llm, simple",
	},
	FlagUseRetrieveExp: {
		Name: "use-retrieval-expand", ViperKey: "ai.use_retrieval_expand",
		Description: "Use the LLM-classified multi-query retrieval pipeline",
	},
	FlagRetrievalModel: {
		Name: "retrieval-model", ViperKey: "ai.retrieval_model",
		Description: "Model name passed to retrieval's classify/rerank calls",
	},
	FlagPrimaryProvider: {
		Name: "primary-llm-provider", ViperKey: "primary_llm.provider",
		Description: "Primary LLM caller provider: openai, http, none",
	},
	FlagPrimaryBaseURL: {
		Name: "primary-llm-base-url", ViperKey: "primary_llm.base_url",
		Description: "Primary LLM base URL",
	},
	FlagPrimaryAPIKey: {
		Name: "primary-llm-api-key", ViperKey: "primary_llm.api_key",
		Description: "Primary LLM API key",
	},
	FlagPrimaryModel: {
		Name: "primary-llm-model", ViperKey: "primary_llm.model",
		Description: "Primary LLM model name",
	},
	FlagSecondaryProvider: {
		Name: "secondary-llm-provider", ViperKey: "secondary_llm.provider",
		Description: "Secondary (fallback) LLM caller provider: openai, http, none",
	},
	FlagSecondaryBaseURL: {
		Name: "secondary-llm-base-url", ViperKey: "secondary_llm.base_url",
		Description: "Secondary LLM base URL",
	},
	FlagSecondaryAPIKey: {
		Name: "secondary-llm-api-key", ViperKey: "secondary_llm.api_key",
		Description: "Secondary LLM API key",
	},
	FlagSecondaryModel: {
		Name: "secondary-llm-model", ViperKey: "secondary_llm.model",
		Description: "Secondary LLM model name",
	},
	FlagEmbeddingProvider: {
		Name: "embedding-provider", ViperKey: "embedding.provider",
		Description: "Embedding provider: ollama, none",
	},
	FlagEmbeddingBaseURL: {
		Name: "embedding-base-url", ViperKey: "embedding.base_url",
		Description: "Embedding provider base URL",
	},
	FlagEmbeddingModel: {
		Name: "embedding-model", ViperKey: "embedding.model",
		Description: "Embedding model name",
	},
	FlagEmbeddingDims: {
		Name: "embedding-dimensions", ViperKey: "embedding.dimensions",
		Description: "Embedding vector dimension",
	},
}

// ServeFlagKeys lists every ServeFlagSet key that should be bound to viper
// in the order they're registered on the command.
var ServeFlagKeys = []string{
	FlagServerListen, FlagDefaultProjectID, FlagPostgresDSN,
	FlagAIMode, FlagUseRetrieveExp, FlagRetrievalModel,
	FlagPrimaryProvider, FlagPrimaryBaseURL, FlagPrimaryAPIKey, FlagPrimaryModel,
	FlagSecondaryProvider, FlagSecondaryBaseURL, FlagSecondaryAPIKey, FlagSecondaryModel,
	FlagEmbeddingProvider, FlagEmbeddingBaseURL, FlagEmbeddingModel, FlagEmbeddingDims,
}
