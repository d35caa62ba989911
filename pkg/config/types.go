package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent memstate configuration stored as
// config.toml in the .memstate/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version      int             `toml:"version"`
	Server       ServerConfig    `toml:"server"`
	Storage      StorageConfig   `toml:"storage"`
	AI           AIConfig        `toml:"ai"`
	PrimaryLLM   LLMConfig       `toml:"primary_llm"`
	SecondaryLLM LLMConfig       `toml:"secondary_llm"`
	Embedding    EmbeddingConfig `toml:"embedding"`
}

// ServerConfig holds the HTTP API server's settings.
type ServerConfig struct {
	Listen           string `toml:"listen,omitempty"`
	DefaultProjectID string `toml:"default_project_id,omitempty"`
}

// StorageConfig holds relational store settings.
type StorageConfig struct {
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// AIConfig holds the settings that select and shape the retrieval/extraction
// pipelines' use of LLM capabilities (spec.md §6).
type AIConfig struct {
	// Mode is one of auto, primary_llm, secondary_llm, simple.
	Mode               string `toml:"mode,omitempty"`
	UseRetrievalExpand bool   `toml:"use_retrieval_expand,omitempty"`
	RetrievalModel     string `toml:"retrieval_model,omitempty"`
}

// LLMConfig holds settings for a single llmcap.Caller backend.
type LLMConfig struct {
	// Provider is one of openai, http, none.
	Provider string `toml:"provider,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider is one of ollama, none.
	Provider   string `toml:"provider,omitempty"`
	BaseURL    string `toml:"base_url,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.default_project_id": {
		get: func(c *Config) string { return c.Server.DefaultProjectID },
		set: func(c *Config, v string) error { c.Server.DefaultProjectID = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"ai.mode": {
		get: func(c *Config) string { return c.AI.Mode },
		set: func(c *Config, v string) error { c.AI.Mode = v; return nil },
	},
	"ai.use_retrieval_expand": {
		get: func(c *Config) string { return strconv.FormatBool(c.AI.UseRetrievalExpand) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for ai.use_retrieval_expand: %w", err)
			}
			c.AI.UseRetrievalExpand = b
			return nil
		},
	},
	"ai.retrieval_model": {
		get: func(c *Config) string { return c.AI.RetrievalModel },
		set: func(c *Config, v string) error { c.AI.RetrievalModel = v; return nil },
	},
	"primary_llm.provider": {
		get: func(c *Config) string { return c.PrimaryLLM.Provider },
		set: func(c *Config, v string) error { c.PrimaryLLM.Provider = v; return nil },
	},
	"primary_llm.base_url": {
		get: func(c *Config) string { return c.PrimaryLLM.BaseURL },
		set: func(c *Config, v string) error { c.PrimaryLLM.BaseURL = v; return nil },
	},
	"primary_llm.api_key": {
		get: func(c *Config) string { return c.PrimaryLLM.APIKey },
		set: func(c *Config, v string) error { c.PrimaryLLM.APIKey = v; return nil },
	},
	"primary_llm.model": {
		get: func(c *Config) string { return c.PrimaryLLM.Model },
		set: func(c *Config, v string) error { c.PrimaryLLM.Model = v; return nil },
	},
	"secondary_llm.provider": {
		get: func(c *Config) string { return c.SecondaryLLM.Provider },
		set: func(c *Config, v string) error { c.SecondaryLLM.Provider = v; return nil },
	},
	"secondary_llm.base_url": {
		get: func(c *Config) string { return c.SecondaryLLM.BaseURL },
		set: func(c *Config, v string) error { c.SecondaryLLM.BaseURL = v; return nil },
	},
	"secondary_llm.api_key": {
		get: func(c *Config) string { return c.SecondaryLLM.APIKey },
		set: func(c *Config, v string) error { c.SecondaryLLM.APIKey = v; return nil },
	},
	"secondary_llm.model": {
		get: func(c *Config) string { return c.SecondaryLLM.Model },
		set: func(c *Config, v string) error { c.SecondaryLLM.Model = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.base_url": {
		get: func(c *Config) string { return c.Embedding.BaseURL },
		set: func(c *Config, v string) error { c.Embedding.BaseURL = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
}
