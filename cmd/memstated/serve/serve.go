// Package servecmder provides the serve command that runs the memory and
// claim substrate's API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/loomware/memstate/api"
	"github.com/loomware/memstate/pkg/claimorch"
	"github.com/loomware/memstate/pkg/config"
	embeddingutils "github.com/loomware/memstate/pkg/embeddings/utils"
	"github.com/loomware/memstate/pkg/eventstream"
	"github.com/loomware/memstate/pkg/extraction"
	"github.com/loomware/memstate/pkg/extractworker"
	"github.com/loomware/memstate/pkg/llmcap"
	llmcaputils "github.com/loomware/memstate/pkg/llmcap/utils"
	"github.com/loomware/memstate/pkg/logger"
	"github.com/loomware/memstate/pkg/memoryorch"
	"github.com/loomware/memstate/pkg/retrieval"
	"github.com/loomware/memstate/pkg/storage"
	"github.com/loomware/memstate/pkg/storage/inmemory"
	"github.com/loomware/memstate/pkg/storage/postgres"
)

// ServeCommander holds the bound flag values for "memstated serve".
type ServeCommander struct {
	cfg       config.Config
	configDir string
	debug     bool
	logger    *zap.Logger
}

const serveLongDesc string = `Run the memstated API server.

Loads configuration from flags, environment variables (MEMSTATE_ prefix),
and .memstate/config.toml, in that precedence order, then starts the HTTP
API described in spec.md §6: memory CRUD and search, claim writes and
truth-state reads, and an SSE feed of lifecycle events.`

const serveShortDesc string = "Run the memstated API server"

// NewServeCmd builds the serve command.
func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	var (
		serverListen      string
		defaultProjectID  string
		postgresDSN       string
		aiMode            string
		useRetrievalExp   bool
		retrievalModel    string
		primaryProvider   string
		primaryBaseURL    string
		primaryAPIKey     string
		primaryModel      string
		secondaryProvider string
		secondaryBaseURL  string
		secondaryAPIKey   string
		secondaryModel    string
		embeddingProvider string
		embeddingBaseURL  string
		embeddingModel    string
		embeddingDims     uint
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ServeFlagSet, config.ServeFlagKeys)

			fillFromViper(v, &cmder.cfg)

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagServerListen, &serverListen)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagDefaultProjectID, &defaultProjectID)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagPostgresDSN, &postgresDSN)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagAIMode, &aiMode)
	config.AddBoolFlag(cmd, config.ServeFlagSet, config.FlagUseRetrieveExp, &useRetrievalExp)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagRetrievalModel, &retrievalModel)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagPrimaryProvider, &primaryProvider)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagPrimaryBaseURL, &primaryBaseURL)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagPrimaryAPIKey, &primaryAPIKey)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagPrimaryModel, &primaryModel)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagSecondaryProvider, &secondaryProvider)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagSecondaryBaseURL, &secondaryBaseURL)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagSecondaryAPIKey, &secondaryAPIKey)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagSecondaryModel, &secondaryModel)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagEmbeddingProvider, &embeddingProvider)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagEmbeddingBaseURL, &embeddingBaseURL)
	config.AddStringFlag(cmd, config.ServeFlagSet, config.FlagEmbeddingModel, &embeddingModel)
	config.AddUintFlag(cmd, config.ServeFlagSet, config.FlagEmbeddingDims, &embeddingDims)

	return cmd
}

// fillFromViper reads every dotted key directly into cfg, since the
// registry's TOML-style keys don't line up with mapstructure defaults for
// viper.Unmarshal.
func fillFromViper(v *viper.Viper, cfg *config.Config) {
	cfg.Server.Listen = v.GetString("server.listen")
	cfg.Server.DefaultProjectID = v.GetString("server.default_project_id")
	cfg.Storage.PostgresDSN = v.GetString("storage.postgres_dsn")
	cfg.AI.Mode = v.GetString("ai.mode")
	cfg.AI.UseRetrievalExpand = v.GetBool("ai.use_retrieval_expand")
	cfg.AI.RetrievalModel = v.GetString("ai.retrieval_model")
	cfg.PrimaryLLM.Provider = v.GetString("primary_llm.provider")
	cfg.PrimaryLLM.BaseURL = v.GetString("primary_llm.base_url")
	cfg.PrimaryLLM.APIKey = v.GetString("primary_llm.api_key")
	cfg.PrimaryLLM.Model = v.GetString("primary_llm.model")
	cfg.SecondaryLLM.Provider = v.GetString("secondary_llm.provider")
	cfg.SecondaryLLM.BaseURL = v.GetString("secondary_llm.base_url")
	cfg.SecondaryLLM.APIKey = v.GetString("secondary_llm.api_key")
	cfg.SecondaryLLM.Model = v.GetString("secondary_llm.model")
	cfg.Embedding.Provider = v.GetString("embedding.provider")
	cfg.Embedding.BaseURL = v.GetString("embedding.base_url")
	cfg.Embedding.Model = v.GetString("embedding.model")
	cfg.Embedding.Dimensions = v.GetUint("embedding.dimensions")
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := c.buildStorage(ctx)
	if err != nil {
		return fmt.Errorf("creating storage driver: %w", err)
	}
	defer store.Close()

	bus := eventstream.NewLocalBus(c.logger)
	defer bus.Close()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.cfg.Embedding.Provider,
		TargetURL:    c.cfg.Embedding.BaseURL,
		Model:        c.cfg.Embedding.Model,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	caller, err := c.selectCaller()
	if err != nil {
		return fmt.Errorf("selecting LLM caller: %w", err)
	}

	extractor := extraction.NewLLM(caller)
	claims := claimorch.New(store)

	extractPool := extractworker.NewPool(&extractworker.Config{
		LLM:       extractor,
		ClaimOrch: claims,
		Embedder:  embedder,
		Logger:    c.logger,
	})
	defer extractPool.Close()

	memories := memoryorch.New(store, bus, embedder, extractPool, c.logger)
	retrieve := retrieval.New(store, embedder, caller, c.cfg.AI.UseRetrievalExpand)

	apiConfig := api.Config{
		ListenAddr:       c.cfg.Server.Listen,
		DefaultProjectID: c.cfg.Server.DefaultProjectID,
	}
	server := api.NewServer(apiConfig, api.Deps{
		Store:     store,
		Bus:       bus,
		Memories:  memories,
		Claims:    claims,
		Retrieval: retrieve,
		Extractor: extractor,
	}, c.logger)

	c.logger.Info("starting memstated",
		zap.String("listen", c.cfg.Server.Listen),
		zap.String("ai_mode", c.cfg.AI.Mode),
		zap.Bool("postgres", c.cfg.Storage.PostgresDSN != ""),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

// buildStorage creates and, for Postgres, migrates the storage driver. An
// empty DSN selects the in-memory driver (spec.md §4.A allows either).
func (c *ServeCommander) buildStorage(ctx context.Context) (storage.Driver, error) {
	if c.cfg.Storage.PostgresDSN == "" {
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}

	pgConfig := postgres.DefaultConfig()
	pgConfig.DSN = c.cfg.Storage.PostgresDSN
	pgConfig.EmbeddingDim = int(c.cfg.Embedding.Dimensions)

	driver, err := postgres.New(ctx, pgConfig, c.logger)
	if err != nil {
		return nil, err
	}

	if err := driver.EnsureSchema(ctx); err != nil {
		driver.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	c.logger.Info("using Postgres storage")
	return driver, nil
}

// selectCaller resolves ai.mode (spec.md line 254) into the llmcap.Caller
// the extraction and retrieval services will use: auto chains primary then
// secondary then a no-op terminus, primary_llm/secondary_llm pin to one
// caller, and simple always uses the no-op (pushing extraction onto its
// heuristic fallback).
func (c *ServeCommander) selectCaller() (llmcap.Caller, error) {
	primary, err := llmcaputils.NewCaller(&llmcaputils.NewCallerOpts{
		ProviderType: c.cfg.PrimaryLLM.Provider,
		BaseURL:      c.cfg.PrimaryLLM.BaseURL,
		APIKey:       c.cfg.PrimaryLLM.APIKey,
		Model:        c.cfg.PrimaryLLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("primary_llm: %w", err)
	}

	secondary, err := llmcaputils.NewCaller(&llmcaputils.NewCallerOpts{
		ProviderType: c.cfg.SecondaryLLM.Provider,
		BaseURL:      c.cfg.SecondaryLLM.BaseURL,
		APIKey:       c.cfg.SecondaryLLM.APIKey,
		Model:        c.cfg.SecondaryLLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("secondary_llm: %w", err)
	}

	simple, err := llmcaputils.NewCaller(&llmcaputils.NewCallerOpts{ProviderType: "none"})
	if err != nil {
		return nil, err
	}

	switch c.cfg.AI.Mode {
	case "primary_llm":
		return primary, nil
	case "secondary_llm":
		return secondary, nil
	case "simple":
		return simple, nil
	case "auto", "":
		return llmcap.Chain(primary, secondary, simple), nil
	default:
		return nil, fmt.Errorf("unsupported ai.mode: %q", c.cfg.AI.Mode)
	}
}
