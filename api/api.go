// Package api provides an HTTP API server over the memory and claim
// substrate (spec.md §6): memory CRUD and search, claim writes and
// truth-state reads, and an SSE feed of lifecycle events.
package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/loomware/memstate/pkg/claimorch"
	"github.com/loomware/memstate/pkg/eventstream"
	"github.com/loomware/memstate/pkg/extraction"
	"github.com/loomware/memstate/pkg/memoryorch"
	"github.com/loomware/memstate/pkg/retrieval"
	"github.com/loomware/memstate/pkg/storage"
)

// Deps bundles every orchestrator and service the API routes call into.
// The storer is injected directly (rather than only through the
// orchestrators) because several read routes — list, search-by-id,
// claim graph/history/slots — have no orchestrator of their own and go
// straight to the storage facade, per spec.md §4.A.
type Deps struct {
	Store     storage.Driver
	Bus       eventstream.Bus
	Memories  *memoryorch.Service
	Claims    *claimorch.Service
	Retrieval *retrieval.Service
	Extractor *extraction.LLM
}

// Server is the API server for the memory/claim substrate.
type Server struct {
	config    Config
	store     storage.Driver
	bus       eventstream.Bus
	memories  *memoryorch.Service
	claims    *claimorch.Service
	retrieval *retrieval.Service
	extractor *extraction.LLM
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates a new API server and registers every route in
// spec.md §6's HTTP surface table.
func NewServer(config Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		store:     deps.Store,
		bus:       deps.Bus,
		memories:  deps.Memories,
		claims:    deps.Claims,
		retrieval: deps.Retrieval,
		extractor: deps.Extractor,
		logger:    logger,
		app:       app,
	}

	app.Get("/health", s.handleHealth)

	v1 := app.Group("/api/v1", s.requireProject)

	v1.Get("/events/memories", s.handleEventsSSE)

	v1.Get("/memories", s.handleListMemories)
	v1.Post("/memories", s.handleCreateMemory)
	v1.Get("/memories/search", s.handleSearchMemories)
	v1.Post("/memories/extract", s.handleExtractMemories)
	v1.Get("/memories/superseded", s.handleListSuperseded)
	v1.Get("/memories/recalls", s.handleRecallEvents)
	v1.Get("/memories/:id", s.handleGetMemory)
	v1.Patch("/memories/:id", s.handlePatchMemory)
	v1.Delete("/memories/:id", s.handleDeleteMemory)
	v1.Get("/memories/:id/claims", s.handleMemoryClaims)
	v1.Post("/memories/:id/restore", s.handleRestoreMemory)

	v1.Post("/claims", s.handleCreateClaim)
	v1.Post("/claims/:id/retract", s.handleRetractClaim)
	v1.Get("/claims/:id", s.handleGetClaim)
	v1.Get("/claims/subject/:subjectId/truth", s.handleSubjectTruth)
	v1.Get("/claims/subject/:subjectId/slot/:slot", s.handleSubjectSlot)
	v1.Get("/claims/subject/:subjectId/slots", s.handleSubjectSlots)
	v1.Get("/claims/subject/:subjectId/graph", s.handleSubjectGraph)
	v1.Get("/claims/subject/:subjectId/history", s.handleSubjectHistory)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
