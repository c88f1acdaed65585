package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mythos-rpg/mythos/pkg/storage"
)

// Server is the API server for managing and querying mythos saves and
// memories.
type Server struct {
	config Config
	storer storage.Driver
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The storer is injected to allow sharing with other components
// (e.g., the play loop when everything runs in one process).
func NewServer(config Config, storer storage.Driver, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		storer: storer,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/stats", s.handleStats)
	app.Get("/v1/saves", s.handleListSaves)
	app.Post("/v1/saves", s.handleCreateSave)
	app.Get("/v1/saves/:id", s.handleGetSave)
	app.Put("/v1/saves/:id", s.handleUpdateSave)
	app.Delete("/v1/saves/:id", s.handleDeleteSave)
	app.Get("/v1/search", s.handleSearchEndpoint)

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
