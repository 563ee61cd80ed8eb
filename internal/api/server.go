// Package api exposes scheduling, planning and tracking over HTTP.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gmsas95/healthplan/internal/config"
	"github.com/gmsas95/healthplan/internal/llm"
	"github.com/gmsas95/healthplan/internal/planning"
	"github.com/gmsas95/healthplan/internal/scheduler"
	"github.com/gmsas95/healthplan/internal/security"
	"github.com/gmsas95/healthplan/internal/store"
	"github.com/gmsas95/healthplan/internal/tracking"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Version is reported by the health endpoint
var Version = "0.1.0"

// Deps are the services the handlers call into
type Deps struct {
	Store     *store.Store
	Scheduler *scheduler.Scheduler
	Planner   *planning.Planner
	Tracking  *tracking.Service
	LLM       *llm.ProviderManager // nil when only fallbacks are available
	Runner    *scheduler.Runner    // nil when the job runner is not wired
}

// Server handles the HTTP API
type Server struct {
	app       *fiber.App
	config    *config.Config
	store     *store.Store
	scheduler *scheduler.Scheduler
	planner   *planning.Planner
	tracking  *tracking.Service
	llm       *llm.ProviderManager
	runner    *scheduler.Runner
	guard     *security.TextGuard
	logger    *zap.Logger
}

// New creates a new API server
func New(cfg *config.Config, deps Deps, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:       app,
		config:    cfg,
		store:     deps.Store,
		scheduler: deps.Scheduler,
		planner:   deps.Planner,
		tracking:  deps.Tracking,
		llm:       deps.LLM,
		runner:    deps.Runner,
		guard:     security.NewTextGuard(),
		logger:    logger,
	}

	s.setupRoutes()
	return s
}

// App exposes the fiber app, mainly for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
