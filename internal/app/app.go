package app

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gmsas95/healthplan/internal/api"
	"github.com/gmsas95/healthplan/internal/config"
	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/llm"
	"github.com/gmsas95/healthplan/internal/plan"
	"github.com/gmsas95/healthplan/internal/planning"
	"github.com/gmsas95/healthplan/internal/scheduler"
	"github.com/gmsas95/healthplan/internal/store"
	"github.com/gmsas95/healthplan/internal/tracking"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// App wires configuration, storage and the planning services together.
type App struct {
	Config    *config.Config
	Store     *store.Store
	Logger    *zap.Logger
	LLM       *llm.ProviderManager
	Tracking  *tracking.Service
	Planner   *planning.Planner
	Scheduler *scheduler.Scheduler
	Runner    *scheduler.Runner
	Version   string
}

// New builds the services. A missing LLM provider is not fatal: every
// generator falls back to its deterministic templates.
func New(cfg *config.Config, st *store.Store, logger *zap.Logger, version string) (*App, error) {
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, apperrors.WrapAs(apperrors.ErrConfigInvalid, err)
	}

	pm, err := llm.NewFromConfig(cfg, logger)
	switch {
	case errors.Is(err, apperrors.ErrProviderNotConfigured):
		logger.Warn("No LLM provider configured, using fallback schedules")
		pm = nil
	case err != nil:
		return nil, err
	}

	// A typed nil would make the Completer interface non-nil.
	var completer planning.Completer
	if pm != nil {
		completer = pm
	}

	tr := tracking.NewService(st, logger, loc)
	gen := planning.NewGenerator(completer, logger, loc)
	planner := planning.NewPlanner(st, gen, completer, tr, logger, loc)
	planner.SetAdjustConfig(adjustConfig(cfg.Scheduler))

	sched := scheduler.New(st, planner, logger, schedulerOptions(cfg.Scheduler))
	runner := scheduler.NewRunner(scheduler.RunnerConfig{
		CheckInterval: time.Duration(cfg.Scheduler.CheckInterval) * time.Second,
		MaxConcurrent: cfg.Scheduler.MaxConcurrent,
		JobTimeout:    time.Duration(cfg.Scheduler.JobTimeout) * time.Second,
	}, sched, st, logger)

	return &App{
		Config:    cfg,
		Store:     st,
		Logger:    logger,
		LLM:       pm,
		Tracking:  tr,
		Planner:   planner,
		Scheduler: sched,
		Runner:    runner,
		Version:   version,
	}, nil
}

func adjustConfig(s config.SchedulerConfig) plan.AdjustConfig {
	return plan.AdjustConfig{
		Enabled:           s.AdjustDifficulty,
		IncreaseThreshold: s.IncreaseThreshold,
		DecreaseThreshold: s.DecreaseThreshold,
	}
}

func schedulerOptions(s config.SchedulerConfig) scheduler.Options {
	return scheduler.Options{
		Cron:     s.Cron,
		Timezone: s.Timezone,
		LeaseTTL: time.Duration(s.LeaseTTL) * time.Second,
	}
}

// ApplyConfig is the hot-reload callback. It applies the scheduler section
// and enables or disables LLM providers.
func (app *App) ApplyConfig(cfg *config.Config) {
	app.ApplySchedulerConfig(cfg)
	if app.LLM != nil {
		app.LLM.ApplyConfig(cfg.LLM)
	}
}

// ApplySchedulerConfig picks up reloadable scheduler settings. Thresholds
// take effect on the next adjustment, cron and timezone on the next job
// scheduled. Runner sizing and the time zone used for "today" need a restart.
func (app *App) ApplySchedulerConfig(cfg *config.Config) {
	app.Planner.SetAdjustConfig(adjustConfig(cfg.Scheduler))
	app.Scheduler.SetOptions(schedulerOptions(cfg.Scheduler))

	if cfg.Scheduler.Timezone != app.Config.Scheduler.Timezone ||
		cfg.Scheduler.Enabled != app.Config.Scheduler.Enabled ||
		cfg.Scheduler.CheckInterval != app.Config.Scheduler.CheckInterval {
		app.Logger.Warn("Some scheduler changes apply after restart",
			zap.String("timezone", cfg.Scheduler.Timezone),
			zap.Bool("enabled", cfg.Scheduler.Enabled),
		)
	}

	app.Config.Scheduler = cfg.Scheduler
	app.Logger.Info("Scheduler config applied",
		zap.Bool("adjust_difficulty", cfg.Scheduler.AdjustDifficulty),
		zap.Float64("increase_threshold", cfg.Scheduler.IncreaseThreshold),
		zap.Float64("decrease_threshold", cfg.Scheduler.DecreaseThreshold),
		zap.String("cron", cfg.Scheduler.Cron),
	)
}

// APIServer builds the HTTP server over the app's services.
func (app *App) APIServer() *api.Server {
	api.Version = app.Version
	return api.New(app.Config, api.Deps{
		Store:     app.Store,
		Scheduler: app.Scheduler,
		Planner:   app.Planner,
		Tracking:  app.Tracking,
		LLM:       app.LLM,
		Runner:    app.Runner,
	}, app.Logger)
}

// RunServer serves the API and the job runner until SIGINT or SIGTERM.
// configPath enables hot reload when it names an existing file.
func (app *App) RunServer(configPath, dataDir string) {
	if app.Config.Scheduler.Enabled && app.Config.Scheduler.AutoGenerateNextDay {
		if err := app.Runner.Start(); err != nil {
			app.Logger.Error("Failed to start job runner", zap.Error(err))
		}
	} else {
		app.Logger.Info("Automatic next-day generation disabled")
	}

	if configPath != "" {
		if err := config.Watch(configPath, dataDir, app.Logger, app.ApplyConfig); err != nil {
			app.Logger.Warn("Config hot reload disabled", zap.Error(err))
		}
	}

	server := app.APIServer()
	go func() {
		if err := server.Start(); err != nil {
			app.Logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	app.Logger.Info("healthplan started",
		zap.String("version", app.Version),
		zap.Int("port", app.Config.Server.Port),
		zap.Bool("llm", app.LLM != nil),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info("Shutting down...")

	app.Runner.Stop()

	if err := server.Shutdown(); err != nil {
		app.Logger.Error("Server shutdown error", zap.Error(err))
	}
}

// NewLogger builds the zap logger described by cfg. The json format selects
// the production preset.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, apperrors.WrapAs(apperrors.ErrConfigInvalid, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}
