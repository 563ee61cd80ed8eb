package api

import (
	"strings"

	"github.com/gmsas95/healthplan/internal/metrics"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := s.app.Group("/api")

	api.Post("/auth/login", s.handleLogin)

	protected := api.Use(s.authMiddleware())

	protected.Get("/profile", s.handleGetProfile)
	protected.Put("/profile", s.handleSaveProfile)

	protected.Post("/schedules/next", s.handleNextSchedule)
	protected.Get("/schedules/:date", s.handleGetSchedule)

	protected.Get("/progress/daily/:date", s.handleDailyProgress)
	protected.Get("/progress/weekly", s.handleWeeklyProgress)
	protected.Get("/progress/health", s.handleHealthProgress)

	protected.Post("/activities/:id/complete", s.handleCompleteActivity)
	protected.Post("/difficulty/adjust", s.handleAdjustDifficulty)

	protected.Post("/plans/options", s.handleDifficultyOptions)
	protected.Post("/plans/weekly", s.handleWeeklyPlan)
	protected.Post("/plans/two-day", s.handleTwoDayPlan)
	protected.Get("/plans/two-day", s.handleGetTwoDayPlan)
	protected.Post("/plans/two-day/:day/complete", s.handleCompleteTwoDayDay)
	protected.Get("/plans/:id", s.handleGetPlan)

	protected.Post("/health-metrics", s.handleRecordMetrics)
	protected.Get("/health-metrics", s.handleListMetrics)
	protected.Get("/health/trends", s.handleTrends)
	protected.Get("/health/insights", s.handleInsights)
	protected.Get("/health/report", s.handleWeeklyReport)

	protected.Post("/automation", s.handleScheduleAutomation)
	protected.Delete("/automation", s.handleCancelAutomation)
}
