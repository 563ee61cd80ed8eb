package api

import (
	"time"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/plan"
	"github.com/gmsas95/healthplan/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK
	if err := s.store.Ping(c.UserContext()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}
	resp := fiber.Map{
		"status":    status,
		"version":   Version,
		"timestamp": time.Now().Unix(),
		"llm":       "fallback",
	}
	if s.llm != nil {
		resp["llm"] = s.llm.GetProviderStatus()
	}
	if s.runner != nil {
		runner := fiber.Map{"running": s.runner.IsRunning()}
		if jobs, err := s.runner.ListJobs(c.UserContext()); err == nil {
			active := 0
			for _, j := range jobs {
				if j.IsActive {
					active++
				}
			}
			runner["active_jobs"] = active
		}
		resp["runner"] = runner
	}
	return c.Status(code).JSON(resp)
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		UserID   string `json:"user_id"`
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if req.UserID == "" {
		return badRequest(c, "user_id is required")
	}
	if pw := s.config.Security.AdminPassword; pw != "" && req.Password != pw {
		return c.Status(401).JSON(fiber.Map{"error": "invalid credentials"})
	}

	ttl := time.Duration(s.config.Security.TokenTTL) * time.Hour
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": req.UserID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": tokenString})
}

// ==================== Profile ====================

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	p, err := s.store.GetUserProfile(c.UserContext(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	if p == nil {
		return c.Status(404).JSON(fiber.Map{"error": "profile not found"})
	}
	return c.JSON(p)
}

func (s *Server) handleSaveProfile(c *fiber.Ctx) error {
	var p store.UserProfile
	if err := c.BodyParser(&p); err != nil {
		return badRequest(c, "invalid request")
	}
	for _, t := range []string{p.WakeUpTime, p.SleepTime, p.WorkStart, p.WorkEnd,
		p.BreakfastTime, p.LunchTime, p.DinnerTime, p.WorkoutTime} {
		if t == "" {
			continue
		}
		if _, err := plan.ParseClock(t); err != nil {
			return badRequest(c, err.Error())
		}
	}

	text := []string{p.Name, p.Gender, p.ActivityLevel, p.DietType}
	text = append(text, p.Goals...)
	text = append(text, p.Conditions...)
	text = append(text, p.Medications...)
	if err := s.guard.Check("profile", text...); err != nil {
		return s.fail(c, err)
	}

	p.ID = userID(c)
	if err := s.store.SaveUserProfile(c.UserContext(), &p); err != nil {
		return s.fail(c, err)
	}
	if err := s.planner.InvalidateOptions(p.ID); err != nil {
		s.logger.Warn("Failed to drop cached plan options", zap.String("user_id", p.ID), zap.Error(err))
	}
	return c.JSON(p)
}

// ==================== Schedules ====================

func (s *Server) handleNextSchedule(c *fiber.Ctx) error {
	sched, err := s.scheduler.CheckAndGenerateNextDay(c.UserContext(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"schedule": sched, "available": sched != nil})
}

func (s *Server) handleGetSchedule(c *fiber.Ctx) error {
	sched, err := s.scheduler.GetUserSchedule(c.UserContext(), userID(c), c.Params("date"))
	if err != nil {
		return s.fail(c, err)
	}
	if sched == nil {
		return c.Status(404).JSON(fiber.Map{"error": "no schedule for date"})
	}
	return c.JSON(sched)
}

// ==================== Progress ====================

func (s *Server) handleDailyProgress(c *fiber.Ctx) error {
	progress, err := s.scheduler.GetDailyProgress(c.UserContext(), userID(c), c.Params("date"))
	if err != nil {
		return s.fail(c, err)
	}
	if progress == nil {
		return c.Status(404).JSON(fiber.Map{"error": "no activity recorded for date"})
	}
	return c.JSON(progress)
}

func (s *Server) weekParam(c *fiber.Ctx) string {
	if w := c.Query("week"); w != "" {
		return w
	}
	return plan.FormatDate(s.planner.Today().AddDate(0, 0, -6))
}

func (s *Server) handleWeeklyProgress(c *fiber.Ctx) error {
	summary, err := s.scheduler.GetWeeklyProgressSummary(c.UserContext(), userID(c), s.weekParam(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(summary)
}

func (s *Server) handleHealthProgress(c *fiber.Ctx) error {
	progress, err := s.planner.GetUserHealthProgress(c.UserContext(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(progress)
}

func (s *Server) handleCompleteActivity(c *fiber.Ctx) error {
	var req struct {
		Date      string `json:"date"`
		Completed *bool  `json:"completed"`
		Notes     string `json:"notes"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}
	if err := s.guard.Check("notes", req.Notes); err != nil {
		return s.fail(c, err)
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	progress, err := s.planner.TrackActivityCompletion(c.UserContext(), userID(c), c.Params("id"), req.Date, completed, req.Notes)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(progress)
}

func (s *Server) handleAdjustDifficulty(c *fiber.Ctx) error {
	var req struct {
		Current        string  `json:"current"`
		CompletionRate float64 `json:"completion_rate"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	current, err := plan.ParseDifficulty(req.Current)
	if err != nil {
		return s.fail(c, err)
	}

	cfg := s.planner.AdjustConfig()
	adjusted := plan.AdjustDifficulty(current, req.CompletionRate, cfg)
	return c.JSON(fiber.Map{
		"current":         current,
		"completion_rate": req.CompletionRate,
		"adjusted":        adjusted,
		"changed":         adjusted != current,
	})
}

// ==================== Plans ====================

func (s *Server) handleDifficultyOptions(c *fiber.Ctx) error {
	var req struct {
		Goal string `json:"goal"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}

	if err := s.guard.Check("goal", req.Goal); err != nil {
		return s.fail(c, err)
	}

	profile := plan.Profile{UserID: userID(c)}
	rec, err := s.store.GetUserProfile(c.UserContext(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	if rec != nil {
		profile = rec.ToProfile()
	}

	opts, err := s.planner.GenerateDifficultyOptions(c.UserContext(), profile, req.Goal)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(opts)
}

func (s *Server) handleWeeklyPlan(c *fiber.Ctx) error {
	var req struct {
		Difficulty string `json:"difficulty"`
		Goal       string `json:"goal"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	d, err := plan.ParseDifficulty(req.Difficulty)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.guard.Check("goal", req.Goal); err != nil {
		return s.fail(c, err)
	}

	w, err := s.planner.GenerateWeeklyPlan(c.UserContext(), userID(c), d, req.Goal)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(201).JSON(w)
}

func (s *Server) handleTwoDayPlan(c *fiber.Ctx) error {
	var req struct {
		Goal string `json:"goal"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}

	if err := s.guard.Check("goal", req.Goal); err != nil {
		return s.fail(c, err)
	}

	tp, err := s.planner.GenerateTwoDayPlan(c.UserContext(), userID(c), req.Goal)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(201).JSON(tp)
}

func (s *Server) handleGetTwoDayPlan(c *fiber.Ctx) error {
	tp, err := s.planner.GetActiveTwoDayPlan(c.UserContext(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	if tp == nil {
		return s.fail(c, apperrors.ErrPlanNotFound)
	}
	return c.JSON(tp)
}

func (s *Server) handleCompleteTwoDayDay(c *fiber.Ctx) error {
	day, err := c.ParamsInt("day")
	if err != nil {
		return badRequest(c, "day must be 1 or 2")
	}
	var req struct {
		Completed *bool `json:"completed"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	tp, err := s.planner.MarkTwoDayPlanDayCompleted(c.UserContext(), userID(c), day, completed)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(tp)
}

func (s *Server) handleGetPlan(c *fiber.Ctx) error {
	view, err := s.planner.GetPlanDetails(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	if view.Plan.UserID != userID(c) {
		return s.fail(c, apperrors.ErrPlanNotFound)
	}
	return c.JSON(view)
}

// ==================== Automation ====================

func (s *Server) handleScheduleAutomation(c *fiber.Ctx) error {
	job, err := s.scheduler.ScheduleAutomaticGeneration(c.UserContext(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(201).JSON(job)
}

func (s *Server) handleCancelAutomation(c *fiber.Ctx) error {
	if err := s.scheduler.CancelAutomaticGeneration(c.UserContext(), userID(c)); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}
