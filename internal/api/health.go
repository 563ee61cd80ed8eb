package api

import (
	"github.com/gmsas95/healthplan/internal/tracking"
	"github.com/gofiber/fiber/v2"
)

func (s *Server) handleRecordMetrics(c *fiber.Ctx) error {
	var m tracking.HealthMetrics
	if err := c.BodyParser(&m); err != nil {
		return badRequest(c, "invalid request")
	}
	if err := s.guard.Check("notes", m.Notes); err != nil {
		return s.fail(c, err)
	}
	if err := s.tracking.RecordHealthMetrics(c.UserContext(), userID(c), m); err != nil {
		return s.fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"recorded": true})
}

func (s *Server) handleListMetrics(c *fiber.Ctx) error {
	rows, err := s.tracking.GetHealthMetrics(c.UserContext(), userID(c), c.Query("start"), c.Query("end"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(rows)
}

func (s *Server) handleTrends(c *fiber.Ctx) error {
	trends, err := s.tracking.GetHealthTrends(c.UserContext(), userID(c), c.Query("period", tracking.Period30d))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(trends)
}

func (s *Server) handleInsights(c *fiber.Ctx) error {
	insights, err := s.tracking.GenerateHealthInsights(c.UserContext(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(insights)
}

func (s *Server) handleWeeklyReport(c *fiber.Ctx) error {
	report, err := s.tracking.GenerateWeeklyReport(c.UserContext(), userID(c), s.weekParam(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(report)
}
