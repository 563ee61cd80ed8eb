// Package planning produces daily schedules and multi-day plans, asking the
// configured LLM first and falling back to deterministic templates.
package planning

import (
	"context"
	"time"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/llm"
	"github.com/gmsas95/healthplan/internal/metrics"
	"github.com/gmsas95/healthplan/internal/plan"
	"go.uber.org/zap"
)

// Completer is the slice of the LLM provider manager the generator needs.
type Completer interface {
	SimpleChat(ctx context.Context, systemPrompt, userMessage string, opts ...llm.ChatOption) (string, error)
}

// GenerateRequest describes one day to generate.
type GenerateRequest struct {
	UserID     string
	Goal       string
	Difficulty plan.Difficulty
	Profile    plan.Profile
	Plan       *plan.WeeklyPlan
	Date       string
}

// Generator turns a request into a DailySchedule.
type Generator struct {
	llm    Completer
	logger *zap.Logger
	loc    *time.Location
}

// NewGenerator creates a generator. A nil completer always uses the
// fallback templates.
func NewGenerator(c Completer, logger *zap.Logger, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.Local
	}
	return &Generator{llm: c, logger: logger, loc: loc}
}

// Generate returns a schedule for req.Date. It only fails for an invalid
// date or difficulty; LLM failures of any kind yield the fallback schedule.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (plan.DailySchedule, error) {
	day, err := plan.ParseDate(req.Date, g.loc)
	if err != nil {
		return plan.DailySchedule{}, apperrors.WrapAs(apperrors.ErrInvalidDate, err)
	}
	if !req.Difficulty.Valid() {
		return plan.DailySchedule{}, apperrors.New(apperrors.ErrInvalidDifficulty.Code, "unknown difficulty "+string(req.Difficulty))
	}
	if req.Goal == "" {
		req.Goal = req.Profile.PrimaryGoal()
	}
	req.Profile = req.Profile.WithDefaults()

	if g.llm != nil {
		s, err := g.generateAI(ctx, req, day)
		if err == nil {
			metrics.RecordScheduleGenerated(plan.SourceAI)
			return s, nil
		}
		g.logger.Warn("AI schedule generation failed, using fallback",
			zap.String("user_id", req.UserID),
			zap.String("date", req.Date),
			zap.Error(err),
		)
	}

	metrics.RecordScheduleGenerated(plan.SourceFallback)
	return FallbackSchedule(req, day), nil
}

func (g *Generator) generateAI(ctx context.Context, req GenerateRequest, day time.Time) (plan.DailySchedule, error) {
	reply, err := g.llm.SimpleChat(ctx, dailySystemPrompt, buildDailyPrompt(req, day.Weekday().String()),
		llm.WithTemperature(0.7), llm.WithJSONResponse())
	if err != nil {
		return plan.DailySchedule{}, err
	}
	s, err := parseDailySchedule(reply)
	if err != nil {
		return plan.DailySchedule{}, err
	}
	s.Source = plan.SourceAI
	normalize(s, req.Date, day, req.Goal, req.Difficulty, req.Profile)
	return *s, nil
}
