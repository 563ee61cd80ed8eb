package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/llm"
	"github.com/gmsas95/healthplan/internal/metrics"
	"github.com/gmsas95/healthplan/internal/plan"
	"github.com/gmsas95/healthplan/internal/store"
	"github.com/gmsas95/healthplan/internal/tracking"
	"go.uber.org/zap"
)

const optionsCacheTTL = 24 * time.Hour

// Planner owns multi-day plans: difficulty options, weekly and two-day
// plans, next-day generation and activity completion.
type Planner struct {
	store    *store.Store
	gen      *Generator
	llm      Completer
	tracking *tracking.Service
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time

	mu     sync.RWMutex
	adjust plan.AdjustConfig
}

// NewPlanner creates a planner. llm may be nil, in which case every plan
// comes from the fallback templates.
func NewPlanner(st *store.Store, gen *Generator, c Completer, tr *tracking.Service, logger *zap.Logger, loc *time.Location) *Planner {
	if loc == nil {
		loc = time.Local
	}
	return &Planner{
		store:    st,
		gen:      gen,
		llm:      c,
		tracking: tr,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
		adjust:   plan.DefaultAdjustConfig(),
	}
}

// SetClock replaces the time source.
func (p *Planner) SetClock(now func() time.Time) {
	p.now = now
}

// SetAdjustConfig swaps the difficulty thresholds. Safe to call while
// requests are in flight.
func (p *Planner) SetAdjustConfig(cfg plan.AdjustConfig) {
	p.mu.Lock()
	p.adjust = cfg
	p.mu.Unlock()
}

// AdjustConfig returns the thresholds currently in use.
func (p *Planner) AdjustConfig() plan.AdjustConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.adjust
}

// Location is the time zone dates are evaluated in.
func (p *Planner) Location() *time.Location {
	return p.loc
}

// Today returns midnight of the current day in the planner's zone.
func (p *Planner) Today() time.Time {
	t := p.now().In(p.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc)
}

func (p *Planner) profile(ctx context.Context, userID string) (plan.Profile, error) {
	rec, err := p.store.GetUserProfile(ctx, userID)
	if err != nil {
		return plan.Profile{}, err
	}
	if rec == nil {
		return plan.Profile{UserID: userID}, nil
	}
	return rec.ToProfile(), nil
}

// CurrentDifficulty resolves the difficulty in force on date: the stored
// schedule's, else the active plan's, else moderate.
func (p *Planner) CurrentDifficulty(ctx context.Context, userID, date string, active *store.WeeklyPlanRecord) (plan.Difficulty, error) {
	rec, err := p.store.GetDailySchedule(ctx, userID, date)
	if err != nil {
		return "", err
	}
	if rec != nil && rec.Schedule.Summary.Difficulty.Valid() {
		return rec.Schedule.Summary.Difficulty, nil
	}
	if active != nil {
		if d := plan.Difficulty(active.Difficulty); d.Valid() {
			return d, nil
		}
	}
	return plan.Moderate, nil
}

// ==================== Difficulty Options ====================

type optionsReply struct {
	Easy     plan.PlanDetails `json:"easy"`
	Moderate plan.PlanDetails `json:"moderate"`
	Hard     plan.PlanDetails `json:"hard"`
}

func optionsCacheKey(userID, goal string) string {
	return fmt.Sprintf("options:%s:%s", userID, goal)
}

// InvalidateOptions drops the user's cached difficulty options for every
// goal. Called after the profile they were generated from changes.
func (p *Planner) InvalidateOptions(userID string) error {
	return p.store.DeleteCachePrefix("options:" + userID + ":")
}

// GenerateDifficultyOptions describes an easy, moderate and hard plan for
// the goal. AI results are cached per user and goal for a day.
func (p *Planner) GenerateDifficultyOptions(ctx context.Context, profile plan.Profile, goal string) (plan.DifficultyOptions, error) {
	if goal == "" {
		goal = profile.PrimaryGoal()
	}
	key := optionsCacheKey(profile.UserID, goal)

	if cached, ok, err := p.store.GetCache(key); err != nil {
		p.logger.Warn("Options cache read failed", zap.Error(err))
	} else if ok {
		var opts plan.DifficultyOptions
		if err := json.Unmarshal(cached, &opts); err == nil {
			return opts, nil
		}
	}

	if p.llm == nil {
		return FallbackDifficultyOptions(), nil
	}

	reply, err := p.llm.SimpleChat(ctx, optionsSystemPrompt, buildOptionsPrompt(profile, goal),
		llm.WithTemperature(0.3), llm.WithMaxTokens(2000), llm.WithJSONResponse())
	if err == nil {
		var r optionsReply
		if err = decodeReply(reply, &r); err == nil {
			opts := plan.DifficultyOptions{
				Easy:     PlanDetailsFor(plan.Easy, r.Easy),
				Moderate: PlanDetailsFor(plan.Moderate, r.Moderate),
				Hard:     PlanDetailsFor(plan.Hard, r.Hard),
				Source:   plan.SourceAI,
			}
			if b, merr := json.Marshal(opts); merr == nil {
				if cerr := p.store.SetCache(key, b, optionsCacheTTL); cerr != nil {
					p.logger.Warn("Options cache write failed", zap.Error(cerr))
				}
			}
			return opts, nil
		}
	}

	p.logger.Warn("AI difficulty options failed, using fallback",
		zap.String("user_id", profile.UserID),
		zap.Error(err),
	)
	return FallbackDifficultyOptions(), nil
}

// ==================== Weekly Plans ====================

type weeklyReply struct {
	Days           []plan.DailySchedule `json:"days"`
	OverallGoals   []string             `json:"overallGoals"`
	ProgressTips   []string             `json:"progressTips"`
	MealVariations plan.MealVariations  `json:"mealVariations"`
}

// GenerateWeeklyPlan creates a seven-day plan starting today, makes it the
// user's only active plan and stores today's schedule.
func (p *Planner) GenerateWeeklyPlan(ctx context.Context, userID string, difficulty plan.Difficulty, goal string) (*plan.WeeklyPlan, error) {
	if !difficulty.Valid() {
		return nil, apperrors.New(apperrors.ErrInvalidDifficulty.Code, "unknown difficulty "+string(difficulty))
	}
	profile, err := p.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if goal == "" {
		goal = profile.PrimaryGoal()
	}
	profile = profile.WithDefaults()
	start := p.Today()

	w, err := p.weeklyFromAI(ctx, userID, profile, difficulty, goal, start)
	if err != nil {
		p.logger.Warn("AI weekly plan failed, using fallback",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		w = fallbackWeeklyPlan(userID, profile, difficulty, goal, start)
		metrics.RecordScheduleGenerated(plan.SourceFallback)
	} else {
		metrics.RecordScheduleGenerated(plan.SourceAI)
	}

	rec := store.WeeklyPlanFromDomain(w)
	if err := p.store.ActivateWeeklyPlan(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save weekly plan: %w", err)
	}
	w.ID = rec.ID
	w.IsActive = true

	if err := p.store.UpsertDailySchedule(ctx, &store.DailyScheduleRecord{
		UserID:   userID,
		Date:     w.Days[0].Date,
		Schedule: w.Days[0],
	}); err != nil {
		return nil, fmt.Errorf("failed to save first day: %w", err)
	}

	p.logger.Info("Weekly plan generated",
		zap.String("user_id", userID),
		zap.String("plan_id", w.ID),
		zap.String("difficulty", string(difficulty)),
		zap.String("source", w.Source),
	)
	return &w, nil
}

func (p *Planner) weeklyFromAI(ctx context.Context, userID string, profile plan.Profile, d plan.Difficulty, goal string, start time.Time) (plan.WeeklyPlan, error) {
	if p.llm == nil {
		return plan.WeeklyPlan{}, apperrors.ErrProviderNotConfigured
	}
	reply, err := p.llm.SimpleChat(ctx, weeklySystemPrompt, buildWeeklyPrompt(profile, d, goal, plan.FormatDate(start)),
		llm.WithTemperature(0.3), llm.WithMaxTokens(4000), llm.WithJSONResponse())
	if err != nil {
		return plan.WeeklyPlan{}, err
	}
	var r weeklyReply
	if err := decodeReply(reply, &r); err != nil {
		return plan.WeeklyPlan{}, err
	}
	if len(r.Days) < 7 {
		return plan.WeeklyPlan{}, apperrors.WrapAs(apperrors.ErrMalformedSchedule, fmt.Errorf("plan has %d days", len(r.Days)))
	}

	w := plan.WeeklyPlan{
		UserID:         userID,
		Difficulty:     d,
		Goal:           goal,
		StartDate:      plan.FormatDate(start),
		EndDate:        plan.FormatDate(start.AddDate(0, 0, 6)),
		Days:           make([]plan.DailySchedule, 0, 7),
		OverallGoals:   r.OverallGoals,
		ProgressTips:   r.ProgressTips,
		MealVariations: r.MealVariations,
		IsActive:       true,
		Source:         plan.SourceAI,
	}
	for i, day := range r.Days[:7] {
		if err := validateSchedule(&day); err != nil {
			return plan.WeeklyPlan{}, err
		}
		date := start.AddDate(0, 0, i)
		day.Source = plan.SourceAI
		normalize(&day, plan.FormatDate(date), date, goal, d, profile)
		w.Days = append(w.Days, day)
	}
	if len(w.OverallGoals) == 0 {
		w.OverallGoals = []string{goal}
	}
	return w, nil
}

// GenerateNextDaySchedule adjusts difficulty from the completion rate on
// currentDate, generates the following day, appends it to the active plan
// and stores it with a zero completion rate.
func (p *Planner) GenerateNextDaySchedule(ctx context.Context, userID, currentDate string, completionRate float64) (*plan.DailySchedule, error) {
	nextDate, err := plan.AddDays(currentDate, 1)
	if err != nil {
		return nil, apperrors.WrapAs(apperrors.ErrInvalidDate, err)
	}

	active, err := p.store.GetActiveWeeklyPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, apperrors.ErrPlanNotFound
	}

	current, err := p.CurrentDifficulty(ctx, userID, currentDate, active)
	if err != nil {
		return nil, err
	}
	adjusted := plan.AdjustDifficulty(current, completionRate, p.AdjustConfig())

	profile, err := p.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	weekly := active.ToPlan()
	goal := active.Goal
	if goal == "" {
		goal = profile.PrimaryGoal()
	}

	s, err := p.gen.Generate(ctx, GenerateRequest{
		UserID:     userID,
		Goal:       goal,
		Difficulty: adjusted,
		Profile:    profile,
		Plan:       &weekly,
		Date:       nextDate,
	})
	if err != nil {
		return nil, err
	}

	weekly.UpsertDay(s)
	active.Days = weekly.Days
	if err := p.store.SaveWeeklyPlan(ctx, active); err != nil {
		return nil, fmt.Errorf("failed to update weekly plan: %w", err)
	}
	if err := p.store.UpsertDailySchedule(ctx, &store.DailyScheduleRecord{
		UserID:   userID,
		Date:     nextDate,
		Schedule: s,
	}); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}

	metrics.RecordDifficultyAdjustment(string(current), string(adjusted))
	p.logger.Info("Next day schedule generated",
		zap.String("user_id", userID),
		zap.String("date", nextDate),
		zap.Float64("completion_rate", completionRate),
		zap.String("from", string(current)),
		zap.String("to", string(adjusted)),
		zap.String("source", s.Source),
	)
	return &s, nil
}

// ==================== Two-Day Plans ====================

type twoDayReply struct {
	Day1         plan.DailySchedule `json:"day1"`
	Day2         plan.DailySchedule `json:"day2"`
	OverallGoals []string           `json:"overallGoals"`
	ProgressTips []string           `json:"progressTips"`
}

// GenerateTwoDayPlan creates and activates a starter plan for today and
// tomorrow at the user's current difficulty.
func (p *Planner) GenerateTwoDayPlan(ctx context.Context, userID, goal string) (*plan.TwoDayPlan, error) {
	profile, err := p.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if goal == "" {
		goal = profile.PrimaryGoal()
	}
	profile = profile.WithDefaults()

	day1 := p.Today()
	day2 := day1.AddDate(0, 0, 1)
	active, err := p.store.GetActiveWeeklyPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	d, err := p.CurrentDifficulty(ctx, userID, plan.FormatDate(day1), active)
	if err != nil {
		return nil, err
	}

	tp, err := p.twoDayFromAI(ctx, profile, d, goal, day1, day2)
	if err != nil {
		p.logger.Warn("AI two-day plan failed, using fallback",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		tp = p.fallbackTwoDayPlan(userID, profile, d, goal, day1, day2)
	}

	rec := &store.TwoDayHealthPlan{
		UserID:        userID,
		PlanStartDate: tp.Day1.Date,
		PlanEndDate:   tp.Day2.Date,
		Day1Plan:      tp.Day1,
		Day2Plan:      tp.Day2,
		OverallGoals:  tp.OverallGoals,
		ProgressTips:  tp.ProgressTips,
	}
	if err := p.store.ActivateTwoDayPlan(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save two-day plan: %w", err)
	}
	tp.ID = rec.ID
	return &tp, nil
}

// GetActiveTwoDayPlan returns the user's current two-day plan, or nil, nil.
func (p *Planner) GetActiveTwoDayPlan(ctx context.Context, userID string) (*plan.TwoDayPlan, error) {
	rec, err := p.store.GetActiveTwoDayPlan(ctx, userID)
	if err != nil || rec == nil {
		return nil, err
	}
	tp := rec.ToPlan()
	return &tp, nil
}

// MarkTwoDayPlanDayCompleted sets the completion flag for day 1 or 2 of
// the user's active two-day plan.
func (p *Planner) MarkTwoDayPlanDayCompleted(ctx context.Context, userID string, day int, completed bool) (*plan.TwoDayPlan, error) {
	if day != 1 && day != 2 {
		return nil, apperrors.New(apperrors.ErrBadRequest.Code, fmt.Sprintf("day must be 1 or 2, got %d", day))
	}
	rec, err := p.store.GetActiveTwoDayPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperrors.ErrPlanNotFound
	}
	if err := p.store.SetTwoDayCompleted(ctx, rec.ID, day, completed); err != nil {
		return nil, err
	}
	if day == 1 {
		rec.Day1Completed = completed
	} else {
		rec.Day2Completed = completed
	}

	p.logger.Debug("Two-day plan day marked",
		zap.String("user_id", userID),
		zap.String("plan_id", rec.ID),
		zap.Int("day", day),
		zap.Bool("completed", completed),
	)
	tp := rec.ToPlan()
	return &tp, nil
}

func (p *Planner) twoDayFromAI(ctx context.Context, profile plan.Profile, d plan.Difficulty, goal string, day1, day2 time.Time) (plan.TwoDayPlan, error) {
	if p.llm == nil {
		return plan.TwoDayPlan{}, apperrors.ErrProviderNotConfigured
	}
	reply, err := p.llm.SimpleChat(ctx, twoDaySystemPrompt,
		buildTwoDayPrompt(profile, d, goal, plan.FormatDate(day1), plan.FormatDate(day2)),
		llm.WithTemperature(0.7), llm.WithJSONResponse())
	if err != nil {
		return plan.TwoDayPlan{}, err
	}
	var r twoDayReply
	if err := decodeReply(reply, &r); err != nil {
		return plan.TwoDayPlan{}, err
	}
	if err := validateSchedule(&r.Day1); err != nil {
		return plan.TwoDayPlan{}, err
	}
	if err := validateSchedule(&r.Day2); err != nil {
		return plan.TwoDayPlan{}, err
	}
	r.Day1.Source, r.Day2.Source = plan.SourceAI, plan.SourceAI
	normalize(&r.Day1, plan.FormatDate(day1), day1, goal, d, profile)
	normalize(&r.Day2, plan.FormatDate(day2), day2, goal, d, profile)
	return plan.TwoDayPlan{
		Day1:         r.Day1,
		Day2:         r.Day2,
		OverallGoals: r.OverallGoals,
		ProgressTips: r.ProgressTips,
		Source:       plan.SourceAI,
	}, nil
}

func (p *Planner) fallbackTwoDayPlan(userID string, profile plan.Profile, d plan.Difficulty, goal string, day1, day2 time.Time) plan.TwoDayPlan {
	req := GenerateRequest{UserID: userID, Goal: goal, Difficulty: d, Profile: profile}
	req.Date = plan.FormatDate(day1)
	first := FallbackSchedule(req, day1)
	req.Date = plan.FormatDate(day2)
	second := FallbackSchedule(req, day2)
	return plan.TwoDayPlan{
		Day1:         first,
		Day2:         second,
		OverallGoals: []string{goal},
		ProgressTips: []string{"Stay consistent", "Track progress"},
		Source:       plan.SourceFallback,
	}
}

// ==================== Completion Tracking ====================

// DailyProgress derives the day's progress from its completion rows. It
// returns nil, nil when nothing was recorded for the date.
func (p *Planner) DailyProgress(ctx context.Context, userID, date string) (*plan.DailyProgress, error) {
	if _, err := plan.ParseDate(date, p.loc); err != nil {
		return nil, apperrors.WrapAs(apperrors.ErrInvalidDate, err)
	}
	rows, err := p.store.ListCompletions(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	completed := 0
	for _, r := range rows {
		if r.Completed {
			completed++
		}
	}

	active, err := p.store.GetActiveWeeklyPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	current, err := p.CurrentDifficulty(ctx, userID, date, active)
	if err != nil {
		return nil, err
	}
	rate := plan.CompletionRate(completed, len(rows))
	return &plan.DailyProgress{
		Date:                date,
		TotalActivities:     len(rows),
		CompletedActivities: completed,
		CompletionRate:      rate,
		Difficulty:          current,
		AdjustedDifficulty:  plan.AdjustDifficulty(current, rate, p.AdjustConfig()),
	}, nil
}

// TrackActivityCompletion records one activity's completion, stores the
// recomputed day rate on the schedule row and refreshes the completion
// score and streak.
func (p *Planner) TrackActivityCompletion(ctx context.Context, userID, activityID, date string, completed bool, notes string) (*plan.DailyProgress, error) {
	if date == "" {
		date = plan.FormatDate(p.Today())
	}
	if _, err := plan.ParseDate(date, p.loc); err != nil {
		return nil, apperrors.WrapAs(apperrors.ErrInvalidDate, err)
	}
	if activityID == "" {
		return nil, apperrors.New(apperrors.ErrBadRequest.Code, "activity id is required")
	}

	c := &store.ActivityCompletion{
		UserID:     userID,
		ActivityID: activityID,
		Date:       date,
		Completed:  completed,
		Notes:      notes,
	}
	if completed {
		now := p.now()
		c.CompletedAt = &now
	}
	if err := p.store.UpsertActivityCompletion(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to track completion: %w", err)
	}
	metrics.RecordActivityCompletion(completed)

	progress, err := p.DailyProgress(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if _, err := p.store.UpdateCompletionRate(ctx, userID, date, progress.CompletionRate); err != nil {
		return nil, err
	}
	if _, err := p.tracking.RefreshCompletionScore(ctx, userID); err != nil {
		return nil, err
	}

	p.logger.Debug("Activity completion tracked",
		zap.String("user_id", userID),
		zap.String("activity_id", activityID),
		zap.String("date", date),
		zap.Bool("completed", completed),
		zap.Float64("completion_rate", progress.CompletionRate),
	)
	return progress, nil
}

// ==================== Plan Details ====================

// PlanProgress counts completed days since the plan started.
type PlanProgress struct {
	TotalDays      int     `json:"totalDays"`
	CompletedDays  int     `json:"completedDays"`
	CompletionRate float64 `json:"completionRate"`
}

// PlanView is a stored plan with its option details and progress.
type PlanView struct {
	Plan     plan.WeeklyPlan  `json:"plan"`
	Details  plan.PlanDetails `json:"details"`
	Progress PlanProgress     `json:"progress"`
}

// GetPlanDetails loads a plan by id. Completed days are dates since the
// plan's start with at least one completed activity.
func (p *Planner) GetPlanDetails(ctx context.Context, planID string) (*PlanView, error) {
	rec, err := p.store.GetWeeklyPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperrors.ErrPlanNotFound
	}
	w := rec.ToPlan()

	rows, err := p.store.ListCompletionsBetween(ctx, rec.UserID, rec.StartDate, plan.FormatDate(p.Today()))
	if err != nil {
		return nil, err
	}
	days := make(map[string]bool)
	for _, r := range rows {
		if r.Completed {
			days[r.Date] = true
		}
	}

	total := len(w.Days)
	if total < 7 {
		total = 7
	}
	return &PlanView{
		Plan:    w,
		Details: PlanDetailsFor(w.Difficulty, plan.PlanDetails{}),
		Progress: PlanProgress{
			TotalDays:      total,
			CompletedDays:  len(days),
			CompletionRate: plan.CompletionRate(len(days), total),
		},
	}, nil
}

// GetUserHealthProgress rolls up plans, completions and score.
func (p *Planner) GetUserHealthProgress(ctx context.Context, userID string) (plan.HealthProgress, error) {
	return p.tracking.GetHealthProgress(ctx, userID)
}
