// Package scheduler decides when a user's next daily schedule is generated
// and runs the persisted recurring jobs that trigger it.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/plan"
	"github.com/gmsas95/healthplan/internal/planning"
	"github.com/gmsas95/healthplan/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options tunes the scheduler
type Options struct {
	Cron     string        // recurring generation time, standard 5-field cron
	Timezone string        // zone the cron expression is evaluated in
	LeaseTTL time.Duration // how long a generation lease is held
}

// Scheduler checks persisted state and triggers next-day generation.
type Scheduler struct {
	store   *store.Store
	planner *planning.Planner
	logger  *zap.Logger

	mu   sync.RWMutex
	opts Options
}

// New creates a scheduler
func New(st *store.Store, planner *planning.Planner, logger *zap.Logger, opts Options) *Scheduler {
	s := &Scheduler{
		store:   st,
		planner: planner,
		logger:  logger,
	}
	s.SetOptions(opts)
	return s
}

// SetOptions replaces the options used for jobs scheduled from now on.
// Existing jobs keep the cron expression they were stored with.
func (s *Scheduler) SetOptions(opts Options) {
	if opts.Cron == "" {
		opts.Cron = "0 23 * * *"
	}
	if opts.Timezone == "" {
		opts.Timezone = s.planner.Location().String()
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 2 * time.Minute
	}
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
}

// Options returns the current options.
func (s *Scheduler) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

func (s *Scheduler) today() string {
	return plan.FormatDate(s.planner.Today())
}

func (s *Scheduler) tomorrow() string {
	return plan.FormatDate(s.planner.Today().AddDate(0, 0, 1))
}

// CheckAndGenerateNextDay returns tomorrow's schedule, generating it from
// today's completion rate when it does not exist yet. It returns nil, nil
// when nothing was completed today or the user has no active plan.
func (s *Scheduler) CheckAndGenerateNextDay(ctx context.Context, userID string) (*plan.DailySchedule, error) {
	today, tomorrow := s.today(), s.tomorrow()

	existing, err := s.store.GetDailySchedule(ctx, userID, tomorrow)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &existing.Schedule, nil
	}

	progress, err := s.planner.DailyProgress(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		s.logger.Debug("No completions today, skipping generation", zap.String("user_id", userID))
		return nil, nil
	}

	active, err := s.store.GetActiveWeeklyPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		s.logger.Debug("No active weekly plan, skipping generation", zap.String("user_id", userID))
		return nil, nil
	}

	lease := fmt.Sprintf("generate:%s:%s", userID, tomorrow)
	owner := uuid.NewString()
	ok, err := s.store.AcquireLease(lease, owner, s.Options().LeaseTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info("Generation already in progress",
			zap.String("user_id", userID),
			zap.String("date", tomorrow),
		)
		return s.storedSchedule(ctx, userID, tomorrow)
	}
	defer func() {
		if err := s.store.ReleaseLease(lease, owner); err != nil {
			s.logger.Warn("Failed to release generation lease", zap.String("lease", lease), zap.Error(err))
		}
	}()

	// Another caller may have finished between the first read and the lease.
	if existing, err := s.store.GetDailySchedule(ctx, userID, tomorrow); err != nil || existing != nil {
		if err != nil {
			return nil, err
		}
		return &existing.Schedule, nil
	}

	return s.planner.GenerateNextDaySchedule(ctx, userID, today, progress.CompletionRate)
}

func (s *Scheduler) storedSchedule(ctx context.Context, userID, date string) (*plan.DailySchedule, error) {
	rec, err := s.store.GetDailySchedule(ctx, userID, date)
	if err != nil || rec == nil {
		return nil, err
	}
	return &rec.Schedule, nil
}

// GetDailyProgress returns nil, nil when no completions exist for date.
func (s *Scheduler) GetDailyProgress(ctx context.Context, userID, date string) (*plan.DailyProgress, error) {
	return s.planner.DailyProgress(ctx, userID, date)
}

// GetUserSchedule returns the stored schedule for date. A missing
// tomorrow is generated on demand.
func (s *Scheduler) GetUserSchedule(ctx context.Context, userID, date string) (*plan.DailySchedule, error) {
	if _, err := plan.ParseDate(date, s.planner.Location()); err != nil {
		return nil, apperrors.WrapAs(apperrors.ErrInvalidDate, err)
	}
	sched, err := s.storedSchedule(ctx, userID, date)
	if err != nil || sched != nil {
		return sched, err
	}
	if date != s.tomorrow() {
		return nil, nil
	}
	return s.CheckAndGenerateNextDay(ctx, userID)
}

// UpdateDailyCompletionRate recomputes the day's rate from completions and
// stores it on the schedule row.
func (s *Scheduler) UpdateDailyCompletionRate(ctx context.Context, userID, date string) (*plan.DailyProgress, error) {
	progress, err := s.planner.DailyProgress(ctx, userID, date)
	if err != nil || progress == nil {
		return progress, err
	}
	if _, err := s.store.UpdateCompletionRate(ctx, userID, date, progress.CompletionRate); err != nil {
		return nil, err
	}
	return progress, nil
}

// GetWeeklyProgressSummary aggregates the stored schedules from weekStart
// through the following six days.
func (s *Scheduler) GetWeeklyProgressSummary(ctx context.Context, userID, weekStart string) (*plan.WeeklySummary, error) {
	weekEnd, err := plan.AddDays(weekStart, 6)
	if err != nil {
		return nil, apperrors.WrapAs(apperrors.ErrInvalidDate, err)
	}
	summary := &plan.WeeklySummary{
		WeekStart:             weekStart,
		WeekEnd:               weekEnd,
		DifficultyProgression: []plan.Difficulty{},
		Recommendations:       []string{},
	}

	recs, err := s.store.ListDailySchedules(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return summary, nil
	}

	var sum float64
	for _, r := range recs {
		if r.CompletionRate >= 80 {
			summary.CompletedDays++
		}
		sum += r.CompletionRate
		summary.DifficultyProgression = append(summary.DifficultyProgression, r.Schedule.Summary.Difficulty)
	}
	summary.TotalDays = len(recs)
	summary.AverageCompletion = sum / float64(len(recs))
	summary.Recommendations = Recommendations(summary.AverageCompletion, summary.CompletedDays, summary.TotalDays)
	return summary, nil
}

// Recommendations returns the canned advice for a week's completion.
func Recommendations(averageCompletion float64, completedDays, totalDays int) []string {
	var recs []string
	switch {
	case averageCompletion >= 90:
		recs = append(recs,
			"Excellent progress! Consider increasing difficulty for next week.",
			"You're ready for more challenging workouts and nutrition goals.")
	case averageCompletion >= 70:
		recs = append(recs,
			"Good progress! Keep up the consistency.",
			"Consider adding one extra activity per day to boost results.")
	case averageCompletion >= 50:
		recs = append(recs,
			"You're making progress! Try to complete at least 70% of activities daily.",
			"Consider adjusting your schedule to better fit your lifestyle.")
	default:
		recs = append(recs,
			"Let's focus on building consistency. Start with easier activities.",
			"Consider reducing the number of activities per day to build habits.")
	}
	if float64(completedDays) < float64(totalDays)*0.5 {
		recs = append(recs, "Try to complete at least 4 days per week for better results.")
	}
	return recs
}
