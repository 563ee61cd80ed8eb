// Package tracking turns stored health metrics and activity completions into
// scores, trends, insights and weekly reports.
package tracking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/metrics"
	"github.com/gmsas95/healthplan/internal/plan"
	"github.com/gmsas95/healthplan/internal/store"
	"go.uber.org/zap"
)

// Trend periods
const (
	Period7d  = "7d"
	Period30d = "30d"
	Period90d = "90d"
)

const maxStreakDays = 30

// Service aggregates health data for one store
type Service struct {
	store  *store.Store
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a tracking service. Dates are evaluated in loc.
func NewService(st *store.Store, logger *zap.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:  st,
		logger: logger,
		loc:    loc,
		now:    time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) today() time.Time {
	t := s.now().In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// RecordHealthMetrics upserts the day's metrics and nudges the health score.
func (s *Service) RecordHealthMetrics(ctx context.Context, userID string, m HealthMetrics) error {
	if m.Date == "" {
		m.Date = plan.FormatDate(s.today())
	}
	if _, err := plan.ParseDate(m.Date, s.loc); err != nil {
		return apperrors.WrapAs(apperrors.ErrInvalidDate, err)
	}
	if err := validateScales(m); err != nil {
		return err
	}

	if err := s.store.UpsertHealthMetric(ctx, m.toRecord(userID)); err != nil {
		return fmt.Errorf("failed to record health metrics: %w", err)
	}
	metrics.RecordHealthMetrics()

	hs, err := s.store.GetHealthScore(ctx, userID)
	if err != nil {
		return err
	}
	if hs == nil {
		hs = &store.HealthScore{UserID: userID}
	}
	hs.Score = ScoreFromMetrics(m, hs.Score)
	hs.LastUpdated = s.now()
	if err := s.store.SaveHealthScore(ctx, hs); err != nil {
		return fmt.Errorf("failed to update health score: %w", err)
	}

	s.logger.Info("Health metrics recorded",
		zap.String("user_id", userID),
		zap.String("date", m.Date),
		zap.Float64("score", hs.Score),
	)
	return nil
}

func validateScales(m HealthMetrics) error {
	scales := map[string]*int{
		"sleepQuality": m.SleepQuality,
		"energyLevel":  m.EnergyLevel,
		"mood":         m.Mood,
		"stressLevel":  m.StressLevel,
	}
	for name, v := range scales {
		if v != nil && (*v < 1 || *v > 10) {
			return apperrors.New(apperrors.ErrBadRequest.Code, fmt.Sprintf("%s must be between 1 and 10", name))
		}
	}
	return nil
}

// ScoreFromMetrics applies the additive point rules to current and clamps
// the result to [0, 100].
func ScoreFromMetrics(m HealthMetrics, current float64) float64 {
	score := current

	if m.Weight != nil && *m.Weight > 0 {
		score += 5
	}
	score += tiered(m.SleepQuality, 7, 5)
	score += tiered(m.EnergyLevel, 7, 5)
	score += tiered(m.Mood, 7, 5)

	if m.StressLevel != nil && *m.StressLevel > 0 {
		switch {
		case *m.StressLevel <= 3:
			score += 10
		case *m.StressLevel <= 5:
			score += 5
		}
	}
	if m.WaterIntake != nil && *m.WaterIntake >= 2000 {
		score += 5
	}
	if m.Steps != nil && *m.Steps >= 10000 {
		score += 5
	}

	return clamp(score)
}

func tiered(v *int, high, mid int) float64 {
	if v == nil {
		return 0
	}
	switch {
	case *v >= high:
		return 10
	case *v >= mid:
		return 5
	}
	return 0
}

func clamp(score float64) float64 {
	return math.Min(100, math.Max(0, score))
}

// GetHealthMetrics returns metrics with start <= date <= end, ordered by date.
func (s *Service) GetHealthMetrics(ctx context.Context, userID, start, end string) ([]HealthMetrics, error) {
	rows, err := s.store.ListHealthMetrics(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]HealthMetrics, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRecord(r))
	}
	return out, nil
}

func periodDays(period string) (string, int) {
	switch period {
	case Period7d:
		return period, 7
	case Period90d:
		return period, 90
	case Period30d:
		return period, 30
	}
	return Period30d, 30
}

// GetHealthTrends maps the period's metric rows into parallel arrays. Unknown
// periods fall back to 30d.
func (s *Service) GetHealthTrends(ctx context.Context, userID, period string) (*HealthTrends, error) {
	period, days := periodDays(period)
	end := s.today()
	start := end.AddDate(0, 0, -days)
	from, to := plan.FormatDate(start), plan.FormatDate(end)

	rows, err := s.GetHealthMetrics(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	trends := &HealthTrends{
		Period:          period,
		WeightTrend:     make([]float64, 0, len(rows)),
		BodyFatTrend:    make([]float64, 0, len(rows)),
		MuscleMassTrend: make([]float64, 0, len(rows)),
		SleepTrend:      make([]float64, 0, len(rows)),
		EnergyTrend:     make([]float64, 0, len(rows)),
		MoodTrend:       make([]float64, 0, len(rows)),
		StressTrend:     make([]float64, 0, len(rows)),
	}
	for _, m := range rows {
		trends.WeightTrend = append(trends.WeightTrend, floatOrZero(m.Weight))
		trends.BodyFatTrend = append(trends.BodyFatTrend, floatOrZero(m.BodyFat))
		trends.MuscleMassTrend = append(trends.MuscleMassTrend, floatOrZero(m.MuscleMass))
		trends.SleepTrend = append(trends.SleepTrend, floatOrZero(m.SleepHours))
		trends.EnergyTrend = append(trends.EnergyTrend, intOrZero(m.EnergyLevel))
		trends.MoodTrend = append(trends.MoodTrend, intOrZero(m.Mood))
		trends.StressTrend = append(trends.StressTrend, intOrZero(m.StressLevel))
	}

	completions, err := s.store.ListCompletionsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	perf := dailyPerformance(completions)
	trends.ActivityTrend = make([]float64, 0, len(perf))
	for _, d := range perf {
		trends.ActivityTrend = append(trends.ActivityTrend, d.CompletionRate)
	}

	return trends, nil
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func intOrZero(v *int) float64 {
	if v == nil {
		return 0
	}
	return float64(*v)
}

// dailyPerformance groups completion rows by date, oldest first.
func dailyPerformance(rows []store.ActivityCompletion) []DayPerformance {
	type tally struct{ total, completed int }
	byDate := make(map[string]*tally)
	for _, r := range rows {
		t := byDate[r.Date]
		if t == nil {
			t = &tally{}
			byDate[r.Date] = t
		}
		t.total++
		if r.Completed {
			t.completed++
		}
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]DayPerformance, 0, len(dates))
	for _, d := range dates {
		t := byDate[d]
		out = append(out, DayPerformance{Date: d, CompletionRate: plan.CompletionRate(t.completed, t.total)})
	}
	return out
}

// Streak counts consecutive days, ending today, that have at least one
// completed activity. Today without a completion ends the streak at 0.
func Streak(completedDates map[string]bool, today time.Time) int {
	streak := 0
	for i := 0; i < maxStreakDays; i++ {
		if !completedDates[plan.FormatDate(today.AddDate(0, 0, -i))] {
			break
		}
		streak++
	}
	return streak
}

func (s *Service) currentStreak(ctx context.Context, userID string) (int, error) {
	today := s.today()
	from := plan.FormatDate(today.AddDate(0, 0, -(maxStreakDays - 1)))
	rows, err := s.store.ListCompletionsBetween(ctx, userID, from, plan.FormatDate(today))
	if err != nil {
		return 0, err
	}
	done := make(map[string]bool)
	for _, r := range rows {
		if r.Completed {
			done[r.Date] = true
		}
	}
	return Streak(done, today), nil
}

// RefreshCompletionScore recomputes the completion-derived part of the
// user's score: completed activities over the last seven days, scaled so
// that seven completions reach 100, and the current streak.
func (s *Service) RefreshCompletionScore(ctx context.Context, userID string) (*store.HealthScore, error) {
	today := s.today()
	rows, err := s.store.ListCompletionsBetween(ctx, userID,
		plan.FormatDate(today.AddDate(0, 0, -6)), plan.FormatDate(today))
	if err != nil {
		return nil, err
	}
	completed := 0
	for _, r := range rows {
		if r.Completed {
			completed++
		}
	}

	streak, err := s.currentStreak(ctx, userID)
	if err != nil {
		return nil, err
	}

	hs, err := s.store.GetHealthScore(ctx, userID)
	if err != nil {
		return nil, err
	}
	if hs == nil {
		hs = &store.HealthScore{UserID: userID}
	}
	hs.CompletionScore = math.Min(100, math.Floor(float64(completed)/7*100))
	hs.StreakDays = streak
	hs.LastUpdated = s.now()

	if err := s.store.SaveHealthScore(ctx, hs); err != nil {
		return nil, fmt.Errorf("failed to update health score: %w", err)
	}
	return hs, nil
}

// GetHealthProgress rolls up plans, completions and the stored score.
func (s *Service) GetHealthProgress(ctx context.Context, userID string) (plan.HealthProgress, error) {
	var hp plan.HealthProgress

	totalPlans, completedPlans, err := s.store.CountWeeklyPlans(ctx, userID, plan.FormatDate(s.today()))
	if err != nil {
		return plan.HealthProgress{}, err
	}
	totalActs, completedActs, err := s.store.CountCompletions(ctx, userID)
	if err != nil {
		return plan.HealthProgress{}, err
	}
	avg, err := s.store.AverageCompletionRate(ctx, userID)
	if err != nil {
		return plan.HealthProgress{}, err
	}
	streak, err := s.currentStreak(ctx, userID)
	if err != nil {
		return plan.HealthProgress{}, err
	}
	hs, err := s.store.GetHealthScore(ctx, userID)
	if err != nil {
		return plan.HealthProgress{}, err
	}

	hp.TotalPlans = int(totalPlans)
	hp.CompletedPlans = int(completedPlans)
	hp.TotalActivities = int(totalActs)
	hp.CompletedActivities = int(completedActs)
	hp.AverageCompletion = avg
	hp.CurrentStreak = streak
	if hs != nil {
		hp.HealthScore = hs.Score
	}
	return hp, nil
}
