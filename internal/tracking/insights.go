package tracking

import (
	"context"
	"fmt"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/plan"
)

// GenerateHealthInsights scores the user and derives text insights from
// progress and the last 30 days of metrics.
func (s *Service) GenerateHealthInsights(ctx context.Context, userID string) (*HealthInsights, error) {
	progress, err := s.GetHealthProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	end := s.today()
	recent, err := s.GetHealthMetrics(ctx, userID,
		plan.FormatDate(end.AddDate(0, 0, -30)), plan.FormatDate(end))
	if err != nil {
		return nil, err
	}

	insights := AnalyzeHealthData(progress, recent)
	insights.OverallHealthScore = OverallHealthScore(progress, recent)
	return insights, nil
}

// rowAverage sums the present readings and divides by every row, so days
// without a reading pull the average down.
func rowAverage(rows []HealthMetrics, field func(HealthMetrics) *int) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, m := range rows {
		if v := field(m); v != nil {
			sum += float64(*v)
		}
	}
	return sum / float64(len(rows))
}

func sleepQuality(m HealthMetrics) *int { return m.SleepQuality }
func energyLevel(m HealthMetrics) *int  { return m.EnergyLevel }
func mood(m HealthMetrics) *int         { return m.Mood }

// OverallHealthScore adds 5 points for each of sleep quality, energy and
// mood whose recent average reaches 7.
func OverallHealthScore(progress plan.HealthProgress, recent []HealthMetrics) float64 {
	score := progress.HealthScore
	if len(recent) > 0 {
		for _, f := range []func(HealthMetrics) *int{sleepQuality, energyLevel, mood} {
			if rowAverage(recent, f) >= 7 {
				score += 5
			}
		}
	}
	return clamp(score)
}

// AnalyzeHealthData applies the insight templates. OverallHealthScore is
// left at zero.
func AnalyzeHealthData(progress plan.HealthProgress, recent []HealthMetrics) *HealthInsights {
	in := &HealthInsights{
		ImprovementAreas: []string{},
		Strengths:        []string{},
		Recommendations:  []string{},
		RiskFactors:      []string{},
		Achievements:     []string{},
		NextGoals:        []string{},
	}

	switch {
	case progress.AverageCompletion < 50:
		in.ImprovementAreas = append(in.ImprovementAreas, "Activity completion rate")
		in.Recommendations = append(in.Recommendations, "Focus on completing at least 70% of daily activities")
	case progress.AverageCompletion >= 80:
		in.Strengths = append(in.Strengths, "High activity completion rate")
		in.Achievements = append(in.Achievements, "Consistent daily activity completion")
	}

	switch {
	case progress.CurrentStreak >= 7:
		in.Strengths = append(in.Strengths, "Strong consistency streak")
		in.Achievements = append(in.Achievements, fmt.Sprintf("%d day streak", progress.CurrentStreak))
	case progress.CurrentStreak < 3:
		in.ImprovementAreas = append(in.ImprovementAreas, "Consistency")
		in.Recommendations = append(in.Recommendations, "Build a daily routine to improve consistency")
	}

	if len(recent) > 0 {
		switch avg := rowAverage(recent, sleepQuality); {
		case avg < 5:
			in.ImprovementAreas = append(in.ImprovementAreas, "Sleep quality")
			in.Recommendations = append(in.Recommendations, "Improve sleep hygiene and aim for 7-9 hours of quality sleep")
		case avg >= 8:
			in.Strengths = append(in.Strengths, "Excellent sleep quality")
		}

		switch avg := rowAverage(recent, energyLevel); {
		case avg < 5:
			in.ImprovementAreas = append(in.ImprovementAreas, "Energy levels")
			in.Recommendations = append(in.Recommendations, "Focus on nutrition and regular exercise to boost energy")
		case avg >= 8:
			in.Strengths = append(in.Strengths, "High energy levels")
		}
	}

	if progress.AverageCompletion >= 80 {
		in.NextGoals = append(in.NextGoals, "Increase workout intensity", "Add advanced nutrition tracking")
	} else {
		in.NextGoals = append(in.NextGoals, "Improve daily consistency", "Build sustainable habits")
	}

	return in
}

// presentAverage averages only the rows that carry a non-zero reading.
func presentAverage(rows []HealthMetrics, field func(HealthMetrics) float64) float64 {
	var sum float64
	n := 0
	for _, m := range rows {
		if v := field(m); v != 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// GenerateWeeklyReport covers weekStart..weekStart+6 and compares metric
// averages with the previous seven days.
func (s *Service) GenerateWeeklyReport(ctx context.Context, userID, weekStart string) (*WeeklyReport, error) {
	start, err := plan.ParseDate(weekStart, s.loc)
	if err != nil {
		return nil, apperrors.WrapAs(apperrors.ErrInvalidDate, err)
	}
	weekEnd := plan.FormatDate(start.AddDate(0, 0, 6))

	current, err := s.GetHealthMetrics(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	previous, err := s.GetHealthMetrics(ctx, userID,
		plan.FormatDate(start.AddDate(0, 0, -7)), plan.FormatDate(start.AddDate(0, 0, -1)))
	if err != nil {
		return nil, err
	}

	completions, err := s.store.ListCompletionsBetween(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	completed := 0
	for _, c := range completions {
		if c.Completed {
			completed++
		}
	}

	insights, err := s.GenerateHealthInsights(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &WeeklyReport{
		WeekStart:           weekStart,
		WeekEnd:             weekEnd,
		TotalActivities:     len(completions),
		CompletedActivities: completed,
		CompletionRate:      plan.CompletionRate(completed, len(completions)),
		AverageHealthScore:  insights.OverallHealthScore,
		TopPerformingDays:   []string{},
		ChallengingDays:     []string{},
		Insights:            *insights,
		Recommendations:     insights.Recommendations,
	}

	delta := func(field func(HealthMetrics) float64) float64 {
		return presentAverage(current, field) - presentAverage(previous, field)
	}
	report.WeightChange = delta(func(m HealthMetrics) float64 { return floatOrZero(m.Weight) })
	report.BodyFatChange = delta(func(m HealthMetrics) float64 { return floatOrZero(m.BodyFat) })
	report.MuscleMassChange = delta(func(m HealthMetrics) float64 { return floatOrZero(m.MuscleMass) })
	report.SleepImprovement = delta(func(m HealthMetrics) float64 { return floatOrZero(m.SleepHours) })
	report.EnergyImprovement = delta(func(m HealthMetrics) float64 { return intOrZero(m.EnergyLevel) })
	report.MoodImprovement = delta(func(m HealthMetrics) float64 { return intOrZero(m.Mood) })
	// Positive means stress went down.
	report.StressReduction = -delta(func(m HealthMetrics) float64 { return intOrZero(m.StressLevel) })

	for _, d := range dailyPerformance(completions) {
		switch {
		case d.CompletionRate >= 80:
			report.TopPerformingDays = append(report.TopPerformingDays, d.Date)
		case d.CompletionRate < 50:
			report.ChallengingDays = append(report.ChallengingDays, d.Date)
		}
	}

	return report, nil
}
