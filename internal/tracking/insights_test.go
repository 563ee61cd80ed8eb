package tracking

import (
	"context"
	"testing"

	"github.com/gmsas95/healthplan/internal/plan"
	"github.com/gmsas95/healthplan/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeHealthData_LowProgress(t *testing.T) {
	recent := []HealthMetrics{
		{SleepQuality: intp(4), EnergyLevel: intp(3)},
		{SleepQuality: intp(5)},
	}

	in := AnalyzeHealthData(plan.HealthProgress{AverageCompletion: 30, CurrentStreak: 1}, recent)

	assert.Equal(t, []string{"Activity completion rate", "Consistency", "Sleep quality", "Energy levels"}, in.ImprovementAreas)
	assert.Equal(t, []string{
		"Focus on completing at least 70% of daily activities",
		"Build a daily routine to improve consistency",
		"Improve sleep hygiene and aim for 7-9 hours of quality sleep",
		"Focus on nutrition and regular exercise to boost energy",
	}, in.Recommendations)
	assert.Empty(t, in.Strengths)
	assert.Equal(t, []string{"Improve daily consistency", "Build sustainable habits"}, in.NextGoals)
	assert.NotNil(t, in.RiskFactors)
}

func TestAnalyzeHealthData_StrongProgress(t *testing.T) {
	recent := []HealthMetrics{{SleepQuality: intp(9), EnergyLevel: intp(8)}}

	in := AnalyzeHealthData(plan.HealthProgress{AverageCompletion: 85, CurrentStreak: 9}, recent)

	assert.Equal(t, []string{
		"High activity completion rate",
		"Strong consistency streak",
		"Excellent sleep quality",
		"High energy levels",
	}, in.Strengths)
	assert.Equal(t, []string{"Consistent daily activity completion", "9 day streak"}, in.Achievements)
	assert.Empty(t, in.ImprovementAreas)
	assert.Equal(t, []string{"Increase workout intensity", "Add advanced nutrition tracking"}, in.NextGoals)
}

func TestAnalyzeHealthData_MissingReadingsCountAgainstAverage(t *testing.T) {
	// 9 + nothing over two rows averages 4.5, below the improvement line.
	recent := []HealthMetrics{{SleepQuality: intp(9)}, {}}
	in := AnalyzeHealthData(plan.HealthProgress{AverageCompletion: 60, CurrentStreak: 4}, recent)

	assert.Contains(t, in.ImprovementAreas, "Sleep quality")
}

func TestOverallHealthScore(t *testing.T) {
	good := []HealthMetrics{{SleepQuality: intp(8), EnergyLevel: intp(7), Mood: intp(7)}}

	assert.Equal(t, 65.0, OverallHealthScore(plan.HealthProgress{HealthScore: 50}, good))
	assert.Equal(t, 50.0, OverallHealthScore(plan.HealthProgress{HealthScore: 50}, nil))
	assert.Equal(t, 100.0, OverallHealthScore(plan.HealthProgress{HealthScore: 95}, good))
}

func TestGenerateWeeklyReport(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	// Previous week.
	require.NoError(t, svc.RecordHealthMetrics(ctx, "u1", HealthMetrics{Date: "2026-02-24", Weight: floatp(82), StressLevel: intp(7)}))
	require.NoError(t, svc.RecordHealthMetrics(ctx, "u1", HealthMetrics{Date: "2026-02-26", Weight: floatp(81), StressLevel: intp(5)}))
	// Current week.
	require.NoError(t, svc.RecordHealthMetrics(ctx, "u1", HealthMetrics{Date: "2026-03-03", Weight: floatp(80), StressLevel: intp(4), Mood: intp(7)}))

	complete(t, st, "u1", "a1", "2026-03-02", true)
	complete(t, st, "u1", "a2", "2026-03-02", true)
	complete(t, st, "u1", "a1", "2026-03-04", false)
	complete(t, st, "u1", "a2", "2026-03-04", true)
	complete(t, st, "u1", "a3", "2026-03-04", false)

	report, err := svc.GenerateWeeklyReport(ctx, "u1", "2026-03-02")
	require.NoError(t, err)

	assert.Equal(t, "2026-03-08", report.WeekEnd)
	assert.Equal(t, 5, report.TotalActivities)
	assert.Equal(t, 3, report.CompletedActivities)
	assert.InDelta(t, 60.0, report.CompletionRate, 0.001)
	assert.InDelta(t, -1.5, report.WeightChange, 0.001)
	assert.InDelta(t, 2.0, report.StressReduction, 0.001)
	assert.InDelta(t, 7.0, report.MoodImprovement, 0.001)
	assert.Equal(t, []string{"2026-03-02"}, report.TopPerformingDays)
	assert.Equal(t, []string{"2026-03-04"}, report.ChallengingDays)
	assert.Equal(t, report.Insights.Recommendations, report.Recommendations)
}

func TestGenerateWeeklyReport_InvalidDate(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.GenerateWeeklyReport(context.Background(), "u1", "March 2")
	assert.Error(t, err)
}

func TestGenerateHealthInsights_UsesStoredScore(t *testing.T) {
	svc, st := setupService(t)
	ctx := context.Background()

	require.NoError(t, st.SaveHealthScore(ctx, &store.HealthScore{UserID: "u1", Score: 30}))
	require.NoError(t, st.UpsertHealthMetric(ctx, &store.HealthMetric{UserID: "u1", Date: "2026-03-09", Mood: intp(8)}))

	in, err := svc.GenerateHealthInsights(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 35.0, in.OverallHealthScore)
}
