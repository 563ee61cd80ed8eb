package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/gmsas95/healthplan/internal/plan"
	"github.com/gmsas95/healthplan/internal/store"
	"github.com/gmsas95/healthplan/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ProfileRoundTrip(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	got, err := s.GetUserProfile(ctx, "user_123")
	require.NoError(t, err)
	assert.Nil(t, got)

	p := &store.UserProfile{ID: "user_123", Name: "Ana", WakeUpTime: "06:00", Goals: []string{"better sleep"}}
	require.NoError(t, s.SaveUserProfile(ctx, p))

	got, err = s.GetUserProfile(ctx, "user_123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"better sleep"}, got.Goals)
	assert.Equal(t, "06:00", got.ToProfile().WakeUpTime)
}

func TestStore_DailyScheduleUpsert(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	missing, err := s.GetDailySchedule(ctx, "u1", "2026-03-02")
	require.NoError(t, err)
	assert.Nil(t, missing)

	rec := &store.DailyScheduleRecord{
		UserID:         "u1",
		Date:           "2026-03-02",
		Schedule:       plan.DailySchedule{Date: "2026-03-02", Goal: "first"},
		CompletionRate: 40,
	}
	require.NoError(t, s.UpsertDailySchedule(ctx, rec))

	again := &store.DailyScheduleRecord{
		UserID:   "u1",
		Date:     "2026-03-02",
		Schedule: plan.DailySchedule{Date: "2026-03-02", Goal: "second"},
	}
	require.NoError(t, s.UpsertDailySchedule(ctx, again))

	got, err := s.GetDailySchedule(ctx, "u1", "2026-03-02")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Schedule.Goal)
	assert.Equal(t, 0.0, got.CompletionRate)

	all, err := s.ListDailySchedules(ctx, "u1", "2026-03-01", "2026-03-07")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_UpdateCompletionRate(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	ok, err := s.UpdateCompletionRate(ctx, "u1", "2026-03-02", 50)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.UpsertDailySchedule(ctx, &store.DailyScheduleRecord{UserID: "u1", Date: "2026-03-02"}))
	require.NoError(t, s.UpsertDailySchedule(ctx, &store.DailyScheduleRecord{UserID: "u1", Date: "2026-03-03"}))

	ok, err = s.UpdateCompletionRate(ctx, "u1", "2026-03-02", 80)
	require.NoError(t, err)
	assert.True(t, ok)

	avg, err := s.AverageCompletionRate(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 40.0, avg, 0.001)

	avg, err = s.AverageCompletionRate(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
}

func TestStore_ActivityCompletions(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.UpsertActivityCompletion(ctx, &store.ActivityCompletion{
		UserID: "u1", ActivityID: "a1", Date: "2026-03-02", Completed: true, CompletedAt: &now,
	}))
	require.NoError(t, s.UpsertActivityCompletion(ctx, &store.ActivityCompletion{
		UserID: "u1", ActivityID: "a2", Date: "2026-03-02",
	}))
	// Second write for the same key replaces the first.
	require.NoError(t, s.UpsertActivityCompletion(ctx, &store.ActivityCompletion{
		UserID: "u1", ActivityID: "a2", Date: "2026-03-02", Completed: true, Notes: "late",
	}))
	require.NoError(t, s.UpsertActivityCompletion(ctx, &store.ActivityCompletion{
		UserID: "u1", ActivityID: "a1", Date: "2026-03-04",
	}))

	day, err := s.ListCompletions(ctx, "u1", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.True(t, day[1].Completed)
	assert.Equal(t, "late", day[1].Notes)

	span, err := s.ListCompletionsBetween(ctx, "u1", "2026-03-01", "2026-03-07")
	require.NoError(t, err)
	assert.Len(t, span, 3)

	total, completed, err := s.CountCompletions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), completed)
}

func TestStore_WeeklyPlanActivation(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	none, err := s.GetActiveWeeklyPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, none)

	first := store.WeeklyPlanFromDomain(plan.WeeklyPlan{
		UserID: "u1", Difficulty: plan.Easy, StartDate: "2026-02-23", EndDate: "2026-03-01",
	})
	require.NoError(t, s.ActivateWeeklyPlan(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := store.WeeklyPlanFromDomain(plan.WeeklyPlan{
		UserID: "u1", Difficulty: plan.Hard, StartDate: "2026-03-02", EndDate: "2026-03-08",
		Days: []plan.DailySchedule{{Date: "2026-03-02"}},
	})
	require.NoError(t, s.ActivateWeeklyPlan(ctx, second))

	active, err := s.GetActiveWeeklyPlan(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, plan.Hard, active.ToPlan().Difficulty)
	assert.Len(t, active.Days, 1)

	old, err := s.GetWeeklyPlan(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.False(t, old.IsActive)

	total, completed, err := s.CountWeeklyPlans(ctx, "u1", "2026-03-04")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), completed)
}

func TestStore_TwoDayPlanActivation(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	require.NoError(t, s.ActivateTwoDayPlan(ctx, &store.TwoDayHealthPlan{UserID: "u1", PlanStartDate: "2026-03-02"}))
	require.NoError(t, s.ActivateTwoDayPlan(ctx, &store.TwoDayHealthPlan{UserID: "u1", PlanStartDate: "2026-03-04"}))

	active, err := s.GetActiveTwoDayPlan(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "2026-03-04", active.PlanStartDate)

	require.NoError(t, s.SetTwoDayCompleted(ctx, active.ID, 2, true))
	assert.Error(t, s.SetTwoDayCompleted(ctx, active.ID, 0, true))

	active, err = s.GetActiveTwoDayPlan(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, active.Day1Completed)
	assert.True(t, active.Day2Completed)
	assert.True(t, active.ToPlan().Day2Completed)
}

func TestStore_HealthMetrics(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	weight := 80.5
	mood := 7
	require.NoError(t, s.UpsertHealthMetric(ctx, &store.HealthMetric{UserID: "u1", Date: "2026-03-01", Weight: &weight}))
	require.NoError(t, s.UpsertHealthMetric(ctx, &store.HealthMetric{UserID: "u1", Date: "2026-03-01", Mood: &mood}))
	require.NoError(t, s.UpsertHealthMetric(ctx, &store.HealthMetric{UserID: "u1", Date: "2026-03-05", Weight: &weight}))

	all, err := s.ListHealthMetrics(ctx, "u1", "", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Nil(t, all[0].Weight, "upsert replaces the whole row")
	require.NotNil(t, all[0].Mood)
	assert.Equal(t, 7, *all[0].Mood)

	ranged, err := s.ListHealthMetrics(ctx, "u1", "2026-03-02", "")
	require.NoError(t, err)
	assert.Len(t, ranged, 1)
}

func TestStore_HealthScore(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	hs, err := s.GetHealthScore(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, hs)

	require.NoError(t, s.SaveHealthScore(ctx, &store.HealthScore{UserID: "u1", Score: 55, StreakDays: 2}))
	require.NoError(t, s.SaveHealthScore(ctx, &store.HealthScore{UserID: "u1", Score: 60, StreakDays: 3}))

	hs, err = s.GetHealthScore(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, hs)
	assert.Equal(t, 60.0, hs.Score)
	assert.Equal(t, 3, hs.StreakDays)
}

func TestStore_Jobs(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	require.NoError(t, s.UpsertJob(ctx, &store.ScheduledJob{
		UserID: "u1", Kind: store.JobNextDayGeneration, CronExpression: "0 23 * * *", IsActive: true, NextRunAt: &past,
	}))
	require.NoError(t, s.UpsertJob(ctx, &store.ScheduledJob{
		UserID: "u2", Kind: store.JobNextDayGeneration, CronExpression: "0 23 * * *", IsActive: true, NextRunAt: &future,
	}))

	due, err := s.GetDueJobs(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "u1", due[0].UserID)

	ok, err := s.MarkJobRun(ctx, due[0].ID, now, 1, future)
	require.NoError(t, err)
	assert.True(t, ok)

	due, err = s.GetDueJobs(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	ok, err = s.DeactivateJob(ctx, "u2", store.JobNextDayGeneration)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetJob(ctx, "u2", store.JobNextDayGeneration)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsActive)
	assert.Nil(t, got.NextRunAt)

	ok, err = s.DeactivateJob(ctx, "u3", store.JobNextDayGeneration)
	require.NoError(t, err)
	assert.False(t, ok)

	// Inactive jobs are not marked.
	ok, err = s.MarkJobRun(ctx, got.ID, now, 1, future)
	require.NoError(t, err)
	assert.False(t, ok)

	u1, err := s.GetJob(ctx, "u1", store.JobNextDayGeneration)
	require.NoError(t, err)
	assert.Equal(t, 1, u1.RunCount)
	require.NotNil(t, u1.LastRunAt)
	require.NoError(t, s.DisableJob(ctx, u1.ID, "bad cron"))
	u1, err = s.GetJob(ctx, "u1", store.JobNextDayGeneration)
	require.NoError(t, err)
	assert.False(t, u1.IsActive)
	assert.Equal(t, "bad cron", u1.LastError)

	jobs, err := s.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestStore_Leases(t *testing.T) {
	s := storetest.New(t)

	ok, err := s.AcquireLease("gen:u1:2026-03-03", "worker-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AcquireLease("gen:u1:2026-03-03", "worker-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// The holder may renew.
	ok, err = s.AcquireLease("gen:u1:2026-03-03", "worker-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.ReleaseLease("gen:u1:2026-03-03", "worker-b"))
	ok, err = s.AcquireLease("gen:u1:2026-03-03", "worker-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "release by a non-holder is a no-op")

	require.NoError(t, s.ReleaseLease("gen:u1:2026-03-03", "worker-a"))
	ok, err = s.AcquireLease("gen:u1:2026-03-03", "worker-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_Cache(t *testing.T) {
	s := storetest.New(t)

	_, ok, err := s.GetCache("options:u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetCache("options:u1", []byte(`{"a":1}`), time.Hour))
	val, ok, err := s.GetCache("options:u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(val))

	require.NoError(t, s.SetCache("options:u10", []byte(`{}`), time.Hour))
	require.NoError(t, s.SetCache("options:u2", []byte(`{}`), time.Hour))

	require.NoError(t, s.DeleteCachePrefix("options:u1"))
	_, ok, err = s.GetCache("options:u1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.GetCache("options:u2")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.DeleteCachePrefix("nothing:"))
}
