package planning

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/llm"
	"github.com/gmsas95/healthplan/internal/plan"
	"github.com/gmsas95/healthplan/internal/store"
	"github.com/gmsas95/healthplan/internal/store/storetest"
	"github.com/gmsas95/healthplan/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

// fakeCompleter records prompts and replays canned replies in order. Once
// the replies run out it returns err.
type fakeCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
	systems []string
}

func (f *fakeCompleter) SimpleChat(ctx context.Context, systemPrompt, userMessage string, opts ...llm.ChatOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systems = append(f.systems, systemPrompt)
	f.prompts = append(f.prompts, userMessage)
	if len(f.replies) == 0 {
		if f.err != nil {
			return "", f.err
		}
		return "", apperrors.ErrEmptyCompletion
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

const aiDay = "```json\n" + `{
  "activities": [
    {"type": "wake_up", "title": "Rise", "startTime": "06:00", "endTime": "06:10"},
    {"type": "workout", "title": "Intervals", "startTime": "18:00", "duration": 40},
    {"type": "dinner", "title": "Salmon", "startTime": "19:30", "endTime": "20:00", "calories": 600, "protein": 40}
  ],
  "summary": {"focusAreas": ["cardio"]}
}` + "\n```"

func setupPlanner(t *testing.T, c Completer) (*Planner, *store.Store) {
	t.Helper()
	st := storetest.New(t)
	logger, _ := zap.NewDevelopment()

	tr := tracking.NewService(st, logger, time.UTC)
	tr.SetClock(func() time.Time { return testNow })

	gen := NewGenerator(c, logger, time.UTC)
	p := NewPlanner(st, gen, c, tr, logger, time.UTC)
	p.SetClock(func() time.Time { return testNow })
	return p, st
}

func TestGenerate_ParsesAIReply(t *testing.T) {
	fc := &fakeCompleter{replies: []string{aiDay}}
	logger, _ := zap.NewDevelopment()
	g := NewGenerator(fc, logger, time.UTC)

	s, err := g.Generate(context.Background(), GenerateRequest{
		UserID: "u1", Goal: "improve endurance", Difficulty: plan.Hard, Date: "2026-03-11",
	})
	require.NoError(t, err)

	assert.Equal(t, plan.SourceAI, s.Source)
	assert.Equal(t, "2026-03-11", s.Date)
	assert.Equal(t, "Wednesday", s.DayOfWeek)
	assert.Equal(t, plan.Hard, s.Summary.Difficulty)
	require.Len(t, s.Activities, 3)
	assert.Equal(t, "2026-03-11-01-wake_up", s.Activities[0].ID)
	assert.Equal(t, 10, s.Activities[0].Duration)
	assert.Equal(t, "18:40", s.Activities[1].EndTime)
	assert.Equal(t, plan.Hard, s.Activities[1].Difficulty)
	assert.Equal(t, 40, s.Summary.WorkoutTime)
	assert.Equal(t, 1, s.Summary.MealCount)
	assert.Equal(t, 8.0, s.Summary.SleepHours)
	assert.Contains(t, fc.prompts[0], "DIFFICULTY: hard")
}

func TestGenerate_FallsBackOnBadReplies(t *testing.T) {
	replies := map[string]*fakeCompleter{
		"provider error": {err: errors.New("connection refused")},
		"not json":       {replies: []string{"Sure! Here is your plan."}},
		"no activities":  {replies: []string{`{"activities": []}`}},
		"untitled":       {replies: []string{`{"activities": [{"type": "workout"}]}`}},
	}
	logger, _ := zap.NewDevelopment()

	for name, fc := range replies {
		t.Run(name, func(t *testing.T) {
			g := NewGenerator(fc, logger, time.UTC)
			s, err := g.Generate(context.Background(), GenerateRequest{
				UserID: "u1", Goal: "lose weight", Difficulty: plan.Easy, Date: "2026-03-11",
			})
			require.NoError(t, err)
			assert.Equal(t, plan.SourceFallback, s.Source)
			assert.Equal(t, plan.Easy, s.Summary.Difficulty)
			assert.NotEmpty(t, s.Activities)
		})
	}
}

func TestGenerate_InvalidInput(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	g := NewGenerator(nil, logger, time.UTC)

	_, err := g.Generate(context.Background(), GenerateRequest{Difficulty: plan.Easy, Date: "11/03/2026"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidDate))

	_, err = g.Generate(context.Background(), GenerateRequest{Difficulty: "extreme", Date: "2026-03-11"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidDifficulty))
}

func TestFallbackSchedule(t *testing.T) {
	day := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)

	for _, tt := range []struct {
		d       plan.Difficulty
		workout int
	}{{plan.Easy, 30}, {plan.Moderate, 45}, {plan.Hard, 60}} {
		s := FallbackSchedule(GenerateRequest{Goal: "reduce stress", Difficulty: tt.d, Date: "2026-03-11"}, day)

		assert.Equal(t, tt.workout, s.Summary.WorkoutTime, tt.d)
		assert.Equal(t, plan.SourceFallback, s.Source)
		assert.Equal(t, 4, s.Summary.MealCount)
		assert.Equal(t, plan.ActivityWakeUp, s.Activities[0].Type)
		assert.Equal(t, "06:30", s.Activities[0].StartTime)
		assert.Equal(t, plan.ActivitySleepPrep, s.Activities[len(s.Activities)-1].Type)
		assert.Equal(t, "Journaling and breathing exercises", findType(s, plan.ActivityEveningRoutine).Description)
	}
}

func TestFallbackSchedule_UsesProfileTimesAndGoal(t *testing.T) {
	day := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	s := FallbackSchedule(GenerateRequest{
		Goal:       "healthy weight gain",
		Difficulty: plan.Moderate,
		Date:       "2026-03-11",
		Profile:    plan.Profile{WakeUpTime: "05:00", WorkoutTime: "07:00", SleepTime: "00:30"},
	}, day)

	assert.Equal(t, "05:00", s.Activities[0].StartTime)
	wo := findType(s, plan.ActivityWorkout)
	assert.Equal(t, "07:00", wo.StartTime)
	assert.Equal(t, "07:45", wo.EndTime)
	assert.Equal(t, "Calorie-dense breakfast", findType(s, plan.ActivityBreakfast).Title)
	assert.Equal(t, plan.ActivitySleepPrep, s.Activities[len(s.Activities)-1].Type)
	assert.Equal(t, "00:15", s.Activities[len(s.Activities)-1].StartTime)
}

func findType(s plan.DailySchedule, typ string) plan.Activity {
	for _, a := range s.Activities {
		if a.Type == typ {
			return a
		}
	}
	return plan.Activity{}
}

func TestExtractJSON(t *testing.T) {
	got, err := extractJSON("Here you go:\n```json\n{\"a\": {\"b\": 1}}\n```\nEnjoy")
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	_, err = extractJSON("no object here")
	assert.True(t, errors.Is(err, apperrors.ErrMalformedSchedule))
}

func TestPlanDetailsFor(t *testing.T) {
	d := PlanDetailsFor(plan.Hard, plan.PlanDetails{Name: "Beast", Warnings: []string{"Hydrate"}})
	assert.Equal(t, "Hard Plan", d.Name)
	assert.Equal(t, "Intensive program for advanced users", d.Description)
	assert.Equal(t, 9, d.Intensity)
	assert.Equal(t, []string{"Hydrate"}, d.Warnings)
	assert.Equal(t, "3-5 hours/week", d.TimeCommitment)
	assert.Equal(t, []string{"Modify exercises as needed"}, d.Alternatives)
}

func TestGenerateDifficultyOptions_FallbackAndCache(t *testing.T) {
	fc := &fakeCompleter{replies: []string{`{"easy": {"timeCommitment": "2 hours/week"}, "moderate": {}, "hard": {}}`}}
	p, _ := setupPlanner(t, fc)
	ctx := context.Background()
	profile := plan.Profile{UserID: "u1"}

	opts, err := p.GenerateDifficultyOptions(ctx, profile, "build muscle")
	require.NoError(t, err)
	assert.Equal(t, plan.SourceAI, opts.Source)
	assert.Equal(t, "2 hours/week", opts.Easy.TimeCommitment)
	assert.Equal(t, 6, opts.Moderate.Intensity)

	// Served from cache without another model call.
	again, err := p.GenerateDifficultyOptions(ctx, profile, "build muscle")
	require.NoError(t, err)
	assert.Equal(t, opts, again)
	assert.Equal(t, 1, fc.calls())

	other, err := p.GenerateDifficultyOptions(ctx, profile, "better sleep")
	require.NoError(t, err)
	assert.Equal(t, plan.SourceFallback, other.Source)
	assert.Equal(t, "Perfect for beginners", other.Easy.Description)
	assert.Equal(t, "Hard Plan", other.Hard.Name)

	require.NoError(t, p.InvalidateOptions("u1"))
	refreshed, err := p.GenerateDifficultyOptions(ctx, profile, "build muscle")
	require.NoError(t, err)
	assert.Equal(t, plan.SourceFallback, refreshed.Source)
	assert.Equal(t, 3, fc.calls())
}

func TestGenerateWeeklyPlan_Fallback(t *testing.T) {
	p, st := setupPlanner(t, nil)
	ctx := context.Background()

	first, err := p.GenerateWeeklyPlan(ctx, "u1", plan.Easy, "lose weight")
	require.NoError(t, err)
	w, err := p.GenerateWeeklyPlan(ctx, "u1", plan.Hard, "lose weight")
	require.NoError(t, err)

	assert.Equal(t, plan.SourceFallback, w.Source)
	require.Len(t, w.Days, 7)
	assert.Equal(t, "2026-03-10", w.StartDate)
	assert.Equal(t, "2026-03-16", w.EndDate)
	assert.Equal(t, []string{"lose weight"}, w.OverallGoals)
	assert.Equal(t, []string{"Oatmeal", "Eggs", "Smoothie"}, w.MealVariations.Breakfast)

	active, err := st.GetActiveWeeklyPlan(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, w.ID, active.ID)
	assert.NotEqual(t, first.ID, active.ID)

	today, err := st.GetDailySchedule(ctx, "u1", "2026-03-10")
	require.NoError(t, err)
	require.NotNil(t, today)
	assert.Equal(t, plan.Hard, today.Schedule.Summary.Difficulty)

	tomorrow, err := st.GetDailySchedule(ctx, "u1", "2026-03-11")
	require.NoError(t, err)
	assert.Nil(t, tomorrow)
}

func TestGenerateWeeklyPlan_AI(t *testing.T) {
	days := make([]string, 7)
	for i := range days {
		days[i] = `{"activities": [{"type": "workout", "title": "Day workout", "startTime": "18:00", "duration": 60}]}`
	}
	reply := `{"days": [` + strings.Join(days, ",") + `], "progressTips": ["Sleep well"]}`
	fc := &fakeCompleter{replies: []string{reply}}
	p, _ := setupPlanner(t, fc)

	w, err := p.GenerateWeeklyPlan(context.Background(), "u1", plan.Moderate, "")
	require.NoError(t, err)
	assert.Equal(t, plan.SourceAI, w.Source)
	assert.Equal(t, "general health", w.Goal)
	assert.Equal(t, "2026-03-16", w.Days[6].Date)
	assert.Equal(t, []string{"general health"}, w.OverallGoals)
	assert.Equal(t, []string{"Sleep well"}, w.ProgressTips)
}

func TestGenerateNextDaySchedule_StepsUpFromEasy(t *testing.T) {
	fc := &fakeCompleter{}
	p, st := setupPlanner(t, fc)
	ctx := context.Background()

	_, err := p.GenerateWeeklyPlan(ctx, "u1", plan.Easy, "improve endurance")
	require.NoError(t, err)

	s, err := p.GenerateNextDaySchedule(ctx, "u1", "2026-03-10", 90)
	require.NoError(t, err)

	// The last model call is the daily request for tomorrow.
	last := fc.prompts[len(fc.prompts)-1]
	assert.Contains(t, last, "DIFFICULTY: moderate")
	assert.Contains(t, last, "2026-03-11")
	assert.Equal(t, plan.Moderate, s.Summary.Difficulty)

	rec, err := st.GetDailySchedule(ctx, "u1", "2026-03-11")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 0.0, rec.CompletionRate)

	active, err := st.GetActiveWeeklyPlan(ctx, "u1")
	require.NoError(t, err)
	day, ok := (&plan.WeeklyPlan{Days: active.Days}).Day("2026-03-11")
	require.True(t, ok)
	assert.Equal(t, plan.Moderate, day.Summary.Difficulty)
	assert.Len(t, active.Days, 7)
}

func TestGenerateNextDaySchedule_NoPlan(t *testing.T) {
	p, _ := setupPlanner(t, nil)
	_, err := p.GenerateNextDaySchedule(context.Background(), "u1", "2026-03-10", 90)
	assert.True(t, errors.Is(err, apperrors.ErrPlanNotFound))
}

func TestTrackActivityCompletion(t *testing.T) {
	p, st := setupPlanner(t, nil)
	ctx := context.Background()

	w, err := p.GenerateWeeklyPlan(ctx, "u1", plan.Moderate, "general")
	require.NoError(t, err)
	ids := w.Days[0].ActivityIDs()

	_, err = p.TrackActivityCompletion(ctx, "u1", ids[0], "2026-03-10", true, "")
	require.NoError(t, err)
	progress, err := p.TrackActivityCompletion(ctx, "u1", ids[1], "2026-03-10", false, "skipped")
	require.NoError(t, err)

	assert.Equal(t, 2, progress.TotalActivities)
	assert.Equal(t, 1, progress.CompletedActivities)
	assert.Equal(t, 50.0, progress.CompletionRate)
	assert.Equal(t, plan.Moderate, progress.Difficulty)
	assert.Equal(t, plan.Easy, progress.AdjustedDifficulty)

	rec, err := st.GetDailySchedule(ctx, "u1", "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, 50.0, rec.CompletionRate)

	hs, err := st.GetHealthScore(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, hs)
	assert.Equal(t, 14.0, hs.CompletionScore)
	assert.Equal(t, 1, hs.StreakDays)

	_, err = p.TrackActivityCompletion(ctx, "u1", "", "2026-03-10", true, "")
	assert.True(t, errors.Is(err, apperrors.ErrBadRequest))
}

func TestDailyProgress_NoCompletions(t *testing.T) {
	p, _ := setupPlanner(t, nil)
	progress, err := p.DailyProgress(context.Background(), "u1", "2026-03-10")
	require.NoError(t, err)
	assert.Nil(t, progress)
}

func TestGenerateTwoDayPlan(t *testing.T) {
	p, st := setupPlanner(t, nil)
	ctx := context.Background()

	tp, err := p.GenerateTwoDayPlan(ctx, "u1", "better sleep")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", tp.Day1.Date)
	assert.Equal(t, "2026-03-11", tp.Day2.Date)
	assert.Equal(t, plan.Moderate, tp.Day1.Summary.Difficulty)

	rec, err := st.GetActiveTwoDayPlan(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "2026-03-11", rec.PlanEndDate)
	assert.Equal(t, tp.Day2.ActivityIDs(), rec.Day2Plan.ActivityIDs())
	assert.Equal(t, rec.ID, tp.ID)
}

func TestGenerateTwoDayPlan_AIUsesCurrentDifficulty(t *testing.T) {
	fc := &fakeCompleter{}
	p, _ := setupPlanner(t, fc)
	ctx := context.Background()

	// No replies queued, so the weekly plan falls back and stores today as hard.
	_, err := p.GenerateWeeklyPlan(ctx, "u1", plan.Hard, "build muscle")
	require.NoError(t, err)

	day := `{"activities": [{"type": "workout", "title": "Squats", "startTime": "18:00", "duration": 60}]}`
	fc.mu.Lock()
	fc.replies = []string{`{"day1": ` + day + `, "day2": ` + day + `, "overallGoals": ["strength"]}`}
	fc.mu.Unlock()

	tp, err := p.GenerateTwoDayPlan(ctx, "u1", "build muscle")
	require.NoError(t, err)
	assert.Equal(t, plan.SourceAI, tp.Source)
	assert.Equal(t, plan.Hard, tp.Day1.Summary.Difficulty)
	assert.Equal(t, plan.Hard, tp.Day2.Summary.Difficulty)

	fc.mu.Lock()
	last := fc.prompts[len(fc.prompts)-1]
	fc.mu.Unlock()
	assert.Contains(t, last, "hard difficulty two-day plan")
}

func TestMarkTwoDayPlanDayCompleted(t *testing.T) {
	p, _ := setupPlanner(t, nil)
	ctx := context.Background()

	_, err := p.MarkTwoDayPlanDayCompleted(ctx, "u1", 1, true)
	assert.True(t, errors.Is(err, apperrors.ErrPlanNotFound))

	none, err := p.GetActiveTwoDayPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = p.GenerateTwoDayPlan(ctx, "u1", "better sleep")
	require.NoError(t, err)

	tp, err := p.MarkTwoDayPlanDayCompleted(ctx, "u1", 1, true)
	require.NoError(t, err)
	assert.True(t, tp.Day1Completed)
	assert.False(t, tp.Day2Completed)

	_, err = p.MarkTwoDayPlanDayCompleted(ctx, "u1", 3, true)
	assert.True(t, errors.Is(err, apperrors.ErrBadRequest))

	active, err := p.GetActiveTwoDayPlan(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.Day1Completed)
	assert.False(t, active.Day2Completed)
	assert.Equal(t, "2026-03-10", active.Day1.Date)

	_, err = p.MarkTwoDayPlanDayCompleted(ctx, "u1", 1, false)
	require.NoError(t, err)
	active, err = p.GetActiveTwoDayPlan(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, active.Day1Completed)
}

func TestGetPlanDetails(t *testing.T) {
	p, _ := setupPlanner(t, nil)
	ctx := context.Background()

	w, err := p.GenerateWeeklyPlan(ctx, "u1", plan.Easy, "general")
	require.NoError(t, err)
	_, err = p.TrackActivityCompletion(ctx, "u1", w.Days[0].Activities[0].ID, "2026-03-10", true, "")
	require.NoError(t, err)

	view, err := p.GetPlanDetails(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Easy Plan", view.Details.Name)
	assert.Equal(t, 7, view.Progress.TotalDays)
	assert.Equal(t, 1, view.Progress.CompletedDays)

	_, err = p.GetPlanDetails(ctx, "plan_missing")
	assert.True(t, errors.Is(err, apperrors.ErrPlanNotFound))
}

func TestSetAdjustConfig(t *testing.T) {
	p, _ := setupPlanner(t, nil)
	p.SetAdjustConfig(plan.AdjustConfig{Enabled: false})
	assert.False(t, p.AdjustConfig().Enabled)
}
