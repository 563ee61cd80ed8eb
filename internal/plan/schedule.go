package plan

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for every stored date key.
const DateLayout = "2006-01-02"

// FormatDate renders t as a calendar date in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD key as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// AddDays shifts a YYYY-MM-DD key by n calendar days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date, time.UTC)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, n)), nil
}

// Activity types produced by the generator.
const (
	ActivityWakeUp         = "wake_up"
	ActivityMorningRoutine = "morning_routine"
	ActivityBreakfast      = "breakfast"
	ActivityWorkout        = "workout"
	ActivityLunch          = "lunch"
	ActivitySnack          = "snack"
	ActivityDinner         = "dinner"
	ActivityEveningRoutine = "evening_routine"
	ActivitySleepPrep      = "sleep_prep"
	ActivityHydration      = "hydration"
)

// Schedule sources.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// Activity is one time-boxed block of a daily schedule.
type Activity struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	StartTime    string     `json:"startTime"`
	EndTime      string     `json:"endTime,omitempty"`
	Duration     int        `json:"duration"`
	Priority     string     `json:"priority,omitempty"`
	Category     string     `json:"category,omitempty"`
	Difficulty   Difficulty `json:"difficulty,omitempty"`
	Instructions []string   `json:"instructions,omitempty"`
	Tips         []string   `json:"tips,omitempty"`
	Calories     int        `json:"calories,omitempty"`
	Protein      int        `json:"protein,omitempty"`
}

// Summary aggregates a day's activities.
type Summary struct {
	TotalActivities int        `json:"totalActivities"`
	TotalDuration   int        `json:"totalDuration"`
	WorkoutTime     int        `json:"workoutTime"`
	MealCount       int        `json:"mealCount"`
	SleepHours      float64    `json:"sleepHours"`
	Calories        int        `json:"calories"`
	Protein         int        `json:"protein"`
	FocusAreas      []string   `json:"focusAreas"`
	Difficulty      Difficulty `json:"difficulty"`
}

// DailySchedule is the generated plan for one user-day.
type DailySchedule struct {
	Date       string     `json:"date"`
	DayOfWeek  string     `json:"dayOfWeek"`
	Goal       string     `json:"goal,omitempty"`
	Activities []Activity `json:"activities"`
	Summary    Summary    `json:"summary"`
	Source     string     `json:"source,omitempty"`
}

func isMeal(activityType string) bool {
	switch activityType {
	case ActivityBreakfast, ActivityLunch, ActivityDinner, ActivitySnack:
		return true
	}
	return false
}

// Summarize recomputes the counters in Summary from Activities. Calories,
// protein and focus areas reported by the generator are kept when the
// activities carry no nutrition data.
func (s *DailySchedule) Summarize() {
	var total, workout, meals, calories, protein int
	for _, a := range s.Activities {
		total += a.Duration
		if a.Type == ActivityWorkout {
			workout += a.Duration
		}
		if isMeal(a.Type) {
			meals++
		}
		calories += a.Calories
		protein += a.Protein
	}

	s.Summary.TotalActivities = len(s.Activities)
	s.Summary.TotalDuration = total
	s.Summary.WorkoutTime = workout
	s.Summary.MealCount = meals
	if calories > 0 {
		s.Summary.Calories = calories
	}
	if protein > 0 {
		s.Summary.Protein = protein
	}
	if s.Summary.FocusAreas == nil {
		s.Summary.FocusAreas = []string{}
	}
}

// ActivityIDs lists the activity identifiers in schedule order.
func (s *DailySchedule) ActivityIDs() []string {
	ids := make([]string, 0, len(s.Activities))
	for _, a := range s.Activities {
		ids = append(ids, a.ID)
	}
	return ids
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hh*60 + mm, nil
}

// FormatClock renders minutes after midnight as "HH:MM", wrapping past 24h.
func FormatClock(minutes int) string {
	minutes = ((minutes % 1440) + 1440) % 1440
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// SleepHoursBetween returns the hours from bedtime to wake time, crossing
// midnight when needed.
func SleepHoursBetween(sleep, wake string) (float64, error) {
	s, err := ParseClock(sleep)
	if err != nil {
		return 0, err
	}
	w, err := ParseClock(wake)
	if err != nil {
		return 0, err
	}
	diff := w - s
	if diff <= 0 {
		diff += 1440
	}
	return float64(diff) / 60, nil
}
