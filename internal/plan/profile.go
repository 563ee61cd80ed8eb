package plan

import "strings"

// Profile is the subset of user data that shapes a generated schedule.
type Profile struct {
	UserID        string   `json:"userId"`
	Name          string   `json:"name,omitempty"`
	Age           int      `json:"age,omitempty"`
	Gender        string   `json:"gender,omitempty"`
	HeightCM      float64  `json:"heightCm,omitempty"`
	WeightKG      float64  `json:"weightKg,omitempty"`
	WakeUpTime    string   `json:"wakeUpTime,omitempty"`
	SleepTime     string   `json:"sleepTime,omitempty"`
	WorkStart     string   `json:"workStart,omitempty"`
	WorkEnd       string   `json:"workEnd,omitempty"`
	BreakfastTime string   `json:"breakfastTime,omitempty"`
	LunchTime     string   `json:"lunchTime,omitempty"`
	DinnerTime    string   `json:"dinnerTime,omitempty"`
	WorkoutTime   string   `json:"workoutTime,omitempty"`
	ActivityLevel string   `json:"activityLevel,omitempty"`
	DietType      string   `json:"dietType,omitempty"`
	Conditions    []string `json:"conditions,omitempty"`
	Medications   []string `json:"medications,omitempty"`
	Goals         []string `json:"goals,omitempty"`
}

// Default clock times used when the profile leaves a slot empty.
const (
	DefaultWakeUp    = "06:30"
	DefaultBreakfast = "07:30"
	DefaultLunch     = "13:00"
	DefaultWorkout   = "18:00"
	DefaultDinner    = "19:30"
	DefaultSleep     = "22:30"
)

// WithDefaults returns a copy with empty time slots filled in.
func (p Profile) WithDefaults() Profile {
	fill := func(v *string, d string) {
		if _, err := ParseClock(*v); err != nil {
			*v = d
		}
	}
	fill(&p.WakeUpTime, DefaultWakeUp)
	fill(&p.BreakfastTime, DefaultBreakfast)
	fill(&p.LunchTime, DefaultLunch)
	fill(&p.WorkoutTime, DefaultWorkout)
	fill(&p.DinnerTime, DefaultDinner)
	fill(&p.SleepTime, DefaultSleep)
	return p
}

// PrimaryGoal returns the first non-empty goal, or "general health".
func (p Profile) PrimaryGoal() string {
	for _, g := range p.Goals {
		if g = strings.TrimSpace(g); g != "" {
			return g
		}
	}
	return "general health"
}

// GoalKind buckets free-text goals into the template families the fallback
// generator knows about.
type GoalKind string

const (
	GoalWeightLoss GoalKind = "weight_loss"
	GoalWeightGain GoalKind = "weight_gain"
	GoalStrength   GoalKind = "strength"
	GoalEndurance  GoalKind = "endurance"
	GoalSleep      GoalKind = "sleep"
	GoalStress     GoalKind = "stress"
	GoalGeneral    GoalKind = "general"
)

// ClassifyGoal maps a goal string onto a GoalKind using keyword checks.
func ClassifyGoal(goal string) GoalKind {
	g := strings.ToLower(goal)
	switch {
	case strings.Contains(g, "weight") && strings.Contains(g, "loss"),
		strings.Contains(g, "lose weight"), strings.Contains(g, "fat loss"):
		return GoalWeightLoss
	case strings.Contains(g, "weight") && strings.Contains(g, "gain"):
		return GoalWeightGain
	case strings.Contains(g, "muscle"), strings.Contains(g, "strength"), strings.Contains(g, "build"):
		return GoalStrength
	case strings.Contains(g, "fitness"), strings.Contains(g, "endurance"), strings.Contains(g, "cardio"):
		return GoalEndurance
	case strings.Contains(g, "sleep"):
		return GoalSleep
	case strings.Contains(g, "stress"), strings.Contains(g, "mental"), strings.Contains(g, "anxiety"):
		return GoalStress
	}
	return GoalGeneral
}
