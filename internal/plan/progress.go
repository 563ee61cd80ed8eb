package plan

// DailyProgress is derived from a day's completion records; it is never
// stored.
type DailyProgress struct {
	Date                string     `json:"date"`
	TotalActivities     int        `json:"totalActivities"`
	CompletedActivities int        `json:"completedActivities"`
	CompletionRate      float64    `json:"completionRate"`
	Difficulty          Difficulty `json:"difficulty"`
	AdjustedDifficulty  Difficulty `json:"adjustedDifficulty,omitempty"`
}

// CompletionRate returns completed/total as a percentage, 0 when total is 0.
func CompletionRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// HealthProgress is the per-user rollup shown on the progress screen.
type HealthProgress struct {
	TotalPlans          int     `json:"totalPlans"`
	CompletedPlans      int     `json:"completedPlans"`
	CurrentStreak       int     `json:"currentStreak"`
	AverageCompletion   float64 `json:"averageCompletion"`
	TotalActivities     int     `json:"totalActivities"`
	CompletedActivities int     `json:"completedActivities"`
	HealthScore         float64 `json:"healthScore"`
}

// WeeklySummary aggregates one week of daily schedules.
type WeeklySummary struct {
	WeekStart             string       `json:"weekStart"`
	WeekEnd               string       `json:"weekEnd"`
	TotalDays             int          `json:"totalDays"`
	CompletedDays         int          `json:"completedDays"`
	AverageCompletion     float64      `json:"averageCompletion"`
	DifficultyProgression []Difficulty `json:"difficultyProgression"`
	Recommendations       []string     `json:"recommendations"`
}
