package plan

// PlanDetails describes one difficulty option offered to the user before a
// weekly plan is generated.
type PlanDetails struct {
	Level            Difficulty `json:"level"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Characteristics  []string   `json:"characteristics"`
	EstimatedTime    string     `json:"estimatedTime"`
	Intensity        int        `json:"intensity"`
	EstimatedResults []string   `json:"estimatedResults"`
	TimeCommitment   string     `json:"timeCommitment"`
	EquipmentNeeded  []string   `json:"equipmentNeeded"`
	PreparationSteps []string   `json:"preparationSteps"`
	SuccessMetrics   []string   `json:"successMetrics"`
	Warnings         []string   `json:"warnings"`
	Alternatives     []string   `json:"alternatives"`
}

// DifficultyOptions bundles the three options.
type DifficultyOptions struct {
	Easy     PlanDetails `json:"easy"`
	Moderate PlanDetails `json:"moderate"`
	Hard     PlanDetails `json:"hard"`
	Source   string      `json:"source,omitempty"`
}

// Get returns the option for d.
func (o DifficultyOptions) Get(d Difficulty) (PlanDetails, bool) {
	switch d {
	case Easy:
		return o.Easy, true
	case Moderate:
		return o.Moderate, true
	case Hard:
		return o.Hard, true
	}
	return PlanDetails{}, false
}

// MealVariations lists rotating meal ideas.
type MealVariations struct {
	Breakfast []string `json:"breakfast"`
	Lunch     []string `json:"lunch"`
	Dinner    []string `json:"dinner"`
	Snacks    []string `json:"snacks"`
}

// WeeklyPlan is a seven-day plan at a fixed difficulty.
type WeeklyPlan struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Difficulty     Difficulty      `json:"difficulty"`
	Goal           string          `json:"goal"`
	StartDate      string          `json:"startDate"`
	EndDate        string          `json:"endDate"`
	Days           []DailySchedule `json:"days"`
	OverallGoals   []string        `json:"overallGoals"`
	ProgressTips   []string        `json:"progressTips"`
	MealVariations MealVariations  `json:"mealVariations"`
	IsActive       bool            `json:"isActive"`
	Source         string          `json:"source,omitempty"`
}

// Day returns the plan's schedule for date, if present.
func (w *WeeklyPlan) Day(date string) (*DailySchedule, bool) {
	for i := range w.Days {
		if w.Days[i].Date == date {
			return &w.Days[i], true
		}
	}
	return nil, false
}

// UpsertDay replaces the schedule with the same date or appends it.
func (w *WeeklyPlan) UpsertDay(day DailySchedule) {
	for i := range w.Days {
		if w.Days[i].Date == day.Date {
			w.Days[i] = day
			return
		}
	}
	w.Days = append(w.Days, day)
}

// TwoDayPlan is a short starter plan covering today and tomorrow.
type TwoDayPlan struct {
	ID            string        `json:"id,omitempty"`
	Day1          DailySchedule `json:"day1"`
	Day2          DailySchedule `json:"day2"`
	Day1Completed bool          `json:"day1Completed"`
	Day2Completed bool          `json:"day2Completed"`
	OverallGoals  []string      `json:"overallGoals"`
	ProgressTips  []string      `json:"progressTips"`
	Source        string        `json:"source,omitempty"`
}
