package store

import (
	"time"

	"github.com/gmsas95/healthplan/internal/plan"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile holds the onboarding data a schedule is generated from
type UserProfile struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Name          string    `json:"name"`
	Age           int       `json:"age"`
	Gender        string    `json:"gender"`
	HeightCM      float64   `json:"height_cm"`
	WeightKG      float64   `json:"weight_kg"`
	WakeUpTime    string    `json:"wake_up_time"`
	SleepTime     string    `json:"sleep_time"`
	WorkStart     string    `json:"work_start"`
	WorkEnd       string    `json:"work_end"`
	BreakfastTime string    `json:"breakfast_time"`
	LunchTime     string    `json:"lunch_time"`
	DinnerTime    string    `json:"dinner_time"`
	WorkoutTime   string    `json:"workout_time"`
	ActivityLevel string    `json:"activity_level"`
	DietType      string    `json:"diet_type"`
	Conditions    []string  `json:"conditions" gorm:"serializer:json;type:text"`
	Medications   []string  `json:"medications" gorm:"serializer:json;type:text"`
	Goals         []string  `json:"goals" gorm:"serializer:json;type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToProfile converts the row to the generator's view of a user.
func (u *UserProfile) ToProfile() plan.Profile {
	return plan.Profile{
		UserID:        u.ID,
		Name:          u.Name,
		Age:           u.Age,
		Gender:        u.Gender,
		HeightCM:      u.HeightCM,
		WeightKG:      u.WeightKG,
		WakeUpTime:    u.WakeUpTime,
		SleepTime:     u.SleepTime,
		WorkStart:     u.WorkStart,
		WorkEnd:       u.WorkEnd,
		BreakfastTime: u.BreakfastTime,
		LunchTime:     u.LunchTime,
		DinnerTime:    u.DinnerTime,
		WorkoutTime:   u.WorkoutTime,
		ActivityLevel: u.ActivityLevel,
		DietType:      u.DietType,
		Conditions:    u.Conditions,
		Medications:   u.Medications,
		Goals:         u.Goals,
	}
}

// DailyScheduleRecord is one generated day. (user_id, date) is unique.
type DailyScheduleRecord struct {
	ID             string             `gorm:"primaryKey" json:"id"`
	UserID         string             `gorm:"uniqueIndex:idx_schedule_user_date;not null" json:"user_id"`
	Date           string             `gorm:"uniqueIndex:idx_schedule_user_date;size:10;not null" json:"date"`
	Schedule       plan.DailySchedule `gorm:"serializer:json;type:text" json:"schedule"`
	CompletionRate float64            `json:"completion_rate"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// TableName overrides the table name for DailyScheduleRecord
func (DailyScheduleRecord) TableName() string {
	return "daily_schedules"
}

// ActivityCompletion records whether a user did one activity on one date
type ActivityCompletion struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	UserID      string     `gorm:"uniqueIndex:idx_completion_user_activity_date;not null" json:"user_id"`
	ActivityID  string     `gorm:"uniqueIndex:idx_completion_user_activity_date;not null" json:"activity_id"`
	Date        string     `gorm:"uniqueIndex:idx_completion_user_activity_date;size:10;index" json:"date"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	Notes       string     `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// WeeklyPlanRecord persists plan.WeeklyPlan
type WeeklyPlanRecord struct {
	ID             string               `gorm:"primaryKey" json:"id"`
	UserID         string               `gorm:"index:idx_weekly_user_active;not null" json:"user_id"`
	Difficulty     string               `json:"difficulty"`
	Goal           string               `json:"goal"`
	StartDate      string               `gorm:"size:10" json:"start_date"`
	EndDate        string               `gorm:"size:10" json:"end_date"`
	Days           []plan.DailySchedule `gorm:"serializer:json;type:text" json:"days"`
	OverallGoals   []string             `gorm:"serializer:json;type:text" json:"overall_goals"`
	ProgressTips   []string             `gorm:"serializer:json;type:text" json:"progress_tips"`
	MealVariations plan.MealVariations  `gorm:"serializer:json;type:text" json:"meal_variations"`
	IsActive       bool                 `gorm:"index:idx_weekly_user_active" json:"is_active"`
	Source         string               `json:"source"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// TableName overrides the table name for WeeklyPlanRecord
func (WeeklyPlanRecord) TableName() string {
	return "weekly_plans"
}

// ToPlan converts the row to the domain type.
func (w *WeeklyPlanRecord) ToPlan() plan.WeeklyPlan {
	return plan.WeeklyPlan{
		ID:             w.ID,
		UserID:         w.UserID,
		Difficulty:     plan.Difficulty(w.Difficulty),
		Goal:           w.Goal,
		StartDate:      w.StartDate,
		EndDate:        w.EndDate,
		Days:           w.Days,
		OverallGoals:   w.OverallGoals,
		ProgressTips:   w.ProgressTips,
		MealVariations: w.MealVariations,
		IsActive:       w.IsActive,
		Source:         w.Source,
	}
}

// WeeklyPlanFromDomain builds a row from the domain type.
func WeeklyPlanFromDomain(p plan.WeeklyPlan) *WeeklyPlanRecord {
	return &WeeklyPlanRecord{
		ID:             p.ID,
		UserID:         p.UserID,
		Difficulty:     string(p.Difficulty),
		Goal:           p.Goal,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		Days:           p.Days,
		OverallGoals:   p.OverallGoals,
		ProgressTips:   p.ProgressTips,
		MealVariations: p.MealVariations,
		IsActive:       p.IsActive,
		Source:         p.Source,
	}
}

// TwoDayHealthPlan is the short starter plan
type TwoDayHealthPlan struct {
	ID            string             `gorm:"primaryKey" json:"id"`
	UserID        string             `gorm:"index;not null" json:"user_id"`
	PlanStartDate string             `gorm:"size:10" json:"plan_start_date"`
	PlanEndDate   string             `gorm:"size:10" json:"plan_end_date"`
	Day1Plan      plan.DailySchedule `gorm:"serializer:json;type:text" json:"day_1_plan"`
	Day2Plan      plan.DailySchedule `gorm:"serializer:json;type:text" json:"day_2_plan"`
	Day1Completed bool               `json:"day_1_completed"`
	Day2Completed bool               `json:"day_2_completed"`
	OverallGoals  []string           `gorm:"serializer:json;type:text" json:"overall_goals"`
	ProgressTips  []string           `gorm:"serializer:json;type:text" json:"progress_tips"`
	IsActive      bool               `gorm:"index" json:"is_active"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ToPlan converts the row to the domain type.
func (p *TwoDayHealthPlan) ToPlan() plan.TwoDayPlan {
	return plan.TwoDayPlan{
		ID:            p.ID,
		Day1:          p.Day1Plan,
		Day2:          p.Day2Plan,
		Day1Completed: p.Day1Completed,
		Day2Completed: p.Day2Completed,
		OverallGoals:  p.OverallGoals,
		ProgressTips:  p.ProgressTips,
		Source:        p.Day1Plan.Source,
	}
}

// HealthMetric is one day of self-reported measurements. Optional readings
// are nil when not reported.
type HealthMetric struct {
	ID                     string    `gorm:"primaryKey" json:"id"`
	UserID                 string    `gorm:"uniqueIndex:idx_metric_user_date;not null" json:"user_id"`
	Date                   string    `gorm:"uniqueIndex:idx_metric_user_date;size:10;not null" json:"date"`
	Weight                 *float64  `json:"weight,omitempty"`
	BodyFat                *float64  `json:"body_fat,omitempty"`
	MuscleMass             *float64  `json:"muscle_mass,omitempty"`
	BloodPressureSystolic  *int      `json:"blood_pressure_systolic,omitempty"`
	BloodPressureDiastolic *int      `json:"blood_pressure_diastolic,omitempty"`
	HeartRate              *int      `json:"heart_rate,omitempty"`
	SleepHours             *float64  `json:"sleep_hours,omitempty"`
	SleepQuality           *int      `json:"sleep_quality,omitempty"`
	EnergyLevel            *int      `json:"energy_level,omitempty"`
	Mood                   *int      `json:"mood,omitempty"`
	StressLevel            *int      `json:"stress_level,omitempty"`
	WaterIntake            *int      `json:"water_intake,omitempty"`
	Steps                  *int      `json:"steps,omitempty"`
	CaloriesBurned         *int      `json:"calories_burned,omitempty"`
	Notes                  string    `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// HealthScore is the per-user running score
type HealthScore struct {
	UserID          string    `gorm:"primaryKey" json:"user_id"`
	Score           float64   `json:"score"`
	CompletionScore float64   `json:"completion_score"`
	StreakDays      int       `json:"streak_days"`
	LastUpdated     time.Time `json:"last_updated"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Job kinds
const (
	JobNextDayGeneration = "next_day_generation"
)

// ScheduledJob represents a recurring per-user job
type ScheduledJob struct {
	ID             string     `gorm:"primaryKey" json:"id"`
	UserID         string     `gorm:"uniqueIndex:idx_job_user_kind;not null" json:"user_id"`
	Kind           string     `gorm:"uniqueIndex:idx_job_user_kind;not null" json:"kind"`
	CronExpression string     `json:"cron_expression"`
	Timezone       string     `json:"timezone"`
	IsActive       bool       `gorm:"index" json:"is_active"`
	LastRunAt      *time.Time `json:"last_run_at"`
	NextRunAt      *time.Time `gorm:"index" json:"next_run_at"`
	RunCount       int        `json:"run_count"`
	LastError      string     `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// BeforeCreate hook for DailyScheduleRecord
func (r *DailyScheduleRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateID("sched")
	}
	return nil
}

// BeforeCreate hook for ActivityCompletion
func (c *ActivityCompletion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateID("done")
	}
	return nil
}

// BeforeCreate hook for WeeklyPlanRecord
func (w *WeeklyPlanRecord) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = generateID("plan")
	}
	if w.Difficulty == "" {
		w.Difficulty = string(plan.Moderate)
	}
	return nil
}

// BeforeCreate hook for TwoDayHealthPlan
func (p *TwoDayHealthPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateID("twoday")
	}
	return nil
}

// BeforeCreate hook for HealthMetric
func (m *HealthMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateID("metric")
	}
	return nil
}

// BeforeCreate hook for ScheduledJob
func (s *ScheduledJob) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateID("job")
	}
	return nil
}

func generateID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
