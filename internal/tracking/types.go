package tracking

import "github.com/gmsas95/healthplan/internal/store"

// BloodPressure is a systolic/diastolic reading in mmHg
type BloodPressure struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

// HealthMetrics is one day of self-reported measurements. Scales for sleep
// quality, energy, mood and stress run 1-10; water intake is in ml.
type HealthMetrics struct {
	Date           string         `json:"date"`
	Weight         *float64       `json:"weight,omitempty"`
	BodyFat        *float64       `json:"bodyFat,omitempty"`
	MuscleMass     *float64       `json:"muscleMass,omitempty"`
	BloodPressure  *BloodPressure `json:"bloodPressure,omitempty"`
	HeartRate      *int           `json:"heartRate,omitempty"`
	SleepHours     *float64       `json:"sleepHours,omitempty"`
	SleepQuality   *int           `json:"sleepQuality,omitempty"`
	EnergyLevel    *int           `json:"energyLevel,omitempty"`
	Mood           *int           `json:"mood,omitempty"`
	StressLevel    *int           `json:"stressLevel,omitempty"`
	WaterIntake    *int           `json:"waterIntake,omitempty"`
	Steps          *int           `json:"steps,omitempty"`
	CaloriesBurned *int           `json:"caloriesBurned,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}

func (m HealthMetrics) toRecord(userID string) *store.HealthMetric {
	rec := &store.HealthMetric{
		UserID:         userID,
		Date:           m.Date,
		Weight:         m.Weight,
		BodyFat:        m.BodyFat,
		MuscleMass:     m.MuscleMass,
		HeartRate:      m.HeartRate,
		SleepHours:     m.SleepHours,
		SleepQuality:   m.SleepQuality,
		EnergyLevel:    m.EnergyLevel,
		Mood:           m.Mood,
		StressLevel:    m.StressLevel,
		WaterIntake:    m.WaterIntake,
		Steps:          m.Steps,
		CaloriesBurned: m.CaloriesBurned,
		Notes:          m.Notes,
	}
	if m.BloodPressure != nil {
		sys, dia := m.BloodPressure.Systolic, m.BloodPressure.Diastolic
		rec.BloodPressureSystolic = &sys
		rec.BloodPressureDiastolic = &dia
	}
	return rec
}

func fromRecord(rec store.HealthMetric) HealthMetrics {
	m := HealthMetrics{
		Date:           rec.Date,
		Weight:         rec.Weight,
		BodyFat:        rec.BodyFat,
		MuscleMass:     rec.MuscleMass,
		HeartRate:      rec.HeartRate,
		SleepHours:     rec.SleepHours,
		SleepQuality:   rec.SleepQuality,
		EnergyLevel:    rec.EnergyLevel,
		Mood:           rec.Mood,
		StressLevel:    rec.StressLevel,
		WaterIntake:    rec.WaterIntake,
		Steps:          rec.Steps,
		CaloriesBurned: rec.CaloriesBurned,
		Notes:          rec.Notes,
	}
	if rec.BloodPressureSystolic != nil && rec.BloodPressureDiastolic != nil {
		m.BloodPressure = &BloodPressure{
			Systolic:  *rec.BloodPressureSystolic,
			Diastolic: *rec.BloodPressureDiastolic,
		}
	}
	return m
}

// HealthTrends holds one entry per stored metric row, in date order.
// Missing readings appear as 0. ActivityTrend holds one completion
// percentage per day that has completion records.
type HealthTrends struct {
	Period          string    `json:"period"`
	WeightTrend     []float64 `json:"weightTrend"`
	BodyFatTrend    []float64 `json:"bodyFatTrend"`
	MuscleMassTrend []float64 `json:"muscleMassTrend"`
	SleepTrend      []float64 `json:"sleepTrend"`
	EnergyTrend     []float64 `json:"energyTrend"`
	MoodTrend       []float64 `json:"moodTrend"`
	StressTrend     []float64 `json:"stressTrend"`
	ActivityTrend   []float64 `json:"activityTrend"`
}

// HealthInsights are threshold-driven observations about recent progress
type HealthInsights struct {
	OverallHealthScore float64  `json:"overallHealthScore"`
	ImprovementAreas   []string `json:"improvementAreas"`
	Strengths          []string `json:"strengths"`
	Recommendations    []string `json:"recommendations"`
	RiskFactors        []string `json:"riskFactors"`
	Achievements       []string `json:"achievements"`
	NextGoals          []string `json:"nextGoals"`
}

// DayPerformance is the completion percentage for one date
type DayPerformance struct {
	Date           string  `json:"date"`
	CompletionRate float64 `json:"completionRate"`
}

// WeeklyReport summarizes one week against the week before it
type WeeklyReport struct {
	WeekStart           string         `json:"weekStart"`
	WeekEnd             string         `json:"weekEnd"`
	TotalActivities     int            `json:"totalActivities"`
	CompletedActivities int            `json:"completedActivities"`
	CompletionRate      float64        `json:"completionRate"`
	AverageHealthScore  float64        `json:"averageHealthScore"`
	WeightChange        float64        `json:"weightChange"`
	BodyFatChange       float64        `json:"bodyFatChange"`
	MuscleMassChange    float64        `json:"muscleMassChange"`
	SleepImprovement    float64        `json:"sleepImprovement"`
	EnergyImprovement   float64        `json:"energyImprovement"`
	MoodImprovement     float64        `json:"moodImprovement"`
	StressReduction     float64        `json:"stressReduction"`
	TopPerformingDays   []string       `json:"topPerformingDays"`
	ChallengingDays     []string       `json:"challengingDays"`
	Insights            HealthInsights `json:"insights"`
	Recommendations     []string       `json:"recommendations"`
}
