package planning

import (
	"fmt"
	"sort"
	"time"

	"github.com/gmsas95/healthplan/internal/plan"
)

type meal struct {
	title       string
	description string
	calories    int
	protein     int
}

type workout struct {
	title        string
	description  string
	instructions []string
}

type goalTemplate struct {
	focus     []string
	morning   string
	breakfast meal
	lunch     meal
	dinner    meal
	snack     meal
	workout   workout
	evening   string
	tips      []string
}

var goalTemplates = map[plan.GoalKind]goalTemplate{
	plan.GoalWeightLoss: {
		focus:     []string{"fat loss", "nutrition", "cardio"},
		morning:   "Light mobility and a 10 minute walk",
		breakfast: meal{"High-protein breakfast", "Egg white omelette with spinach and whole grain toast", 350, 30},
		lunch:     meal{"Lean lunch bowl", "Grilled chicken salad with quinoa and olive oil dressing", 450, 35},
		dinner:    meal{"Light dinner", "Baked fish with steamed broccoli and sweet potato", 400, 35},
		snack:     meal{"Smart snack", "Apple slices with a handful of almonds", 150, 5},
		workout: workout{"Fat-burning cardio", "Brisk cardio intervals followed by a bodyweight circuit",
			[]string{"Warm up for 5 minutes", "Alternate 1 minute fast and 2 minutes easy", "Finish with squats, lunges and planks", "Cool down and stretch"}},
		evening: "Prepare tomorrow's meals and review today's intake",
		tips:    []string{"Keep a modest calorie deficit", "Fill half your plate with vegetables"},
	},
	plan.GoalWeightGain: {
		focus:     []string{"muscle gain", "nutrition", "recovery"},
		morning:   "Mobility warm-up",
		breakfast: meal{"Calorie-dense breakfast", "Oatmeal with peanut butter, banana and whole milk", 650, 30},
		lunch:     meal{"Hearty lunch", "Rice, lean beef and roasted vegetables", 750, 45},
		dinner:    meal{"Recovery dinner", "Salmon with pasta and a side salad", 700, 40},
		snack:     meal{"Protein snack", "Greek yogurt with granola and honey", 300, 20},
		workout: workout{"Compound strength session", "Progressive compound lifts with full rest between sets",
			[]string{"Warm up with light sets", "Squat, press and row for 3-4 sets", "Rest 90 seconds between sets", "Log weights used"}},
		evening: "Stretch and plan tomorrow's meals",
		tips:    []string{"Eat every 3-4 hours", "Add a calorie-dense snack if you miss a meal"},
	},
	plan.GoalStrength: {
		focus:     []string{"strength", "protein", "recovery"},
		morning:   "Dynamic warm-up and core activation",
		breakfast: meal{"Protein breakfast", "Scrambled eggs, whole grain toast and berries", 500, 35},
		lunch:     meal{"Muscle-building lunch", "Chicken breast with brown rice and vegetables", 600, 45},
		dinner:    meal{"Recovery dinner", "Lean steak with potatoes and greens", 600, 45},
		snack:     meal{"Protein snack", "Cottage cheese with fruit", 200, 20},
		workout: workout{"Strength training", "Resistance training focused on progressive overload",
			[]string{"Warm up for 5-10 minutes", "Work major muscle groups for 3 sets", "Keep strict form", "Stretch afterwards"}},
		evening: "Foam rolling and light stretching",
		tips:    []string{"Aim for protein at every meal", "Sleep at least 7 hours to recover"},
	},
	plan.GoalEndurance: {
		focus:     []string{"endurance", "cardio", "hydration"},
		morning:   "Mobility and breathing drills",
		breakfast: meal{"Energy breakfast", "Porridge with fruit and seeds", 450, 20},
		lunch:     meal{"Balanced lunch", "Whole grain wrap with turkey and vegetables", 550, 30},
		dinner:    meal{"Replenishing dinner", "Pasta with chicken and tomato sauce", 600, 35},
		snack:     meal{"Fuel snack", "Banana with peanut butter", 200, 6},
		workout: workout{"Endurance session", "Steady-state cardio at a conversational pace",
			[]string{"Warm up for 5 minutes", "Hold a steady pace", "Hydrate every 15 minutes", "Cool down gradually"}},
		evening: "Stretch calves, hips and hamstrings",
		tips:    []string{"Increase volume by no more than 10% per week", "Hydrate before you feel thirsty"},
	},
	plan.GoalSleep: {
		focus:     []string{"sleep", "routine", "relaxation"},
		morning:   "Morning daylight exposure for 10 minutes",
		breakfast: meal{"Balanced breakfast", "Greek yogurt with oats and berries", 400, 20},
		lunch:     meal{"Light lunch", "Lentil soup with whole grain bread", 500, 25},
		dinner:    meal{"Early light dinner", "Turkey with rice and vegetables", 450, 30},
		snack:     meal{"Calming snack", "Kiwi and a few walnuts", 150, 4},
		workout: workout{"Gentle movement", "Low-impact exercise finished well before bedtime",
			[]string{"Keep intensity moderate", "Finish at least 3 hours before bed", "End with slow stretching"}},
		evening: "Screen-free wind-down with dim lights",
		tips:    []string{"Keep the same bedtime every day", "Avoid caffeine after noon"},
	},
	plan.GoalStress: {
		focus:     []string{"stress management", "mindfulness", "movement"},
		morning:   "Five minutes of breathing and mindfulness",
		breakfast: meal{"Nourishing breakfast", "Whole grain toast with avocado and eggs", 450, 22},
		lunch:     meal{"Balanced lunch", "Salmon salad with leafy greens and quinoa", 500, 30},
		dinner:    meal{"Comfort dinner", "Vegetable stir-fry with tofu and rice", 500, 25},
		snack:     meal{"Mood snack", "Dark chocolate and berries", 150, 3},
		workout: workout{"Mind-body session", "Yoga flow or a relaxed walk outdoors",
			[]string{"Focus on slow breathing", "Keep the pace comfortable", "Finish with a short body scan"}},
		evening: "Journaling and breathing exercises",
		tips:    []string{"Schedule short breaks during work", "Limit news and social media in the evening"},
	},
	plan.GoalGeneral: {
		focus:     []string{"fitness", "nutrition", "wellbeing"},
		morning:   "Stretching and a glass of water",
		breakfast: meal{"Healthy Breakfast", "Oatmeal with berries, nuts and milk", 400, 20},
		lunch:     meal{"Balanced Lunch", "Grilled chicken, quinoa and vegetables", 500, 25},
		dinner:    meal{"Light Dinner", "Baked fish with sweet potato and broccoli", 400, 30},
		snack:     meal{"Morning Snack", "Apple with almonds", 150, 5},
		workout: workout{"Full-body workout", "Mix of cardio and bodyweight strength exercises",
			[]string{"Warm up for 5 minutes", "Complete the circuit at your own pace", "Cool down and stretch"}},
		evening: "Reflect on the day and prepare for tomorrow",
		tips:    []string{"Stay consistent", "Track progress"},
	},
}

// WorkoutMinutes is the fallback workout length for each difficulty.
func WorkoutMinutes(d plan.Difficulty) int {
	switch d {
	case plan.Easy:
		return 30
	case plan.Hard:
		return 60
	}
	return 45
}

func intensityLabel(d plan.Difficulty) string {
	switch d {
	case plan.Easy:
		return "low"
	case plan.Hard:
		return "high"
	}
	return "moderate"
}

// FallbackSchedule builds a deterministic schedule from the profile's times
// and a template picked by goal keywords.
func FallbackSchedule(req GenerateRequest, day time.Time) plan.DailySchedule {
	p := req.Profile.WithDefaults()
	tpl := goalTemplates[plan.ClassifyGoal(req.Goal)]
	d := req.Difficulty
	if !d.Valid() {
		d = plan.Moderate
	}

	clock := func(s string) int {
		m, _ := plan.ParseClock(s)
		return m
	}
	wake := clock(p.WakeUpTime)
	breakfast := clock(p.BreakfastTime)
	lunch := clock(p.LunchTime)
	sleep := clock(p.SleepTime)

	block := func(typ, title, description string, start, minutes int, priority, category string) plan.Activity {
		return plan.Activity{
			Type:        typ,
			Title:       title,
			Description: description,
			StartTime:   plan.FormatClock(start),
			EndTime:     plan.FormatClock(start + minutes),
			Duration:    minutes,
			Priority:    priority,
			Category:    category,
			Difficulty:  d,
		}
	}
	mealBlock := func(typ string, m meal, start, minutes int) plan.Activity {
		a := block(typ, m.title, m.description, start, minutes, "high", "nutrition")
		a.Calories = m.calories
		a.Protein = m.protein
		return a
	}

	morningMinutes := map[plan.Difficulty]int{plan.Easy: 10, plan.Moderate: 15, plan.Hard: 20}[d]

	wo := block(plan.ActivityWorkout, tpl.workout.title,
		fmt.Sprintf("%s (%s intensity)", tpl.workout.description, intensityLabel(d)),
		clock(p.WorkoutTime), WorkoutMinutes(d), "high", "fitness")
	wo.Instructions = tpl.workout.instructions
	wo.Tips = []string{"Listen to your body", "Stop if you feel pain or dizziness"}

	activities := []plan.Activity{
		block(plan.ActivityWakeUp, "Wake up & hydrate", "Drink a glass of water as soon as you get up", wake, 10, "high", "routine"),
		block(plan.ActivityMorningRoutine, "Morning routine", tpl.morning, wake+10, morningMinutes, "medium", "wellness"),
		mealBlock(plan.ActivityBreakfast, tpl.breakfast, breakfast, 20),
		mealBlock(plan.ActivitySnack, tpl.snack, breakfast+150, 10),
		mealBlock(plan.ActivityLunch, tpl.lunch, lunch, 30),
		block(plan.ActivityHydration, "Hydration check", "Top up water; aim for 2 litres across the day", lunch+150, 5, "low", "hydration"),
		wo,
		mealBlock(plan.ActivityDinner, tpl.dinner, clock(p.DinnerTime), 30),
		block(plan.ActivityEveningRoutine, "Evening routine", tpl.evening, sleep-60, 20, "medium", "wellness"),
		block(plan.ActivitySleepPrep, "Sleep preparation", "Lights down, devices away, get ready for bed", sleep-15, 15, "high", "sleep"),
	}

	// Order by time of day starting from wake-up so late sleepers wrap correctly.
	sort.SliceStable(activities, func(i, j int) bool {
		return sinceWake(activities[i].StartTime, wake) < sinceWake(activities[j].StartTime, wake)
	})

	s := plan.DailySchedule{
		Goal:       req.Goal,
		Activities: activities,
		Summary:    plan.Summary{FocusAreas: append([]string(nil), tpl.focus...)},
		Source:     plan.SourceFallback,
	}
	for i := range s.Activities {
		s.Activities[i].Tips = append(s.Activities[i].Tips, tpl.tips[i%len(tpl.tips)])
	}
	normalize(&s, req.Date, day, req.Goal, d, p)
	return s
}

func sinceWake(clock string, wake int) int {
	m, _ := plan.ParseClock(clock)
	return ((m-wake)%1440 + 1440) % 1440
}

func fallbackMealVariations() plan.MealVariations {
	return plan.MealVariations{
		Breakfast: []string{"Oatmeal", "Eggs", "Smoothie"},
		Lunch:     []string{"Salad", "Sandwich", "Soup"},
		Dinner:    []string{"Chicken", "Fish", "Vegetables"},
		Snacks:    []string{"Nuts", "Fruit", "Yogurt"},
	}
}

// FallbackDifficultyOptions returns the canned easy, moderate and hard
// options.
func FallbackDifficultyOptions() plan.DifficultyOptions {
	return plan.DifficultyOptions{
		Easy: plan.PlanDetails{
			Level:            plan.Easy,
			Name:             "Easy Plan",
			Description:      "Perfect for beginners",
			Characteristics:  []string{"30-45 min/day", "Basic exercises", "Simple nutrition"},
			EstimatedTime:    "30-45 minutes",
			Intensity:        3,
			EstimatedResults: []string{"Improved fitness", "Better habits"},
			TimeCommitment:   "3-4 hours/week",
			EquipmentNeeded:  []string{"Basic home equipment"},
			PreparationSteps: []string{"Set up space", "Plan meals"},
			SuccessMetrics:   []string{"Consistent completion"},
			Warnings:         []string{"Consult doctor if needed"},
			Alternatives:     []string{"Modify as needed"},
		},
		Moderate: plan.PlanDetails{
			Level:            plan.Moderate,
			Name:             "Moderate Plan",
			Description:      "Balanced approach",
			Characteristics:  []string{"60-90 min/day", "Varied exercises", "Detailed nutrition"},
			EstimatedTime:    "60-90 minutes",
			Intensity:        6,
			EstimatedResults: []string{"Significant fitness gains", "Better nutrition"},
			TimeCommitment:   "5-7 hours/week",
			EquipmentNeeded:  []string{"Home gym equipment"},
			PreparationSteps: []string{"Set up gym", "Plan detailed meals"},
			SuccessMetrics:   []string{"Progress tracking", "Consistent completion"},
			Warnings:         []string{"Start gradually"},
			Alternatives:     []string{"Adjust intensity"},
		},
		Hard: plan.PlanDetails{
			Level:            plan.Hard,
			Name:             "Hard Plan",
			Description:      "Intensive program",
			Characteristics:  []string{"90-120 min/day", "Complex exercises", "Precise nutrition"},
			EstimatedTime:    "90-120 minutes",
			Intensity:        9,
			EstimatedResults: []string{"Maximum fitness gains", "Optimal nutrition"},
			TimeCommitment:   "8-10 hours/week",
			EquipmentNeeded:  []string{"Full gym equipment"},
			PreparationSteps: []string{"Set up full gym", "Plan precise meals"},
			SuccessMetrics:   []string{"Detailed tracking", "Maximum completion"},
			Warnings:         []string{"High intensity", "Consult doctor"},
			Alternatives:     []string{"Reduce intensity if needed"},
		},
		Source: plan.SourceFallback,
	}
}

// PlanDetailsFor fills the fixed per-level fields and defaults any
// descriptive list the model left empty.
func PlanDetailsFor(d plan.Difficulty, data plan.PlanDetails) plan.PlanDetails {
	out := data
	out.Level = d
	switch d {
	case plan.Easy:
		out.Name = "Easy Plan"
		out.Description = "Perfect for beginners with simple, achievable goals"
		out.Characteristics = []string{"30-45 min/day", "Basic exercises", "Simple nutrition"}
		out.EstimatedTime = "30-45 minutes"
		out.Intensity = 3
	case plan.Moderate:
		out.Name = "Moderate Plan"
		out.Description = "Balanced approach for intermediate users"
		out.Characteristics = []string{"60-90 min/day", "Varied exercises", "Detailed nutrition"}
		out.EstimatedTime = "60-90 minutes"
		out.Intensity = 6
	case plan.Hard:
		out.Name = "Hard Plan"
		out.Description = "Intensive program for advanced users"
		out.Characteristics = []string{"90-120 min/day", "Complex exercises", "Precise nutrition"}
		out.EstimatedTime = "90-120 minutes"
		out.Intensity = 9
	}

	orDefault := func(v []string, d ...string) []string {
		if len(v) == 0 {
			return d
		}
		return v
	}
	out.EstimatedResults = orDefault(out.EstimatedResults, "Improved fitness", "Better nutrition habits")
	if out.TimeCommitment == "" {
		out.TimeCommitment = "3-5 hours/week"
	}
	out.EquipmentNeeded = orDefault(out.EquipmentNeeded, "Basic home equipment")
	out.PreparationSteps = orDefault(out.PreparationSteps, "Set up workout space", "Plan meals")
	out.SuccessMetrics = orDefault(out.SuccessMetrics, "Consistent completion", "Progress tracking")
	out.Warnings = orDefault(out.Warnings, "Consult doctor if needed")
	out.Alternatives = orDefault(out.Alternatives, "Modify exercises as needed")
	return out
}

// fallbackWeeklyPlan builds seven fallback days from start.
func fallbackWeeklyPlan(userID string, p plan.Profile, d plan.Difficulty, goal string, start time.Time) plan.WeeklyPlan {
	w := plan.WeeklyPlan{
		UserID:         userID,
		Difficulty:     d,
		Goal:           goal,
		StartDate:      plan.FormatDate(start),
		EndDate:        plan.FormatDate(start.AddDate(0, 0, 6)),
		Days:           make([]plan.DailySchedule, 0, 7),
		OverallGoals:   []string{goal},
		ProgressTips:   []string{"Stay consistent", "Track progress"},
		MealVariations: fallbackMealVariations(),
		IsActive:       true,
		Source:         plan.SourceFallback,
	}
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		w.Days = append(w.Days, FallbackSchedule(GenerateRequest{
			UserID:     userID,
			Goal:       goal,
			Difficulty: d,
			Profile:    p,
			Date:       plan.FormatDate(day),
		}, day))
	}
	return w
}
