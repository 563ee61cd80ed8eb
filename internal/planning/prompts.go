package planning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gmsas95/healthplan/internal/plan"
)

const assistantPersona = "You are a careful health planning assistant."

const dailySystemPrompt = assistantPersona + ` Generate one personalized daily schedule.

REQUIREMENTS:
1. Use the user's wake, meal, workout and sleep times
2. Scale workout intensity and length to the requested difficulty
3. Include morning routine, meals, workout, hydration and evening routine
4. Give specific instructions and tips for every activity
5. Vary meals and exercises from the previous days listed

Reply with a single JSON object and nothing else:
{
  "activities": [
    {
      "id": "string",
      "type": "wake_up|morning_routine|breakfast|workout|lunch|snack|dinner|evening_routine|sleep_prep|hydration",
      "title": "string",
      "description": "string",
      "startTime": "HH:MM",
      "endTime": "HH:MM",
      "duration": minutes,
      "priority": "high|medium|low",
      "category": "string",
      "instructions": ["string"],
      "tips": ["string"],
      "calories": number,
      "protein": number
    }
  ],
  "summary": {"calories": number, "protein": number, "focusAreas": ["string"]}
}`

func profileJSON(p plan.Profile) string {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func buildDailyPrompt(req GenerateRequest, dayOfWeek string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate the schedule for %s (%s).\n\n", req.Date, dayOfWeek)
	fmt.Fprintf(&sb, "USER GOAL: %s\n", req.Goal)
	fmt.Fprintf(&sb, "DIFFICULTY: %s\n\n", req.Difficulty)
	fmt.Fprintf(&sb, "USER PROFILE:\n%s\n", profileJSON(req.Profile))

	if req.Plan != nil && len(req.Plan.Days) > 0 {
		sb.WriteString("\nPREVIOUS DAYS (avoid repeating these):\n")
		start := 0
		if len(req.Plan.Days) > 3 {
			start = len(req.Plan.Days) - 3
		}
		for _, d := range req.Plan.Days[start:] {
			titles := make([]string, 0, len(d.Activities))
			for _, a := range d.Activities {
				titles = append(titles, a.Title)
			}
			fmt.Fprintf(&sb, "- %s: %s\n", d.Date, strings.Join(titles, ", "))
		}
	}
	return sb.String()
}

const optionsSystemPrompt = assistantPersona + ` Create three difficulty levels (Easy, Moderate, Hard) for a personalized health plan.

DIFFICULTY LEVELS:
- EASY: Beginner-friendly, 30-45 min/day, simple exercises, basic nutrition
- MODERATE: Intermediate, 60-90 min/day, varied exercises, detailed nutrition
- HARD: Advanced, 90-120 min/day, complex exercises, precise nutrition tracking

Reply with a single JSON object with keys "easy", "moderate" and "hard". Each value has:
name, description, characteristics[], estimatedTime, intensity (1-10), estimatedResults[],
timeCommitment, equipmentNeeded[], preparationSteps[], successMetrics[], warnings[], alternatives[].`

func buildOptionsPrompt(p plan.Profile, goal string) string {
	return fmt.Sprintf("Create three difficulty options for this user.\n\nUSER PROFILE:\n%s\n\nUSER GOAL: %s\n\nMake each option specific to the goal.",
		profileJSON(p), goal)
}

const weeklySystemPrompt = assistantPersona + ` Create a 7-day health plan at the requested difficulty.

REQUIREMENTS:
1. Seven distinct days with different meals and workouts
2. Specific timings between 06:00 and 22:00
3. Morning routine, workout, meals and evening routine every day

Reply with a single JSON object:
{"days": [<7 daily schedules, same shape as {"activities": [...], "summary": {...}}>],
 "overallGoals": ["string"], "progressTips": ["string"],
 "mealVariations": {"breakfast": [], "lunch": [], "dinner": [], "snacks": []}}`

func buildWeeklyPrompt(p plan.Profile, difficulty plan.Difficulty, goal, startDate string) string {
	return fmt.Sprintf("Create a %s difficulty 7-day plan starting %s.\n\nUSER PROFILE:\n%s\n\nUSER GOAL: %s",
		difficulty, startDate, profileJSON(p), goal)
}

const twoDaySystemPrompt = assistantPersona + ` Create a two-day starter plan at the requested difficulty.

Reply with a single JSON object:
{"day1": {"activities": [...], "summary": {...}}, "day2": {"activities": [...], "summary": {...}},
 "overallGoals": ["string"], "progressTips": ["string"]}`

func buildTwoDayPrompt(p plan.Profile, difficulty plan.Difficulty, goal, day1, day2 string) string {
	return fmt.Sprintf("Create a %s difficulty two-day plan for %s and %s.\n\nUSER PROFILE:\n%s\n\nUSER GOAL: %s",
		difficulty, day1, day2, profileJSON(p), goal)
}
