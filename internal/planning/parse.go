package planning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/plan"
)

// extractJSON strips markdown fences and returns the outermost {...} of a
// model reply.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", apperrors.WrapAs(apperrors.ErrMalformedSchedule, fmt.Errorf("no JSON object in reply"))
	}
	return s[start : end+1], nil
}

func decodeReply(raw string, v interface{}) error {
	body, err := extractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return apperrors.WrapAs(apperrors.ErrMalformedSchedule, err)
	}
	return nil
}

// parseDailySchedule decodes a reply and requires at least one activity.
func parseDailySchedule(raw string) (*plan.DailySchedule, error) {
	var s plan.DailySchedule
	if err := decodeReply(raw, &s); err != nil {
		return nil, err
	}
	if err := validateSchedule(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func validateSchedule(s *plan.DailySchedule) error {
	if len(s.Activities) == 0 {
		return apperrors.WrapAs(apperrors.ErrMalformedSchedule, fmt.Errorf("schedule has no activities"))
	}
	for i, a := range s.Activities {
		if strings.TrimSpace(a.Title) == "" {
			return apperrors.WrapAs(apperrors.ErrMalformedSchedule, fmt.Errorf("activity %d has no title", i))
		}
	}
	return nil
}

// normalize stamps the schedule with its date, weekday, goal and
// difficulty, fills activity ids, durations and end times, and recomputes
// the summary.
func normalize(s *plan.DailySchedule, date string, day time.Time, goal string, difficulty plan.Difficulty, p plan.Profile) {
	s.Date = date
	s.DayOfWeek = day.Weekday().String()
	if s.Goal == "" {
		s.Goal = goal
	}

	for i := range s.Activities {
		a := &s.Activities[i]
		if a.ID == "" {
			a.ID = fmt.Sprintf("%s-%02d-%s", date, i+1, a.Type)
		}
		if a.Type == "" {
			a.Type = plan.ActivityMorningRoutine
		}
		if a.Difficulty == "" {
			a.Difficulty = difficulty
		}
		start, startErr := plan.ParseClock(a.StartTime)
		end, endErr := plan.ParseClock(a.EndTime)
		switch {
		case a.Duration <= 0 && startErr == nil && endErr == nil:
			a.Duration = end - start
			if a.Duration <= 0 {
				a.Duration += 1440
			}
		case a.EndTime == "" && startErr == nil && a.Duration > 0:
			a.EndTime = plan.FormatClock(start + a.Duration)
		}
	}

	s.Summary.Difficulty = difficulty
	if s.Summary.SleepHours == 0 {
		if h, err := plan.SleepHoursBetween(p.SleepTime, p.WakeUpTime); err == nil {
			s.Summary.SleepHours = h
		}
	}
	s.Summarize()
}
