package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gmsas95/healthplan/internal/plan"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2E8B57")).
			Padding(0, 1)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4A90E2")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	upStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)
)

// renderer styles output only when it goes to a terminal.
type renderer struct {
	out   io.Writer
	color bool
	width int
}

func newRenderer(out io.Writer) *renderer {
	r := &renderer{out: out, width: 80}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.color = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			r.width = w
		}
	}
	return r
}

func (r *renderer) style(s lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return s.Render(text)
}

func (r *renderer) box(text string) string {
	if !r.color {
		return text
	}
	return boxStyle.Width(r.width - 4).Render(text)
}

func (r *renderer) schedule(s plan.DailySchedule) {
	fmt.Fprintln(r.out, r.style(titleStyle, fmt.Sprintf("%s %s", s.DayOfWeek, s.Date)))
	if s.Goal != "" {
		fmt.Fprintf(r.out, "Goal: %s\n", s.Goal)
	}
	fmt.Fprintf(r.out, "Difficulty: %s   Source: %s\n\n", s.Summary.Difficulty, s.Source)

	for _, a := range s.Activities {
		line := fmt.Sprintf("%s  %-28s %3d min", r.style(timeStyle, a.StartTime), a.Title, a.Duration)
		if a.Calories > 0 {
			line += r.style(mutedStyle, fmt.Sprintf("  %d kcal", a.Calories))
		}
		fmt.Fprintln(r.out, line)
	}

	sum := s.Summary
	lines := []string{
		fmt.Sprintf("Activities: %d   Total: %d min   Workout: %d min", sum.TotalActivities, sum.TotalDuration, sum.WorkoutTime),
		fmt.Sprintf("Meals: %d   Calories: %d   Protein: %dg   Sleep: %.1fh", sum.MealCount, sum.Calories, sum.Protein, sum.SleepHours),
	}
	if len(sum.FocusAreas) > 0 {
		lines = append(lines, "Focus: "+strings.Join(sum.FocusAreas, ", "))
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.box(strings.Join(lines, "\n")))
}

func (r *renderer) weekly(w plan.WeeklySummary) {
	fmt.Fprintln(r.out, r.style(titleStyle, fmt.Sprintf("Week %s to %s", w.WeekStart, w.WeekEnd)))
	if w.TotalDays == 0 {
		fmt.Fprintln(r.out, "No schedules recorded this week.")
		return
	}

	fmt.Fprintf(r.out, "Days: %d   Completed (>=80%%): %d   Average: %.1f%%\n",
		w.TotalDays, w.CompletedDays, w.AverageCompletion)

	levels := make([]string, 0, len(w.DifficultyProgression))
	for _, d := range w.DifficultyProgression {
		levels = append(levels, string(d))
	}
	fmt.Fprintf(r.out, "Difficulty: %s\n\n", strings.Join(levels, " > "))

	for _, rec := range w.Recommendations {
		fmt.Fprintf(r.out, "• %s\n", rec)
	}
}

func (r *renderer) adjustment(from, to plan.Difficulty, rate float64, cfg plan.AdjustConfig) {
	var verdict string
	switch {
	case to.Index() > from.Index():
		verdict = r.style(upStyle, "step up")
	case to.Index() < from.Index():
		verdict = r.style(downStyle, "step down")
	default:
		verdict = r.style(mutedStyle, "hold")
	}
	fmt.Fprintf(r.out, "%s -> %s (%s at %.1f%%)\n", from, to, verdict, rate)
	if !cfg.Enabled {
		fmt.Fprintln(r.out, "Adjustment is disabled in config.")
		return
	}
	fmt.Fprintf(r.out, "Thresholds: increase >= %.0f%%, decrease <= %.0f%%\n", cfg.IncreaseThreshold, cfg.DecreaseThreshold)
}
