// Package plan holds the domain types shared by generation, scheduling and
// storage: difficulty levels, daily schedules and weekly plans.
package plan

import (
	"fmt"
	"strings"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
)

// Difficulty is one rung of the plan intensity ladder.
type Difficulty string

const (
	Easy     Difficulty = "easy"
	Moderate Difficulty = "moderate"
	Hard     Difficulty = "hard"
)

// Ladder lists difficulties from lowest to highest.
var Ladder = []Difficulty{Easy, Moderate, Hard}

// Index returns the rung position, or -1 for values outside the ladder.
func (d Difficulty) Index() int {
	for i, l := range Ladder {
		if l == d {
			return i
		}
	}
	return -1
}

func (d Difficulty) Valid() bool {
	return d.Index() >= 0
}

func (d Difficulty) String() string {
	return string(d)
}

// ParseDifficulty accepts any casing and surrounding whitespace.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", apperrors.WrapAs(apperrors.ErrInvalidDifficulty, fmt.Errorf("%q", s))
	}
	return d, nil
}

// AdjustConfig holds the completion-rate thresholds that move a user along
// the ladder.
type AdjustConfig struct {
	Enabled           bool
	IncreaseThreshold float64
	DecreaseThreshold float64
}

func DefaultAdjustConfig() AdjustConfig {
	return AdjustConfig{
		Enabled:           true,
		IncreaseThreshold: 85,
		DecreaseThreshold: 50,
	}
}

// AdjustDifficulty moves current one rung up when completionRate reaches the
// increase threshold and one rung down when it falls to the decrease
// threshold. The result never leaves the ladder. Unknown difficulties and a
// disabled config return current unchanged.
func AdjustDifficulty(current Difficulty, completionRate float64, cfg AdjustConfig) Difficulty {
	if !cfg.Enabled {
		return current
	}

	idx := current.Index()
	if idx < 0 {
		return current
	}

	switch {
	case completionRate >= cfg.IncreaseThreshold && idx < len(Ladder)-1:
		return Ladder[idx+1]
	case completionRate <= cfg.DecreaseThreshold && idx > 0:
		return Ladder[idx-1]
	}
	return current
}
