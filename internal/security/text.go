// Package security screens user-supplied text before it is stored or placed
// into a completion prompt, and redacts credentials from logged text.
package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	apperrors "github.com/gmsas95/healthplan/internal/errors"
)

var (
	ErrTextTooLong         = errors.New("text exceeds maximum length")
	ErrNullByteDetected    = errors.New("null byte detected")
	ErrHighWhitespaceRatio = errors.New("suspicious whitespace ratio")
	ErrRepetitiveContent   = errors.New("excessive repetition detected")
	ErrPromptInjection     = errors.New("potential prompt injection detected")
	ErrCredentialDetected  = errors.New("text contains a credential")
)

var injectionLiterals = []string{
	"ignore previous instructions",
	"ignore all previous",
	"disregard all previous",
	"forget all previous",
	"ignore the above",
	"disregard the above",
	"your new instructions",
	"new directive",
	"system override",
	"jailbreak",
	"developer mode",
}

var injectionRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|above)\s+(instructions?|prompts?|rules?|directives?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|above)\s+(instructions?|context)`),
	regexp.MustCompile(`(?i)(pretend|act)\s+(as\s+if\s+|that\s+)?you\s+are`),
	regexp.MustCompile(`(?i)(override|bypass)\s+(all\s+|your\s+)?(rules?|restrictions?|filters?|instructions?)`),
	regexp.MustCompile(`(?i)system:\s*you\s+must`),
	regexp.MustCompile(`<\|.*\|>`),
	regexp.MustCompile(`(?i)\[system\].*\[/system\]`),
	regexp.MustCompile(`(?i)###\s*(instruction|system)`),
}

// TextGuard validates profile fields, goals and notes.
type TextGuard struct {
	MaxLength          int
	MaxWhitespaceRatio float64
	MaxRepetition      int
}

// NewTextGuard returns a guard sized for short free-text fields.
func NewTextGuard() *TextGuard {
	return &TextGuard{
		MaxLength:          4096,
		MaxWhitespaceRatio: 0.8,
		MaxRepetition:      100,
	}
}

// Validate checks one value.
func (g *TextGuard) Validate(text string) error {
	if g.MaxLength > 0 && len(text) > g.MaxLength {
		return ErrTextTooLong
	}
	if strings.IndexByte(text, 0) >= 0 {
		return ErrNullByteDetected
	}

	if g.MaxWhitespaceRatio > 0 && len(text) > 0 {
		spaces := 0
		for _, r := range text {
			if unicode.IsSpace(r) {
				spaces++
			}
		}
		if float64(spaces)/float64(len(text)) > g.MaxWhitespaceRatio {
			return ErrHighWhitespaceRatio
		}
	}

	if g.MaxRepetition > 0 && hasExcessiveRepetition(text, g.MaxRepetition) {
		return ErrRepetitiveContent
	}

	if DetectPromptInjection(text) {
		return ErrPromptInjection
	}

	// Text is forwarded to the completion provider.
	if found := ScanForSecrets(text); len(found) > 0 {
		return fmt.Errorf("%w: %s", ErrCredentialDetected, found[0].Type)
	}
	return nil
}

// Check validates every value and reports the first failure as a bad
// request naming field.
func (g *TextGuard) Check(field string, values ...string) error {
	for _, v := range values {
		if err := g.Validate(v); err != nil {
			return apperrors.Wrap(err, apperrors.ErrBadRequest.Code, fmt.Sprintf("%s rejected", field))
		}
	}
	return nil
}

func hasExcessiveRepetition(text string, maxRun int) bool {
	if len(text) <= maxRun {
		return false
	}
	runes := []rune(text)
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run > maxRun {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// DetectPromptInjection reports whether text tries to steer the model
// away from its system prompt.
func DetectPromptInjection(text string) bool {
	lower := strings.ToLower(text)
	for _, lit := range injectionLiterals {
		if strings.Contains(lower, lit) {
			return true
		}
	}
	for _, re := range injectionRegexes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
