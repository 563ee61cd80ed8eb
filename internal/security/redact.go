package security

import "regexp"

type secretPattern struct {
	name       string
	regex      *regexp.Regexp
	redactWith string
}

// Ordered so provider-specific keys are replaced before the generic forms.
var secretPatterns = []secretPattern{
	{"OpenRouter Key", regexp.MustCompile(`sk-or-v1-[0-9a-f]{32,}`), "sk-or-****"},
	{"OpenAI Key", regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`), "sk-****"},
	{"Groq Key", regexp.MustCompile(`gsk_[A-Za-z0-9]{20,}`), "gsk_****"},
	{"Bearer Token", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]{12,}=*`), "Bearer ****"},
	{"JWT", regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "eyJ****"},
	{"Generic API Key", regexp.MustCompile(`(?i)(api[_-]?key|access[_-]?key)["']?\s*[:=]\s*["']?[0-9a-zA-Z_-]{16,}["']?`), "API_KEY****"},
}

// SecretMatch is one credential found in text.
type SecretMatch struct {
	Type  string
	Start int
	End   int
}

// ScanForSecrets lists every credential-shaped substring.
func ScanForSecrets(text string) []SecretMatch {
	var matches []SecretMatch
	for _, p := range secretPatterns {
		for _, loc := range p.regex.FindAllStringIndex(text, -1) {
			matches = append(matches, SecretMatch{Type: p.name, Start: loc[0], End: loc[1]})
		}
	}
	return matches
}

// RedactSecrets masks credentials, for error bodies echoed by providers.
func RedactSecrets(text string) string {
	for _, p := range secretPatterns {
		text = p.regex.ReplaceAllString(text, p.redactWith)
	}
	return text
}
