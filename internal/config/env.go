package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadEnvFiles reads .env files into the process environment without
// overriding variables that are already set.
func LoadEnvFiles() error {
	envPaths := []string{
		"./.env",
	}

	if home, err := os.UserHomeDir(); err == nil {
		envPaths = append(envPaths,
			filepath.Join(home, ".healthplan", ".env"),
			filepath.Join(home, ".config", "healthplan", ".env"),
		)
	}

	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			if err := loadEnvFile(path); err != nil {
				return err
			}
		}
	}

	return nil
}

func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

func GetEnvWithFallback(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func GetEnvDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

var envAliases = map[string][]string{
	"HEALTHPLAN_LLM_PROVIDERS_OPENAI_API_KEY":     {"OPENAI_API_KEY", "VITE_OPENAI_API_KEY"},
	"HEALTHPLAN_LLM_PROVIDERS_GROQ_API_KEY":       {"GROQ_API_KEY", "VITE_GROQ_API_KEY"},
	"HEALTHPLAN_LLM_PROVIDERS_OPENROUTER_API_KEY": {"OPENROUTER_API_KEY"},
	"HEALTHPLAN_LLM_PROVIDERS_DEEPSEEK_API_KEY":   {"DEEPSEEK_API_KEY"},
	"HEALTHPLAN_SECURITY_JWT_SECRET":              {"HEALTHPLAN_JWT_SECRET"},
	"HEALTHPLAN_SECURITY_ADMIN_PASSWORD":          {"HEALTHPLAN_ADMIN_PASSWORD"},
}

// ResolveEnvWithAliases returns the canonical variable, else the first set
// alias.
func ResolveEnvWithAliases(canonicalKey string) string {
	keys := append([]string{canonicalKey}, envAliases[canonicalKey]...)
	return GetEnvWithFallback(keys...)
}
