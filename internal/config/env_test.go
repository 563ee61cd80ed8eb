package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# planner env
HP_KEY1=value1
HP_KEY2="quoted value"
HP_KEY3='single quoted'
export HP_KEY4=value4
not-a-pair
`
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	for _, k := range []string{"HP_KEY1", "HP_KEY2", "HP_KEY3", "HP_KEY4"} {
		os.Unsetenv(k)
		defer os.Unsetenv(k)
	}

	if err := loadEnvFile(envFile); err != nil {
		t.Fatalf("loadEnvFile failed: %v", err)
	}

	expected := map[string]string{
		"HP_KEY1": "value1",
		"HP_KEY2": "quoted value",
		"HP_KEY3": "single quoted",
		"HP_KEY4": "value4",
	}
	for k, want := range expected {
		if got := os.Getenv(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestLoadEnvFile_DoesNotOverride(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	if err := os.WriteFile(envFile, []byte(`EXISTING_KEY=new_value`), 0644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("EXISTING_KEY", "original_value")
	defer os.Unsetenv("EXISTING_KEY")

	if err := loadEnvFile(envFile); err != nil {
		t.Fatalf("loadEnvFile failed: %v", err)
	}

	if os.Getenv("EXISTING_KEY") != "original_value" {
		t.Error("loadEnvFile should not override existing env vars")
	}
}

func TestGetEnvWithFallback(t *testing.T) {
	os.Unsetenv("FALLBACK_KEY1")
	os.Unsetenv("FALLBACK_KEY2")

	if result := GetEnvWithFallback("FALLBACK_KEY1", "FALLBACK_KEY2"); result != "" {
		t.Error("Expected empty string when no keys set")
	}

	os.Setenv("FALLBACK_KEY2", "value2")
	defer os.Unsetenv("FALLBACK_KEY2")

	if result := GetEnvWithFallback("FALLBACK_KEY1", "FALLBACK_KEY2"); result != "value2" {
		t.Errorf("Expected value2, got %s", result)
	}

	os.Setenv("FALLBACK_KEY1", "value1")
	defer os.Unsetenv("FALLBACK_KEY1")

	if result := GetEnvWithFallback("FALLBACK_KEY1", "FALLBACK_KEY2"); result != "value1" {
		t.Errorf("Expected value1 (first priority), got %s", result)
	}
}

func TestGetEnvDefault(t *testing.T) {
	os.Unsetenv("DEFAULT_KEY")

	if result := GetEnvDefault("DEFAULT_KEY", "fallback"); result != "fallback" {
		t.Errorf("Expected fallback, got %s", result)
	}

	os.Setenv("DEFAULT_KEY", "actual")
	defer os.Unsetenv("DEFAULT_KEY")

	if result := GetEnvDefault("DEFAULT_KEY", "fallback"); result != "actual" {
		t.Errorf("Expected actual, got %s", result)
	}
}

func TestResolveEnvWithAliases(t *testing.T) {
	const canonical = "HEALTHPLAN_LLM_PROVIDERS_GROQ_API_KEY"
	os.Unsetenv(canonical)
	os.Unsetenv("GROQ_API_KEY")
	os.Unsetenv("VITE_GROQ_API_KEY")

	if result := ResolveEnvWithAliases(canonical); result != "" {
		t.Error("Expected empty when no keys set")
	}

	os.Setenv("VITE_GROQ_API_KEY", "vite_value")
	defer os.Unsetenv("VITE_GROQ_API_KEY")

	if result := ResolveEnvWithAliases(canonical); result != "vite_value" {
		t.Errorf("Expected vite_value from alias, got %s", result)
	}

	os.Setenv("GROQ_API_KEY", "groq_value")
	defer os.Unsetenv("GROQ_API_KEY")

	if result := ResolveEnvWithAliases(canonical); result != "groq_value" {
		t.Errorf("Expected groq_value from first alias, got %s", result)
	}

	os.Setenv(canonical, "canonical_value")
	defer os.Unsetenv(canonical)

	if result := ResolveEnvWithAliases(canonical); result != "canonical_value" {
		t.Errorf("Expected canonical_value, got %s", result)
	}
}

func TestEnvAliases_Exist(t *testing.T) {
	requiredAliases := map[string][]string{
		"HEALTHPLAN_LLM_PROVIDERS_OPENAI_API_KEY": {"OPENAI_API_KEY"},
		"HEALTHPLAN_LLM_PROVIDERS_GROQ_API_KEY":   {"GROQ_API_KEY"},
		"HEALTHPLAN_SECURITY_JWT_SECRET":          {"HEALTHPLAN_JWT_SECRET"},
	}

	for canonical, aliases := range requiredAliases {
		for _, alias := range aliases {
			found := false
			for _, a := range envAliases[canonical] {
				if a == alias {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Missing alias %s for %s", alias, canonical)
			}
		}
	}
}

func BenchmarkLoadEnvFile(b *testing.B) {
	tmpDir := b.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `KEY1=value1
KEY2=value2
KEY3=value3
`
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		loadEnvFile(envFile)
	}
}
