package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds all configuration for the planner service
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Security  SecurityConfig  `mapstructure:"security" yaml:"security"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address" yaml:"address"`
	Port         int    `mapstructure:"port" yaml:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// LLMConfig holds completion API settings
type LLMConfig struct {
	DefaultProvider string              `mapstructure:"default_provider" yaml:"default_provider"`
	Providers       map[string]Provider `mapstructure:"providers" yaml:"providers"`
}

// Provider holds a single OpenAI-compatible endpoint
type Provider struct {
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Timeout     int     `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	Priority    int     `mapstructure:"priority" yaml:"priority"`
	Disabled    bool    `mapstructure:"disabled" yaml:"disabled,omitempty"` // keep the key but skip the provider

	// RPM caps requests per minute, 0 means unlimited.
	RPM   int `mapstructure:"rpm" yaml:"rpm"`
	Burst int `mapstructure:"burst" yaml:"burst"`

	BreakerFailures int `mapstructure:"breaker_failures" yaml:"breaker_failures"`
	BreakerTimeout  int `mapstructure:"breaker_timeout" yaml:"breaker_timeout"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path,omitempty"`
	BadgerPath string `mapstructure:"badger_path" yaml:"badger_path,omitempty"`
}

// SchedulerConfig controls next-day generation and difficulty adjustment
type SchedulerConfig struct {
	Enabled             bool    `mapstructure:"enabled" yaml:"enabled"`
	Timezone            string  `mapstructure:"timezone" yaml:"timezone"`
	Cron                string  `mapstructure:"cron" yaml:"cron"`
	CheckInterval       int     `mapstructure:"check_interval" yaml:"check_interval"` // seconds
	MaxConcurrent       int     `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	JobTimeout          int     `mapstructure:"job_timeout" yaml:"job_timeout"` // seconds
	LeaseTTL            int     `mapstructure:"lease_ttl" yaml:"lease_ttl"`     // seconds
	AutoGenerateNextDay bool    `mapstructure:"auto_generate_next_day" yaml:"auto_generate_next_day"`
	AdjustDifficulty    bool    `mapstructure:"adjust_difficulty" yaml:"adjust_difficulty"`
	IncreaseThreshold   float64 `mapstructure:"increase_threshold" yaml:"increase_threshold"`
	DecreaseThreshold   float64 `mapstructure:"decrease_threshold" yaml:"decrease_threshold"`
}

// SecurityConfig holds API auth settings
type SecurityConfig struct {
	JWTSecret     string   `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	AdminPassword string   `mapstructure:"admin_password" yaml:"admin_password"`
	TokenTTL      int      `mapstructure:"token_ttl" yaml:"token_ttl"` // hours
	AllowOrigins  []string `mapstructure:"allow_origins" yaml:"allow_origins"`
}

// LogConfig selects the zap preset
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console or json
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if dataDir == "" {
		dataDir = os.Getenv("HEALTHPLAN_STORAGE_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "healthplan.db"))
	v.SetDefault("storage.badger_path", filepath.Join(dataDir, "badger"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "healthplan.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// HEALTHPLAN_SERVER_PORT, HEALTHPLAN_SCHEDULER_TIMEZONE, ...
	v.SetEnvPrefix("HEALTHPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Provider maps are not reachable through AutomaticEnv.
	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the built-in configuration without touching disk or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 60)

	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.providers.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.providers.openai.timeout", 60)
	v.SetDefault("llm.providers.openai.max_tokens", 2000)
	v.SetDefault("llm.providers.openai.temperature", 0.7)
	v.SetDefault("llm.providers.openai.priority", 1)
	v.SetDefault("llm.providers.openai.rpm", 60)
	v.SetDefault("llm.providers.openai.burst", 5)
	v.SetDefault("llm.providers.openai.breaker_failures", 3)
	v.SetDefault("llm.providers.openai.breaker_timeout", 60)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "Local")
	v.SetDefault("scheduler.cron", "0 23 * * *")
	v.SetDefault("scheduler.check_interval", 60)
	v.SetDefault("scheduler.max_concurrent", 3)
	v.SetDefault("scheduler.job_timeout", 300)
	v.SetDefault("scheduler.lease_ttl", 120)
	v.SetDefault("scheduler.auto_generate_next_day", true)
	v.SetDefault("scheduler.adjust_difficulty", true)
	v.SetDefault("scheduler.increase_threshold", 85.0)
	v.SetDefault("scheduler.decrease_threshold", 50.0)

	v.SetDefault("security.token_ttl", 168)
	v.SetDefault("security.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "healthplan")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "healthplan")
}

var knownProviders = []string{"openai", "groq", "openrouter", "deepseek"}

func loadEnvOverrides(cfg *Config) {
	cfg.LLM.DefaultProvider = GetEnvDefault("HEALTHPLAN_LLM_DEFAULT_PROVIDER", cfg.LLM.DefaultProvider)

	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]Provider)
	}

	for _, name := range knownProviders {
		prefix := "HEALTHPLAN_LLM_PROVIDERS_" + strings.ToUpper(name) + "_"
		apiKey := ResolveEnvWithAliases(prefix + "API_KEY")
		if apiKey == "" {
			continue
		}
		p, ok := cfg.LLM.Providers[name]
		if !ok {
			p = providerPreset(name)
		}
		p.APIKey = apiKey
		p.BaseURL = GetEnvDefault(prefix+"BASE_URL", p.BaseURL)
		p.Model = GetEnvDefault(prefix+"MODEL", p.Model)
		cfg.LLM.Providers[name] = p
	}

	cfg.Server.Address = GetEnvDefault("HEALTHPLAN_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("HEALTHPLAN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if secret := ResolveEnvWithAliases("HEALTHPLAN_SECURITY_JWT_SECRET"); secret != "" {
		cfg.Security.JWTSecret = secret
	}
	if pw := ResolveEnvWithAliases("HEALTHPLAN_SECURITY_ADMIN_PASSWORD"); pw != "" {
		cfg.Security.AdminPassword = pw
	}
}

// providerPreset fills in endpoints for providers enabled only through env.
func providerPreset(name string) Provider {
	p := Provider{Timeout: 60, MaxTokens: 2000, Temperature: 0.7, BreakerFailures: 3, BreakerTimeout: 60, RPM: 60, Burst: 5}
	switch name {
	case "groq":
		p.BaseURL = "https://api.groq.com/openai/v1"
		p.Model = "llama3-8b-8192"
		p.Priority = 2
	case "openrouter":
		p.BaseURL = "https://openrouter.ai/api/v1"
		p.Model = "openai/gpt-4o-mini"
		p.Priority = 3
	case "deepseek":
		p.BaseURL = "https://api.deepseek.com/v1"
		p.Model = "deepseek-chat"
		p.Priority = 4
	default:
		p.BaseURL = "https://api.openai.com/v1"
		p.Model = "gpt-4o-mini"
		p.Priority = 1
	}
	return p
}

func validate(cfg *Config) error {
	if cfg.LLM.DefaultProvider == "" {
		return fmt.Errorf("llm.default_provider is required")
	}

	// An unkeyed provider is allowed: generation falls back to templates.
	if len(cfg.LLM.Providers) > 0 {
		if _, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; !ok {
			return fmt.Errorf("provider %s not configured", cfg.LLM.DefaultProvider)
		}
	}

	if err := cfg.Scheduler.Validate(); err != nil {
		return err
	}

	if cfg.Security.JWTSecret == "" {
		cfg.Security.JWTSecret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	}

	return nil
}

// Validate checks thresholds and the time zone name.
func (s SchedulerConfig) Validate() error {
	if s.IncreaseThreshold < 0 || s.IncreaseThreshold > 100 {
		return fmt.Errorf("scheduler.increase_threshold must be within 0-100, got %v", s.IncreaseThreshold)
	}
	if s.DecreaseThreshold < 0 || s.DecreaseThreshold > 100 {
		return fmt.Errorf("scheduler.decrease_threshold must be within 0-100, got %v", s.DecreaseThreshold)
	}
	if s.DecreaseThreshold >= s.IncreaseThreshold {
		return fmt.Errorf("scheduler.decrease_threshold (%v) must be below increase_threshold (%v)",
			s.DecreaseThreshold, s.IncreaseThreshold)
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	return nil
}

// Location resolves the configured time zone; empty means local time.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// GetProvider returns the provider configuration by name
func (c *Config) GetProvider(name string) (Provider, bool) {
	p, ok := c.LLM.Providers[name]
	return p, ok
}

