// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	API      APIConfig      `mapstructure:"api"`
	Provider ProviderConfig `mapstructure:"provider"`
	Poll     PollConfig     `mapstructure:"poll"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Page     PageConfig     `mapstructure:"page"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Events   EventsConfig   `mapstructure:"events"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// APIConfig bounds how long a single audit request may take.
type APIConfig struct {
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	MaxKeywords           int `mapstructure:"max_keywords"`
}

// ProviderConfig holds the SERP data provider credentials and request shape.
type ProviderConfig struct {
	Login             string  `mapstructure:"login"`
	Password          string  `mapstructure:"password"`
	BaseURL           string  `mapstructure:"base_url"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	LanguageName      string  `mapstructure:"language_name"`
	LocationCode      int     `mapstructure:"location_code"`
	Depth             int     `mapstructure:"depth"`
	SubmitPath        string  `mapstructure:"submit_path"`
	PollPath          string  `mapstructure:"poll_path"`
	MetricsPath       string  `mapstructure:"metrics_path"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// PollConfig sets the task polling budget.
type PollConfig struct {
	MaxWaitSeconds       int `mapstructure:"max_wait_seconds"`
	CheckIntervalSeconds int `mapstructure:"check_interval_seconds"`
}

// RetryConfig configures the fixed-delay retry used for submission and
// keyword metrics lookups.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	DelayMs     int `mapstructure:"delay_ms"`
}

// PageConfig configures on-page fetching.
type PageConfig struct {
	UserAgent              string `mapstructure:"user_agent"`
	TimeoutSeconds         int    `mapstructure:"timeout_seconds"`
	HeadlessEnabled        bool   `mapstructure:"headless_enabled"`
	HeadlessTimeoutSeconds int    `mapstructure:"headless_timeout_seconds"`
	ShellMinWords          int    `mapstructure:"shell_min_words"`
}

// LLMConfig configures the suggestion generator.
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// EventsConfig holds metadata for audit event notifications.
type EventsConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SEOAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("api.request_timeout_seconds", 300)
	v.SetDefault("api.max_keywords", 3)
	v.SetDefault("provider.login", "")
	v.SetDefault("provider.password", "")
	v.SetDefault("provider.base_url", "https://api.dataforseo.com/v3/")
	v.SetDefault("provider.timeout_seconds", 40)
	v.SetDefault("provider.language_name", "Spanish")
	v.SetDefault("provider.location_code", 2724)
	v.SetDefault("provider.depth", 10)
	v.SetDefault("provider.submit_path", "serp/google/organic/task_post")
	v.SetDefault("provider.poll_path", "serp/google/organic/task_get/batch")
	v.SetDefault("provider.metrics_path", "keywords_data/google/keywords_for_keywords/live")
	v.SetDefault("provider.requests_per_second", 0)
	v.SetDefault("provider.burst", 1)
	v.SetDefault("poll.max_wait_seconds", 120)
	v.SetDefault("poll.check_interval_seconds", 10)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay_ms", 2000)
	v.SetDefault("page.user_agent", "SEO-Tool/1.0")
	v.SetDefault("page.timeout_seconds", 15)
	v.SetDefault("page.headless_enabled", false)
	v.SetDefault("page.headless_timeout_seconds", 25)
	v.SetDefault("page.shell_min_words", 50)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic", "")
	v.SetDefault("logging.development", true)
}

// bindLegacyEnv accepts the credential variable names used by earlier
// deployments alongside the prefixed ones. The prefixed name wins.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":       {"SEOAUDIT_SERVER_PORT", "PORT"},
		"provider.login":    {"SEOAUDIT_PROVIDER_LOGIN", "DATAFORSEO_LOGIN"},
		"provider.password": {"SEOAUDIT_PROVIDER_PASSWORD", "DATAFORSEO_PASSWORD"},
		"llm.api_key":       {"SEOAUDIT_LLM_API_KEY", "OPENAI_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate enforces required values and reasonable limits. Credentials are
// deliberately not required here; a missing credential fails the request
// that needs it.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.API.MaxKeywords <= 0 {
		return fmt.Errorf("api.max_keywords must be > 0")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url must be set")
	}
	if c.Provider.TimeoutSeconds <= 0 {
		return fmt.Errorf("provider.timeout_seconds must be > 0")
	}
	if c.Provider.Depth <= 0 {
		return fmt.Errorf("provider.depth must be > 0")
	}
	if c.Poll.MaxWaitSeconds <= 0 {
		return fmt.Errorf("poll.max_wait_seconds must be > 0")
	}
	if c.Poll.CheckIntervalSeconds <= 0 {
		return fmt.Errorf("poll.check_interval_seconds must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Retry.DelayMs < 0 {
		return fmt.Errorf("retry.delay_ms must be >= 0")
	}
	if c.Page.TimeoutSeconds <= 0 {
		return fmt.Errorf("page.timeout_seconds must be > 0")
	}
	if c.Page.HeadlessEnabled && c.Page.HeadlessTimeoutSeconds <= 0 {
		return fmt.Errorf("page.headless_timeout_seconds must be > 0 when headless is enabled")
	}
	return nil
}

// PollBudget is the hard wall-clock limit for polling one audit's tasks.
func (c Config) PollBudget() time.Duration {
	return time.Duration(c.Poll.MaxWaitSeconds) * time.Second
}

// CheckInterval is the pause between two status checks.
func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.Poll.CheckIntervalSeconds) * time.Second
}

// RetryDelay is the fixed pause between retry attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelayMs) * time.Millisecond
}

// RequestBudget bounds one /analyze request end to end.
func (c Config) RequestBudget() time.Duration {
	return time.Duration(c.API.RequestTimeoutSeconds) * time.Second
}

// HasProviderCredentials reports whether the SERP provider can be called.
func (c Config) HasProviderCredentials() bool {
	return c.Provider.Login != "" && c.Provider.Password != ""
}
