package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
provider:
  login: user@example.com
  password: secret
  timeout_seconds: 20
  language_name: English
  location_code: 2840
  depth: 20
poll:
  max_wait_seconds: 30
  check_interval_seconds: 5
retry:
  max_attempts: 4
  delay_ms: 100
page:
  user_agent: audit-agent
  headless_enabled: true
  headless_timeout_seconds: 12
llm:
  model: gpt-4o
events:
  project_id: proj
  topic: audits
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.HasProviderCredentials() {
		t.Fatalf("expected provider credentials to be loaded: %+v", cfg.Provider)
	}
	if cfg.Provider.LanguageName != "English" || cfg.Provider.LocationCode != 2840 || cfg.Provider.Depth != 20 {
		t.Fatalf("expected provider overrides to apply: %+v", cfg.Provider)
	}
	if got := cfg.PollBudget(); got != 30*time.Second {
		t.Fatalf("expected poll budget 30s, got %v", got)
	}
	if got := cfg.CheckInterval(); got != 5*time.Second {
		t.Fatalf("expected check interval 5s, got %v", got)
	}
	if got := cfg.RetryDelay(); got != 100*time.Millisecond {
		t.Fatalf("expected retry delay 100ms, got %v", got)
	}
	if cfg.Retry.MaxAttempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if !cfg.Page.HeadlessEnabled || cfg.Page.UserAgent != "audit-agent" {
		t.Fatalf("expected page overrides to apply: %+v", cfg.Page)
	}
	if cfg.LLM.Model != "gpt-4o" || cfg.Events.Topic != "audits" {
		t.Fatalf("expected llm/events overrides: %+v %+v", cfg.LLM, cfg.Events)
	}
	if cfg.Logging.Development {
		t.Fatal("expected development logging disabled")
	}
	// Untouched keys keep their defaults.
	if cfg.Provider.PollPath != "serp/google/organic/task_get/batch" {
		t.Fatalf("unexpected poll path default %q", cfg.Provider.PollPath)
	}
	if cfg.Page.TimeoutSeconds != 15 {
		t.Fatalf("expected default page timeout 15, got %d", cfg.Page.TimeoutSeconds)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.API.MaxKeywords != 3 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Provider.TimeoutSeconds != 40 || cfg.Provider.LocationCode != 2724 {
		t.Fatalf("unexpected provider defaults: %+v", cfg.Provider)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.RetryDelay() != 2*time.Second {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected llm default %q", cfg.LLM.Model)
	}
}

func TestLoadLegacyCredentialEnv(t *testing.T) {
	t.Setenv("DATAFORSEO_LOGIN", "legacy-login")
	t.Setenv("DATAFORSEO_PASSWORD", "legacy-password")
	t.Setenv("OPENAI_API_KEY", "sk-legacy")
	t.Setenv("PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.Login != "legacy-login" || cfg.Provider.Password != "legacy-password" {
		t.Fatalf("expected legacy provider credentials, got %+v", cfg.Provider)
	}
	if cfg.LLM.APIKey != "sk-legacy" {
		t.Fatalf("expected legacy llm key, got %q", cfg.LLM.APIKey)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected PORT override, got %d", cfg.Server.Port)
	}
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	t.Setenv("DATAFORSEO_LOGIN", "legacy-login")
	t.Setenv("SEOAUDIT_PROVIDER_LOGIN", "prefixed-login")
	t.Setenv("SEOAUDIT_POLL_MAX_WAIT_SECONDS", "45")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider.Login != "prefixed-login" {
		t.Fatalf("expected prefixed login, got %q", cfg.Provider.Login)
	}
	if cfg.PollBudget() != 45*time.Second {
		t.Fatalf("expected env poll budget, got %v", cfg.PollBudget())
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:   ServerConfig{Port: 8080},
		API:      APIConfig{MaxKeywords: 3},
		Provider: ProviderConfig{BaseURL: "https://api.example.com/", TimeoutSeconds: 40, Depth: 10},
		Poll:     PollConfig{MaxWaitSeconds: 120, CheckIntervalSeconds: 10},
		Retry:    RetryConfig{MaxAttempts: 3, DelayMs: 2000},
		Page:     PageConfig{TimeoutSeconds: 15},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected base config to be valid, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "no keywords", mutate: func(c *Config) { c.API.MaxKeywords = 0 }, want: "api.max_keywords"},
		{name: "no base url", mutate: func(c *Config) { c.Provider.BaseURL = "" }, want: "provider.base_url"},
		{name: "no provider timeout", mutate: func(c *Config) { c.Provider.TimeoutSeconds = 0 }, want: "provider.timeout_seconds"},
		{name: "no depth", mutate: func(c *Config) { c.Provider.Depth = 0 }, want: "provider.depth"},
		{name: "no poll budget", mutate: func(c *Config) { c.Poll.MaxWaitSeconds = 0 }, want: "poll.max_wait_seconds"},
		{name: "no interval", mutate: func(c *Config) { c.Poll.CheckIntervalSeconds = 0 }, want: "poll.check_interval_seconds"},
		{name: "no attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }, want: "retry.max_attempts"},
		{name: "negative delay", mutate: func(c *Config) { c.Retry.DelayMs = -1 }, want: "retry.delay_ms"},
		{name: "no page timeout", mutate: func(c *Config) { c.Page.TimeoutSeconds = 0 }, want: "page.timeout_seconds"},
		{
			name: "headless missing timeout",
			mutate: func(c *Config) {
				c.Page.HeadlessEnabled = true
				c.Page.HeadlessTimeoutSeconds = 0
			},
			want: "page.headless_timeout_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
