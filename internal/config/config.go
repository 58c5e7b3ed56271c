// Package config loads and validates the sentinel YAML configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	System         SystemConfig         `yaml:"system"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	LLM            LLMConfig            `yaml:"llm"`
	Thresholds     ThresholdConfig      `yaml:"thresholds"`
	Notification   NotificationConfig   `yaml:"notification"`
	Executor       ExecutorConfig       `yaml:"executor"`
	Watchlist      WatchlistConfig      `yaml:"watchlist"`
	SecurityRules  SecurityRulesConfig  `yaml:"security_rules"`
}

type SystemConfig struct {
	CheckIntervalSeconds         int    `yaml:"check_interval_seconds"`
	ResourceCheckIntervalSeconds int    `yaml:"resource_check_interval_seconds"`
	EvidenceLogLines             int    `yaml:"evidence_log_lines"`
	LogLevel                     string `yaml:"log_level"`
	LogFile                      string `yaml:"log_file"`
}

type CircuitBreakerConfig struct {
	MaxRestartAttempts int    `yaml:"max_restart_attempts"`
	WindowSeconds      int    `yaml:"window_seconds"`
	CooldownSeconds    int    `yaml:"cooldown_seconds"`
	StateFile          string `yaml:"state_file"`
}

type LLMConfig struct {
	Provider       string  `yaml:"provider"`
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
}

type ThresholdConfig struct {
	CPUWarning     float64 `yaml:"cpu_warning"`
	CPUCritical    float64 `yaml:"cpu_critical"`
	MemoryWarning  float64 `yaml:"memory_warning"`
	MemoryCritical float64 `yaml:"memory_critical"`
}

type NotificationConfig struct {
	Email EmailConfig `yaml:"email"`
	Slack SlackConfig `yaml:"slack"`
}

type EmailConfig struct {
	Enabled    bool     `yaml:"enabled"`
	SMTPServer string   `yaml:"smtp_server"`
	SMTPPort   int      `yaml:"smtp_port"`
	UseSSL     bool     `yaml:"use_ssl"`
	Sender     string   `yaml:"sender"`
	Password   string   `yaml:"password"`
	Recipients []string `yaml:"recipients"`
}

// SlackConfig is a domain-stack supplement, not named by the distilled
// spec; disabled unless explicitly enabled in config.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

type ExecutorConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedActions []string `yaml:"allowed_actions"`
}

type WatchlistConfig struct {
	Containers []ContainerConfig `yaml:"containers"`
}

type ContainerConfig struct {
	Name        string              `yaml:"name"`
	Enabled     bool                `yaml:"enabled"`
	Description string              `yaml:"description"`
	HealthCheck HealthCheckConfig   `yaml:"health_check"`
	Thresholds  ContainerThresholds `yaml:"thresholds"`
	Policy      PolicyConfig        `yaml:"policy"`
}

type HealthCheckConfig struct {
	Type           string `yaml:"type"` // "http", "tcp", "command"
	Endpoint       string `yaml:"endpoint"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Command        string `yaml:"command"`
	ExpectedStatus int    `yaml:"expected_status"`
	ExpectedOutput string `yaml:"expected_output"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ContainerThresholds struct {
	CPUPercentCritical    float64 `yaml:"cpu_percent_critical"`
	MemoryPercentCritical float64 `yaml:"memory_percent_critical"`
}

type PolicyConfig struct {
	MaxRetries          int `yaml:"max_retries"`
	RestartDelaySeconds int `yaml:"restart_delay_seconds"`
}

type SecurityRulesConfig struct {
	LogPatterns      map[string][]string `yaml:"log_patterns"`
	ProcessBlacklist []string            `yaml:"process_blacklist"`
}

var envPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// resolveEnv expands a single ${VAR} reference, matching the original's
// whole-string semantics: a value that isn't exactly "${VAR}" is returned
// unchanged.
func resolveEnv(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}
	m := envPattern.FindStringSubmatch(value)
	if m == nil {
		return value
	}
	return os.Getenv(m[1])
}

// Load reads and validates a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(cfg)
	cfg.LLM.APIKey = resolveEnv(cfg.LLM.APIKey)
	cfg.LLM.BaseURL = resolveEnv(cfg.LLM.BaseURL)
	cfg.Notification.Email.Password = resolveEnv(cfg.Notification.Email.Password)
	cfg.Notification.Slack.WebhookURL = resolveEnv(cfg.Notification.Slack.WebhookURL)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.System.CheckIntervalSeconds == 0 {
		cfg.System.CheckIntervalSeconds = 30
	}
	if cfg.System.ResourceCheckIntervalSeconds == 0 {
		cfg.System.ResourceCheckIntervalSeconds = 120
	}
	if cfg.System.EvidenceLogLines == 0 {
		cfg.System.EvidenceLogLines = 50
	}
	if cfg.System.LogLevel == "" {
		cfg.System.LogLevel = "info"
	}

	if cfg.CircuitBreaker.MaxRestartAttempts == 0 {
		cfg.CircuitBreaker.MaxRestartAttempts = 3
	}
	if cfg.CircuitBreaker.WindowSeconds == 0 {
		cfg.CircuitBreaker.WindowSeconds = 300
	}
	if cfg.CircuitBreaker.CooldownSeconds == 0 {
		cfg.CircuitBreaker.CooldownSeconds = 1800
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "deepseek"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.deepseek.com"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "deepseek-chat"
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 30
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}

	if cfg.Thresholds.CPUWarning == 0 {
		cfg.Thresholds.CPUWarning = 70
	}
	if cfg.Thresholds.CPUCritical == 0 {
		cfg.Thresholds.CPUCritical = 90
	}
	if cfg.Thresholds.MemoryWarning == 0 {
		cfg.Thresholds.MemoryWarning = 70
	}
	if cfg.Thresholds.MemoryCritical == 0 {
		cfg.Thresholds.MemoryCritical = 85
	}

	if cfg.Notification.Email.SMTPPort == 0 {
		cfg.Notification.Email.SMTPPort = 465
	}

	if cfg.Executor.Host == "" {
		cfg.Executor.Host = "127.0.0.1"
	}
	if cfg.Executor.Port == 0 {
		cfg.Executor.Port = 9999
	}
	if len(cfg.Executor.AllowedActions) == 0 {
		cfg.Executor.AllowedActions = []string{"RESTART", "STOP", "COMMIT", "ALERT_ONLY", "NONE"}
	}

	for i := range cfg.Watchlist.Containers {
		c := &cfg.Watchlist.Containers[i]
		if c.Policy.MaxRetries == 0 {
			c.Policy.MaxRetries = 3
		}
		if c.Policy.RestartDelaySeconds == 0 {
			c.Policy.RestartDelaySeconds = 10
		}
		if c.HealthCheck.TimeoutSeconds == 0 {
			c.HealthCheck.TimeoutSeconds = 5
		}
	}
}

func validate(cfg *Config) error {
	if cfg.System.CheckIntervalSeconds < 1 {
		return fmt.Errorf("system.check_interval_seconds must be >= 1")
	}
	if cfg.System.ResourceCheckIntervalSeconds < cfg.System.CheckIntervalSeconds {
		return fmt.Errorf("system.resource_check_interval_seconds must be >= check_interval_seconds")
	}
	if cfg.Notification.Email.Enabled {
		if cfg.Notification.Email.SMTPServer == "" {
			return fmt.Errorf("notification.email.smtp_server is required when enabled")
		}
		if cfg.Notification.Email.Sender == "" {
			return fmt.Errorf("notification.email.sender is required when enabled")
		}
		if len(cfg.Notification.Email.Recipients) == 0 {
			return fmt.Errorf("notification.email.recipients must not be empty when enabled")
		}
	}
	if cfg.Notification.Slack.Enabled && cfg.Notification.Slack.WebhookURL == "" {
		return fmt.Errorf("notification.slack.webhook_url is required when enabled")
	}
	seen := make(map[string]bool, len(cfg.Watchlist.Containers))
	for _, c := range cfg.Watchlist.Containers {
		if c.Name == "" {
			return fmt.Errorf("watchlist: container entry missing name")
		}
		if seen[c.Name] {
			return fmt.Errorf("watchlist: duplicate container name %q", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// ContainerCPUCritical resolves a per-container critical threshold, falling
// back to the configured global default when unset.
func (c *Config) ContainerCPUCritical(cc *ContainerConfig) float64 {
	if cc != nil && cc.Thresholds.CPUPercentCritical != 0 {
		return cc.Thresholds.CPUPercentCritical
	}
	return c.Thresholds.CPUCritical
}

func (c *Config) ContainerMemoryCritical(cc *ContainerConfig) float64 {
	if cc != nil && cc.Thresholds.MemoryPercentCritical != 0 {
		return cc.Thresholds.MemoryPercentCritical
	}
	return c.Thresholds.MemoryCritical
}

// Container looks up a watchlist entry by name.
func (c *Config) Container(name string) *ContainerConfig {
	for i := range c.Watchlist.Containers {
		if c.Watchlist.Containers[i].Name == name {
			return &c.Watchlist.Containers[i]
		}
	}
	return nil
}

// EnabledContainerNames returns the set of enabled watchlist container
// names, built once for O(1) membership checks (mirrors the original's
// `_monitored_names`).
func (c *Config) EnabledContainerNames() map[string]bool {
	names := make(map[string]bool, len(c.Watchlist.Containers))
	for _, wc := range c.Watchlist.Containers {
		if wc.Enabled {
			names[wc.Name] = true
		}
	}
	return names
}

// IsActionAllowed reports whether command is in the executor whitelist.
func (c *Config) IsActionAllowed(command string) bool {
	for _, a := range c.Executor.AllowedActions {
		if strings.EqualFold(a, command) {
			return true
		}
	}
	return false
}

// Duration helpers used throughout the monitor/executor.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.System.CheckIntervalSeconds) * time.Second
}

func (c *Config) ResourceCheckInterval() time.Duration {
	return time.Duration(c.System.ResourceCheckIntervalSeconds) * time.Second
}
