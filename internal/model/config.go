package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AccountConfig describes one IMAP account to watch.
type AccountConfig struct {
	// Name is the identifier used in events, logs, and the keyring.
	Name string `mapstructure:"name" yaml:"name"`

	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`

	// Folders lists the mailboxes to hold push sessions on.
	Folders []string `mapstructure:"folders" yaml:"folders"`

	// IdleTimeoutSec is how long a push session waits before cycling
	// its IDLE command to keep the server from dropping it.
	IdleTimeoutSec int `mapstructure:"idle_timeout_sec" yaml:"idle_timeout_sec"`
}

// TriageConfig tunes the triage engine.
type TriageConfig struct {
	BatchDelaySec      int    `mapstructure:"batch_delay_sec" yaml:"batch_delay_sec"`
	Preset             string `mapstructure:"preset" yaml:"preset"`
	CustomInstructions string `mapstructure:"custom_instructions" yaml:"custom_instructions"`
	AutoCalendar       bool   `mapstructure:"auto_calendar" yaml:"auto_calendar"`
}

// AIConfig holds settings for the classifier integration.
type AIConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// AlertConfig tunes the notifier.
type AlertConfig struct {
	Desktop       bool     `mapstructure:"desktop" yaml:"desktop"`
	MinPriority   string   `mapstructure:"min_priority" yaml:"min_priority"`
	Sound         bool     `mapstructure:"sound" yaml:"sound"`
	WebhookURL    string   `mapstructure:"webhook_url" yaml:"webhook_url"`
	WebhookEvents []string `mapstructure:"webhook_events" yaml:"webhook_events"`
}

// AppConfig is the top-level daemon configuration.
type AppConfig struct {
	Accounts  []AccountConfig `mapstructure:"accounts" yaml:"accounts"`
	Rules     []HookRule      `mapstructure:"rules" yaml:"rules"`
	Triage    TriageConfig    `mapstructure:"triage" yaml:"triage"`
	AI        AIConfig        `mapstructure:"ai" yaml:"ai"`
	Alerts    AlertConfig     `mapstructure:"alerts" yaml:"alerts"`
	StateDir  string          `mapstructure:"state_dir" yaml:"state_dir"`
	LogLevel  string          `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfigPath returns the default configuration file location,
// ~/.config/mailwatch/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailwatch", "config.yaml")
}

// DefaultStateDir returns where the daemon keeps its database and state
// files when state_dir is not configured.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "state")
	}
	return filepath.Join(home, ".local", "share", "mailwatch")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Triage: TriageConfig{
			BatchDelaySec: 15,
			Preset:        "default",
		},
		AI: AIConfig{
			Enabled:   true,
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 1024,
		},
		Alerts: AlertConfig{
			Desktop:       true,
			MinPriority:   "high",
			Sound:         true,
			WebhookEvents: []string{"urgent", "high"},
		},
		StateDir: DefaultStateDir(),
		LogLevel: "info",
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("triage.batch_delay_sec", 15)
	v.SetDefault("triage.preset", "default")
	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.model", "claude-sonnet-4-20250514")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("alerts.desktop", true)
	v.SetDefault("alerts.min_priority", "high")
	v.SetDefault("alerts.sound", true)
	v.SetDefault("alerts.webhook_events", []string{"urgent", "high"})
	v.SetDefault("state_dir", DefaultStateDir())
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Apply defaults for each account entry.
	for i := range cfg.Accounts {
		if cfg.Accounts[i].Port == "" {
			cfg.Accounts[i].Port = "993"
		}
		if len(cfg.Accounts[i].Folders) == 0 {
			cfg.Accounts[i].Folders = []string{"INBOX"}
		}
		if cfg.Accounts[i].IdleTimeoutSec == 0 {
			cfg.Accounts[i].IdleTimeoutSec = 1500
		}
		key := fmt.Sprintf("accounts.%d.tls", i)
		if !v.IsSet(key) {
			cfg.Accounts[i].TLS = true
		}
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("accounts", cfg.Accounts)
	v.Set("rules", cfg.Rules)
	v.Set("triage", cfg.Triage)
	v.Set("ai", cfg.AI)
	v.Set("alerts", cfg.Alerts)
	v.Set("state_dir", cfg.StateDir)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
