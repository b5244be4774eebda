package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/clearwatch/channels"
	"github.com/hazyhaar/clearwatch/clears"
	"github.com/hazyhaar/clearwatch/safenet"
	"github.com/hazyhaar/clearwatch/tiers"
)

// Channel roles.
const (
	RolePrimary   = "primary"
	RoleSecondary = "secondary"
)

var (
	// ErrNoSource is returned when the clears spreadsheet is not configured.
	ErrNoSource = errors.New("monitor: no clears spreadsheet configured")
	// ErrNoState is returned when neither a state sheet nor a state database
	// is configured.
	ErrNoState = errors.New("monitor: no state store configured")
	// ErrNoCredentials is returned when no service account is configured.
	ErrNoCredentials = errors.New("monitor: no google credentials configured")
)

// Config is the full clearwatch configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	State   StateConfig   `yaml:"state"`
	Discord DiscordConfig `yaml:"discord"`
	Service ServiceConfig `yaml:"service"`

	Layout   clears.Layout     `yaml:"layout"`
	Tiers    tiers.Layout      `yaml:"tiers"`
	Delivery channels.Delivery `yaml:"delivery"`

	// Channels lists notification channels. When empty, the Discord
	// webhook URLs are used instead.
	Channels []ChannelConfig `yaml:"channels"`

	// NotifyLimit is the maximum characters per message.
	NotifyLimit int `yaml:"notify_limit"`
}

// SourceConfig locates the clears spreadsheet.
type SourceConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" env:"CLEARS_SHEET_ID"`
	ClearsPage      string `yaml:"clears_page" env:"CLEARS_PAGE"`
	TiersPage       string `yaml:"tiers_page" env:"TIERS_PAGE"`
	CredentialsJSON string `yaml:"-" env:"GOOGLE_CREDS_JSON"`
	CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_CREDS_FILE"`
}

// StateConfig locates the previous snapshot. DB wins over the sheet when
// both are set.
type StateConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id" env:"STATE_SHEET_ID"`
	// Page empty means the first page of the state spreadsheet.
	Page string `yaml:"page" env:"STATE_PAGE"`
	DB   string `yaml:"db" env:"CLEARWATCH_STATE_DB"`
}

// DiscordConfig is the shorthand for a Discord-only setup.
type DiscordConfig struct {
	WebhookURL          string `yaml:"webhook_url" env:"DISCORD_WEBHOOK_URL"`
	SecondaryWebhookURL string `yaml:"secondary_webhook_url" env:"DISCORD_SECONDARY_WEBHOOK_URL"`
	Username            string `yaml:"username" env:"DISCORD_USERNAME"`
}

// ServiceConfig tunes the long-running mode.
type ServiceConfig struct {
	Interval time.Duration `yaml:"interval" env:"CLEARWATCH_INTERVAL"`
	Listen   string        `yaml:"listen" env:"CLEARWATCH_LISTEN"`
	LogLevel string        `yaml:"log_level" env:"LOG_LEVEL"`
}

// ChannelConfig declares one notification channel.
type ChannelConfig struct {
	Name     string         `yaml:"name"`
	Role     string         `yaml:"role"`
	Platform string         `yaml:"platform"`
	Config   map[string]any `yaml:"config"`
}

// RawConfig returns the channel config as JSON for a channels.ChannelFactory.
func (c ChannelConfig) RawConfig() (json.RawMessage, error) {
	if len(c.Config) == 0 {
		return json.RawMessage("{}"), nil
	}
	b, err := json.Marshal(c.Config)
	if err != nil {
		return nil, fmt.Errorf("channel %s: encode config: %w", c.Name, err)
	}
	return b, nil
}

func (c *Config) defaults() {
	if c.Source.ClearsPage == "" {
		c.Source.ClearsPage = "Clears"
	}
	if c.Source.TiersPage == "" {
		c.Source.TiersPage = "CLD"
	}
	if c.Service.LogLevel == "" {
		c.Service.LogLevel = "info"
	}

	dl := clears.DefaultLayout()
	if c.Layout.MinPlayerCol <= 0 {
		c.Layout.MinPlayerCol = dl.MinPlayerCol
	}
	if c.Layout.FirstMapRow <= 0 {
		c.Layout.FirstMapRow = dl.FirstMapRow
	}
	if c.Layout.MaxTier <= 0 {
		c.Layout.MaxTier = dl.MaxTier
	}
	if c.Layout.IgnorePrefixes == nil {
		c.Layout.IgnorePrefixes = dl.IgnorePrefixes
	}

	tl := tiers.DefaultLayout()
	if c.Tiers.FirstRow <= 0 {
		c.Tiers.FirstRow = tl.FirstRow
	}
	if c.Tiers.MaxTier <= 0 {
		c.Tiers.MaxTier = tl.MaxTier
	}
	if c.Tiers.ColsPerTier <= 0 {
		c.Tiers.ColsPerTier = tl.ColsPerTier
	}
	if c.Tiers.NameOffset <= 0 {
		c.Tiers.NameOffset = tl.NameOffset
	}

	dd := channels.DefaultDelivery()
	if c.Delivery.Timeout <= 0 {
		c.Delivery.Timeout = dd.Timeout
	}
	if c.Delivery.MaxRetries <= 0 {
		c.Delivery.MaxRetries = dd.MaxRetries
	}
	if c.Delivery.Backoff <= 0 {
		c.Delivery.Backoff = dd.Backoff
	}
	if c.Delivery.BreakerThreshold <= 0 {
		c.Delivery.BreakerThreshold = dd.BreakerThreshold
	}
	if c.Delivery.BreakerReset <= 0 {
		c.Delivery.BreakerReset = dd.BreakerReset
	}
}

// LoadConfigFile reads a YAML config file. Defaults are not applied.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// ParseEnv overlays environment variables on cfg. Unset variables leave the
// current values untouched.
func ParseEnv(cfg *Config) error {
	for _, target := range []any{&cfg.Source, &cfg.State, &cfg.Discord, &cfg.Service} {
		if err := env.Parse(target); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}
	return nil
}

// Load builds the effective config: the file at path when given, then the
// environment, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = LoadConfigFile(path); err != nil {
			return nil, err
		}
	}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, nil
}

// Validate checks that a run can be attempted.
func (c *Config) Validate() error {
	if c.Source.SpreadsheetID == "" {
		return ErrNoSource
	}
	if c.Source.CredentialsJSON == "" && c.Source.CredentialsFile == "" {
		return ErrNoCredentials
	}
	if c.State.SpreadsheetID == "" && c.State.DB == "" {
		return ErrNoState
	}
	for i, ch := range c.Channels {
		if ch.Name == "" || ch.Platform == "" {
			return fmt.Errorf("monitor: channel %d: name and platform are required", i)
		}
		switch ch.Role {
		case RolePrimary, RoleSecondary:
		default:
			return fmt.Errorf("monitor: channel %s: unknown role %q", ch.Name, ch.Role)
		}
	}
	if !c.Delivery.AllowPrivateTargets {
		for _, ch := range c.ChannelSpecs() {
			u, ok := ch.Config["url"].(string)
			if !ok {
				continue
			}
			if err := safenet.ValidateURL(u); err != nil {
				return fmt.Errorf("monitor: channel %s: %w", ch.Name, err)
			}
		}
	}
	return nil
}

// Credentials returns the service account JSON, read from
// Source.CredentialsFile when no inline JSON is set.
func (c *Config) Credentials() ([]byte, error) {
	if strings.TrimSpace(c.Source.CredentialsJSON) != "" {
		return []byte(c.Source.CredentialsJSON), nil
	}
	if c.Source.CredentialsFile == "" {
		return nil, ErrNoCredentials
	}
	b, err := os.ReadFile(c.Source.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return b, nil
}

// ChannelSpecs returns the channels to build: Channels when set, otherwise
// one Discord channel per configured webhook URL.
func (c *Config) ChannelSpecs() []ChannelConfig {
	if len(c.Channels) > 0 {
		return c.Channels
	}
	var out []ChannelConfig
	add := func(name, role, url string) {
		if url == "" {
			return
		}
		cfg := map[string]any{"url": url}
		if c.Discord.Username != "" {
			cfg["username"] = c.Discord.Username
		}
		out = append(out, ChannelConfig{Name: name, Role: role, Platform: "discord", Config: cfg})
	}
	add("discord", RolePrimary, c.Discord.WebhookURL)
	add("discord-secondary", RoleSecondary, c.Discord.SecondaryWebhookURL)
	return out
}
