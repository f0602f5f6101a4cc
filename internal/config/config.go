// Package config loads LeadPipe configuration from an optional YAML file and
// environment variables, with the environment taking precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Delivery channel identifiers.
const (
	// ChannelGreenAPI relays messages through the Green API gateway.
	ChannelGreenAPI = "greenapi"
	// ChannelWhatsmeow sends directly over a whatsmeow device session.
	ChannelWhatsmeow = "whatsmeow"
	// ChannelTwilio relays messages through the Twilio WhatsApp API.
	ChannelTwilio = "twilio"
)

// GreenAPIConfig holds the Green API gateway credentials.
type GreenAPIConfig struct {
	InstanceID string `yaml:"instance_id" envconfig:"GREEN_API_INSTANCE_ID"`
	APIToken   string `yaml:"api_token" envconfig:"GREEN_API_TOKEN"`
	BaseURL    string `yaml:"base_url" envconfig:"GREEN_API_BASE_URL"`
}

// TwilioConfig holds the Twilio WhatsApp credentials.
type TwilioConfig struct {
	AccountSID string `yaml:"account_sid" envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken  string `yaml:"auth_token" envconfig:"TWILIO_AUTH_TOKEN"`
	FromWhats  string `yaml:"from_number" envconfig:"TWILIO_FROM_NUMBER"`
}

// WhatsmeowConfig holds the direct WhatsApp session settings.
type WhatsmeowConfig struct {
	DBDSN       string `yaml:"db_dsn" envconfig:"WHATSAPP_DB_DSN"`
	QRPath      string `yaml:"qr_path" envconfig:"WHATSAPP_QR_PATH"`
	NumericCode bool   `yaml:"numeric_code" envconfig:"WHATSAPP_NUMERIC_CODE"`
}

// Config aggregates everything the process needs to start.
type Config struct {
	// Channel selects the delivery backend: greenapi, whatsmeow or twilio.
	Channel string `yaml:"channel" envconfig:"LEADPIPE_CHANNEL"`
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr" envconfig:"LEADPIPE_ADDR"`
	// DatabaseDSN selects the store backend; empty keeps everything in memory.
	DatabaseDSN string `yaml:"database_dsn" envconfig:"DATABASE_URL"`
	// AuthorizedPhone restricts processing to one phone number; empty means open.
	AuthorizedPhone string `yaml:"authorized_phone" envconfig:"AUTHORIZED_PHONE"`
	// LogLevel sets the slog level: debug, info, warn or error.
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`

	GreenAPI  GreenAPIConfig  `yaml:"green_api"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	Whatsmeow WhatsmeowConfig `yaml:"whatsmeow"`
}

// Load reads configuration from a YAML file (when path is non-empty) and the
// environment. Environment variables override file values. The result is not
// yet validated: callers apply any overrides of their own (command line flags)
// and then run Normalize.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	ch := strings.ToLower(strings.TrimSpace(cfg.Channel))
	if ch == "" {
		ch = ChannelGreenAPI
	}
	switch ch {
	case ChannelGreenAPI:
		if strings.TrimSpace(cfg.GreenAPI.InstanceID) == "" {
			return fmt.Errorf("green_api.instance_id is required when channel is %q", ChannelGreenAPI)
		}
		if strings.TrimSpace(cfg.GreenAPI.APIToken) == "" {
			return fmt.Errorf("green_api.api_token is required when channel is %q", ChannelGreenAPI)
		}
	case ChannelWhatsmeow:
		// The whatsmeow session database defaults inside the client.
	case ChannelTwilio:
		if strings.TrimSpace(cfg.Twilio.AccountSID) == "" || strings.TrimSpace(cfg.Twilio.AuthToken) == "" {
			return fmt.Errorf("twilio.account_sid and twilio.auth_token are required when channel is %q", ChannelTwilio)
		}
		if strings.TrimSpace(cfg.Twilio.FromWhats) == "" {
			return fmt.Errorf("twilio.from_number is required when channel is %q", ChannelTwilio)
		}
	default:
		return fmt.Errorf("invalid channel %q; allowed: %s, %s, %s", cfg.Channel, ChannelGreenAPI, ChannelWhatsmeow, ChannelTwilio)
	}
	cfg.Channel = ch

	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = ":8080"
	}

	level := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if level == "" {
		level = "info"
	}
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q; allowed: debug, info, warn, error", cfg.LogLevel)
	}
	cfg.LogLevel = level

	return nil
}
