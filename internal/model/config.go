package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Notification transport modes.
const (
	TransportWebSocket = "websocket"
	TransportPoll      = "poll"
)

// APIConfig holds the backend endpoint settings.
type APIConfig struct {
	// BaseURL is the root URL of the CivicEye REST API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// WSURL is the realtime notification endpoint. When empty it is
	// derived from BaseURL by swapping the scheme to ws(s) and
	// appending /ws/notifications/.
	WSURL string `mapstructure:"ws_url" yaml:"ws_url"`

	// TimeoutSec bounds every single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// NotificationConfig controls the notification delivery channel.
type NotificationConfig struct {
	// Transport selects "websocket" (default) or "poll".
	Transport string `mapstructure:"transport" yaml:"transport"`

	// PollIntervalSec is the fallback polling cadence.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// ReconnectDelaySec is the fixed delay before a dropped websocket
	// connection is retried.
	ReconnectDelaySec int `mapstructure:"reconnect_delay_sec" yaml:"reconnect_delay_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API           APIConfig          `mapstructure:"api" yaml:"api"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Display       DisplayConfig      `mapstructure:"display" yaml:"display"`
}

// WebSocketURL returns the realtime endpoint: WSURL when set, otherwise
// BaseURL with the scheme swapped to ws(s), the /api suffix dropped,
// and /ws/notifications/ appended.
func (c APIConfig) WebSocketURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	u := strings.TrimSuffix(strings.TrimRight(c.BaseURL, "/"), "/api")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/notifications/"
}

// Timeout returns the per-request HTTP timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// PollInterval returns the polling cadence as a duration.
func (c NotificationConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// ReconnectDelay returns the websocket retry delay as a duration.
func (c NotificationConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySec) * time.Second
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/civiceye/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "civiceye", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://127.0.0.1:8000/api",
			TimeoutSec: 30,
		},
		Notifications: NotificationConfig{
			Transport:         TransportWebSocket,
			PollIntervalSec:   10,
			ReconnectDelaySec: 3,
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("api.base_url", "http://127.0.0.1:8000/api")
	v.SetDefault("api.timeout_sec", 30)
	v.SetDefault("notifications.transport", TransportWebSocket)
	v.SetDefault("notifications.poll_interval_sec", 10)
	v.SetDefault("notifications.reconnect_delay_sec", 3)
	v.SetDefault("display.theme", "default")

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

	v.Set("api", cfg.API)
	v.Set("notifications", cfg.Notifications)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
