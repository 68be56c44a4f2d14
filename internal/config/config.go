// Package config loads punchsync settings from the config file and environment.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config is the root configuration for punchsync, stored in
// ~/.punchsync/config.json. The file supports single-line // comments.
// Environment variables (see the env tags) override file values.
type Config struct {
	Device DeviceConfig `json:"device"`
	API    APIConfig    `json:"api"`
	Kafka  KafkaConfig  `json:"kafka"`
	Log    LogConfig    `json:"log"`
}

// DeviceConfig describes the time-clock device.
type DeviceConfig struct {
	Address  string   `json:"address" env:"PUNCHSYNC_DEVICE_ADDRESS"`
	Port     int      `json:"port" env:"PUNCHSYNC_DEVICE_PORT"`
	Password int      `json:"password" env:"PUNCHSYNC_DEVICE_PASSWORD"`
	Timeout  Duration `json:"timeout"`
	// Timezone is the IANA zone the device clock runs in. Empty = local time.
	Timezone string `json:"timezone" env:"PUNCHSYNC_DEVICE_TIMEZONE"`
	// AttlogPath is the device's attendance log export (attlog.dat).
	AttlogPath string `json:"attlog_path" env:"PUNCHSYNC_ATTLOG_PATH"`
}

// APIConfig describes the attendance API.
type APIConfig struct {
	BaseURL  string   `json:"base_url" env:"PUNCHSYNC_API_URL"`
	Endpoint string   `json:"endpoint"`
	Timeout  Duration `json:"timeout"`
	// Token is a pre-issued bearer token.
	Token string `json:"token" env:"PUNCHSYNC_API_TOKEN"`
	// ClientID, ClientSecret and TokenURL enable the OAuth2 client
	// credentials flow instead of a static token.
	ClientID     string `json:"client_id" env:"PUNCHSYNC_API_CLIENT_ID"`
	ClientSecret string `json:"client_secret" env:"PUNCHSYNC_API_CLIENT_SECRET"`
	TokenURL     string `json:"token_url" env:"PUNCHSYNC_API_TOKEN_URL"`
}

// KafkaConfig enables mirroring of sent batches to a topic.
type KafkaConfig struct {
	Brokers []string `json:"brokers" env:"PUNCHSYNC_KAFKA_BROKERS" envSeparator:","`
	Topic   string   `json:"topic" env:"PUNCHSYNC_KAFKA_TOPIC"`
}

// Enabled reports whether both brokers and topic are set.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

// LogConfig configures the diagnostics logger.
type LogConfig struct {
	Level  string `json:"level" env:"PUNCHSYNC_LOG_LEVEL"`
	Format string `json:"format" env:"PUNCHSYNC_LOG_FORMAT"`
}

// Duration is a time.Duration written as a string ("5s") in the config file.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

const (
	DefaultDeviceAddress = "192.168.222.191"
	DefaultDevicePort    = 4370
	DefaultDeviceTimeout = 5 * time.Second
	DefaultAttlogPath    = "attlog.dat"
	DefaultAPIBaseURL    = "http://localhost:3000"
	DefaultAPIEndpoint   = "/api/attendance/bulk-device-registration"
	DefaultAPITimeout    = 30 * time.Second
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
)

// Default returns a Config pre-filled with defaults.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Address:    DefaultDeviceAddress,
			Port:       DefaultDevicePort,
			Timeout:    Duration{DefaultDeviceTimeout},
			AttlogPath: DefaultAttlogPath,
		},
		API: APIConfig{
			BaseURL:  DefaultAPIBaseURL,
			Endpoint: DefaultAPIEndpoint,
			Timeout:  Duration{DefaultAPITimeout},
		},
		Kafka: KafkaConfig{Brokers: []string{}},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// configTemplate is the annotated config written on first run.
const configTemplate = `// punchsync configuration – ~/.punchsync/config.json
//
// Lines starting with // are comments. Every value can also be set through
// the PUNCHSYNC_* environment variables or a .env file in the working
// directory; environment values win over this file.
{
  // ── Time-clock device ────────────────────────────────────────────────────
  "device": {
    // Network address, port and comm password of the device (PUNCHSYNC_DEVICE_*).
    "address": "192.168.222.191",
    "port": 4370,
    "password": 0,
    "timeout": "5s",

    // IANA timezone the device clock runs in, e.g. "Africa/Addis_Ababa".
    // Leave empty to use this machine's local time.
    "timezone": "",

    // Attendance log exported by the device (PUNCHSYNC_ATTLOG_PATH).
    "attlog_path": "attlog.dat"
  },

  // ── Attendance API ───────────────────────────────────────────────────────
  "api": {
    "base_url": "http://localhost:3000",
    "endpoint": "/api/attendance/bulk-device-registration",
    "timeout": "30s",

    // Bearer token (PUNCHSYNC_API_TOKEN). Alternatively fill in client_id,
    // client_secret and token_url to fetch tokens with OAuth2 client credentials.
    "token": "",
    "client_id": "",
    "client_secret": "",
    "token_url": ""
  },

  // ── Optional Kafka mirror of every sent batch ────────────────────────────
  "kafka": {
    "brokers": [],
    "topic": ""
  },

  // ── Diagnostics ──────────────────────────────────────────────────────────
  "log": {
    // debug | info | warn | error
    "level": "info",
    // console | json
    "format": "console"
  }
}
`

// DefaultPath returns ~/.punchsync/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".punchsync", "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads the config file at path (DefaultPath when empty), creating it
// with annotated defaults if it does not exist, then applies .env and
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Default(), err
		}
		path = p
	}

	cfg, err := loadFile(path)
	if err != nil {
		return Default(), err
	}

	// A missing .env is the normal case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Default(), fmt.Errorf("loading .env: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return Default(), fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(stripLineComments(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults replaces zero values left by an explicit "" or 0 in the file.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Device.Address == "" {
		c.Device.Address = d.Device.Address
	}
	if c.Device.Port == 0 {
		c.Device.Port = d.Device.Port
	}
	if c.Device.Timeout.Duration == 0 {
		c.Device.Timeout = d.Device.Timeout
	}
	if c.Device.AttlogPath == "" {
		c.Device.AttlogPath = d.Device.AttlogPath
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.Endpoint == "" {
		c.API.Endpoint = d.API.Endpoint
	}
	if c.API.Timeout.Duration == 0 {
		c.API.Timeout = d.API.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if c.Device.Port < 1 || c.Device.Port > 65535 {
		return fmt.Errorf("device.port %d out of range", c.Device.Port)
	}
	if c.Device.Timeout.Duration < 0 || c.API.Timeout.Duration < 0 {
		return errors.New("timeouts must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url %q must be an http(s) URL", c.API.BaseURL)
	}
	if c.API.ClientID != "" && (c.API.ClientSecret == "" || c.API.TokenURL == "") {
		return errors.New("api.client_id requires api.client_secret and api.token_url")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka.brokers requires kafka.topic")
	}
	return nil
}

// Location returns the device's time zone.
func (c Config) Location() (*time.Location, error) {
	if c.Device.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Device.Timezone)
	if err != nil {
		return nil, fmt.Errorf("device.timezone %q: %w", c.Device.Timezone, err)
	}
	return loc, nil
}

// DeviceID identifies the device on forwarded records.
func (c Config) DeviceID() string {
	return c.Device.Address
}

// Redacted returns a copy with API secrets masked and the device password
// zeroed, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.API.Token = mask(c.API.Token)
	c.API.ClientSecret = mask(c.API.ClientSecret)
	// Numeric comm key; shown as the device default.
	c.Device.Password = 0
	return c
}

// String renders the config as indented JSON.
func (c Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return strings.TrimSpace(string(data))
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
