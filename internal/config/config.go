// Package config loads the gateway's static configuration: a YAML file
// for the durable defaults, hot-reloaded by fsnotify for the subset that
// is safe to change without a restart, and environment variables for the
// deploy-time overrides the teacher keeps out of the YAML file entirely.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the gateway's static configuration, loaded once from YAML at
// startup and from environment variables on top of it.
type Config struct {
	// Port is the HTTP listen port.
	Port int `yaml:"port"`

	// Debug switches logging to logrus's TextFormatter at debug level.
	Debug bool `yaml:"debug"`

	// Fallback enables the one-hop cross-family fallback policy of
	// spec.md section 4.7.
	Fallback bool `yaml:"fallback"`

	// WebUIPassword gates the account-limits and gateway-config admin
	// surface. Empty disables the check.
	WebUIPassword string `yaml:"webui-password"`

	// Endpoints is the ordered list of upstream hosts; the first
	// reachable entry is tried first for every request.
	Endpoints []string `yaml:"endpoints"`

	// CooldownSeconds is the default rate-limit cooldown applied when
	// upstream gives no retry-after hint.
	CooldownSeconds int `yaml:"cooldown-seconds"`

	// RateLimitSkewSeconds is the access-token refresh skew window
	// (spec.md section 4.4): a token is refreshed if it expires within
	// this many seconds.
	RateLimitSkewSeconds int `yaml:"rate-limit-skew-seconds"`

	// SignatureCacheSize bounds the thinking-signature LRU cache.
	SignatureCacheSize int `yaml:"signature-cache-size"`

	// LogFilePath rotates logs through lumberjack when set; stderr
	// otherwise.
	LogFilePath string `yaml:"log-file-path"`

	// AccountsPath and GatewayConfigPath locate the persisted runtime
	// state store (spec.md section 6).
	AccountsPath      string `yaml:"accounts-path"`
	GatewayConfigPath string `yaml:"gateway-config-path"`
}

// Defaults returns the configuration applied before any YAML file or
// environment variable is read.
func Defaults() Config {
	return Config{
		Port:                 8080,
		Fallback:             true,
		Endpoints:            []string{"https://cloudcode-pa.googleapis.com"},
		CooldownSeconds:      60,
		RateLimitSkewSeconds: 120,
		SignatureCacheSize:   4096,
		AccountsPath:         "accounts.json",
		GatewayConfigPath:    "gateway.json",
	}
}

// Load reads path (if it exists) over Defaults, then applies environment
// variable overrides. A missing file is not an error: the gateway runs on
// defaults plus env vars alone, matching the teacher's "config file is
// optional" posture.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

// applyEnv overrides cfg with PORT, DEBUG, FALLBACK, and WEBUI_PASSWORD,
// loading a .env file first if one is present so local development can
// set them without exporting shell variables.
func applyEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("PORT"); v != "" {
		if port, err := parsePort(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
	if v := os.Getenv("FALLBACK"); v != "" {
		cfg.Fallback = parseBool(v)
	}
	if v := os.Getenv("WEBUI_PASSWORD"); v != "" {
		cfg.WebUIPassword = v
	}
}

func parsePort(v string) (int, error) {
	var port int
	_, err := fmt.Sscanf(v, "%d", &port)
	return port, err
}

func parseBool(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes":
		return true
	default:
		return false
	}
}
