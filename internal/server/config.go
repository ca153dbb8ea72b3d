// Package server provides configuration helpers that define runtime
// defaults and validation for the AceChat service.
package server

import (
	"strings"
	"sync"
	"time"

	env "github.com/Netflix/go-env"
)

// Config holds the server configuration settings including security controls.
type Config struct {
	Addr            string        `env:"ACECHAT_ADDR,default=:8080"`
	Origins         string        `env:"ACECHAT_ALLOWED_ORIGINS,default=http://localhost:8080"`
	MaxMessageSize  int64         `env:"ACECHAT_MAX_MESSAGE_SIZE,default=4096"`
	ShutdownTimeout time.Duration `env:"ACECHAT_SHUTDOWN_TIMEOUT,default=10s"`
	LogLevel        string        `env:"ACECHAT_LOG_LEVEL,default=info"`

	// AllowedOrigins is derived from Origins during sanitization.
	AllowedOrigins []string `env:"-"`
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Addr:            ":8080",
		Origins:         "http://localhost:8080",
		MaxMessageSize:  4096,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if len(cfg.AllowedOrigins) == 0 && cfg.Origins != "" {
		cfg.AllowedOrigins = parseOrigins(cfg.Origins)
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := *cfg
	sanitized.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from ACECHAT_* environment
// variables, falling back to defaults for anything unset.
func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, err
	}
	cfg.AllowedOrigins = parseOrigins(cfg.Origins)
	return &cfg, nil
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
