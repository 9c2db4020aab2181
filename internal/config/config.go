// Package config loads runtime settings from SERENO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Config is the process configuration. Defaults are provided via struct tags.
type Config struct {
	// APIURL hosts api-gateway.php. ENV: SERENO_API_URL
	APIURL string `env:"SERENO_API_URL,default=https://api.tramontosereno.it"`
	// AppURL is the guest web application. ENV: SERENO_APP_URL
	AppURL string `env:"SERENO_APP_URL,default=https://app.tramontosereno.it"`
	// StorageURL resolves relative PDF paths sent by the guest. ENV: SERENO_STORAGE_URL
	StorageURL string `env:"SERENO_STORAGE_URL,default=https://storage.tramontosereno.it/tramonto/_cache_/"`

	// DataDir holds the session file, downloads and logs. ENV: SERENO_DATA_DIR (default ~/.sereno)
	DataDir string `env:"SERENO_DATA_DIR"`
	// Store selects the session backend: file|redis|memory. ENV: SERENO_STORE
	Store string `env:"SERENO_STORE,default=file"`
	// RedisAddr like "localhost:6379". ENV: SERENO_REDIS_ADDR
	RedisAddr string `env:"SERENO_REDIS_ADDR,default=localhost:6379"`
	// RedisPrefix for session keys. ENV: SERENO_REDIS_PREFIX
	RedisPrefix string `env:"SERENO_REDIS_PREFIX,default=sereno:"`

	LogLevel  string `env:"SERENO_LOG_LEVEL,default=info"`
	LogFormat string `env:"SERENO_LOG_FORMAT,default=text"`
	LogOutput string `env:"SERENO_LOG_OUTPUT,default=file"`

	// HTTPTimeout bounds each gateway call. ENV: SERENO_HTTP_TIMEOUT
	HTTPTimeout time.Duration `env:"SERENO_HTTP_TIMEOUT,default=30s"`
	// Breaker wraps gateway calls in a circuit breaker. ENV: SERENO_BREAKER
	Breaker bool `env:"SERENO_BREAKER,default=false"`
	// PingInterval spaces the TUI keepalive; 0 disables it. ENV: SERENO_PING_INTERVAL
	PingInterval time.Duration `env:"SERENO_PING_INTERVAL,default=5m"`

	AppName    string `env:"SERENO_APP_NAME,default=Tramonto Sereno"`
	AppVersion string `env:"SERENO_APP_VERSION,default=1.0.0"`
}

// Load decodes the environment and fills derived defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	c.AppURL = strings.TrimRight(c.AppURL, "/")
	if c.StorageURL != "" && !strings.HasSuffix(c.StorageURL, "/") {
		c.StorageURL += "/"
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("get home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, ".sereno")
	}
	switch c.Store {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	return nil
}

// DownloadDir is where PDFs handed off by the guest are written.
func (c *Config) DownloadDir() string {
	return filepath.Join(c.DataDir, "documents")
}
