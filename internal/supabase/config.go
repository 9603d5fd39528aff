// File path: internal/supabase/config.go
package supabase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	URL    string `json:"url"`
	Key    string `json:"key"`
	Table  string `json:"table"`
	Schema string `json:"schema"`

	Timeout       time.Duration `json:"-"`
	TimeoutString string        `json:"timeout"`

	PageSize   int `json:"page_size"`
	MaxRetries int `json:"max_retries"`

	RetryBackoff    time.Duration `json:"-"`
	RetryBackoffStr string        `json:"retry_backoff"`

	HTTPMaxIdleConns    int           `json:"http_max_idle_conns"`
	HTTPIdleConnTimeout time.Duration `json:"-"`
}

func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.URL) != "" {
		result.URL = strings.TrimSpace(override.URL)
	}
	if strings.TrimSpace(override.Key) != "" {
		result.Key = strings.TrimSpace(override.Key)
	}
	if strings.TrimSpace(override.Table) != "" {
		result.Table = strings.TrimSpace(override.Table)
	}
	if strings.TrimSpace(override.Schema) != "" {
		result.Schema = strings.TrimSpace(override.Schema)
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	if strings.TrimSpace(override.TimeoutString) != "" {
		result.TimeoutString = strings.TrimSpace(override.TimeoutString)
	}
	if override.PageSize > 0 {
		result.PageSize = override.PageSize
	}
	if override.MaxRetries > 0 {
		result.MaxRetries = override.MaxRetries
	}
	if override.RetryBackoff > 0 {
		result.RetryBackoff = override.RetryBackoff
	}
	if strings.TrimSpace(override.RetryBackoffStr) != "" {
		result.RetryBackoffStr = strings.TrimSpace(override.RetryBackoffStr)
	}
	if override.HTTPMaxIdleConns > 0 {
		result.HTTPMaxIdleConns = override.HTTPMaxIdleConns
	}
	if override.HTTPIdleConnTimeout > 0 {
		result.HTTPIdleConnTimeout = override.HTTPIdleConnTimeout
	}
	return result
}

// Configured reports whether the project URL and key are both set.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.URL) != "" && strings.TrimSpace(c.Key) != ""
}

// LoadConfig reads SUPABASE_CONFIG_FILE (JSON) and then SUPABASE_* variables,
// later sources overriding earlier ones.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := strings.TrimSpace(os.Getenv("SUPABASE_CONFIG_FILE")); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	envCfg, err := loadConfigEnv()
	if err != nil {
		return Config{}, err
	}
	cfg = cfg.Merge(envCfg)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	if strings.TrimSpace(c.Table) == "" {
		c.Table = "respostas"
	}
	if strings.TrimSpace(c.Schema) == "" {
		c.Schema = "public"
	}
	if c.Timeout <= 0 {
		if c.TimeoutString != "" {
			if parsed, err := time.ParseDuration(c.TimeoutString); err == nil {
				c.Timeout = parsed
			}
		}
		if c.Timeout <= 0 {
			c.Timeout = 15 * time.Second
		}
	}
	if c.PageSize <= 0 {
		c.PageSize = 1000
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		if c.RetryBackoffStr != "" {
			if parsed, err := time.ParseDuration(c.RetryBackoffStr); err == nil {
				c.RetryBackoff = parsed
			}
		}
		if c.RetryBackoff <= 0 {
			c.RetryBackoff = 250 * time.Millisecond
		}
	}
	if c.HTTPMaxIdleConns <= 0 {
		c.HTTPMaxIdleConns = 16
	}
	if c.HTTPIdleConnTimeout <= 0 {
		c.HTTPIdleConnTimeout = 90 * time.Second
	}
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read supabase config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse supabase config: %w", err)
	}
	return cfg, nil
}

func loadConfigEnv() (Config, error) {
	cfg := Config{
		URL:    strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		Key:    strings.TrimSpace(os.Getenv("SUPABASE_KEY")),
		Table:  strings.TrimSpace(os.Getenv("SUPABASE_TABLE")),
		Schema: strings.TrimSpace(os.Getenv("SUPABASE_SCHEMA")),
	}
	if timeout := strings.TrimSpace(os.Getenv("SUPABASE_TIMEOUT")); timeout != "" {
		cfg.TimeoutString = timeout
		if parsed, err := time.ParseDuration(timeout); err == nil {
			cfg.Timeout = parsed
		}
	}
	if pageSize := strings.TrimSpace(os.Getenv("SUPABASE_PAGE_SIZE")); pageSize != "" {
		value, err := strconv.Atoi(pageSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse SUPABASE_PAGE_SIZE: %w", err)
		}
		if value > 0 {
			cfg.PageSize = value
		}
	}
	if retries := strings.TrimSpace(os.Getenv("SUPABASE_MAX_RETRIES")); retries != "" {
		value, err := strconv.Atoi(retries)
		if err != nil {
			return Config{}, fmt.Errorf("parse SUPABASE_MAX_RETRIES: %w", err)
		}
		if value > 0 {
			cfg.MaxRetries = value
		}
	}
	return cfg, nil
}
