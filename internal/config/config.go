package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. RELAYCHAT_BASE_URL.
const EnvPrefix = "RELAYCHAT"

// Config holds the client settings. Command-line flags override these after
// New has read the environment.
type Config struct {
	// Relay backend
	BaseURL     string        `envconfig:"BASE_URL" default:"http://localhost:8000"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"2m"`
	ListRetries int           `envconfig:"LIST_RETRIES" default:"3"`

	// Model selection
	Model         string   `envconfig:"MODEL" default:"gpt-4.1-mini"`
	CompareModels []string `envconfig:"COMPARE_MODELS" default:"gpt-4.1-mini,claude-3-5"`

	// Local files; empty means under the user config dir
	LogFile   string `envconfig:"LOG_FILE" default:""`
	PrefsPath string `envconfig:"PREFS_PATH" default:""`

	Debug bool `envconfig:"DEBUG" default:"false"`
}

// New reads the RELAYCHAT_ environment and validates the result.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that envconfig cannot. It also trims the model
// lists in place.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid BASE_URL %q: want http(s)://host[:port]", c.BaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	if c.ListRetries < 0 {
		return fmt.Errorf("LIST_RETRIES must be >= 0, got %d", c.ListRetries)
	}
	c.Model = strings.TrimSpace(c.Model)
	if c.Model == "" {
		return fmt.Errorf("MODEL must not be empty")
	}

	models := c.CompareModels[:0]
	seen := map[string]bool{}
	for _, m := range c.CompareModels {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		models = append(models, m)
	}
	c.CompareModels = models
	return nil
}
