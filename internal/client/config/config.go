package config

import "time"

// Config holds runtime settings for the shelfauth CLI.
//
// RequestTimeout bounds each API call made on behalf of the user.
// RefreshTimeout bounds the shared token refresh, which runs detached from
// the caller that triggered it.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	RefreshTimeout time.Duration
	SessionDBPath  string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
	c.RefreshTimeout = 10 * time.Second
	c.SessionDBPath = "session.db"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
