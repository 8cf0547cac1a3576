package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "SHELFAUTH_"

var envFile = ".env"

// parseEnv overlays SHELFAUTH_SERVER_URL, SHELFAUTH_REQUEST_TIMEOUT,
// SHELFAUTH_REFRESH_TIMEOUT and SHELFAUTH_SESSION_DB. Malformed durations panic.
func parseEnv(cfg *Config) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if v := os.Getenv(envPrefix + "SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv(envPrefix + "SESSION_DB"); v != "" {
		cfg.SessionDBPath = v
	}
	envDuration(&cfg.RequestTimeout, "REQUEST_TIMEOUT")
	envDuration(&cfg.RefreshTimeout, "REFRESH_TIMEOUT")
}

func envDuration(dst *time.Duration, name string) {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
