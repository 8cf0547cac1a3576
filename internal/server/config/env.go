package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "SHELFAUTH_"

// envFile is loaded before reading the environment. Variables already set in
// the process environment take precedence over the file.
var envFile = ".env"

// parseEnv overlays SHELFAUTH_* variables. Malformed booleans or durations
// panic, like malformed flags.
func parseEnv(config *Config) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	envString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	envString(&config.EndpointAddrGRPC, "GRPC_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SecretKey, "SECRET_KEY")
	envString(&config.Issuer, "ISSUER")
	envString(&config.RevocationBackend, "REVOCATION")
	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_ENDPOINT")
	envString(&config.S3AccessKey, "S3_ACCESS_KEY")
	envString(&config.S3SecretKey, "S3_SECRET_KEY")
	envString(&config.LogLevel, "LOG_LEVEL")

	envDuration(&config.AccessTokenValidityDuration, "ACCESS_TTL")
	envDuration(&config.RefreshTokenValidityDuration, "REFRESH_TTL")

	if v, ok := os.LookupEnv(envPrefix + "IN_MEMORY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.InMemory = b
	}
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, name string) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
