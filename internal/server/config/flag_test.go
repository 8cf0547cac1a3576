package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:8081", "-g", ":6000", "-d", "db", "-memory", "-s", "secret", "-i", "lib",
			"-t", "5m", "-r", "48h", "-revocation", "redis", "-redis", "cache:6379", "-l", "debug",
		}, expected: &Config{
			EndpointAddrHTTP:             "127.0.0.1:8081",
			EndpointAddrGRPC:             ":6000",
			DatabaseDSN:                  "db",
			InMemory:                     true,
			SecretKey:                    "secret",
			Issuer:                       "lib",
			AccessTokenValidityDuration:  5 * time.Minute,
			RefreshTokenValidityDuration: 48 * time.Hour,
			RevocationBackend:            "redis",
			RedisAddr:                    "cache:6379",
			LogLevel:                     "debug",
		}},
		{name: "config flag is ignored here", args: []string{"cmd", "-c", "file.json", "-a", ":1"},
			expected: &Config{EndpointAddrHTTP: ":1"}},
		{name: "bad duration panics", args: []string{"cmd", "-t", "fifteen"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
