package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, "shelfauth", c.Issuer)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, RevocationNone, c.RevocationBackend)
	assert.False(t, c.InMemory)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	c := LoadConfig()
	require.NotNil(t, c, "LoadConfig must not return nil")

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults ok", mutate: func(*Config) {}},
		{name: "redis ok", mutate: func(c *Config) { c.RevocationBackend = RevocationRedis; c.InMemory = true }},
		{name: "empty secret", mutate: func(c *Config) { c.SecretKey = "" }, wantErr: "secret key is required"},
		{name: "zero ttl", mutate: func(c *Config) { c.AccessTokenValidityDuration = 0 }, wantErr: "token lifetimes must be positive"},
		{name: "access outlives refresh", mutate: func(c *Config) { c.AccessTokenValidityDuration = 8 * 24 * time.Hour }, wantErr: "access token must expire before refresh token"},
		{name: "unknown backend", mutate: func(c *Config) { c.RevocationBackend = "memcached" }, wantErr: `unknown revocation backend "memcached"`},
		{name: "postgres without db", mutate: func(c *Config) { c.RevocationBackend = RevocationPostgres; c.InMemory = true }, wantErr: "requires a database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecretFromS3(t *testing.T) {
	c := &Config{SecretKey: "s3://bucket/jwt.key"}
	assert.True(t, c.SecretFromS3())
	c.SecretKey = "plain"
	assert.False(t, c.SecretFromS3())
}
