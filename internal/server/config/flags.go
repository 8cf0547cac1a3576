package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/shelfauth/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string        HTTP bind address (e.g. ":8080")
//	-g string        gRPC health bind address
//	-d string        PostgreSQL DSN
//	-memory          keep users in memory, no database
//	-s string        JWT secret or s3://bucket/key
//	-i string        token issuer
//	-t duration      access token lifetime (e.g. 15m)
//	-r duration      refresh token lifetime (e.g. 168h)
//	-revocation str  none | postgres | redis
//	-redis string    Redis address
//	-l string        log level
//
// os.Args is filtered through flagx.FilterArgs first so the config-file
// flags do not trip this FlagSet.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-g", "-d", "-memory", "-s", "-i", "-t", "-r", "-revocation", "-redis", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.BoolVar(&config.InMemory, "memory", config.InMemory, "in-memory storage (development)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret or s3://bucket/key")
	fs.StringVar(&config.Issuer, "i", config.Issuer, "token issuer")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token lifetime")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token lifetime")
	fs.StringVar(&config.RevocationBackend, "revocation", config.RevocationBackend, "refresh revocation backend: none, postgres, redis")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "Redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
