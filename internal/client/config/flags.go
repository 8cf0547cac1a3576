package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/shelfauth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// os.Args is filtered with flagx.FilterArgs first so unrelated flags do not
// interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-timeout", "-refresh-timeout", "-db"})
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")
	fs.DurationVar(&cfg.RefreshTimeout, "refresh-timeout", cfg.RefreshTimeout, "token refresh timeout")
	fs.StringVar(&cfg.SessionDBPath, "db", cfg.SessionDBPath, "session database path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
