package config

import (
	"flag"
	"os"

	"github.com/tearleads/rapidvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   vault data directory (default from Config)
//	-l string   log level: debug, info, warn, error (default from Config)
//	-t int      thumbnail size in pixels, longest side (default from Config)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-l", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "vault data directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.IntVar(&cfg.ThumbnailMaxPx, "t", cfg.ThumbnailMaxPx, "thumbnail size in pixels (longest side)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
