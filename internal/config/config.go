// Package config holds runtime settings for the vault CLI.
package config

import "time"

// Config holds runtime settings.
//
// Fields:
//   - DataDir: root directory for the vault (blob files + SQLite database).
//   - LogLevel: minimum log level (debug, info, warn, error).
//   - ThumbnailMaxPx: longest side of derived thumbnails, in pixels.
//   - ProgressInterval: minimum delay between progress redraws in the CLI.
type Config struct {
	DataDir          string
	LogLevel         string
	ThumbnailMaxPx   int
	ProgressInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "vault-data"
	c.LogLevel = "info"
	c.ThumbnailMaxPx = 256
	c.ProgressInterval = 200 * time.Millisecond
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
