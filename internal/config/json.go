package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/tearleads/rapidvault/internal/flagx"
	"github.com/tearleads/rapidvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so intervals can be given either as strings like "200ms"
// or as integer nanoseconds.
type JsonConfig struct {
	DataDir          string         `json:"data_dir"`
	LogLevel         string         `json:"log_level"`
	ThumbnailMaxPx   int            `json:"thumbnail_max_px"`
	ProgressInterval timex.Duration `json:"progress_interval"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. Missing flag means no JSON is loaded. Read or
// unmarshal errors panic; the process cannot run with a broken explicit
// config.
//
// Only fields actually present in the JSON override the current values.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.ThumbnailMaxPx > 0 {
		cfg.ThumbnailMaxPx = jc.ThumbnailMaxPx
	}
	if jc.ProgressInterval.Duration > 0 {
		cfg.ProgressInterval = time.Duration(jc.ProgressInterval.Duration)
	}
}
