package config

import (
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"

	"github.com/leapstack-labs/leapdash/pkg/dashboard"
	"github.com/leapstack-labs/leapdash/pkg/layout"
)

// Default configuration values.
const (
	DefaultStateFile  = ".leapdash/state.db"
	DefaultOutput     = "auto" // TTY=text, otherwise markdown
	DefaultLogLevel   = "warn"
	DefaultLogFormat  = "text"
	DefaultPort       = 8787
	DefaultSampleSize = 48
	DefaultSampleRows = 1000
)

// defaults returns the flattened default settings for the confmap provider.
func defaults() map[string]any {
	c := layout.DefaultConstraints()
	return map[string]any{
		"canvas.width":               c.CanvasWidth,
		"canvas.height":              c.CanvasHeight,
		"canvas.padding":             c.Padding,
		"canvas.gap":                 c.Gap,
		"canvas.columns":             c.Columns,
		"canvas.responsive":          c.IsResponsive(),
		"history_capacity":           dashboard.DefaultHistoryCapacity,
		"batch_snapshot":             true,
		"state_path":                 DefaultStateFile,
		"log_level":                  DefaultLogLevel,
		"log_format":                 DefaultLogFormat,
		"verbose":                    false,
		"output":                     DefaultOutput,
		"server.host":                "127.0.0.1",
		"server.port":                DefaultPort,
		"server.read_header_timeout": 5 * time.Second,
		"server.shutdown_timeout":    10 * time.Second,
		"data.sample_size":           DefaultSampleSize,
		"data.sample_limit":          DefaultSampleRows,
	}
}

// Default returns the built-in configuration, ignoring files, environment
// and flags.
func Default() *Config {
	k := koanf.New(".")
	// A static map of well-typed values cannot fail to load or decode.
	_ = k.Load(confmap.Provider(defaults(), "."), nil)
	var c Config
	_ = k.Unmarshal("", &c)
	return &c
}
