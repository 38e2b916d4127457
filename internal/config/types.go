// Package config loads leapdash settings.
//
// Settings are layered, lowest to highest precedence: built-in defaults,
// the YAML config file, LEAPDASH_ environment variables and explicitly set
// command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/leapstack-labs/leapdash/pkg/layout"
)

// Output formats accepted by the output setting.
var OutputFormats = []string{"auto", "text", "markdown", "json", "yaml"}

// Config holds all leapdash settings.
type Config struct {
	Canvas          layout.Constraints `koanf:"canvas"`
	HistoryCapacity int                `koanf:"history_capacity"`
	BatchSnapshot   bool               `koanf:"batch_snapshot"`
	StatePath       string             `koanf:"state_path"`
	LogLevel        string             `koanf:"log_level"`
	LogFormat       string             `koanf:"log_format"`
	Verbose         bool               `koanf:"verbose"`
	OutputFormat    string             `koanf:"output"`
	Server          ServerConfig       `koanf:"server"`
	Data            DataConfig         `koanf:"data"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// ServerConfig configures `leapdash serve`.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DataConfig bounds how much data a build looks at.
type DataConfig struct {
	// SampleSize is the number of generated sample rows per build.
	SampleSize int `koanf:"sample_size"`
	// SampleLimit caps rows read from local data files.
	SampleLimit int `koanf:"sample_limit"`
}

// Validate checks the settings for values no component can work with.
func (c *Config) Validate() error {
	if c.Canvas.CanvasWidth <= 0 || c.Canvas.CanvasHeight <= 0 {
		return fmt.Errorf("canvas size must be positive, got %gx%g", c.Canvas.CanvasWidth, c.Canvas.CanvasHeight)
	}
	if c.Canvas.Columns <= 0 {
		return fmt.Errorf("canvas.columns must be positive, got %d", c.Canvas.Columns)
	}
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("history_capacity must not be negative, got %d", c.HistoryCapacity)
	}
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (want one of %v)", c.OutputFormat, OutputFormats)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log_format %q (want text or json)", c.LogFormat)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Data.SampleSize <= 0 || c.Data.SampleLimit <= 0 {
		return fmt.Errorf("data.sample_size and data.sample_limit must be positive")
	}
	return nil
}

// ParseLevel maps a level name onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log_level %q: %w", s, err)
	}
	return l, nil
}
