// Package config loads freska settings from a file and FRESKA_* environment
// variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// Backend is "auto", "gpu" or "software".
	Backend string `mapstructure:"backend"`

	// Order is the evaluation order, "unordered" or "topological".
	Order string `mapstructure:"order"`

	// FPS is the compositor frame rate.
	FPS int `mapstructure:"fps"`

	// Frames is the number of frames a headless run renders; 0 runs until
	// interrupted.
	Frames int `mapstructure:"frames"`

	// Output is the PNG written with the last frame; empty writes nothing.
	Output string `mapstructure:"output"`

	// Templates is an .hcl file or directory of extra effect templates.
	Templates string `mapstructure:"templates"`

	// Chain lists the effect templates applied to the video source, in order.
	Chain []string `mapstructure:"chain"`

	Capture CaptureConfig `mapstructure:"capture"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Shaders ShadersConfig `mapstructure:"shaders"`
}

type CaptureConfig struct {
	Driver string `mapstructure:"driver"`
	Index  int    `mapstructure:"index"`
	Path   string `mapstructure:"path"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	FPS    int    `mapstructure:"fps"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
}

type ShadersConfig struct {
	Validate  bool `mapstructure:"validate"`
	CacheSize int  `mapstructure:"cache_size"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Backend: "auto",
		Order:   "topological",
		FPS:     30,
		Frames:  0,
		Chain:   []string{"Color Correction"},
		Capture: CaptureConfig{Driver: "pattern", Width: 640, Height: 480},
		Log:     LogConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{SampleRate: 1, ServiceName: "freska"},
		Shaders: ShadersConfig{Validate: true, CacheSize: 64},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("order", d.Order)
	v.SetDefault("fps", d.FPS)
	v.SetDefault("frames", d.Frames)
	v.SetDefault("output", d.Output)
	v.SetDefault("templates", d.Templates)
	v.SetDefault("chain", d.Chain)
	v.SetDefault("capture.driver", d.Capture.Driver)
	v.SetDefault("capture.index", d.Capture.Index)
	v.SetDefault("capture.path", d.Capture.Path)
	v.SetDefault("capture.width", d.Capture.Width)
	v.SetDefault("capture.height", d.Capture.Height)
	v.SetDefault("capture.fps", d.Capture.FPS)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("shaders.validate", d.Shaders.Validate)
	v.SetDefault("shaders.cache_size", d.Shaders.CacheSize)
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	switch c.Backend {
	case "", "auto", "gpu", "software":
	default:
		warnings = append(warnings, fmt.Sprintf("backend %q is not a built-in backend", c.Backend))
	}
	switch c.Order {
	case "", "unordered", "topological":
	default:
		warnings = append(warnings, fmt.Sprintf("order %q is not one of unordered, topological", c.Order))
	}
	if c.FPS <= 0 {
		warnings = append(warnings, fmt.Sprintf("fps %d is not positive", c.FPS))
	}
	if c.Frames < 0 {
		warnings = append(warnings, fmt.Sprintf("frames %d is negative", c.Frames))
	}
	if c.Capture.Driver == "" {
		warnings = append(warnings, "capture.driver is empty")
	}
	if c.Capture.Driver == "sequence" && c.Capture.Path == "" {
		warnings = append(warnings, "capture driver 'sequence' is configured but capture.path is empty")
	}
	if c.Capture.Width < 0 || c.Capture.Height < 0 {
		warnings = append(warnings, fmt.Sprintf("capture size %dx%d is negative", c.Capture.Width, c.Capture.Height))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		warnings = append(warnings, err.Error())
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		warnings = append(warnings, fmt.Sprintf("log format %q is not one of text, json", c.Log.Format))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0, 1]", c.Tracing.SampleRate))
	}
	if c.Shaders.CacheSize < 0 {
		warnings = append(warnings, fmt.Sprintf("shaders cache_size %d is negative", c.Shaders.CacheSize))
	}

	return warnings
}

// Load reads configuration from file and environment. An empty path reads
// the environment over the defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FRESKA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// ParseLevel parses debug, info, warn or error. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level %q is not one of debug, info, warn, error", s)
	}
}

// NewLogger builds a logger writing to w with the configured level and
// format. Unknown values fall back to info and text.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level, _ := ParseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
