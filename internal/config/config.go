// Package config provides configuration types and defaults for ncviewer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ncviewer/ncviewer/internal/bridge"
	"github.com/ncviewer/ncviewer/internal/log"
	"github.com/ncviewer/ncviewer/internal/toolpath"
	"github.com/ncviewer/ncviewer/internal/tracing"
)

// Config holds all configuration options for ncviewer.
type Config struct {
	Settings    SettingsConfig    `mapstructure:"settings"`
	Bridge      BridgeConfig      `mapstructure:"bridge"`
	Toolpath    ToolpathConfig    `mapstructure:"toolpath"`
	Viewer      ViewerConfig      `mapstructure:"viewer"`
	Watch       WatchConfig       `mapstructure:"watch"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Flags       map[string]bool   `mapstructure:"flags"`
}

// SettingsConfig travels with every program sent to a surface.
type SettingsConfig struct {
	// ExcludeCodes lists commands that never move the tool. An absent key
	// means the built-in list; an empty list excludes nothing.
	ExcludeCodes []string `mapstructure:"exclude_codes"`
}

// BridgeConfig holds the loopback channel settings.
type BridgeConfig struct {
	Addr     string `mapstructure:"addr"`      // default 127.0.0.1:0
	BasePath string `mapstructure:"base_path"` // default /ncbridge
	Capacity int    `mapstructure:"capacity"`  // default 128
}

// ToolpathConfig bounds extraction.
type ToolpathConfig struct {
	MaxMovements int `mapstructure:"max_movements"` // 0 = unlimited
	ArcSegments  int `mapstructure:"arc_segments"`  // below 2 draws arcs straight
}

// ViewerConfig holds rendering preferences.
type ViewerConfig struct {
	Theme string `mapstructure:"theme"` // "dark" (default) or "light"
}

// WatchConfig controls reloading an opened file when it changes on disk.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// DiagnosticsConfig locates the debug message store.
type DiagnosticsConfig struct {
	// DBPath is the sqlite file. Empty derives it from the config directory.
	DBPath string `mapstructure:"db_path"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/ncviewer/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// ProviderConfig converts to the tracing package's config.
func (t TracingConfig) ProviderConfig() tracing.Config {
	cfg := tracing.DefaultConfig()
	cfg.Enabled = t.Enabled
	if t.Exporter != "" {
		cfg.Exporter = t.Exporter
	}
	cfg.FilePath = t.FilePath
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultTracesFilePath()
	}
	if t.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = t.OTLPEndpoint
	}
	cfg.SampleRate = t.SampleRate
	return cfg
}

// BridgeOptions converts to a bridge.Config.
func (b BridgeConfig) BridgeOptions() bridge.Config {
	return bridge.Config{Addr: b.Addr, BasePath: b.BasePath, Capacity: b.Capacity}
}

// ExtractOptions converts to toolpath.Options.
func (t ToolpathConfig) ExtractOptions() toolpath.Options {
	return toolpath.Options{MaxMovements: t.MaxMovements, ArcSegments: t.ArcSegments}
}

// DefaultDir returns ~/.config/ncviewer, or "" when the home directory is
// unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ncviewer")
}

// DefaultTracesFilePath returns ~/.config/ncviewer/traces/traces.jsonl or
// an empty string if the home dir is unavailable.
func DefaultTracesFilePath() string {
	dir := DefaultDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// DefaultDiagnosticsPath returns ~/.config/ncviewer/diagnostics.db or an
// empty string if the home dir is unavailable.
func DefaultDiagnosticsPath() string {
	dir := DefaultDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "diagnostics.db")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Settings: SettingsConfig{
			ExcludeCodes: append([]string(nil), toolpath.DefaultExcludeCodes...),
		},
		Bridge: BridgeConfig{
			Addr:     bridge.DefaultAddr,
			BasePath: bridge.DefaultBasePath,
			Capacity: bridge.DefaultCapacity,
		},
		Toolpath: ToolpathConfig{
			MaxMovements: toolpath.DefaultMaxMovements,
			ArcSegments:  toolpath.DefaultArcSegments,
		},
		Viewer: ViewerConfig{
			Theme: "dark",
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 200 * time.Millisecond,
		},
		Diagnostics: DiagnosticsConfig{
			DBPath: "", // Derived from config dir at runtime
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate checks every section and returns the first problem found.
func (c Config) Validate() error {
	if err := ValidateSettings(c.Settings); err != nil {
		return err
	}
	if err := ValidateBridge(c.Bridge); err != nil {
		return err
	}
	if err := ValidateToolpath(c.Toolpath); err != nil {
		return err
	}
	if err := ValidateViewer(c.Viewer); err != nil {
		return err
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %v", c.Watch.Debounce)
	}
	if c.Diagnostics.DBPath != "" && !filepath.IsAbs(c.Diagnostics.DBPath) {
		return fmt.Errorf("diagnostics.db_path must be an absolute path, got %q", c.Diagnostics.DBPath)
	}
	return ValidateTracing(c.Tracing)
}

// ValidateSettings rejects exclude entries that are not G/M/T codes.
func ValidateSettings(s SettingsConfig) error {
	for i, code := range s.ExcludeCodes {
		c := strings.TrimSpace(code)
		if c == "" {
			return fmt.Errorf("settings.exclude_codes[%d] is empty", i)
		}
		switch c[0] {
		case 'G', 'g', 'M', 'm', 'T', 't':
		default:
			return fmt.Errorf("settings.exclude_codes[%d] must start with G, M or T, got %q", i, code)
		}
		if len(c) == 1 {
			return fmt.Errorf("settings.exclude_codes[%d] has no number, got %q", i, code)
		}
	}
	return nil
}

// ValidateBridge checks the channel settings.
func ValidateBridge(b BridgeConfig) error {
	if b.Capacity < 0 {
		return fmt.Errorf("bridge.capacity must not be negative, got %d", b.Capacity)
	}
	if b.BasePath != "" && !strings.HasPrefix(b.BasePath, "/") {
		return fmt.Errorf("bridge.base_path must start with \"/\", got %q", b.BasePath)
	}
	if b.BasePath == "/" {
		return fmt.Errorf("bridge.base_path must not be the root path")
	}
	return nil
}

// ValidateToolpath checks extraction limits.
func ValidateToolpath(t ToolpathConfig) error {
	if t.MaxMovements < 0 {
		return fmt.Errorf("toolpath.max_movements must not be negative, got %d", t.MaxMovements)
	}
	if t.ArcSegments < 0 {
		return fmt.Errorf("toolpath.arc_segments must not be negative, got %d", t.ArcSegments)
	}
	return nil
}

// ValidateViewer checks the theme name.
func ValidateViewer(v ViewerConfig) error {
	switch v.Theme {
	case "", "dark", "light":
		return nil
	default:
		return fmt.Errorf("viewer.theme must be \"dark\" or \"light\", got %q", v.Theme)
	}
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# ncviewer configuration

# Settings sent to the viewer with every program
settings:
  # Commands that never move the tool. Remove the key to use the built-in
  # list; an empty list ([]) excludes nothing.
  exclude_codes: [G10, G28, G30, G53, G90, M00, M01, M02, M30]

# Loopback channel between the editor side and the viewer
bridge:
  addr: 127.0.0.1:0     # port 0 picks a free port
  base_path: /ncbridge
  capacity: 128         # messages kept for slow viewers

# Toolpath extraction
toolpath:
  max_movements: 2000000  # 0 = unlimited
  arc_segments: 64        # chords per G2/G3 arc

viewer:
  theme: dark           # dark or light

# Reload an opened file when it changes on disk
watch:
  enabled: true
  debounce: 200ms

# diagnostics:
#   db_path: /absolute/path/diagnostics.db  # default: ~/.config/ncviewer/diagnostics.db

# Feature flags
# flags:
#   extract-cache: true       # reuse extraction for unchanged programs
#   persist-debug-log: true   # store viewer debug messages in diagnostics.db
#   lexer-debug: false        # log every token the lexer reads

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/ncviewer/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
