package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ncviewer/ncviewer/internal/config"
	"github.com/ncviewer/ncviewer/internal/flags"
	"github.com/ncviewer/ncviewer/internal/log"
	"github.com/ncviewer/ncviewer/internal/protocol"
	"github.com/ncviewer/ncviewer/internal/tracing"
	"github.com/ncviewer/ncviewer/internal/viewer"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const localConfigPath = ".ncviewer/config.yaml"

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ncviewer",
	Short: "Live toolpath viewing for G-code programs",
	Long: `ncviewer opens a G-code program in the terminal and serves it over a
loopback HTTP bridge to a toolpath viewer. Moving the caret selects the
matching toolpath segments; picking a segment in the viewer moves the caret.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .ncviewer/config.yaml or ~/.config/ncviewer/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs (also NCVIEWER_DEBUG; file from NCVIEWER_LOG, default debug.log)")
}

func initConfig() {
	defaults := config.Defaults()
	// No default for settings.exclude_codes: absent means the built-in
	// list and [] means none.
	viper.SetDefault("bridge.addr", defaults.Bridge.Addr)
	viper.SetDefault("bridge.base_path", defaults.Bridge.BasePath)
	viper.SetDefault("bridge.capacity", defaults.Bridge.Capacity)
	viper.SetDefault("toolpath.max_movements", defaults.Toolpath.MaxMovements)
	viper.SetDefault("toolpath.arc_segments", defaults.Toolpath.ArcSegments)
	viper.SetDefault("viewer.theme", defaults.Viewer.Theme)
	viper.SetDefault("watch.enabled", defaults.Watch.Enabled)
	viper.SetDefault("watch.debounce", defaults.Watch.Debounce)
	viper.SetDefault("diagnostics.db_path", defaults.Diagnostics.DBPath)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .ncviewer/config.yaml (current directory)
		// 2. ~/.config/ncviewer/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			viper.AddConfigPath(config.DefaultDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create the user default
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if dir := config.DefaultDir(); dir != "" {
				defaultPath := filepath.Join(dir, "config.yaml")
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// configPath is the file exclude-code edits are written to.
func configPath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	if dir := config.DefaultDir(); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return localConfigPath
}

// debugEnabled reports whether --debug or NCVIEWER_DEBUG asked for logs.
func debugEnabled() bool {
	return debugFlag || os.Getenv("NCVIEWER_DEBUG") != ""
}

func logPath() string {
	if p := os.Getenv("NCVIEWER_LOG"); p != "" {
		return p
	}
	return "debug.log"
}

// initLogging starts file logging when debugging is on. tui routes it
// through tea.LogToFile. The returned cleanup is never nil.
func initLogging(prefix string, tui bool) (func(), error) {
	if !debugEnabled() {
		return func() {}, nil
	}
	var (
		cleanup func()
		err     error
	)
	if tui {
		cleanup, err = log.InitWithTeaLog(logPath(), prefix)
	} else {
		cleanup, err = log.Init(logPath())
	}
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	log.Info(log.CatConfig, "ncviewer starting", "command", prefix, "version", version, "config", viper.ConfigFileUsed())
	return cleanup, nil
}

// initTracing installs the configured provider. The returned shutdown
// flushes spans.
func initTracing() (func(), error) {
	provider, err := tracing.NewProvider(cfg.Tracing.ProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatConfig, "tracing shutdown failed", err)
		}
	}, nil
}

// validatedConfig checks the loaded config.
func validatedConfig() (config.Config, error) {
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// settingsFor builds the settings sent with every program.
func settingsFor(c config.Config) protocol.Settings {
	return protocol.Settings{ExcludeCodes: c.Settings.ExcludeCodes}
}

// viewerOptions builds engine options from c.
func viewerOptions(c config.Config) viewer.Options {
	extract := c.Toolpath.ExtractOptions()
	return viewer.Options{
		Extract: &extract,
		Theme:   c.Viewer.Theme,
		Flags:   flags.WithDefaults(c.Flags),
	}
}

// readInput returns the contents of path, or stdin for "-" or no path.
func readInput(in io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(b), nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
