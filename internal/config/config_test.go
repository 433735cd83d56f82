package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncviewer/ncviewer/internal/toolpath"
)

func loadConfigFromYAML(t *testing.T, yaml string) Config {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0644))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, toolpath.DefaultExcludeCodes, cfg.Settings.ExcludeCodes)
	assert.Equal(t, "127.0.0.1:0", cfg.Bridge.Addr)
	assert.Equal(t, "/ncbridge", cfg.Bridge.BasePath)
	assert.Equal(t, 128, cfg.Bridge.Capacity)
	assert.Equal(t, 64, cfg.Toolpath.ArcSegments)
	assert.Equal(t, "dark", cfg.Viewer.Theme)
	assert.NoError(t, cfg.Validate())
}

func TestDefaults_DoesNotAliasExcludeList(t *testing.T) {
	cfg := Defaults()
	cfg.Settings.ExcludeCodes[0] = "G99"
	assert.Equal(t, "G10", toolpath.DefaultExcludeCodes[0])
}

func TestDefaultConfigTemplate_LoadsAsDefaults(t *testing.T) {
	cfg := loadConfigFromYAML(t, DefaultConfigTemplate())

	assert.Equal(t, Defaults().Settings, cfg.Settings)
	assert.Equal(t, Defaults().Bridge, cfg.Bridge)
	assert.Equal(t, Defaults().Toolpath, cfg.Toolpath)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	cfg := loadConfigFromYAML(t, `
settings:
  exclude_codes: []
viewer:
  theme: light
flags:
  lexer-debug: true
`)
	assert.Empty(t, cfg.Settings.ExcludeCodes)
	assert.NotNil(t, cfg.Settings.ExcludeCodes)
	assert.Equal(t, "light", cfg.Viewer.Theme)
	assert.True(t, cfg.Flags["lexer-debug"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad theme", func(c *Config) { c.Viewer.Theme = "neon" }, "viewer.theme"},
		{"negative capacity", func(c *Config) { c.Bridge.Capacity = -1 }, "bridge.capacity"},
		{"relative base path", func(c *Config) { c.Bridge.BasePath = "ncbridge" }, "bridge.base_path"},
		{"root base path", func(c *Config) { c.Bridge.BasePath = "/" }, "root path"},
		{"negative movements", func(c *Config) { c.Toolpath.MaxMovements = -5 }, "toolpath.max_movements"},
		{"negative arcs", func(c *Config) { c.Toolpath.ArcSegments = -1 }, "toolpath.arc_segments"},
		{"blank code", func(c *Config) { c.Settings.ExcludeCodes = []string{" "} }, "is empty"},
		{"not a command", func(c *Config) { c.Settings.ExcludeCodes = []string{"X10"} }, "must start with"},
		{"bare letter", func(c *Config) { c.Settings.ExcludeCodes = []string{"G"} }, "has no number"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce"},
		{"relative db", func(c *Config) { c.Diagnostics.DBPath = "diag.db" }, "diagnostics.db_path"},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 1.5 }, "sample_rate"},
		{"exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }, "tracing.exporter"},
		{"otlp endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "otlp"
			c.Tracing.OTLPEndpoint = ""
		}, "otlp_endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettings_AcceptsLowercase(t *testing.T) {
	assert.NoError(t, ValidateSettings(SettingsConfig{ExcludeCodes: []string{"g28", "m30", "T1"}}))
}

func TestConversions(t *testing.T) {
	cfg := Defaults()

	b := cfg.Bridge.BridgeOptions()
	assert.Equal(t, "/ncbridge", b.BasePath)
	assert.Equal(t, 128, b.Capacity)

	x := cfg.Toolpath.ExtractOptions()
	assert.Equal(t, toolpath.DefaultOptions(), x)

	tr := cfg.Tracing.ProviderConfig()
	assert.False(t, tr.Enabled)
	assert.Equal(t, "file", tr.Exporter)
	assert.Equal(t, "ncviewer", tr.ServiceName)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigTemplate(), string(data))
}
