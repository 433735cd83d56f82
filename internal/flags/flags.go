// Package flags holds the feature toggles read from the "flags" config
// section. Unknown flags are off.
package flags

import (
	"maps"

	"github.com/ncviewer/ncviewer/internal/log"
)

// Flag names.
const (
	// FlagExtractCache memoises toolpath extraction by program text so
	// re-sending an unchanged program skips the extractor.
	FlagExtractCache = "extract-cache"

	// FlagPersistDebugLog stores bridgeDebug messages in the diagnostics
	// database in addition to the log file.
	FlagPersistDebugLog = "persist-debug-log"

	// FlagLexerDebug traces every token the lexer produces.
	FlagLexerDebug = "lexer-debug"
)

// Known lists every flag with its default.
var Known = map[string]bool{
	FlagExtractCache:    true,
	FlagPersistDebugLog: true,
	FlagLexerDebug:      false,
}

// Registry holds feature flag state loaded from configuration.
// Flags are read-only after initialization.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from a config map.
// If flags is nil, an empty registry is created (all flags disabled).
func New(flags map[string]bool) *Registry {
	if flags == nil {
		flags = make(map[string]bool)
	}
	r := &Registry{flags: maps.Clone(flags)}
	log.Debug(log.CatConfig, "Feature flags initialized", "count", len(flags), "flags", r.All())
	return r
}

// Enabled returns true if the named flag is enabled.
// Returns false for unknown flags (safe default).
// Returns false when called on nil registry (nil-safe).
func (r *Registry) Enabled(name string) bool {
	if r == nil || r.flags == nil {
		return false
	}
	value, exists := r.flags[name]
	if !exists {
		log.Debug(log.CatConfig, "Unknown flag accessed", "flag", name, "result", false)
		return false
	}
	return value
}

// All returns a copy of all flags (for debugging/logging).
// Returns an empty map if the registry is nil.
func (r *Registry) All() map[string]bool {
	if r == nil || r.flags == nil {
		return make(map[string]bool)
	}
	result := make(map[string]bool, len(r.flags))
	maps.Copy(result, r.flags)
	return result
}

// WithDefaults layers configured values over Known.
func WithDefaults(configured map[string]bool) *Registry {
	merged := maps.Clone(Known)
	maps.Copy(merged, configured)
	return New(merged)
}
