// Package logging provides categorized logging for tsmend, backed by zap.
// Each subsystem logs under its own category so a run can be traced through
// parse -> resolve -> fix -> merge without interleaving noise. Logging is a
// no-op unless Initialize is called with debug enabled.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a subsystem log stream.
type Category string

const (
	CategoryEngine   Category = "engine"   // orchestration, group ordering, merging
	CategoryParse    Category = "parse"    // tree-sitter parsing, grammar fallback
	CategoryResolve  Category = "resolve"  // specifier classification and resolution
	CategoryInfer    Category = "infer"    // usage classification
	CategorySynth    Category = "synth"    // stub/declaration synthesis
	CategoryFixers   Category = "fixers"   // per-diagnostic fixers
	CategoryProject  Category = "project"  // file map, fetch callback
	CategoryCLI      Category = "cli"      // command-line surface
)

var (
	mu      sync.RWMutex
	root    *zap.Logger = zap.NewNop()
	loggers             = make(map[Category]*zap.SugaredLogger)
)

// Initialize configures the process-wide logger. With debug true, logs go to
// stderr at debug level; otherwise logging stays a silent no-op. Safe to call
// more than once; the last call wins.
func Initialize(debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	if !debug {
		root = zap.NewNop()
		loggers = make(map[Category]*zap.SugaredLogger)
		return nil
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the sugared logger for a category, creating it on first use.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := root.Named(string(cat)).Sugar()
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Convenience helpers for the hottest categories. These mirror the call sites'
// printf-style usage and stay cheap when logging is disabled.

// EngineDebug logs a debug message under the engine category.
func EngineDebug(format string, args ...interface{}) {
	Get(CategoryEngine).Debugf(format, args...)
}

// ParseDebug logs a debug message under the parse category.
func ParseDebug(format string, args ...interface{}) {
	Get(CategoryParse).Debugf(format, args...)
}

// ResolveDebug logs a debug message under the resolve category.
func ResolveDebug(format string, args ...interface{}) {
	Get(CategoryResolve).Debugf(format, args...)
}

// FixerDebug logs a debug message under the fixers category.
func FixerDebug(format string, args ...interface{}) {
	Get(CategoryFixers).Debugf(format, args...)
}
