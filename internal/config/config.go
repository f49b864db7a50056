// Package config holds the engine options configurable from the CLI via a
// project-local tsmend.yaml file. The engine itself never reads config from
// disk; it receives an explicit Options value per invocation.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config holds user-tunable repair options.
type Config struct {
	// Aliases maps specifier prefixes to project-relative directories,
	// e.g. "@/" -> "src/".
	Aliases map[string]string `yaml:"aliases"`

	// ExtraGlobals extends the built-in runtime-global deny list for the
	// undefined-name fixer (names that should never get a stub declaration).
	ExtraGlobals []string `yaml:"extra_globals"`

	// Debug enables categorized debug logging.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Aliases: map[string]string{
			"@/": "src/",
			"~/": "",
		},
	}
}

// Load reads configuration from path. A missing file yields defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if len(fileCfg.Aliases) > 0 {
		cfg.Aliases = fileCfg.Aliases
	}
	cfg.ExtraGlobals = fileCfg.ExtraGlobals
	cfg.Debug = fileCfg.Debug
	return cfg, nil
}

// AliasPrefixes returns the configured alias prefixes, longest first so that
// overlapping prefixes match deterministically.
func (c Config) AliasPrefixes() []string {
	prefixes := make([]string, 0, len(c.Aliases))
	for p := range c.Aliases {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if len(prefixes[i]) != len(prefixes[j]) {
			return len(prefixes[i]) > len(prefixes[j])
		}
		return prefixes[i] < prefixes[j]
	})
	return prefixes
}
