// Package config loads the .deadwood.yaml project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar"
	"gopkg.in/yaml.v3"

	"github.com/jward/deadwood/internal/resolve"
)

// FileName is the configuration file looked up at the scan root.
const FileName = ".deadwood.yaml"

// Config represents the project configuration.
type Config struct {
	Resolver      Resolver `yaml:"resolver"`
	Ignore        []string `yaml:"ignore"`
	IncludeTests  bool     `yaml:"include_tests"`
	Parallel      bool     `yaml:"parallel"`
	SameFileCheck bool     `yaml:"same_file_check"`
	CacheSize     int      `yaml:"cache_size"`
}

// Resolver selects and configures module resolution.
type Resolver struct {
	Mode     string `yaml:"mode"`
	TSConfig string `yaml:"tsconfig"`
	Script   string `yaml:"script"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Resolver:      Resolver{Mode: string(resolve.ModeRelative)},
		SameFileCheck: true,
		CacheSize:     resolve.DefaultCacheSize,
	}
}

// Load reads configuration from path. Keys absent from the file keep their
// defaults. Relative resolver paths are taken relative to the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigFileParse, path, err)
	}
	cfg.anchor(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithFallback loads path when it exists and returns the defaults when
// it does not. A file that exists but fails to parse is still an error.
func LoadWithFallback(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	mode := resolve.Mode(c.Resolver.Mode)
	known := false
	for _, m := range resolve.Modes {
		if m == mode {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownResolver, c.Resolver.Mode)
	}
	if mode == resolve.ModeScript && c.Resolver.Script == "" {
		return ErrScriptRequired
	}
	for _, pattern := range c.Ignore {
		if _, err := doublestar.Match(pattern, pattern); err != nil {
			return fmt.Errorf("%w: %q", ErrBadIgnorePattern, pattern)
		}
	}
	if c.CacheSize < 0 {
		return ErrNegativeCache
	}
	return nil
}

// ResolveOptions converts the resolver section into resolve.Options.
func (c *Config) ResolveOptions(root string) resolve.Options {
	return resolve.Options{
		Mode:      resolve.Mode(c.Resolver.Mode),
		Root:      root,
		TSConfig:  c.Resolver.TSConfig,
		Script:    c.Resolver.Script,
		CacheSize: c.CacheSize,
	}
}

func (c *Config) anchor(dir string) {
	if c.Resolver.TSConfig != "" && !filepath.IsAbs(c.Resolver.TSConfig) {
		c.Resolver.TSConfig = filepath.Join(dir, c.Resolver.TSConfig)
	}
	if c.Resolver.Script != "" && !filepath.IsAbs(c.Resolver.Script) {
		c.Resolver.Script = filepath.Join(dir, c.Resolver.Script)
	}
}
