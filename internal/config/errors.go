package config

import "errors"

// Error definitions for config package.
var (
	// Configuration file errors.
	ErrConfigFileParse = errors.New("failed to parse config file")
	// Configuration validation errors.
	ErrUnknownResolver  = errors.New("unknown resolver mode")
	ErrScriptRequired   = errors.New("resolver mode script requires resolver.script")
	ErrBadIgnorePattern = errors.New("invalid ignore pattern")
	ErrNegativeCache    = errors.New("cache_size cannot be negative")
)
