// Package resolve maps module specifiers to module identities. Each
// policy is an analysis.Resolver; New composes the policy a project needs.
package resolve

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jward/deadwood/internal/analysis"
	"github.com/jward/deadwood/internal/runtime"
)

// Mode selects a resolution policy.
type Mode string

const (
	// ModeRelative resolves only path specifiers.
	ModeRelative Mode = "relative"
	// ModePackage also resolves workspace packages found under the root.
	ModePackage Mode = "package"
	// ModeTSConfig also applies tsconfig baseUrl and paths.
	ModeTSConfig Mode = "tsconfig"
	// ModeScript consults a Risor resolver script first.
	ModeScript Mode = "script"
)

// Modes lists the valid modes.
var Modes = []Mode{ModeRelative, ModePackage, ModeTSConfig, ModeScript}

// Options configure New.
type Options struct {
	Mode      Mode
	Root      string
	TSConfig  string // defaults to <Root>/tsconfig.json
	Script    string
	CacheSize int
	Logger    *slog.Logger
}

// New builds the resolver for opts.Mode, wrapped in a Cache. Platform
// built-ins always resolve to Builtin and unmatched packages to Ignored.
func New(opts Options) (*Cache, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Mode == "" {
		opts.Mode = ModeRelative
	}

	var chain Chain
	switch opts.Mode {
	case ModeRelative:
		chain = Chain{Builtins{}, Relative{}, External{}}
	case ModePackage:
		ws, err := NewWorkspace(opts.Root, log)
		if err != nil {
			return nil, err
		}
		chain = Chain{Builtins{}, Relative{}, ws, External{}}
	case ModeTSConfig:
		path := opts.TSConfig
		if path == "" {
			path = filepath.Join(opts.Root, "tsconfig.json")
		}
		tc, err := LoadTSConfig(path)
		if err != nil {
			return nil, err
		}
		ws, err := NewWorkspace(opts.Root, log)
		if err != nil {
			return nil, err
		}
		chain = Chain{Builtins{}, Relative{}, tc, ws, External{}}
	case ModeScript:
		if opts.Script == "" {
			return nil, fmt.Errorf("resolver mode %q requires a script", opts.Mode)
		}
		if _, err := os.Stat(opts.Script); err != nil {
			return nil, fmt.Errorf("resolver script: %w", err)
		}
		rt := runtime.NewRuntime(filepath.Dir(opts.Script), runtime.WithLogger(log), runtime.WithProbe(Probe))
		script, err := runtime.NewScriptResolver(rt, opts.Script, opts.Root)
		if err != nil {
			return nil, err
		}
		chain = Chain{Builtins{}, script, Relative{}, External{}}
	default:
		return nil, fmt.Errorf("unknown resolver mode %q", opts.Mode)
	}

	log.Debug("resolver configured", slog.String("mode", string(opts.Mode)), slog.Int("stages", len(chain)))
	return NewCache(chain, opts.CacheSize)
}

var _ analysis.Resolver = (*Cache)(nil)
