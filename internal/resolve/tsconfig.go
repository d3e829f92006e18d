package resolve

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/jward/deadwood/internal/analysis"
)

type tsconfigFile struct {
	Extends         string `json:"extends"`
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

type pathMapping struct {
	prefix   string
	suffix   string
	wildcard bool
	targets  []string
}

func (m pathMapping) match(spec string) (string, bool) {
	if !m.wildcard {
		return "", spec == m.prefix
	}
	if len(spec) < len(m.prefix)+len(m.suffix) ||
		!strings.HasPrefix(spec, m.prefix) || !strings.HasSuffix(spec, m.suffix) {
		return "", false
	}
	return spec[len(m.prefix) : len(spec)-len(m.suffix)], true
}

// TSConfig resolves non-relative specifiers through a tsconfig.json's
// compilerOptions.baseUrl and paths.
type TSConfig struct {
	baseURL  string
	pathsDir string
	paths    []pathMapping
}

// LoadTSConfig reads a tsconfig file and, when it extends a relative
// parent config, that parent. Settings in the child win.
func LoadTSConfig(path string) (*TSConfig, error) {
	child, err := readTSConfig(path)
	if err != nil {
		return nil, err
	}
	t := &TSConfig{}
	dir := filepath.Dir(path)

	if ext := child.Extends; ext != "" && IsRelative(ext) {
		parentPath := filepath.Join(dir, filepath.FromSlash(ext))
		if filepath.Ext(parentPath) != ".json" {
			parentPath += ".json"
		}
		parent, err := readTSConfig(parentPath)
		if err != nil {
			return nil, fmt.Errorf("extends: %w", err)
		}
		t.apply(parent, filepath.Dir(parentPath))
	}
	t.apply(child, dir)
	return t, nil
}

func readTSConfig(path string) (*tsconfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tsconfig: %w", err)
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing tsconfig %s: %w", path, err)
	}
	var cfg tsconfigFile
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("parsing tsconfig %s: %w", path, err)
	}
	return &cfg, nil
}

// apply layers cfg, found in dir, over the current settings.
func (t *TSConfig) apply(cfg *tsconfigFile, dir string) {
	if cfg.CompilerOptions.BaseURL != "" {
		t.baseURL = filepath.Join(dir, filepath.FromSlash(cfg.CompilerOptions.BaseURL))
	}
	if cfg.CompilerOptions.Paths == nil {
		return
	}
	t.pathsDir = dir
	t.paths = t.paths[:0]
	for pattern, targets := range cfg.CompilerOptions.Paths {
		m := pathMapping{prefix: pattern, targets: targets}
		if prefix, suffix, ok := strings.Cut(pattern, "*"); ok {
			m = pathMapping{prefix: prefix, suffix: suffix, wildcard: true, targets: targets}
		}
		t.paths = append(t.paths, m)
	}
	// Exact patterns first, then the longest prefix.
	sort.Slice(t.paths, func(i, j int) bool {
		a, b := t.paths[i], t.paths[j]
		if a.wildcard != b.wildcard {
			return !a.wildcard
		}
		if len(a.prefix) != len(b.prefix) {
			return len(a.prefix) > len(b.prefix)
		}
		return a.prefix < b.prefix
	})
}

// pathsBase is the directory path targets are relative to: baseUrl when
// set, otherwise the directory of the config that declared paths.
func (t *TSConfig) pathsBase() string {
	if t.baseURL != "" {
		return t.baseURL
	}
	return t.pathsDir
}

func (t *TSConfig) Resolve(spec string, _ analysis.ModuleID, _ analysis.RefKind) analysis.Resolution {
	if IsRelative(spec) {
		return analysis.Resolution{Kind: analysis.Unresolved}
	}
	for _, m := range t.paths {
		star, ok := m.match(spec)
		if !ok {
			continue
		}
		for _, target := range m.targets {
			candidate := strings.Replace(target, "*", star, 1)
			if path, ok := Probe(filepath.Join(t.pathsBase(), filepath.FromSlash(candidate))); ok {
				return analysis.ResolvedTo(analysis.NewModuleID(path))
			}
		}
		return analysis.Resolution{
			Kind: analysis.Unresolved,
			Err:  fmt.Errorf("%w: %q matched a tsconfig path but no target exists", ErrNotFound, spec),
		}
	}
	if t.baseURL != "" {
		if path, ok := Probe(filepath.Join(t.baseURL, filepath.FromSlash(spec))); ok {
			return analysis.ResolvedTo(analysis.NewModuleID(path))
		}
	}
	return analysis.Resolution{Kind: analysis.Unresolved}
}
