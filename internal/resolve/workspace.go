package resolve

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jward/deadwood/internal/analysis"
)

type manifest struct {
	Name    string          `json:"name"`
	Source  string          `json:"source"`
	Exports json.RawMessage `json:"exports"`
	Module  string          `json:"module"`
	Main    string          `json:"main"`
	Types   string          `json:"types"`
	Typings string          `json:"typings"`
}

type workspacePackage struct {
	dir      string
	manifest manifest
}

// Workspace resolves imports of packages that live inside the analyzed
// tree (monorepo workspaces) to their source entry points.
type Workspace struct {
	packages map[string]workspacePackage
}

// NewWorkspace indexes every package.json under root, skipping
// dependency and hidden directories.
func NewWorkspace(root string, log *slog.Logger) (*Workspace, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	w := &Workspace{packages: make(map[string]workspacePackage)}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != "package.json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		var m manifest
		if err := json.Unmarshal(data, &m); err != nil {
			log.Warn("skipping unreadable package.json", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if m.Name == "" {
			return nil
		}
		if prev, ok := w.packages[m.Name]; ok {
			log.Warn("duplicate workspace package name",
				slog.String("name", m.Name), slog.String("kept", prev.dir), slog.String("skipped", filepath.Dir(path)))
			return nil
		}
		w.packages[m.Name] = workspacePackage{dir: filepath.Dir(path), manifest: m}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexing workspace packages: %w", err)
	}
	log.Debug("indexed workspace packages", slog.String("root", root), slog.Any("packages", w.Packages()))
	return w, nil
}

// skipDir reports directories never searched for sources or manifests.
func skipDir(name string) bool {
	return name == "node_modules" || name == "vendor" || (len(name) > 1 && strings.HasPrefix(name, "."))
}

// Packages returns the indexed package names, sorted.
func (w *Workspace) Packages() []string {
	names := make([]string, 0, len(w.packages))
	for name := range w.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SplitPackage splits a bare specifier into its package name and subpath:
// "@scope/pkg/a/b" gives ("@scope/pkg", "a/b").
func SplitPackage(spec string) (name, sub string) {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		name = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			sub = parts[2]
		}
		return name, sub
	}
	name, sub, _ = strings.Cut(spec, "/")
	return name, sub
}

func (w *Workspace) Resolve(spec string, _ analysis.ModuleID, _ analysis.RefKind) analysis.Resolution {
	if IsRelative(spec) {
		return analysis.Resolution{Kind: analysis.Unresolved}
	}
	name, sub := SplitPackage(spec)
	pkg, ok := w.packages[name]
	if !ok {
		return analysis.Resolution{Kind: analysis.Unresolved}
	}
	for _, candidate := range pkg.candidates(sub) {
		if path, ok := Probe(filepath.Join(pkg.dir, filepath.FromSlash(candidate))); ok {
			return analysis.ResolvedTo(analysis.NewModuleID(path))
		}
	}
	return analysis.Resolution{
		Kind: analysis.Unresolved,
		Err:  fmt.Errorf("%w: workspace package %s has no source for %q", ErrNotFound, name, spec),
	}
}

// candidates lists paths, relative to the package directory, that may hold
// the module for subpath sub ("" for the package root).
func (p workspacePackage) candidates(sub string) []string {
	var out []string
	add := func(s string) {
		if s != "" {
			out = append(out, s)
		}
	}
	if sub == "" {
		m := p.manifest
		add(m.Source)
		add(exportsTarget(m.Exports, "."))
		add(m.Module)
		add(m.Main)
		add(m.Types)
		add(m.Typings)
		add("index")
		add("src/index")
		return out
	}
	add(exportsTarget(p.manifest.Exports, "./"+sub))
	add(sub)
	add("src/" + sub)
	return out
}

// conditionOrder is the preference among package.json export conditions.
var conditionOrder = []string{"source", "import", "module", "default", "require", "node", "types"}

// exportsTarget reads the target for subpath from a package.json
// "exports" value. Only the "." subpath may be given as a bare string or
// condition map.
func exportsTarget(raw json.RawMessage, subpath string) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if subpath == "." {
			return s
		}
		return ""
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return ""
	}
	if v, ok := obj[subpath]; ok {
		return conditionTarget(v)
	}
	for key := range obj {
		if strings.HasPrefix(key, ".") {
			return "" // subpath map without this subpath
		}
	}
	if subpath == "." {
		return conditionTarget(raw)
	}
	return ""
}

func conditionTarget(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return ""
	}
	for _, cond := range conditionOrder {
		if v, ok := obj[cond]; ok {
			if target := conditionTarget(v); target != "" {
				return target
			}
		}
	}
	return ""
}
