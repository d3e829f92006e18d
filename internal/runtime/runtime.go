package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
)

// Runtime embeds a Risor VM and provides filesystem host functions to
// resolver scripts.
type Runtime struct {
	scriptsDir string
	log        *slog.Logger
	probe      func(string) (string, bool)
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithLogger routes the script-visible log object to l.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		if l != nil {
			r.log = l
		}
	}
}

// WithProbe exposes fn to scripts as probe(path), which maps an
// extensionless path to an existing source file.
func WithProbe(fn func(string) (string, bool)) RuntimeOption {
	return func(r *Runtime) {
		r.probe = fn
	}
}

// NewRuntime creates a Runtime that loads scripts relative to scriptsDir.
func NewRuntime(scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		scriptsDir: scriptsDir,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EvalSource executes source and returns the value of its final
// expression converted to a Go value.
func (r *Runtime) EvalSource(ctx context.Context, source, label string, extraGlobals map[string]any) (any, error) {
	result, err := r.eval(ctx, source, label, extraGlobals)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.Interface(), nil
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (object.Object, error) {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return result, nil
}

// buildImporter returns a Risor importer that loads .risor modules from
// scriptsDir, or nil when no directory is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	if r.scriptsDir == "" {
		return nil
	}
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}
	return importer.NewLocalImporter(importer.LocalImporterOptions{
		GlobalNames: globalNames,
		SourceDir:   r.scriptsDir,
		Extensions:  []string{".risor"},
	})
}

// LoadScript reads a .risor file. Relative paths are taken from scriptsDir.
func (r *Runtime) LoadScript(path string) (string, error) {
	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"file_exists": makeFileExistsFn(),
		"is_dir":      makeIsDirFn(),
		"path_join":   makePathJoinFn(),
		"log":         mustProxy(&logObject{log: r.log}),
	}
	if r.probe != nil {
		globals["probe"] = makeProbeFn(r.probe)
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
