package deadwood

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/jward/deadwood/internal/analysis"
	"github.com/jward/deadwood/internal/parse"
	"github.com/jward/deadwood/internal/resolve"
	"github.com/jward/deadwood/internal/store"
)

// Engine drives one analysis: file discovery, parsing, extraction into a
// Run, finalization and reporting.
type Engine struct {
	run      *analysis.Run
	resolver analysis.Resolver
	log      *slog.Logger

	root          string
	ignore        []string
	includeTests  bool
	sameFileCheck bool

	// sources keeps each analyzed module's text for the same-file check.
	sources map[analysis.ModuleID][]byte
	hashes  map[analysis.ModuleID]string

	// useParallel enables the parallel extraction pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver sets the module resolver. The default resolves relative
// specifiers only.
func WithResolver(r analysis.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithParallel controls parallel extraction. When true, AnalyzeFiles parses
// and extracts on a bounded worker pool and merges the results from a single
// goroutine. The default is serial.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithIncludeTests keeps *.test.*, *.spec.* and __tests__/ files.
func WithIncludeTests(include bool) Option {
	return func(e *Engine) {
		e.includeTests = include
	}
}

// WithIgnore excludes files matching any of the doublestar patterns. Patterns
// match slash-separated paths relative to the analyzed root.
func WithIgnore(patterns ...string) Option {
	return func(e *Engine) {
		e.ignore = append(e.ignore, patterns...)
	}
}

// WithSameFileCheck controls the textual check that flags unused exports
// whose local name appears again in their own module.
func WithSameFileCheck(enabled bool) Option {
	return func(e *Engine) {
		e.sameFileCheck = enabled
	}
}

// WithLogger sets the logger for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithRoot sets the directory ignore patterns are relative to.
// AnalyzeDirectory sets it implicitly.
func WithRoot(root string) Option {
	return func(e *Engine) {
		e.root = root
	}
}

// New creates an Engine with an empty Run.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		sameFileCheck: true,
		sources:       make(map[analysis.ModuleID][]byte),
		hashes:        make(map[analysis.ModuleID]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, pattern := range e.ignore {
		if _, err := doublestar.Match(pattern, pattern); err != nil {
			return nil, fmt.Errorf("deadwood: ignore pattern %q: %w", pattern, err)
		}
	}
	if e.resolver == nil {
		r, err := resolve.New(resolve.Options{Mode: resolve.ModeRelative, Logger: e.log})
		if err != nil {
			return nil, fmt.Errorf("deadwood: default resolver: %w", err)
		}
		e.resolver = r
	}
	if e.root != "" {
		abs, err := filepath.Abs(e.root)
		if err != nil {
			return nil, fmt.Errorf("deadwood: root: %w", err)
		}
		e.root = abs
	}
	e.run = analysis.NewRun(analysis.WithLogger(e.log))
	return e, nil
}

// Run returns the underlying analysis run.
func (e *Engine) Run() *analysis.Run {
	return e.run
}

// AnalyzeFiles analyzes the given file paths. Paths that are not source
// files, or that the engine's filters exclude, are skipped. A parse failure
// or malformed pattern aborts the whole call.
func (e *Engine) AnalyzeFiles(ctx context.Context, paths []string) error {
	var accepted []string
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", path, err)
		}
		if e.accept(abs) {
			accepted = append(accepted, abs)
		}
	}
	if e.useParallel {
		return e.analyzeFilesParallel(ctx, accepted)
	}
	return e.analyzeFilesSerial(ctx, accepted)
}

func (e *Engine) analyzeFilesSerial(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := e.extractFile(ctx, path)
		if err != nil {
			return err
		}
		e.merge(res)
	}
	return nil
}

// fileResult is one file's extraction output, produced on any goroutine and
// merged on one.
type fileResult struct {
	facts *analysis.FileFacts
	src   []byte
}

func (e *Engine) extractFile(ctx context.Context, path string) (fileResult, error) {
	f, err := parse.ParseFile(ctx, path)
	if err != nil {
		return fileResult{}, fmt.Errorf("analyze %s: %w", path, err)
	}
	defer f.Close()

	id := analysis.NewModuleID(path)
	facts, err := analysis.Extract(id, f.Root(), f.Src, e.resolver, e.log)
	if err != nil {
		return fileResult{}, fmt.Errorf("analyze %s: %w", path, err)
	}
	e.log.Debug("analyzed module",
		slog.String("file", path),
		slog.Int("values", len(facts.Exports.Record.Values)),
		slog.Int("types", len(facts.Exports.Record.Types)),
		slog.Int("usages", len(facts.Usages)),
	)
	return fileResult{facts: facts, src: f.Src}, nil
}

func (e *Engine) merge(res fileResult) {
	e.run.Merge(res.facts)
	e.sources[res.facts.Module] = res.src
	e.hashes[res.facts.Module] = store.ComputeContentHash(res.src)
}

// skipDirs lists directory names that are never analyzed.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// accept applies the extension, declaration-file, test-file and ignore
// filters to an absolute path.
func (e *Engine) accept(path string) bool {
	if _, ok := parse.DialectForFile(path); !ok {
		return false
	}
	if parse.IsDeclarationFile(path) {
		return false
	}
	rel := filepath.ToSlash(path)
	if e.root != "" {
		if r, err := filepath.Rel(e.root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = filepath.ToSlash(r)
		}
	}
	for _, dir := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
		if skipDirs[dir] {
			return false
		}
	}
	if !e.includeTests && isTestFile(rel) {
		return false
	}
	for _, pattern := range e.ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			e.log.Debug("ignored", slog.String("file", rel), slog.String("pattern", pattern))
			return false
		}
	}
	return true
}

// isTestFile reports whether a slash-separated path names a test module.
func isTestFile(rel string) bool {
	base := rel[strings.LastIndex(rel, "/")+1:]
	if strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
		return true
	}
	return strings.HasPrefix(rel, "__tests__/") || strings.Contains(rel, "/__tests__/")
}

// AnalyzeDirectory walks root and analyzes all source files below it.
// If root is inside a git repository, uses git ls-files to respect
// .gitignore. Falls back to a filesystem walk (skipping hidden dirs,
// node_modules and vendor) if git is unavailable.
func (e *Engine) AnalyzeDirectory(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("analyze directory: %w", err)
	}
	if e.root == "" {
		e.root = abs
	}
	paths, err := e.gitListFiles(abs)
	if err != nil {
		e.log.Debug("git ls-files unavailable, walking", slog.String("root", abs), slog.Any("error", err))
		paths, err = e.walkListFiles(abs)
		if err != nil {
			return err
		}
	}
	return e.AnalyzeFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := parse.DialectForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := parse.DialectForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// Finalize reconciles exports against usages. It can be called repeatedly.
func (e *Engine) Finalize() Report {
	return e.run.Finalize()
}

// Findings flattens the finalized report into one entry per unused export,
// sorted by module, then value exports before type exports, then name.
// Unless disabled, each finding is marked when its local name occurs again
// in the module's own text.
func (e *Engine) Findings() ([]Finding, error) {
	report := e.run.Finalize()
	var out []Finding
	for _, id := range report.Modules() {
		exports, _ := e.run.Lookup(id)
		mr := report[id]

		var src []byte
		if e.sameFileCheck {
			var err error
			if src, err = e.source(id); err != nil {
				return nil, err
			}
		}

		add := func(kind string, names []string, table map[string]string) {
			for _, name := range names {
				f := Finding{Module: id.String(), Name: name, Local: table[name], Kind: kind}
				if src != nil {
					f.UsedInModule = usedInModule(src, f.Local)
				}
				out = append(out, f)
			}
		}
		add(store.KindValue, mr.UnusedValueExports, exports.Record.Values)
		add(store.KindType, mr.UnusedTypeExports, exports.Record.Types)
	}
	return out, nil
}

// source returns a module's text, reading it from disk for runs loaded from
// a saved database. A module that no longer exists yields nil.
func (e *Engine) source(id analysis.ModuleID) ([]byte, error) {
	if src, ok := e.sources[id]; ok {
		return src, nil
	}
	src, err := os.ReadFile(id.String())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	e.sources[id] = src
	return src, nil
}

// Explain returns the modules a usage of symbol against module is traced
// through, ending at the module that declares it. It returns nil when the
// usage reaches no declaration.
func (e *Engine) Explain(module, symbol string) []string {
	path := e.run.Explain(analysis.NewModuleID(module), symbol)
	if path == nil {
		return nil
	}
	out := make([]string, len(path))
	for i, id := range path {
		out[i] = id.String()
	}
	return out
}
