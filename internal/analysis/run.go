package analysis

import (
	"io"
	"log/slog"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
)

// UsageIndex maps a module to the exported names referenced against it.
type UsageIndex map[ModuleID]map[string]struct{}

func (u UsageIndex) add(module ModuleID, symbol string) {
	names, ok := u[module]
	if !ok {
		names = make(map[string]struct{})
		u[module] = names
	}
	names[symbol] = struct{}{}
}

// Has reports whether a direct usage of (module, symbol) was recorded.
func (u UsageIndex) Has(module ModuleID, symbol string) bool {
	_, ok := u[module][symbol]
	return ok
}

// Registry maps each analyzed module to its exports.
type Registry map[ModuleID]*ModuleExports

// Usage is a single usage fact.
type Usage struct {
	Module ModuleID
	Symbol string
}

// FileFacts buffers everything one extraction produced so it can be merged
// into a Run later. Parallel workers each fill their own FileFacts; the
// engine merges them from a single goroutine.
type FileFacts struct {
	Module  ModuleID
	Exports *ModuleExports
	Usages  []Usage
}

func (f *FileFacts) recordUsage(module ModuleID, symbol string) {
	f.Usages = append(f.Usages, Usage{Module: module, Symbol: symbol})
}

// Run owns the accumulators for one analysis. Runs are independent of each
// other; nothing is shared at package level.
//
// A Run has a single writer. Concurrent extraction must go through Extract
// and Merge.
type Run struct {
	usage   UsageIndex
	modules Registry
	log     *slog.Logger
}

// RunOption configures a Run.
type RunOption func(*Run)

// WithLogger sets the logger used for extraction diagnostics.
func WithLogger(l *slog.Logger) RunOption {
	return func(r *Run) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRun creates an empty Run.
func NewRun(opts ...RunOption) *Run {
	r := &Run{
		usage:   make(UsageIndex),
		modules: make(Registry),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Logger returns the Run's logger.
func (r *Run) Logger() *slog.Logger {
	return r.log
}

// AnalyzeModule extracts one module and merges the result. On error nothing
// from the module is recorded.
func (r *Run) AnalyzeModule(id ModuleID, root *sitter.Node, src []byte, resolver Resolver) error {
	facts, err := Extract(id, root, src, resolver, r.log)
	if err != nil {
		return err
	}
	r.Merge(facts)
	return nil
}

// Merge appends a module's buffered facts to the Run.
func (r *Run) Merge(f *FileFacts) {
	if f == nil {
		return
	}
	if f.Exports != nil {
		r.RecordExports(f.Module, f.Exports)
	}
	for _, u := range f.Usages {
		r.RecordUsage(u.Module, u.Symbol)
	}
}

// RecordUsage adds the usage fact (module, symbol).
func (r *Run) RecordUsage(module ModuleID, symbol string) {
	r.usage.add(module, symbol)
}

// RecordExports stores a module's export record and export-all edges.
func (r *Run) RecordExports(module ModuleID, exports *ModuleExports) {
	r.modules[module] = exports
}

// Lookup returns the exports of an analyzed module.
func (r *Run) Lookup(module ModuleID) (*ModuleExports, bool) {
	m, ok := r.modules[module]
	return m, ok
}

// Usage returns the usage index. Callers must not modify it.
func (r *Run) Usage() UsageIndex {
	return r.usage
}

// Exports returns the module export registry. Callers must not modify it.
func (r *Run) Exports() Registry {
	return r.modules
}

// Modules returns the analyzed module IDs in sorted order.
func (r *Run) Modules() []ModuleID {
	ids := make([]ModuleID, 0, len(r.modules))
	for id := range r.modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
