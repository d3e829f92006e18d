package deadwood

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/jward/deadwood/internal/analysis"
	"github.com/jward/deadwood/internal/store"
)

// ErrNoSavedRun is returned by Open when the database file does not exist.
var ErrNoSavedRun = errors.New("no saved run")

// Save writes the run, its usage facts and its findings to a SQLite
// database at dbPath, replacing any run saved there before.
func (e *Engine) Save(dbPath string) error {
	findings, err := e.Findings()
	if err != nil {
		return err
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("deadwood: create store: %w", err)
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return fmt.Errorf("deadwood: migrate: %w", err)
	}
	if err := s.SaveRun(e.snapshot(findings)); err != nil {
		return fmt.Errorf("deadwood: %w", err)
	}
	return nil
}

func (e *Engine) snapshot(findings []Finding) *store.Snapshot {
	snap := &store.Snapshot{Root: e.root, Findings: findings}
	for _, id := range e.run.Modules() {
		m, _ := e.run.Lookup(id)
		ms := store.ModuleSnapshot{
			Path:   id.String(),
			Hash:   e.hashes[id],
			Values: m.Record.Values,
			Types:  m.Record.Types,
		}
		for _, target := range m.ExportAll {
			ms.ExportAll = append(ms.ExportAll, target.String())
		}
		snap.Modules = append(snap.Modules, ms)
	}

	usage := e.run.Usage()
	modules := make([]analysis.ModuleID, 0, len(usage))
	for id := range usage {
		modules = append(modules, id)
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i] < modules[j] })
	for _, id := range modules {
		symbols := make([]string, 0, len(usage[id]))
		for s := range usage[id] {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			snap.Usages = append(snap.Usages, store.Usage{Module: id.String(), Symbol: s})
		}
	}
	return snap
}

// Open rebuilds an Engine from a run saved with Save. The loaded Engine can
// be finalized and explained without re-parsing; sources are read from disk
// on demand for the same-file check.
func Open(dbPath string, opts ...Option) (*Engine, error) {
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("deadwood: %s: %w", dbPath, ErrNoSavedRun)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("deadwood: open store: %w", err)
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return nil, fmt.Errorf("deadwood: migrate: %w", err)
	}
	snap, err := s.LoadRun()
	if err != nil {
		return nil, fmt.Errorf("deadwood: %w", err)
	}

	e, err := New(append([]Option{WithRoot(snap.Root)}, opts...)...)
	if err != nil {
		return nil, err
	}
	for _, m := range snap.Modules {
		exports := &analysis.ModuleExports{
			Record: analysis.ExportRecord{Values: m.Values, Types: m.Types},
		}
		for _, target := range m.ExportAll {
			exports.ExportAll = append(exports.ExportAll, analysis.ModuleID(target))
		}
		id := analysis.ModuleID(m.Path)
		e.run.RecordExports(id, exports)
		e.hashes[id] = m.Hash
	}
	for _, u := range snap.Usages {
		e.run.RecordUsage(analysis.ModuleID(u.Module), u.Symbol)
	}
	return e, nil
}

// Stale returns the analyzed modules whose file content no longer matches
// the hash recorded at analysis time, including deleted files.
func (e *Engine) Stale() ([]string, error) {
	var stale []string
	for _, id := range e.run.Modules() {
		src, err := os.ReadFile(id.String())
		if errors.Is(err, fs.ErrNotExist) {
			stale = append(stale, id.String())
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", id, err)
		}
		if store.ComputeContentHash(src) != e.hashes[id] {
			stale = append(stale, id.String())
		}
	}
	return stale, nil
}
