package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveRun replaces the stored run with snap within a single transaction.
//
// Insert order respects FK dependencies:
//  1. Modules
//  2. Exports and export-all edges (depend on module_id)
//  3. Usages and findings (keyed by path)
//  4. Metadata
func (s *Store) SaveRun(snap *Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save run: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"findings", "usages", "export_all", "exports", "modules"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("save run: clear %s: %w", table, err)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	for _, m := range snap.Modules {
		id, err := insertModuleTx(tx, m.Path, m.Hash, now)
		if err != nil {
			return fmt.Errorf("save run: module %q: %w", m.Path, err)
		}
		if err := insertExportsTx(tx, id, KindValue, m.Values); err != nil {
			return fmt.Errorf("save run: exports of %q: %w", m.Path, err)
		}
		if err := insertExportsTx(tx, id, KindType, m.Types); err != nil {
			return fmt.Errorf("save run: exports of %q: %w", m.Path, err)
		}
		for i, target := range m.ExportAll {
			if _, err := tx.Exec(
				"INSERT INTO export_all (module_id, ordinal, target) VALUES (?, ?, ?)",
				id, i, target,
			); err != nil {
				return fmt.Errorf("save run: export-all of %q: %w", m.Path, err)
			}
		}
	}

	for _, u := range snap.Usages {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO usages (module, symbol) VALUES (?, ?)",
			u.Module, u.Symbol,
		); err != nil {
			return fmt.Errorf("save run: usage %s#%s: %w", u.Module, u.Symbol, err)
		}
	}

	for _, f := range snap.Findings {
		if _, err := tx.Exec(
			"INSERT INTO findings (module, name, local, kind, used_in_module) VALUES (?, ?, ?, ?, ?)",
			f.Module, f.Name, f.Local, f.Kind, f.UsedInModule,
		); err != nil {
			return fmt.Errorf("save run: finding %s#%s: %w", f.Module, f.Name, err)
		}
	}

	meta := map[string]string{
		"root":     snap.Root,
		"saved_at": now.Format(time.RFC3339),
	}
	for key, value := range meta {
		if err := setMetadataTx(tx, key, value); err != nil {
			return fmt.Errorf("save run: metadata %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: commit: %w", err)
	}
	return nil
}

// setMetadataTx upserts a metadata key.
func setMetadataTx(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func insertModuleTx(tx *sql.Tx, path, hash string, analyzed time.Time) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO modules (path, hash, analyzed_at) VALUES (?, ?, ?)",
		path, hash, analyzed,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertExportsTx(tx *sql.Tx, moduleID int64, kind string, table map[string]string) error {
	for _, name := range sortedNames(table) {
		if _, err := tx.Exec(
			"INSERT INTO exports (module_id, name, local, kind) VALUES (?, ?, ?, ?)",
			moduleID, name, table[name], kind,
		); err != nil {
			return fmt.Errorf("%s %q: %w", kind, name, err)
		}
	}
	return nil
}

// Findings returns stored findings ordered by module, kind and name. When
// modules is non-empty only findings for those module paths are returned.
func (s *Store) Findings(modules ...string) ([]Finding, error) {
	query := "SELECT module, name, local, kind, used_in_module FROM findings"
	var args []any
	if len(modules) > 0 {
		query += " WHERE module IN (" + placeholderList(len(modules)) + ")"
		args = stringsToArgs(modules)
	}
	query += " ORDER BY module, kind DESC, name"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("findings: %w", err)
	}
	defer rows.Close()

	var out []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.Module, &f.Name, &f.Local, &f.Kind, &f.UsedInModule); err != nil {
			return nil, fmt.Errorf("findings: scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Modules returns all stored modules ordered by path.
func (s *Store) Modules() ([]Module, error) {
	rows, err := s.db.Query("SELECT id, path, hash, analyzed_at FROM modules ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}
	defer rows.Close()

	var out []Module
	for rows.Next() {
		var (
			m        Module
			hash     sql.NullString
			analyzed sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.Path, &hash, &analyzed); err != nil {
			return nil, fmt.Errorf("modules: scan: %w", err)
		}
		m.Hash = hash.String
		m.Analyzed = analyzed.Time
		out = append(out, m)
	}
	return out, rows.Err()
}

// LoadRun reads back the module records and usage facts of the stored run.
// Findings are left empty; callers recompute them or use Findings.
func (s *Store) LoadRun() (*Snapshot, error) {
	root, err := s.Metadata("root")
	if err != nil {
		return nil, err
	}
	modules, err := s.Modules()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Root: root}
	byID := make(map[int64]int, len(modules))
	for _, m := range modules {
		byID[m.ID] = len(snap.Modules)
		snap.Modules = append(snap.Modules, ModuleSnapshot{
			Path:   m.Path,
			Hash:   m.Hash,
			Values: make(map[string]string),
			Types:  make(map[string]string),
		})
	}

	rows, err := s.db.Query("SELECT module_id, name, local, kind FROM exports")
	if err != nil {
		return nil, fmt.Errorf("load run: exports: %w", err)
	}
	for rows.Next() {
		var e Export
		if err := rows.Scan(&e.ModuleID, &e.Name, &e.Local, &e.Kind); err != nil {
			rows.Close()
			return nil, fmt.Errorf("load run: scan export: %w", err)
		}
		m := &snap.Modules[byID[e.ModuleID]]
		if e.Kind == KindType {
			m.Types[e.Name] = e.Local
		} else {
			m.Values[e.Name] = e.Local
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load run: exports: %w", err)
	}

	rows, err = s.db.Query("SELECT module_id, ordinal, target FROM export_all ORDER BY module_id, ordinal")
	if err != nil {
		return nil, fmt.Errorf("load run: export-all: %w", err)
	}
	for rows.Next() {
		var e ExportAll
		if err := rows.Scan(&e.ModuleID, &e.Ordinal, &e.Target); err != nil {
			rows.Close()
			return nil, fmt.Errorf("load run: scan export-all: %w", err)
		}
		m := &snap.Modules[byID[e.ModuleID]]
		m.ExportAll = append(m.ExportAll, e.Target)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load run: export-all: %w", err)
	}

	rows, err = s.db.Query("SELECT module, symbol FROM usages ORDER BY module, symbol")
	if err != nil {
		return nil, fmt.Errorf("load run: usages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u Usage
		if err := rows.Scan(&u.Module, &u.Symbol); err != nil {
			return nil, fmt.Errorf("load run: scan usage: %w", err)
		}
		snap.Usages = append(snap.Usages, u)
	}
	return snap, rows.Err()
}
