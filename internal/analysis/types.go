package analysis

import (
	"errors"
	"path/filepath"
)

// ErrMalformed is returned when a module contains a binding pattern the
// extractor cannot interpret. The module's records are discarded.
var ErrMalformed = errors.New("malformed pattern")

// ModuleID identifies one analyzed source module: a cleaned absolute path.
type ModuleID string

// NewModuleID canonicalizes path into a ModuleID.
func NewModuleID(path string) ModuleID {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ModuleID(filepath.Clean(path))
	}
	return ModuleID(abs)
}

// Dir returns the directory containing the module.
func (m ModuleID) Dir() string {
	return filepath.Dir(string(m))
}

func (m ModuleID) String() string {
	return string(m)
}

// ExportRecord holds a module's declared exports. Both tables map the
// exported name to the original local name.
type ExportRecord struct {
	Values map[string]string
	Types  map[string]string
}

func newExportRecord() ExportRecord {
	return ExportRecord{
		Values: make(map[string]string),
		Types:  make(map[string]string),
	}
}

// ModuleExports is what a single extraction contributes to the registry.
// ExportAll keeps `export * from` targets in declaration order.
type ModuleExports struct {
	Record    ExportRecord
	ExportAll []ModuleID
}

// Declares reports whether the module declares name in either table.
func (m *ModuleExports) Declares(name string) bool {
	if _, ok := m.Record.Values[name]; ok {
		return true
	}
	_, ok := m.Record.Types[name]
	return ok
}

// RefKind describes the syntactic form that referenced a module specifier.
type RefKind uint8

const (
	RefImport RefKind = iota
	RefTypeImport
	RefRequire
	RefDynamicImport
	RefReExport
)

func (k RefKind) String() string {
	switch k {
	case RefImport:
		return "import"
	case RefTypeImport:
		return "import-type"
	case RefRequire:
		return "require"
	case RefDynamicImport:
		return "dynamic-import"
	case RefReExport:
		return "re-export"
	}
	return "unknown"
}

// ResolutionKind is the outcome class of a Resolve call.
type ResolutionKind uint8

const (
	// Unresolved means the specifier could not be mapped. Recording is
	// skipped and a diagnostic is emitted.
	Unresolved ResolutionKind = iota
	// Resolved carries a ModuleID.
	Resolved
	// Builtin marks platform modules such as "fs" or "node:path".
	Builtin
	// Ignored marks intentionally excluded targets (external packages).
	Ignored
)

func (k ResolutionKind) String() string {
	switch k {
	case Unresolved:
		return "unresolved"
	case Resolved:
		return "resolved"
	case Builtin:
		return "builtin"
	case Ignored:
		return "ignored"
	}
	return "unknown"
}

// Resolution is the result of resolving one module specifier.
type Resolution struct {
	Kind   ResolutionKind
	Module ModuleID
	Err    error
}

// ResolvedTo returns a Resolved outcome for id.
func ResolvedTo(id ModuleID) Resolution {
	return Resolution{Kind: Resolved, Module: id}
}

// Resolver maps a module specifier, as written in the module from, to a
// module identity. Implementations must be safe for concurrent use when
// the engine runs extraction in parallel.
type Resolver interface {
	Resolve(specifier string, from ModuleID, kind RefKind) Resolution
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(specifier string, from ModuleID, kind RefKind) Resolution

func (f ResolverFunc) Resolve(specifier string, from ModuleID, kind RefKind) Resolution {
	return f(specifier, from, kind)
}
