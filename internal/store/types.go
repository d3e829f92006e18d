package store

import "time"

// Export kinds.
const (
	KindValue = "value"
	KindType  = "type"
)

// Module is one analyzed source file.
type Module struct {
	ID       int64
	Path     string
	Hash     string
	Analyzed time.Time
}

// Export is a declared export of a module.
type Export struct {
	ModuleID int64
	Name     string
	Local    string
	Kind     string
}

// ExportAll is an `export * from` edge. Ordinal keeps declaration order.
type ExportAll struct {
	ModuleID int64
	Ordinal  int
	Target   string
}

// Usage is a usage fact recorded against a module path.
type Usage struct {
	Module string
	Symbol string
}

// Finding is an export no usage reached.
type Finding struct {
	Module       string
	Name         string
	Local        string
	Kind         string
	UsedInModule bool
}

// ModuleSnapshot carries one module's records into SaveRun.
type ModuleSnapshot struct {
	Path      string
	Hash      string
	Values    map[string]string
	Types     map[string]string
	ExportAll []string
}

// Snapshot is everything persisted for a single run.
type Snapshot struct {
	Root     string
	Modules  []ModuleSnapshot
	Usages   []Usage
	Findings []Finding
}
