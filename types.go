package deadwood

import (
	"github.com/jward/deadwood/internal/analysis"
	"github.com/jward/deadwood/internal/store"
)

// Public type aliases for internal types used in the Engine API.
// These are Go type aliases (=), identical to the internal types at compile
// time. External consumers use these names; no conversion is needed.

type Finding = store.Finding
type Report = analysis.Report
type ModuleReport = analysis.ModuleReport
type ModuleID = analysis.ModuleID

// Resolver maps a module specifier to a module. Implementations outside
// this module use the names below.
type Resolver = analysis.Resolver
type ResolverFunc = analysis.ResolverFunc
type Resolution = analysis.Resolution
type ResolutionKind = analysis.ResolutionKind
type RefKind = analysis.RefKind

const (
	Unresolved = analysis.Unresolved
	Resolved   = analysis.Resolved
	Builtin    = analysis.Builtin
	Ignored    = analysis.Ignored
)

const (
	RefImport        = analysis.RefImport
	RefTypeImport    = analysis.RefTypeImport
	RefRequire       = analysis.RefRequire
	RefDynamicImport = analysis.RefDynamicImport
	RefReExport      = analysis.RefReExport
)

// NewModuleID canonicalizes a file path into a ModuleID.
func NewModuleID(path string) ModuleID {
	return analysis.NewModuleID(path)
}

// ResolvedTo returns a Resolved outcome for id.
func ResolvedTo(id ModuleID) Resolution {
	return analysis.ResolvedTo(id)
}
