// Package deadwood finds exported TypeScript and JavaScript symbols that
// nothing in a source tree consumes, including exports reached only through
// `export * from` chains.
//
// # Pipeline
//
//  1. Extract: each source file is parsed with tree-sitter and walked once.
//     The walk records the module's value and type exports, its
//     `export * from` edges in declaration order, and a usage fact for every
//     imported or accessed symbol of another module.
//
//  2. Finalize: every export without a direct usage is provisionally unused.
//     Each usage of a name a module does not declare itself is then traced
//     through that module's export-all edges, newest first, and clears the
//     first declaring module it reaches.
//
// # Usage
//
//	e, err := deadwood.New(deadwood.WithParallel(true))
//	if err != nil { ... }
//
//	err = e.AnalyzeDirectory(ctx, "path/to/project")
//	findings, err := e.Findings()
//
// Module specifiers are mapped to files by a [Resolver]. The default
// resolves relative paths only. Pass your own with [WithResolver]; a
// [ResolverFunc] returning [ResolvedTo], or a [Resolution] of kind [Builtin],
// [Ignored] or [Unresolved], is enough:
//
//	r := deadwood.ResolverFunc(func(spec string, from deadwood.ModuleID, kind deadwood.RefKind) deadwood.Resolution {
//		if strings.HasPrefix(spec, "@app/") {
//			return deadwood.ResolvedTo(deadwood.NewModuleID("src/" + spec[5:] + ".ts"))
//		}
//		return deadwood.Resolution{Kind: deadwood.Ignored}
//	})
//
// The deadwood command adds package, tsconfig and script-based resolution.
//
// # Saved runs
//
// [Engine.Save] persists a run to SQLite; [Open] loads it back for
// reporting and [Engine.Explain] without re-parsing. [Engine.Stale] lists
// modules whose content changed since the run was saved.
package deadwood
