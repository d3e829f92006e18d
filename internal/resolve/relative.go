package resolve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/deadwood/internal/analysis"
	"github.com/jward/deadwood/internal/parse"
)

// ErrNotFound is carried by Unresolved outcomes when no candidate file
// exists for a specifier.
var ErrNotFound = errors.New("module not found")

// probeExtensions is the order extensionless specifiers are tried in.
var probeExtensions = []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}

// jsToTS lists the TypeScript sources a JavaScript extension written in an
// import may compile from.
var jsToTS = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

// IsRelative reports whether spec names a path rather than a package.
func IsRelative(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") ||
		strings.HasPrefix(spec, "/")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isSource(path string) bool {
	if parse.IsDeclarationFile(path) {
		return false
	}
	_, ok := parse.DialectForFile(path)
	return ok
}

// Probe finds the source file an import of base refers to: base itself,
// base with a source extension, a TypeScript file behind a .js import, or
// an index file when base is a directory.
func Probe(base string) (string, bool) {
	if isFile(base) && isSource(base) {
		return base, true
	}
	ext := filepath.Ext(base)
	if alts, ok := jsToTS[ext]; ok {
		stem := strings.TrimSuffix(base, ext)
		for _, alt := range alts {
			if isFile(stem + alt) {
				return stem + alt, true
			}
		}
	}
	for _, ext := range probeExtensions {
		if isFile(base + ext) {
			return base + ext, true
		}
	}
	if isDir(base) {
		for _, ext := range probeExtensions {
			index := filepath.Join(base, "index"+ext)
			if isFile(index) {
				return index, true
			}
		}
	}
	return "", false
}

// Relative resolves path specifiers against the importing module's
// directory. Package specifiers are left Unresolved for later resolvers.
type Relative struct{}

func (Relative) Resolve(spec string, from analysis.ModuleID, _ analysis.RefKind) analysis.Resolution {
	if !IsRelative(spec) {
		return analysis.Resolution{Kind: analysis.Unresolved}
	}
	base := filepath.FromSlash(spec)
	if !filepath.IsAbs(base) {
		base = filepath.Join(from.Dir(), base)
	}
	if path, ok := Probe(base); ok {
		return analysis.ResolvedTo(analysis.NewModuleID(path))
	}
	return analysis.Resolution{
		Kind: analysis.Unresolved,
		Err:  fmt.Errorf("%w: %q from %s", ErrNotFound, spec, from),
	}
}
