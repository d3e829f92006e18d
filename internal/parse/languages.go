package parse

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Dialect names the grammar a source file is parsed with.
type Dialect string

const (
	TypeScript Dialect = "typescript"
	TSX        Dialect = "tsx"
	JavaScript Dialect = "javascript"
)

// extToDialect maps file extensions to dialects. The JavaScript grammar
// accepts JSX.
var extToDialect = map[string]Dialect{
	".ts":  TypeScript,
	".mts": TypeScript,
	".cts": TypeScript,
	".tsx": TSX,
	".js":  JavaScript,
	".jsx": JavaScript,
	".mjs": JavaScript,
	".cjs": JavaScript,
}

// dialectToGrammar is lazily initialized on first call via sync.Once.
var (
	dialectToGrammar map[Dialect]*sitter.Language
	grammarsOnce     sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		dialectToGrammar = map[Dialect]*sitter.Language{
			TypeScript: ts.GetLanguage(),
			TSX:        tsx.GetLanguage(),
			JavaScript: javascript.GetLanguage(),
		}
	})
}

// Extensions returns the source extensions the parser understands.
func Extensions() []string {
	exts := make([]string, 0, len(extToDialect))
	for ext := range extToDialect {
		exts = append(exts, ext)
	}
	return exts
}

// IsDeclarationFile reports whether path is a TypeScript declaration file
// (.d.ts, .d.mts, .d.cts). Declaration files carry no runtime exports.
func IsDeclarationFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, suffix := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// DialectForFile returns the dialect for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
func DialectForFile(path string) (Dialect, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	d, ok := extToDialect[ext]
	return d, ok
}

// Grammar returns the tree-sitter Language for a dialect.
func Grammar(d Dialect) (*sitter.Language, bool) {
	initGrammars()
	l, ok := dialectToGrammar[d]
	return l, ok
}
