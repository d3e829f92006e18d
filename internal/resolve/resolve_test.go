package resolve

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/deadwood/internal/analysis"
)

// writeTree creates files (path → content) under a temp root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func from(root, name string) analysis.ModuleID {
	return analysis.NewModuleID(filepath.Join(root, filepath.FromSlash(name)))
}

func TestProbe(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"a.ts":         "",
		"b.tsx":        "",
		"c.js":         "",
		"d.mts":        "",
		"dir/index.ts": "",
		"types.d.ts":   "",
		"compiled.ts":  "",
		"readme.md":    "",
	})

	tests := []struct {
		base string
		want string
		ok   bool
	}{
		{"a", "a.ts", true},
		{"a.ts", "a.ts", true},
		{"b", "b.tsx", true},
		{"c", "c.js", true},
		{"d", "d.mts", true},
		{"d.mjs", "d.mts", true},
		{"compiled.js", "compiled.ts", true},
		{"dir", filepath.Join("dir", "index.ts"), true},
		{"types.d.ts", "", false},
		{"readme.md", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := Probe(filepath.Join(root, tt.base))
		assert.Equal(t, tt.ok, ok, tt.base)
		if tt.ok {
			assert.Equal(t, filepath.Join(root, tt.want), got, tt.base)
		}
	}
}

func TestIsRelative(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{".", "..", "./a", "../a", "/abs/a"} {
		assert.True(t, IsRelative(spec), spec)
	}
	for _, spec := range []string{"react", "@scope/pkg", ".hidden-pkg", "node:fs"} {
		assert.False(t, IsRelative(spec), spec)
	}
}

func TestRelative(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"src/a.ts": "", "src/lib/b.ts": "", "shared.ts": ""})
	r := Relative{}
	a := from(root, "src/a.ts")

	res := r.Resolve("./lib/b", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind)
	assert.Equal(t, from(root, "src/lib/b.ts"), res.Module)

	res = r.Resolve("../shared", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind)
	assert.Equal(t, from(root, "shared.ts"), res.Module)

	res = r.Resolve("./nope", a, analysis.RefImport)
	assert.Equal(t, analysis.Unresolved, res.Kind)
	assert.ErrorIs(t, res.Err, ErrNotFound)

	res = r.Resolve("react", a, analysis.RefImport)
	assert.Equal(t, analysis.Unresolved, res.Kind)
	assert.NoError(t, res.Err)
}

func TestBuiltinsAndExternal(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{"fs", "fs/promises", "node:test", "path", "bun:sqlite"} {
		assert.Equal(t, analysis.Builtin, Builtins{}.Resolve(spec, "/a.ts", analysis.RefImport).Kind, spec)
	}
	assert.Equal(t, analysis.Unresolved, Builtins{}.Resolve("react", "/a.ts", analysis.RefImport).Kind)

	assert.Equal(t, analysis.Ignored, External{}.Resolve("react", "/a.ts", analysis.RefImport).Kind)
	assert.Equal(t, analysis.Unresolved, External{}.Resolve("./a", "/a.ts", analysis.RefImport).Kind)
}

func TestChain_ErrorStopsChain(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"tsconfig.json":           `{"compilerOptions": {"paths": {"@app/*": ["src/*"]}}}`,
		"src/a.ts":                "",
		"pkgs/empty/package.json": `{"name": "empty", "main": "dist/index.js"}`,
	})
	a := from(root, "src/a.ts")

	r, err := New(Options{Mode: ModeTSConfig, Root: root})
	require.NoError(t, err)

	res := r.Resolve("@app/missing", a, analysis.RefImport)
	assert.Equal(t, analysis.Unresolved, res.Kind)
	assert.ErrorIs(t, res.Err, ErrNotFound)

	res = r.Resolve("empty", a, analysis.RefImport)
	assert.Equal(t, analysis.Unresolved, res.Kind)
	assert.ErrorIs(t, res.Err, ErrNotFound)

	// Stages without an opinion still fall through.
	assert.Equal(t, analysis.Ignored, r.Resolve("react", a, analysis.RefImport).Kind)
}

func TestChain_KeepsFirstError(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.ts": ""})
	c := Chain{Builtins{}, Relative{}, External{}}
	a := from(root, "a.ts")

	assert.Equal(t, analysis.Builtin, c.Resolve("os", a, analysis.RefImport).Kind)
	assert.Equal(t, analysis.Ignored, c.Resolve("lodash", a, analysis.RefImport).Kind)

	res := c.Resolve("./missing", a, analysis.RefImport)
	assert.Equal(t, analysis.Unresolved, res.Kind)
	assert.ErrorIs(t, res.Err, ErrNotFound)
}

func TestCache_Memoizes(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	next := analysis.ResolverFunc(func(spec string, from analysis.ModuleID, kind analysis.RefKind) analysis.Resolution {
		calls.Add(1)
		return analysis.ResolvedTo(analysis.ModuleID("/x/" + spec + ".ts"))
	})
	c, err := NewCache(next, 16)
	require.NoError(t, err)

	c.Resolve("a", "/src/one.ts", analysis.RefImport)
	c.Resolve("a", "/src/two.ts", analysis.RefImport) // same directory
	c.Resolve("a", "/other/one.ts", analysis.RefImport)
	c.Resolve("a", "/src/one.ts", analysis.RefRequire)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, c.Len())
}

func TestSplitPackage(t *testing.T) {
	t.Parallel()

	tests := []struct{ spec, name, sub string }{
		{"react", "react", ""},
		{"lodash/fp/map", "lodash", "fp/map"},
		{"@scope/pkg", "@scope/pkg", ""},
		{"@scope/pkg/deep/path", "@scope/pkg", "deep/path"},
	}
	for _, tt := range tests {
		name, sub := SplitPackage(tt.spec)
		assert.Equal(t, tt.name, name, tt.spec)
		assert.Equal(t, tt.sub, sub, tt.spec)
	}
}

func TestWorkspace(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"package.json":                  `{"name": "root", "private": true}`,
		"packages/ui/package.json":      `{"name": "@acme/ui", "main": "dist/index.js"}`,
		"packages/ui/src/index.ts":      "",
		"packages/ui/src/button.tsx":    "",
		"packages/core/package.json":    `{"name": "core", "exports": {".": {"import": "./lib/main.mjs"}, "./extra": "./lib/extra.ts"}}`,
		"packages/core/lib/main.mts":    "",
		"packages/core/lib/extra.ts":    "",
		"packages/broken/package.json":  `{not json`,
		"node_modules/dep/package.json": `{"name": "dep"}`,
		"node_modules/dep/index.js":     "",
	})

	w, err := NewWorkspace(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"@acme/ui", "core", "root"}, w.Packages())

	a := from(root, "app/main.ts")

	res := w.Resolve("@acme/ui", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind, "err: %v", res.Err)
	assert.Equal(t, from(root, "packages/ui/src/index.ts"), res.Module)

	res = w.Resolve("@acme/ui/button", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind)
	assert.Equal(t, from(root, "packages/ui/src/button.tsx"), res.Module)

	res = w.Resolve("core", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind)
	assert.Equal(t, from(root, "packages/core/lib/main.mts"), res.Module)

	res = w.Resolve("core/extra", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind)
	assert.Equal(t, from(root, "packages/core/lib/extra.ts"), res.Module)

	assert.Equal(t, analysis.Unresolved, w.Resolve("dep", a, analysis.RefImport).Kind)
	assert.Equal(t, analysis.Unresolved, w.Resolve("./core", a, analysis.RefImport).Kind)

	res = w.Resolve("@acme/ui/missing", a, analysis.RefImport)
	assert.Equal(t, analysis.Unresolved, res.Kind)
	assert.ErrorIs(t, res.Err, ErrNotFound)
}

func TestExportsTarget(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "./i.js", exportsTarget([]byte(`"./i.js"`), "."))
	assert.Equal(t, "", exportsTarget([]byte(`"./i.js"`), "./sub"))
	assert.Equal(t, "./m.js", exportsTarget([]byte(`{"require": "./c.js", "import": "./m.js"}`), "."))
	assert.Equal(t, "./t.ts", exportsTarget([]byte(`{".": {"import": {"types": "./t.d.ts", "default": "./t.ts"}}}`), "."))
	assert.Equal(t, "", exportsTarget([]byte(`{"./a": "./a.js"}`), "."))
	assert.Equal(t, "", exportsTarget(nil, "."))
}

func TestReadTSConfig_CommentsAndTrailingCommas(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"tsconfig.json": `{
  // line comment
  "compilerOptions": {
    "baseUrl": "http://not-a-comment", /* block */
    "paths": { "a": ["x", "y",], },
  },
}`})
	cfg, err := readTSConfig(filepath.Join(root, "tsconfig.json"))
	require.NoError(t, err)
	assert.Equal(t, "http://not-a-comment", cfg.CompilerOptions.BaseURL)
	assert.Equal(t, map[string][]string{"a": {"x", "y"}}, cfg.CompilerOptions.Paths)

	root = writeTree(t, map[string]string{"tsconfig.json": `{"compilerOptions": `})
	_, err = readTSConfig(filepath.Join(root, "tsconfig.json"))
	assert.Error(t, err)
}

func TestTSConfig(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"tsconfig.base.json": `{
  "compilerOptions": {
    "baseUrl": ".",
    "paths": { "@old/*": ["legacy/*"] }
  }
}`,
		"tsconfig.json": `{
  // app config
  "extends": "./tsconfig.base",
  "compilerOptions": {
    "paths": {
      "@app/*": ["src/*"],
      "@app/special/*": ["special/*"],
      "config": ["src/config/index.ts"],
    },
  },
}`,
		"src/util.ts":         "",
		"src/config/index.ts": "",
		"special/thing.ts":    "",
		"legacy/old.ts":       "",
		"lib/direct.ts":       "",
	})

	tc, err := LoadTSConfig(filepath.Join(root, "tsconfig.json"))
	require.NoError(t, err)
	a := from(root, "src/main.ts")

	res := tc.Resolve("@app/util", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind, "err: %v", res.Err)
	assert.Equal(t, from(root, "src/util.ts"), res.Module)

	res = tc.Resolve("@app/special/thing", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind)
	assert.Equal(t, from(root, "special/thing.ts"), res.Module)

	res = tc.Resolve("config", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind)
	assert.Equal(t, from(root, "src/config/index.ts"), res.Module)

	// baseUrl inherited from the parent config.
	res = tc.Resolve("lib/direct", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind)
	assert.Equal(t, from(root, "lib/direct.ts"), res.Module)

	// The child's paths replace the parent's.
	assert.Equal(t, analysis.Unresolved, tc.Resolve("@old/old", a, analysis.RefImport).Kind)

	res = tc.Resolve("@app/missing", a, analysis.RefImport)
	assert.Equal(t, analysis.Unresolved, res.Kind)
	assert.ErrorIs(t, res.Err, ErrNotFound)

	assert.Equal(t, analysis.Unresolved, tc.Resolve("react", a, analysis.RefImport).Kind)
}

func TestLoadTSConfig_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadTSConfig(filepath.Join(t.TempDir(), "tsconfig.json"))
	assert.Error(t, err)

	root := writeTree(t, map[string]string{"tsconfig.json": `{"extends": "./missing"}`})
	_, err = LoadTSConfig(filepath.Join(root, "tsconfig.json"))
	assert.Error(t, err)
}

func TestNew_Modes(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"tsconfig.json":         `{"compilerOptions": {"paths": {"~/*": ["src/*"]}}}`,
		"src/a.ts":              "",
		"src/b.ts":              "",
		"pkgs/lib/package.json": `{"name": "lib"}`,
		"pkgs/lib/index.ts":     "",
	})
	a := from(root, "src/a.ts")

	r, err := New(Options{Mode: ModeRelative, Root: root})
	require.NoError(t, err)
	assert.Equal(t, analysis.Resolved, r.Resolve("./b", a, analysis.RefImport).Kind)
	assert.Equal(t, analysis.Ignored, r.Resolve("lib", a, analysis.RefImport).Kind)

	r, err = New(Options{Mode: ModePackage, Root: root})
	require.NoError(t, err)
	assert.Equal(t, analysis.Resolved, r.Resolve("lib", a, analysis.RefImport).Kind)

	r, err = New(Options{Mode: ModeTSConfig, Root: root})
	require.NoError(t, err)
	res := r.Resolve("~/b", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind)
	assert.Equal(t, from(root, "src/b.ts"), res.Module)
	assert.Equal(t, analysis.Builtin, r.Resolve("node:fs", a, analysis.RefImport).Kind)

	_, err = New(Options{Mode: ModeScript, Root: root})
	assert.Error(t, err)

	_, err = New(Options{Mode: "bogus", Root: root})
	assert.Error(t, err)
}

func TestNew_ScriptMode(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"src/a.ts": "",
		"src/b.ts": "",
		"resolve.risor": `
func resolve() {
	if specifier == "virtual:b" {
		return probe(path_join(root, "src", "b"))
	}
	return nil
}
resolve()
`,
	})
	a := from(root, "src/a.ts")

	r, err := New(Options{Mode: ModeScript, Root: root, Script: filepath.Join(root, "resolve.risor")})
	require.NoError(t, err)

	res := r.Resolve("virtual:b", a, analysis.RefImport)
	require.Equal(t, analysis.Resolved, res.Kind, "err: %v", res.Err)
	assert.Equal(t, from(root, "src/b.ts"), res.Module)
	assert.Equal(t, analysis.Resolved, r.Resolve("./b", a, analysis.RefImport).Kind)
	assert.Equal(t, analysis.Ignored, r.Resolve("react", a, analysis.RefImport).Kind)
}
