package analysis

import (
	"context"
	"testing"

	"github.com/jward/deadwood/internal/parse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeKinds_AllDispatched(t *testing.T) {
	t.Parallel()

	seen := make(map[nodeKind]bool)
	for _, k := range nodeKinds {
		seen[k] = true
	}
	for k := kindOther + 1; k < numNodeKinds; k++ {
		assert.True(t, seen[k], "node kind %d has no tree-sitter type", k)
	}
}

func TestExtract_ExportForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		values map[string]string
		types  map[string]string
	}{
		{
			name:   "class and function",
			src:    "export class C {}\nexport function f() {}\nexport abstract class A {}\n",
			values: map[string]string{"C": "C", "f": "f", "A": "A"},
		},
		{
			name:   "variables",
			src:    "export const x = 1;\nexport let y = 2;\nexport var z = 3;\n",
			values: map[string]string{"x": "x", "y": "y", "z": "z"},
		},
		{
			name:   "array pattern",
			src:    "const arr = [1, 2];\nexport const [a, b] = arr;\n",
			values: map[string]string{"a": "a", "b": "b"},
		},
		{
			name:   "object pattern",
			src:    "const obj = { a: 1, b: 2 };\nexport const { a, b: c } = obj;\n",
			values: map[string]string{"a": "a", "b": "c"},
		},
		{
			name:  "interface and type alias",
			src:   "export interface I { x: number }\nexport type T = string;\n",
			types: map[string]string{"I": "I", "T": "T"},
		},
		{
			name:   "enum",
			src:    "export enum E { A, B }\n",
			values: map[string]string{"E": "E"},
		},
		{
			name:   "export clause",
			src:    "const a = 1;\nconst b = 2;\nexport { a, b as c };\n",
			values: map[string]string{"a": "a", "c": "b"},
		},
		{
			name:   "export as default",
			src:    "const x = 1;\nexport { x as default };\n",
			values: map[string]string{"default": "default"},
		},
		{
			name:   "default declaration",
			src:    "export default class Widget {}\n",
			values: map[string]string{"default": "default"},
		},
		{
			name:   "default expression",
			src:    "export default 42;\n",
			values: map[string]string{"default": "default"},
		},
		{
			name:   "namespace re-export",
			src:    "export * as ns from \"./other\";\n",
			values: map[string]string{"ns": "ns"},
		},
		{
			name:  "type-only export clause",
			src:   "interface I {}\nexport type { I };\n",
			types: map[string]string{"I": "I"},
		},
		{
			name:   "namespace declaration",
			src:    "export namespace N { export const inner = 1; }\n",
			values: map[string]string{"N": "N"},
		},
		{
			name:   "declare function",
			src:    "export declare function g(): void;\n",
			values: map[string]string{"g": "g"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			facts, err := extract(t, "exporter", tt.src)
			require.NoError(t, err)

			values := tt.values
			if values == nil {
				values = map[string]string{}
			}
			types := tt.types
			if types == nil {
				types = map[string]string{}
			}
			assert.Equal(t, values, facts.Exports.Record.Values)
			assert.Equal(t, types, facts.Exports.Record.Types)
			assert.Empty(t, facts.Exports.ExportAll)
		})
	}
}

func TestExtract_ExportAllKeepsDeclarationOrder(t *testing.T) {
	t.Parallel()

	facts, err := extract(t, "barrel", `
export * from "./b";
export * from "./a";
export * from "fs";
export * from "./c";
`)
	require.NoError(t, err)

	assert.Equal(t, []ModuleID{mod("b"), mod("a"), mod("c")}, facts.Exports.ExportAll)
	assert.Empty(t, facts.Exports.Record.Values)
	assert.Empty(t, facts.Usages)
}

func TestExtract_LastDeclarationWins(t *testing.T) {
	t.Parallel()

	facts, err := extract(t, "m", "const a = 1;\nconst b = 2;\nexport { a as x };\nexport { b as x };\n")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x": "b"}, facts.Exports.Record.Values)
}

func TestExtract_UsageForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"named import", `import { A } from "./m"; A();`, []string{"A"}},
		{"renamed import", `import { A as Alpha } from "./m"; Alpha();`, []string{"A"}},
		{"default import", `import D from "./m"; D();`, []string{"default"}},
		{"default with named", `import D, { A } from "./m";`, []string{"default", "A"}},
		{"type import", `import type { A } from "./m"; let x: A;`, []string{"A"}},
		{"namespace member", `import * as m from "./m"; m.A();`, []string{"A"}},
		{"namespace type member", `import * as m from "./m"; let x: m.Foo;`, []string{"Foo"}},
		{"namespace type argument", `import * as m from "./m"; let x: Array<m.Foo>;`, []string{"Foo"}},
		{"namespace typeof member", `import * as m from "./m"; type T = typeof m.Bar;`, []string{"Bar"}},
		{"namespace subscript", `import * as m from "./m"; m["A"]();`, []string{"A"}},
		{"namespace destructure", `import * as m from "./m"; const { A, B: renamed } = m;`, []string{"A", "B"}},
		{"require member", `require("./m").A();`, []string{"A"}},
		{"require bound", `const m = require("./m"); m.A;`, []string{"A"}},
		{"require destructured", `const { A } = require("./m");`, []string{"A"}},
		{"require through assertion", `const m = require("./m") as any; m.A;`, []string{"A"}},
		{"import equals require", `import m = require("./m"); m.A;`, []string{"A"}},
		{"awaited import member", `(await import("./m")).A;`, []string{"A"}},
		{"awaited import bound", `const m = await import("./m"); m.A;`, []string{"A"}},
		{"awaited import destructured", `const { A } = await import("./m");`, []string{"A"}},
		{"then callback", `import("./m").then(mod => mod.A);`, []string{"A"}},
		{"then callback destructured param", `import("./m").then(({ A }) => A());`, []string{"A"}},
		{"re-export clause", `export { A } from "./m";`, []string{"A"}},
		{"re-export renamed", `export { A as Alpha } from "./m";`, []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			facts, err := extract(t, "consumer", tt.src)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, usages(facts, mod("m")))
		})
	}
}

func TestExtract_PromiseMethodsAreNotUsages(t *testing.T) {
	t.Parallel()

	facts, err := extract(t, "consumer", `import("./m").catch(() => null).finally(() => {});`)
	require.NoError(t, err)
	assert.Empty(t, usages(facts, mod("m")))
}

func TestExtract_BuiltinAndUnresolvedAreSkipped(t *testing.T) {
	t.Parallel()

	logger, buf := bufferLogger()
	f, err := parse.Parse(context.Background(), string(mod("consumer")), []byte(`
import { readFile } from "fs";
import * as path from "node:path";
import { thing } from "left-pad";
path.join("a", "b");
`))
	require.NoError(t, err)
	defer f.Close()

	facts, err := Extract(mod("consumer"), f.Root(), f.Src, resolver, logger)
	require.NoError(t, err)
	assert.Empty(t, facts.Usages)
	assert.Contains(t, buf.String(), "unresolved module specifier")
	assert.Contains(t, buf.String(), "left-pad")
	assert.NotContains(t, buf.String(), "node:path")
}

func TestExtract_ThenAliasDoesNotLeak(t *testing.T) {
	t.Parallel()

	facts, err := extract(t, "consumer", `
import("./m").then(mod => {
  const { A } = mod;
  use(A);
});
mod.B;
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, usages(facts, mod("m")))
}

func TestExtract_ThenRestoresOuterBinding(t *testing.T) {
	t.Parallel()

	facts, err := extract(t, "consumer", `
import * as mod from "./other";
import("./m").then(mod => mod.A);
mod.X;
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, usages(facts, mod("m")))
	assert.Equal(t, []string{"X"}, usages(facts, mod("other")))
}

func TestExtract_ParameterShadowsAlias(t *testing.T) {
	t.Parallel()

	facts, err := extract(t, "consumer", `
import * as m from "./m";
function f(m) { return m.B; }
const g = (m: any) => m.C;
m.A;
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, usages(facts, mod("m")))
}

func TestExtract_LoopAndCatchBindingsShadowAlias(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"for of", "import * as m from \"./m\";\nfor (const m of [1]) { m.A; }\nm.B;\n", []string{"B"}},
		{"for in", "import * as m from \"./m\";\nfor (let m in obj) { m.A; }\nm.B;\n", []string{"B"}},
		{"for of destructured", "import * as m from \"./m\";\nfor (const [k, m] of pairs) { m.A; }\nm.B;\n", []string{"B"}},
		{"catch", "import * as m from \"./m\";\ntry { m.B; } catch (m) { m.A; }\n", []string{"B"}},
		{"for statement", "const m = require(\"./m\");\nfor (let m = 0; m < 3; m++) { m.A; }\nm.B;\n", []string{"B"}},
		{"loop over module member", "import * as m from \"./m\";\nfor (const x of m.list) { x.A; }\n", []string{"list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			facts, err := extract(t, "consumer", tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, usages(facts, mod("m")))
		})
	}
}

func TestExtract_AliasesBindInSourceOrder(t *testing.T) {
	t.Parallel()

	facts, err := extract(t, "consumer", `
function use() { return m.A; }
const m = require("./m");
m.B;
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, usages(facts, mod("m")))
}

func TestExtract_BlockLocalShadowsAlias(t *testing.T) {
	t.Parallel()

	facts, err := extract(t, "consumer", `
const m = require("./m");
if (ok) {
  const m = {};
  m.B;
}
m.A;
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, usages(facts, mod("m")))
}

func TestExtract_BlockAliasDoesNotEscape(t *testing.T) {
	t.Parallel()

	facts, err := extract(t, "consumer", `
function load() {
  const m = require("./m");
  return m.A;
}
m.B;
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, usages(facts, mod("m")))
}

func TestExtract_RestElementKeepsAlias(t *testing.T) {
	t.Parallel()

	facts, err := extract(t, "consumer", `
const { A, ...rest } = require("./m");
rest.B;
`)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, usages(facts, mod("m")))
}

func TestExtract_UsageInsideExportedDeclaration(t *testing.T) {
	t.Parallel()

	facts, err := extract(t, "consumer", `
import * as m from "./m";
export const value = m.A;
export default function run() { return m.B; }
`)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, usages(facts, mod("m")))
	assert.Equal(t, map[string]string{"value": "value", "default": "default"}, facts.Exports.Record.Values)
}

func TestExtract_MalformedDestructureAborts(t *testing.T) {
	t.Parallel()

	_, err := extract(t, "consumer", `
const key = "A";
const { [key]: v } = require("./m");
`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRun_MalformedModuleIsNotRecorded(t *testing.T) {
	t.Parallel()

	run := NewRun()
	src := "import * as m from \"./m\";\nm.A;\nconst { [k]: v } = m;\nexport const x = 1;\n"
	f, err := parse.Parse(context.Background(), string(mod("bad")), []byte(src))
	require.NoError(t, err)
	defer f.Close()

	err = run.AnalyzeModule(mod("bad"), f.Root(), f.Src, resolver)
	require.ErrorIs(t, err, ErrMalformed)

	_, ok := run.Lookup(mod("bad"))
	assert.False(t, ok)
	assert.False(t, run.Usage().Has(mod("m"), "A"))
}

func TestExtract_JavaScriptParameters(t *testing.T) {
	t.Parallel()

	f, err := parse.Parse(context.Background(), "/repo/consumer.js", []byte(`
const m = require("./m");
function f(m, { n }) { return m.B; }
import("./m").then(function (lib) { return lib.C; });
m.A;
`))
	require.NoError(t, err)
	defer f.Close()

	facts, err := Extract(ModuleID("/repo/consumer.js"), f.Root(), f.Src, resolver, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "C"}, usages(facts, mod("m")))
}
