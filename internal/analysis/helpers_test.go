package analysis

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"strings"
	"testing"

	"github.com/jward/deadwood/internal/parse"
	"github.com/stretchr/testify/require"
)

// testResolver resolves "./name" against the importing module's directory
// and appends ".ts". Bare specifiers listed in builtins are Builtin, other
// bare specifiers are Unresolved.
type testResolver struct {
	builtins map[string]bool
}

func (r testResolver) Resolve(spec string, from ModuleID, kind RefKind) Resolution {
	if r.builtins[spec] {
		return Resolution{Kind: Builtin}
	}
	if !strings.HasPrefix(spec, ".") {
		return Resolution{Kind: Unresolved}
	}
	return ResolvedTo(ModuleID(path.Join(from.Dir(), spec) + ".ts"))
}

var resolver = testResolver{builtins: map[string]bool{"fs": true, "node:path": true}}

// mod returns the ModuleID for a short name under /repo.
func mod(name string) ModuleID {
	return ModuleID("/repo/" + name + ".ts")
}

// extract parses src as module name and runs the extractor over it.
func extract(t *testing.T, name, src string) (*FileFacts, error) {
	t.Helper()
	f, err := parse.Parse(context.Background(), string(mod(name)), []byte(src))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return Extract(mod(name), f.Root(), f.Src, resolver, nil)
}

// analyze feeds each (name, source) pair into run in order.
func analyze(t *testing.T, run *Run, files ...string) {
	t.Helper()
	require.Zero(t, len(files)%2, "files must be name/source pairs")
	for i := 0; i < len(files); i += 2 {
		f, err := parse.Parse(context.Background(), string(mod(files[i])), []byte(files[i+1]))
		require.NoError(t, err)
		require.NoError(t, run.AnalyzeModule(mod(files[i]), f.Root(), f.Src, resolver))
		f.Close()
	}
}

// usages collects the symbols a FileFacts records against target.
func usages(facts *FileFacts, target ModuleID) []string {
	var out []string
	for _, u := range facts.Usages {
		if u.Module == target {
			out = append(out, u.Symbol)
		}
	}
	return out
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
