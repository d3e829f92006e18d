package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/jward/deadwood/internal/analysis"
)

// ErrBadResult is carried by Unresolved outcomes when a resolver script
// returns a value that is not a recognized result.
var ErrBadResult = errors.New("unrecognized resolver script result")

// ScriptResolver delegates module resolution to a Risor script. The script
// sees the globals specifier, from, from_dir, kind and root, and its final
// expression decides the outcome:
//
//	"path"                       resolved to path
//	nil                          unresolved, later resolvers are tried
//	false                        ignored
//	{"kind": k, "path": p}       explicit kind: resolved, builtin, ignored, unresolved
type ScriptResolver struct {
	rt     *Runtime
	label  string
	source string
	root   string
}

// NewScriptResolver loads the script at path once. root is exposed to the
// script as the analysis root directory.
func NewScriptResolver(rt *Runtime, path, root string) (*ScriptResolver, error) {
	src, err := rt.LoadScript(path)
	if err != nil {
		return nil, err
	}
	return &ScriptResolver{rt: rt, label: path, source: src, root: root}, nil
}

// NewScriptResolverSource builds a ScriptResolver from inline source.
func NewScriptResolverSource(rt *Runtime, source, root string) *ScriptResolver {
	return &ScriptResolver{rt: rt, label: "<inline>", source: source, root: root}
}

func (s *ScriptResolver) Resolve(spec string, from analysis.ModuleID, kind analysis.RefKind) analysis.Resolution {
	result, err := s.rt.EvalSource(context.Background(), s.source, s.label, map[string]any{
		"specifier": spec,
		"from":      from.String(),
		"from_dir":  from.Dir(),
		"kind":      kind.String(),
		"root":      s.root,
	})
	if err != nil {
		return analysis.Resolution{Kind: analysis.Unresolved, Err: err}
	}
	return toResolution(result)
}

func toResolution(v any) analysis.Resolution {
	switch r := v.(type) {
	case nil:
		return analysis.Resolution{Kind: analysis.Unresolved}
	case string:
		if r == "" {
			return analysis.Resolution{Kind: analysis.Unresolved}
		}
		return analysis.ResolvedTo(analysis.NewModuleID(r))
	case bool:
		if !r {
			return analysis.Resolution{Kind: analysis.Ignored}
		}
	case map[string]any:
		kind, _ := r["kind"].(string)
		path, _ := r["path"].(string)
		switch kind {
		case "resolved":
			if path != "" {
				return analysis.ResolvedTo(analysis.NewModuleID(path))
			}
		case "builtin":
			return analysis.Resolution{Kind: analysis.Builtin}
		case "ignored":
			return analysis.Resolution{Kind: analysis.Ignored}
		case "unresolved":
			return analysis.Resolution{Kind: analysis.Unresolved}
		}
	}
	return analysis.Resolution{
		Kind: analysis.Unresolved,
		Err:  fmt.Errorf("%w: %v", ErrBadResult, v),
	}
}
