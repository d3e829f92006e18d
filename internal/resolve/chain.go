package resolve

import (
	"github.com/jward/deadwood/internal/analysis"
)

// Chain tries resolvers in order. The first outcome other than Unresolved
// wins. An Unresolved outcome carrying an error stops the chain: the stage
// claimed the specifier and failed, so later fallbacks must not hide it.
type Chain []analysis.Resolver

func (c Chain) Resolve(spec string, from analysis.ModuleID, kind analysis.RefKind) analysis.Resolution {
	for _, r := range c {
		res := r.Resolve(spec, from, kind)
		if res.Kind != analysis.Unresolved || res.Err != nil {
			return res
		}
	}
	return analysis.Resolution{Kind: analysis.Unresolved}
}
