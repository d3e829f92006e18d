package analysis

import "sort"

// ModuleReport lists a module's exports that no usage reached, sorted.
type ModuleReport struct {
	UnusedValueExports []string
	UnusedTypeExports  []string
}

// Report maps modules with at least one unused export to their findings.
type Report map[ModuleID]ModuleReport

// Modules returns the reported module IDs in sorted order.
func (r Report) Modules() []ModuleID {
	ids := make([]ModuleID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type unusedSet struct {
	values map[string]struct{}
	types  map[string]struct{}
}

// Finalize reconciles declared exports against the usage index. Usages of
// names a module does not declare itself are traced through its export-all
// edges, newest edge first, and attributed to the first module that
// declares the name.
//
// Finalize does not modify the Run; calling it again without new input
// returns an equal Report.
func (r *Run) Finalize() Report {
	unused := make(map[ModuleID]*unusedSet, len(r.modules))
	for id, m := range r.modules {
		set := &unusedSet{
			values: make(map[string]struct{}),
			types:  make(map[string]struct{}),
		}
		for name := range m.Record.Values {
			if !r.usage.Has(id, name) {
				set.values[name] = struct{}{}
			}
		}
		for name := range m.Record.Types {
			if !r.usage.Has(id, name) {
				set.types[name] = struct{}{}
			}
		}
		unused[id] = set
	}

	for module, symbols := range r.usage {
		for symbol := range symbols {
			path := r.trace(module, symbol, make(map[ModuleID]struct{}))
			if len(path) == 0 {
				continue
			}
			owner := unused[path[len(path)-1]]
			delete(owner.values, symbol)
			delete(owner.types, symbol)
		}
	}

	report := make(Report)
	for id, set := range unused {
		if len(set.values) == 0 && len(set.types) == 0 {
			continue
		}
		report[id] = ModuleReport{
			UnusedValueExports: sortedKeys(set.values),
			UnusedTypeExports:  sortedKeys(set.types),
		}
	}
	return report
}

// Explain returns the chain of modules a usage of symbol against module is
// attributed through, ending at the declaring module. It returns nil when
// the usage would not be attributed to any module.
func (r *Run) Explain(module ModuleID, symbol string) []ModuleID {
	return r.trace(module, symbol, make(map[ModuleID]struct{}))
}

// trace walks export-all edges in reverse declaration order. Each module is
// entered at most once per trace, so cyclic re-exports terminate.
// "default" is never forwarded by `export *`.
func (r *Run) trace(module ModuleID, symbol string, visited map[ModuleID]struct{}) []ModuleID {
	if _, seen := visited[module]; seen {
		return nil
	}
	visited[module] = struct{}{}

	m, ok := r.modules[module]
	if !ok {
		return nil
	}
	if m.Declares(symbol) {
		return []ModuleID{module}
	}
	if symbol == "default" {
		return nil
	}
	for i := len(m.ExportAll) - 1; i >= 0; i-- {
		if path := r.trace(m.ExportAll[i], symbol, visited); path != nil {
			return append([]ModuleID{module}, path...)
		}
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
