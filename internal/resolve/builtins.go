package resolve

import (
	"strings"

	"github.com/jward/deadwood/internal/analysis"
)

// nodeBuiltins are the Node.js core modules importable without a prefix.
var nodeBuiltins = map[string]bool{
	"assert": true, "async_hooks": true, "buffer": true, "child_process": true,
	"cluster": true, "console": true, "constants": true, "crypto": true,
	"dgram": true, "diagnostics_channel": true, "dns": true, "domain": true,
	"events": true, "fs": true, "http": true, "http2": true, "https": true,
	"inspector": true, "module": true, "net": true, "os": true, "path": true,
	"perf_hooks": true, "process": true, "punycode": true, "querystring": true,
	"readline": true, "repl": true, "stream": true, "string_decoder": true,
	"sys": true, "timers": true, "tls": true, "trace_events": true, "tty": true,
	"url": true, "util": true, "v8": true, "vm": true, "wasi": true,
	"worker_threads": true, "zlib": true,
}

// IsBuiltin reports whether spec names a platform module, including
// subpaths such as "fs/promises" and anything under "node:".
func IsBuiltin(spec string) bool {
	if strings.HasPrefix(spec, "node:") || strings.HasPrefix(spec, "bun:") {
		return true
	}
	name, _, _ := strings.Cut(spec, "/")
	return nodeBuiltins[name]
}

// Builtins marks platform modules so nothing is recorded against them.
type Builtins struct{}

func (Builtins) Resolve(spec string, _ analysis.ModuleID, _ analysis.RefKind) analysis.Resolution {
	if IsBuiltin(spec) {
		return analysis.Resolution{Kind: analysis.Builtin}
	}
	return analysis.Resolution{Kind: analysis.Unresolved}
}

// External treats every remaining package specifier as a dependency outside
// the analyzed tree.
type External struct{}

func (External) Resolve(spec string, _ analysis.ModuleID, _ analysis.RefKind) analysis.Resolution {
	if IsRelative(spec) {
		return analysis.Resolution{Kind: analysis.Unresolved}
	}
	return analysis.Resolution{Kind: analysis.Ignored}
}
