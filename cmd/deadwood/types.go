package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIFinding is a JSON-friendly unused export.
type CLIFinding struct {
	File         string `json:"file"`
	Name         string `json:"name"`
	Local        string `json:"local,omitempty"`
	Kind         string `json:"kind"`
	UsedInModule bool   `json:"used_in_module,omitempty"`
}

// CLIExplain is the trace of one usage through export-all edges.
type CLIExplain struct {
	Module   string   `json:"module"`
	Symbol   string   `json:"symbol"`
	Resolved bool     `json:"resolved"`
	Chain    []string `json:"chain"`
}
