package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/deadwood"
	"github.com/jward/deadwood/internal/store"
)

var flagReportDB string

var reportCmd = &cobra.Command{
	Use:   "report [file...]",
	Short: "Print findings from a saved run",
	Long:  "Reads the findings saved by scan --db. When files are given, only their findings are printed. Warns when analyzed files changed since the run was saved.",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&flagReportDB, "db", "", "database path (default: .deadwood/run.db relative to repo root)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return outputError("report", err)
	}
	dbPath := resolveDBPath(flagReportDB, findRepoRoot(cwd))

	engine, err := deadwood.Open(dbPath, deadwood.WithLogger(newLogger()))
	if err != nil {
		return outputError("report", err)
	}
	stale, err := engine.Stale()
	if err != nil {
		return outputError("report", err)
	}
	if len(stale) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d file(s) changed since the run was saved; rerun scan for current results\n", len(stale))
		for _, path := range stale {
			fmt.Fprintf(os.Stderr, "  %s\n", path)
		}
	}

	modules := make([]string, len(args))
	for i, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return outputError("report", fmt.Errorf("resolving path %q: %w", arg, err))
		}
		modules[i] = abs
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return outputError("report", err)
	}
	defer s.Close()
	root, err := s.Metadata("root")
	if err != nil {
		return outputError("report", err)
	}
	findings, err := s.Findings(modules...)
	if err != nil {
		return outputError("report", err)
	}

	return outputResult(cmd, CLIResult{
		Command: "report",
		Results: toCLIFindings(root, findings),
	})
}
