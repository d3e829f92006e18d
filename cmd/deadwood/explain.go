package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/deadwood"
	"github.com/jward/deadwood/internal/config"
	"github.com/jward/deadwood/internal/resolve"
)

var flagExplainDB string

var explainCmd = &cobra.Command{
	Use:   "explain <file> <symbol> [path]",
	Short: "Show which module a usage of file#symbol is attributed to",
	Long:  "Traces a usage of symbol against file through export * edges and prints each module on the way to the declaration. Scans path (default: current directory) unless --db names a saved run.",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&flagExplainDB, "db", "", "explain against a saved run instead of scanning")
}

func runExplain(cmd *cobra.Command, args []string) error {
	file, err := filepath.Abs(args[0])
	if err != nil {
		return outputError("explain", fmt.Errorf("resolving path %q: %w", args[0], err))
	}
	symbol := args[1]

	var (
		engine *deadwood.Engine
		root   string
	)
	if flagExplainDB != "" {
		root = findRepoRoot(filepath.Dir(file))
		engine, err = deadwood.Open(resolveDBPath(flagExplainDB, root), deadwood.WithLogger(newLogger()))
		if err != nil {
			return outputError("explain", err)
		}
	} else {
		root, err = resolveTargetDir(args[2:])
		if err != nil {
			return outputError("explain", err)
		}
		engine, err = scanForExplain(root)
		if err != nil {
			return outputError("explain", err)
		}
	}

	chain := engine.Explain(file, symbol)
	result := CLIExplain{
		Module:   relPath(root, file),
		Symbol:   symbol,
		Resolved: chain != nil,
	}
	for _, m := range chain {
		result.Chain = append(result.Chain, relPath(root, m))
	}
	return outputResult(cmd, CLIResult{Command: "explain", Results: result})
}

func scanForExplain(root string) (*deadwood.Engine, error) {
	cfg, err := config.LoadWithFallback(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	log := newLogger()
	opts := cfg.ResolveOptions(root)
	opts.Logger = log
	resolver, err := resolve.New(opts)
	if err != nil {
		return nil, fmt.Errorf("creating resolver: %w", err)
	}
	engine, err := deadwood.New(
		deadwood.WithResolver(resolver),
		deadwood.WithLogger(log),
		deadwood.WithRoot(root),
		deadwood.WithParallel(cfg.Parallel),
		deadwood.WithIncludeTests(cfg.IncludeTests),
		deadwood.WithIgnore(cfg.Ignore...),
	)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	if err := engine.AnalyzeDirectory(context.Background(), root); err != nil {
		return nil, err
	}
	return engine, nil
}
