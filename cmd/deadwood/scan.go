package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/deadwood"
	"github.com/jward/deadwood/internal/config"
	"github.com/jward/deadwood/internal/resolve"
)

var (
	flagConfig         string
	flagIncludeTests   bool
	flagResolver       string
	flagResolverScript string
	flagTSConfig       string
	flagParallel       bool
	flagNoSameFile     bool
	flagScanDB         string
	flagFail           bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a source tree for unused exports",
	Long:  "Analyzes every TypeScript and JavaScript module under path and lists exports no other module uses. Settings come from .deadwood.yaml at the path, overridden by flags.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&flagConfig, "config", "", "config file (default: <path>/"+config.FileName+")")
	scanCmd.Flags().BoolVar(&flagIncludeTests, "include-tests", false, "analyze *.test.*, *.spec.* and __tests__ files")
	scanCmd.Flags().StringVar(&flagResolver, "resolver", "", "resolver mode: relative|package|tsconfig|script")
	scanCmd.Flags().StringVar(&flagResolverScript, "resolver-script", "", "Risor resolver script (implies --resolver script)")
	scanCmd.Flags().StringVar(&flagTSConfig, "tsconfig", "", "tsconfig.json for --resolver tsconfig")
	scanCmd.Flags().BoolVar(&flagParallel, "parallel", false, "parse and extract files in parallel")
	scanCmd.Flags().BoolVar(&flagNoSameFile, "no-same-file", false, "skip the same-file usage check")
	scanCmd.Flags().StringVar(&flagScanDB, "db", "", "save the run to this SQLite database")
	scanCmd.Flags().BoolVar(&flagFail, "fail", false, "exit with status 1 when unused exports are found")
}

func runScan(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("scan", err)
	}

	cfg, err := loadScanConfig(cmd, targetDir)
	if err != nil {
		return outputError("scan", err)
	}

	log := newLogger()
	resolveOpts := cfg.ResolveOptions(targetDir)
	resolveOpts.Logger = log
	resolver, err := resolve.New(resolveOpts)
	if err != nil {
		return outputError("scan", fmt.Errorf("creating resolver: %w", err))
	}

	engine, err := deadwood.New(
		deadwood.WithResolver(resolver),
		deadwood.WithLogger(log),
		deadwood.WithRoot(targetDir),
		deadwood.WithParallel(cfg.Parallel),
		deadwood.WithIncludeTests(cfg.IncludeTests),
		deadwood.WithIgnore(cfg.Ignore...),
		deadwood.WithSameFileCheck(cfg.SameFileCheck),
	)
	if err != nil {
		return outputError("scan", fmt.Errorf("creating engine: %w", err))
	}

	if err := engine.AnalyzeDirectory(context.Background(), targetDir); err != nil {
		return outputError("scan", err)
	}
	log.Debug("resolution cache", slog.Int("entries", resolver.Len()))
	findings, err := engine.Findings()
	if err != nil {
		return outputError("scan", err)
	}

	if flagScanDB != "" {
		dbPath := resolveDBPath(flagScanDB, findRepoRoot(targetDir))
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return outputError("scan", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err))
		}
		if err := engine.Save(dbPath); err != nil {
			return outputError("scan", err)
		}
		fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	}

	fmt.Fprintf(os.Stderr, "Scanned %d modules in %s\n",
		len(engine.Run().Modules()), time.Since(start).Round(time.Millisecond))

	if err := outputResult(cmd, CLIResult{
		Command: "scan",
		Results: toCLIFindings(targetDir, findings),
	}); err != nil {
		return err
	}
	if flagFail && len(findings) > 0 {
		return errFindings
	}
	return nil
}

// loadScanConfig reads the config file and applies explicitly set flags
// on top of it.
func loadScanConfig(cmd *cobra.Command, targetDir string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig)
	} else {
		cfg, err = config.LoadWithFallback(filepath.Join(targetDir, config.FileName))
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("include-tests") {
		cfg.IncludeTests = flagIncludeTests
	}
	if flags.Changed("parallel") {
		cfg.Parallel = flagParallel
	}
	if flags.Changed("no-same-file") {
		cfg.SameFileCheck = !flagNoSameFile
	}
	if flags.Changed("tsconfig") {
		cfg.Resolver.TSConfig = flagTSConfig
	}
	if flags.Changed("resolver-script") {
		cfg.Resolver.Script = flagResolverScript
		cfg.Resolver.Mode = string(resolve.ModeScript)
	}
	if flags.Changed("resolver") {
		cfg.Resolver.Mode = flagResolver
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
