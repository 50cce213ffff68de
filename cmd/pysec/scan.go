package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/FanZDStar/oss-2025/internal/cache"
	"github.com/FanZDStar/oss-2025/internal/engine"
	"github.com/FanZDStar/oss-2025/internal/gitsel"
	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/output"
	"github.com/FanZDStar/oss-2025/internal/parser"
	"github.com/FanZDStar/oss-2025/internal/rules"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan Python files for security issues",
	Long: `Scans a file or directory tree. With --changed only uncommitted
files are scanned; with --since REF only files that differ from the
given git reference.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Bool("changed", false, "scan only uncommitted changes")
	scanCmd.Flags().String("since", "", "scan only files changed since this git reference")
	scanCmd.Flags().IntP("jobs", "j", 0, "number of parallel workers (default: CPU count)")
	scanCmd.Flags().StringP("format", "f", "", "output format: text, json, markdown")
	scanCmd.Flags().String("min-severity", "", "drop findings below this severity")
	scanCmd.Flags().Bool("no-cache", false, "bypass the parse cache")
	scanCmd.Flags().Bool("exit-zero", false, "exit 0 even when findings are reported")
	scanCmd.MarkFlagsMutuallyExclusive("changed", "since")
}

func runScan(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	changed, _ := cmd.Flags().GetBool("changed")
	since, _ := cmd.Flags().GetString("since")
	jobs, _ := cmd.Flags().GetInt("jobs")
	format, _ := cmd.Flags().GetString("format")
	minSeverity, _ := cmd.Flags().GetString("min-severity")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	exitZero, _ := cmd.Flags().GetBool("exit-zero")

	if minSeverity != "" {
		cfg.Rules.MinSeverity = minSeverity
	}
	if jobs > 0 {
		cfg.Workers = jobs
	}
	if format != "" {
		cfg.Output.Format = format
	}

	formatter, err := output.NewFormatter(cfg.Output.Format)
	if err != nil {
		return err
	}

	runCfg, err := cfg.RuleRunConfig()
	if err != nil {
		return err
	}

	registry, err := rules.DefaultRegistry()
	if err != nil {
		return err
	}

	root := target
	if info, statErr := os.Stat(target); statErr == nil && !info.IsDir() {
		root = filepath.Dir(target)
	}

	mode := gitsel.ModeAll
	if since != "" {
		mode = gitsel.ModeSince
	} else if changed {
		mode = gitsel.ModeWorkingTree
	}

	selector := gitsel.New(root, cfg.Exclude, cfg.Selector.FallbackToAll, logger)
	var files []string
	if mode == gitsel.ModeAll {
		selector.Root = target
	}
	files, err = selector.Select(mode, since)
	if err != nil {
		return err
	}

	parseCache, err := cache.New(cache.Config{
		Enabled:   cfg.Cache.Enabled && !noCache,
		Directory: cfg.CacheDirFor(),
		TTL:       cfg.Cache.TTL,
	}, parser.New().Parse, logger)
	if err != nil {
		return err
	}
	defer parseCache.Close()

	ctx := context.Background()
	if cfg.Timeouts.Total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeouts.Total)
		defer cancel()
	}

	eng := engine.New(parseCache, registry, logger)
	result, err := eng.Scan(ctx, target, files, engine.Config{
		Rules:          runCfg,
		Workers:        cfg.Workers,
		PerFileTimeout: cfg.Timeouts.PerFile,
	})
	if err != nil {
		return err
	}

	if err := formatter.Format(result, os.Stdout); err != nil {
		return err
	}

	if len(result.Findings) > 0 && !exitZero {
		return errFindings(result.Findings)
	}
	return nil
}

// errFindings makes the finding count the process exit reason without
// re-printing the report.
func errFindings(findings []models.Finding) error {
	return fmt.Errorf("%d security finding(s)", len(findings))
}
