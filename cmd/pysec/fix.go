package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FanZDStar/oss-2025/internal/cache"
	"github.com/FanZDStar/oss-2025/internal/engine"
	"github.com/FanZDStar/oss-2025/internal/fixer"
	"github.com/FanZDStar/oss-2025/internal/gitsel"
	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
	"github.com/FanZDStar/oss-2025/internal/rules"
)

var fixCmd = &cobra.Command{
	Use:   "fix [path]",
	Short: "Rewrite fixable findings in place",
	Long: `Scans the target and rewrites findings that have a safe automatic
fix (currently hardcoded credentials). Findings without an automatic
fix get a manual-fix example instead. Use --dry-run to preview diffs
without touching any file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().Bool("dry-run", false, "show diffs without writing files")
	fixCmd.Flags().String("rule", "", "fix only findings of this rule id")
}

func runFix(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	onlyRule, _ := cmd.Flags().GetString("rule")

	registry, err := rules.DefaultRegistry()
	if err != nil {
		return err
	}
	runCfg, err := cfg.RuleRunConfig()
	if err != nil {
		return err
	}
	if onlyRule != "" {
		runCfg.Enabled = []string{onlyRule}
	}

	selector := gitsel.New(target, cfg.Exclude, true, logger)
	files, err := selector.Select(gitsel.ModeAll, "")
	if err != nil {
		return err
	}

	// fixing always re-reads files, so skip persistence
	parseCache, err := cache.New(cache.Config{Enabled: false}, parser.New().Parse, logger)
	if err != nil {
		return err
	}
	defer parseCache.Close()

	eng := engine.New(parseCache, registry, logger)
	result, err := eng.Scan(context.Background(), target, files, engine.Config{
		Rules:          runCfg,
		Workers:        cfg.Workers,
		PerFileTimeout: cfg.Timeouts.PerFile,
	})
	if err != nil {
		return err
	}

	if len(result.Findings) == 0 {
		fmt.Println("Nothing to fix.")
		return nil
	}

	byFile := map[string][]models.Finding{}
	var order []string
	for _, f := range result.Findings {
		if _, seen := byFile[f.FilePath]; !seen {
			order = append(order, f.FilePath)
		}
		byFile[f.FilePath] = append(byFile[f.FilePath], f)
	}

	fx := fixer.New(logger)
	fixed, manual := 0, 0
	for _, path := range order {
		results, err := fx.FixFile(path, byFile[path], dryRun)
		if err != nil {
			logger.WithError(err).WithField("file", path).Warn("Fix failed")
			continue
		}
		for _, res := range results {
			if res.Success {
				fixed++
				fmt.Printf("%s:%d %s fixed\n", path, res.Finding.Line, res.Finding.RuleID)
				if dryRun && res.DiffText != "" {
					fmt.Println(res.DiffText)
				}
				continue
			}
			manual++
			fmt.Printf("%s:%d %s requires a manual fix\n", path, res.Finding.Line, res.Finding.RuleID)
			if example := fx.Example(res.Finding.RuleID); example != "" {
				fmt.Println(indent(example, "    "))
			}
		}
	}

	verb := "applied"
	if dryRun {
		verb = "previewed"
	}
	fmt.Printf("\n%d fix(es) %s, %d finding(s) need manual attention\n", fixed, verb, manual)
	return nil
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
