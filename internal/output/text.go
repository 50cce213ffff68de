package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/FanZDStar/oss-2025/internal/models"
)

// TextFormatter is the default human-readable terminal report.
type TextFormatter struct{}

func (f *TextFormatter) Format(result *models.ScanResult, w io.Writer) error {
	fmt.Fprintf(w, "Scan of %s\n", result.Target)
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 60))

	if len(result.Findings) == 0 {
		fmt.Fprintln(w, "No issues found.")
	}

	currentFile := ""
	for _, finding := range result.Findings {
		if finding.FilePath != currentFile {
			if currentFile != "" {
				fmt.Fprintln(w)
			}
			currentFile = finding.FilePath
			fmt.Fprintf(w, "%s\n", currentFile)
		}
		fmt.Fprintf(w, "  %s:%d [%s] %s: %s\n",
			finding.RuleID, finding.Line,
			strings.ToUpper(finding.Severity.String()),
			finding.RuleName, finding.Description)
		if finding.Snippet != "" {
			fmt.Fprintf(w, "      > %s\n", finding.Snippet)
		}
		if finding.Suggestion != "" {
			fmt.Fprintf(w, "      fix: %s\n", finding.Suggestion)
		}
	}

	summary := result.Summary()
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("-", 60))
	fmt.Fprintf(w, "%d finding(s): %d critical, %d high, %d medium, %d low\n",
		summary["total"], summary["critical"], summary["high"],
		summary["medium"], summary["low"])
	fmt.Fprintf(w, "%d file(s) scanned, %d suppressed, %d cache hit(s), %s\n",
		result.Stats.FilesScanned, result.Stats.Suppressed,
		result.Stats.CacheHits, result.Stats.Duration.Round(time.Millisecond))

	if result.Stats.Incomplete {
		fmt.Fprintln(w, "WARNING: scan was interrupted before all files were processed")
	}
	for _, e := range result.Stats.Errors {
		fmt.Fprintf(w, "warning: %s\n", e)
	}
	return nil
}
