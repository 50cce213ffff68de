package output

import (
	"fmt"
	"io"

	"github.com/FanZDStar/oss-2025/internal/models"
)

// MarkdownFormatter renders a report suitable for pull request
// comments and CI job summaries.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(result *models.ScanResult, w io.Writer) error {
	fmt.Fprintf(w, "# Security Scan Report\n\n")
	fmt.Fprintf(w, "**Target:** `%s`  \n", result.Target)
	fmt.Fprintf(w, "**Scanned:** %s  \n", result.ScanTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "**Files:** %d  \n\n", result.Stats.FilesScanned)

	summary := result.Summary()
	fmt.Fprintf(w, "| Severity | Count |\n|---|---|\n")
	for _, name := range []string{"critical", "high", "medium", "low"} {
		fmt.Fprintf(w, "| %s | %d |\n", name, summary[name])
	}
	fmt.Fprintf(w, "| **total** | **%d** |\n\n", summary["total"])

	if len(result.Findings) > 0 {
		fmt.Fprintf(w, "## Findings\n\n")
		fmt.Fprintf(w, "| File | Line | Rule | Severity | Description |\n|---|---|---|---|---|\n")
		for _, finding := range result.Findings {
			fmt.Fprintf(w, "| `%s` | %d | %s | %s | %s |\n",
				finding.FilePath, finding.Line, finding.RuleID,
				finding.Severity, finding.Description)
		}
		fmt.Fprintln(w)
	}

	if result.Stats.Incomplete {
		fmt.Fprintf(w, "> **Warning:** the scan was interrupted before all files were processed.\n\n")
	}
	if len(result.Stats.Errors) > 0 {
		fmt.Fprintf(w, "## Diagnostics\n\n")
		for _, e := range result.Stats.Errors {
			fmt.Fprintf(w, "- %s\n", e)
		}
	}
	return nil
}
