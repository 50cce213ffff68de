// Package output renders scan results for terminals, CI logs and
// machine consumers.
package output

import (
	"fmt"
	"io"

	"github.com/FanZDStar/oss-2025/internal/models"
)

// Formatter renders one scan result to a writer.
type Formatter interface {
	Format(result *models.ScanResult, w io.Writer) error
}

// NewFormatter returns the formatter for a format name.
func NewFormatter(format string) (Formatter, error) {
	switch format {
	case "", "text":
		return &TextFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	case "markdown", "md":
		return &MarkdownFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %q", format)
	}
}
