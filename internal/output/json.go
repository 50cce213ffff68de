package output

import (
	"encoding/json"
	"io"

	"github.com/FanZDStar/oss-2025/internal/models"
)

// JSONFormatter emits the result as indented JSON for machine
// consumers. Findings carry their canonical sort order.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(result *models.ScanResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
