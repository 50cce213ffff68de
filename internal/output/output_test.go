package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FanZDStar/oss-2025/internal/models"
)

func sampleResult() *models.ScanResult {
	return &models.ScanResult{
		Target:   "/repo",
		ScanTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Findings: []models.Finding{
			{
				RuleID:      "SEC001",
				RuleName:    "Hardcoded sensitive data",
				Severity:    models.SeverityHigh,
				FilePath:    "/repo/app.py",
				Line:        3,
				Snippet:     `password = "hunter2"`,
				Description: `Variable "password" is assigned a hardcoded credential`,
				Suggestion:  "Load the value from the environment",
			},
			{
				RuleID:      "CMD001",
				RuleName:    "Command injection risk",
				Severity:    models.SeverityCritical,
				FilePath:    "/repo/run.py",
				Line:        8,
				Description: "Call to os.system() executes a shell command",
			},
		},
		Stats: models.ScanStats{
			FilesScanned: 2,
			Suppressed:   1,
			CacheHits:    1,
			Duration:     120 * time.Millisecond,
		},
	}
}

func TestNewFormatter(t *testing.T) {
	for _, name := range []string{"", "text", "json", "markdown", "md"} {
		f, err := NewFormatter(name)
		require.NoError(t, err, "format %q", name)
		require.NotNil(t, f)
	}
	_, err := NewFormatter("xml")
	assert.Error(t, err)
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextFormatter{}).Format(sampleResult(), &buf))

	out := buf.String()
	assert.Contains(t, out, "/repo/app.py")
	assert.Contains(t, out, "SEC001:3 [HIGH]")
	assert.Contains(t, out, `password = "hunter2"`)
	assert.Contains(t, out, "2 finding(s): 1 critical, 1 high, 0 medium, 0 low")
	assert.Contains(t, out, "2 file(s) scanned, 1 suppressed, 1 cache hit(s)")
	assert.NotContains(t, out, "WARNING")
}

func TestTextFormatEmpty(t *testing.T) {
	var buf bytes.Buffer
	result := &models.ScanResult{Target: "/repo"}
	require.NoError(t, (&TextFormatter{}).Format(result, &buf))
	assert.Contains(t, buf.String(), "No issues found.")
}

func TestTextFormatIncomplete(t *testing.T) {
	var buf bytes.Buffer
	result := sampleResult()
	result.Stats.Incomplete = true
	result.Stats.Errors = []string{"[TIMEOUT] scan deadline exceeded"}
	require.NoError(t, (&TextFormatter{}).Format(result, &buf))

	out := buf.String()
	assert.Contains(t, out, "WARNING: scan was interrupted")
	assert.Contains(t, out, "scan deadline exceeded")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(sampleResult(), &buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "/repo", decoded["target"])

	vulns, ok := decoded["vulnerabilities"].([]any)
	require.True(t, ok)
	require.Len(t, vulns, 2)
	first := vulns[0].(map[string]any)
	assert.Equal(t, "SEC001", first["rule_id"])
	assert.Equal(t, "high", first["severity"])
	assert.Equal(t, float64(3), first["line_number"])
}

func TestMarkdownFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownFormatter{}).Format(sampleResult(), &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Security Scan Report"))
	assert.Contains(t, out, "| critical | 1 |")
	assert.Contains(t, out, "| `/repo/app.py` | 3 | SEC001 | high |")
	assert.NotContains(t, out, "Diagnostics")
}
