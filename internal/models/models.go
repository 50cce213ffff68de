package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Severity represents how dangerous a finding is
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the lowercase name used in config files and reports
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a config string to a Severity
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityLow, fmt.Errorf("invalid severity: %q", s)
	}
}

// AtLeast reports whether s meets the given minimum severity
func (s Severity) AtLeast(min Severity) bool {
	return s >= min
}

// MarshalJSON renders the severity as its string name
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses the string form produced by MarshalJSON
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SourceUnit is an immutable snapshot of one source file.
// Re-reading a changed file produces a new SourceUnit with a new fingerprint.
type SourceUnit struct {
	Path        string
	Text        string
	Fingerprint string // sha256 hex of Text
}

// NewSourceUnit reads a file from disk and fingerprints its content
func NewSourceUnit(path string) (*SourceUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewSourceUnitFromText(path, string(data)), nil
}

// NewSourceUnitFromText builds a SourceUnit from in-memory content
func NewSourceUnitFromText(path, text string) *SourceUnit {
	sum := sha256.Sum256([]byte(text))
	return &SourceUnit{
		Path:        path,
		Text:        text,
		Fingerprint: hex.EncodeToString(sum[:]),
	}
}

// Line returns the 1-based source line, trimmed, or "" if out of range
func (u *SourceUnit) Line(n int) string {
	lines := strings.Split(u.Text, "\n")
	if n < 1 || n > len(lines) {
		return ""
	}
	return strings.TrimSpace(lines[n-1])
}

// Finding is a single reported potential vulnerability instance
type Finding struct {
	RuleID      string   `json:"rule_id"`
	RuleName    string   `json:"rule_name"`
	Severity    Severity `json:"severity"`
	FilePath    string   `json:"file_path"`
	Line        int      `json:"line_number"`
	Column      int      `json:"column"`
	Snippet     string   `json:"code_snippet"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion"`
}

// SortFindings orders findings by file path, then line, then rule id.
// This is the canonical report order regardless of scan concurrency.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.RuleID < b.RuleID
	})
}

// ScanStats carries per-scan counters for reporting
type ScanStats struct {
	FilesScanned int           `json:"files_scanned"`
	Suppressed   int           `json:"suppressed"`
	CacheHits    int           `json:"cache_hits"`
	Errors       []string      `json:"errors,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
	Incomplete   bool          `json:"incomplete"`
}

// ScanResult is the aggregated outcome of one scan invocation
type ScanResult struct {
	Target   string    `json:"target"`
	ScanTime time.Time `json:"scan_time"`
	Findings []Finding `json:"vulnerabilities"`
	Stats    ScanStats `json:"stats"`
}

// Summary returns finding counts keyed by severity name, plus "total"
func (r *ScanResult) Summary() map[string]int {
	summary := map[string]int{
		"total":    len(r.Findings),
		"critical": 0,
		"high":     0,
		"medium":   0,
		"low":      0,
	}
	for _, f := range r.Findings {
		summary[f.Severity.String()]++
	}
	return summary
}

// FixResult is the outcome of one fix attempt; never persisted
type FixResult struct {
	Finding  Finding `json:"finding"`
	Success  bool    `json:"success"`
	Patched  string  `json:"-"`
	DiffText string  `json:"diff_text,omitempty"`
}
