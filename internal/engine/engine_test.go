package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FanZDStar/oss-2025/internal/cache"
	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
	"github.com/FanZDStar/oss-2025/internal/rules"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newEngine(t *testing.T, cacheCfg cache.Config) *Engine {
	t.Helper()
	c, err := cache.New(cacheCfg, parser.New().Parse, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	registry, err := rules.DefaultRegistry()
	require.NoError(t, err)
	return New(c, registry, testLogger())
}

func TestScanFindsIssues(t *testing.T) {
	dir := t.TempDir()
	vuln := writeFile(t, dir, "vuln.py", `import os
password = "hunter2"
os.system("ping " + host)
`)
	clean := writeFile(t, dir, "clean.py", "x = 1\n")

	e := newEngine(t, cache.Config{Enabled: true})
	result, err := e.Scan(context.Background(), dir, []string{vuln, clean}, Config{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.FilesScanned)
	require.Len(t, result.Findings, 2)
	assert.Equal(t, "SEC001", result.Findings[0].RuleID)
	assert.Equal(t, "CMD001", result.Findings[1].RuleID)
	assert.Empty(t, result.Stats.Errors)
	assert.False(t, result.Stats.Incomplete)
}

func TestScanDeterministicAcrossWorkerCounts(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	sources := []string{
		"import os\nos.system(cmd)\n",
		"password = \"hunter2\"\n",
		"x = eval(data)\ny = eval(more)\n",
		"clean = 1\n",
		"import hashlib\nh = hashlib.md5(b)\n",
		"def broken(:\n",
		"def also_broken(:\n",
	}
	for i, src := range sources {
		paths = append(paths, writeFile(t, dir, filepath.Base(dir)+string(rune('a'+i))+".py", src))
	}

	e := newEngine(t, cache.Config{Enabled: false})

	baseline, err := e.Scan(context.Background(), dir, paths, Config{Workers: 1})
	require.NoError(t, err)

	for _, workers := range []int{2, 4, 8} {
		result, err := e.Scan(context.Background(), dir, paths, Config{Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, baseline.Findings, result.Findings, "workers=%d", workers)
		assert.Equal(t, baseline.Stats.Errors, result.Stats.Errors, "workers=%d", workers)
	}
}

func TestScanPerFileTimeoutDiscardsSlowFile(t *testing.T) {
	dir := t.TempDir()
	slow := writeFile(t, dir, "slow.py", "# heavy\npassword = \"hunter2\"\n")
	fast := writeFile(t, dir, "fast.py", "token = \"abc123xyz\"\n")

	realParse := parser.New().Parse
	slowParse := func(text string) (*parser.Tree, error) {
		if strings.HasPrefix(text, "# heavy") {
			time.Sleep(500 * time.Millisecond)
		}
		return realParse(text)
	}
	c, err := cache.New(cache.Config{Enabled: false}, slowParse, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	registry, err := rules.DefaultRegistry()
	require.NoError(t, err)
	e := New(c, registry, testLogger())

	result, err := e.Scan(context.Background(), dir, []string{slow, fast},
		Config{PerFileTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	// the slow file contributes nothing, not partial results
	require.Len(t, result.Findings, 1)
	assert.Equal(t, fast, result.Findings[0].FilePath)
	require.Len(t, result.Stats.Errors, 1)
	assert.Contains(t, result.Stats.Errors[0], "slow.py")
	assert.Contains(t, result.Stats.Errors[0], "[TIMEOUT]")
	assert.False(t, result.Stats.Incomplete)
}

func TestScanRecordsParseErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.py", "def broken(:\n")
	good := writeFile(t, dir, "good.py", "password = \"hunter2\"\n")

	e := newEngine(t, cache.Config{Enabled: true})
	result, err := e.Scan(context.Background(), dir, []string{bad, good}, Config{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.FilesScanned)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "SEC001", result.Findings[0].RuleID)
	require.Len(t, result.Stats.Errors, 1)
	assert.Contains(t, result.Stats.Errors[0], "bad.py")
}

func TestScanMissingFileIsDiagnostic(t *testing.T) {
	dir := t.TempDir()
	e := newEngine(t, cache.Config{Enabled: true})

	result, err := e.Scan(context.Background(), dir,
		[]string{filepath.Join(dir, "gone.py")}, Config{})
	require.NoError(t, err)
	assert.Len(t, result.Stats.Errors, 1)
	assert.Empty(t, result.Findings)
}

func TestScanAppliesSuppression(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "suppressed.py", `password = "hunter2"  # pysec: ignore[SEC001]
token = "abcdef123456"
`)

	e := newEngine(t, cache.Config{Enabled: true})
	result, err := e.Scan(context.Background(), dir, []string{path}, Config{})
	require.NoError(t, err)

	require.Len(t, result.Findings, 1)
	assert.Equal(t, 2, result.Findings[0].Line)
	assert.Equal(t, 1, result.Stats.Suppressed)
}

func TestScanCountsCacheHits(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.py", "x = 1\n")

	e := newEngine(t, cache.Config{Enabled: true})

	first, err := e.Scan(context.Background(), dir, []string{path}, Config{})
	require.NoError(t, err)
	assert.Equal(t, 0, first.Stats.CacheHits)

	second, err := e.Scan(context.Background(), dir, []string{path}, Config{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Stats.CacheHits)
}

func TestScanCancelledContextIsIncomplete(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 20; i++ {
		paths = append(paths, writeFile(t, dir, filepath.Base(dir)+string(rune('a'+i))+".py", "x = 1\n"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newEngine(t, cache.Config{Enabled: false})
	result, err := e.Scan(ctx, dir, paths, Config{Workers: 2})
	require.NoError(t, err)

	assert.True(t, result.Stats.Incomplete)
	assert.Less(t, result.Stats.FilesScanned, len(paths))
}

func TestScanRejectsBadRuleConfig(t *testing.T) {
	e := newEngine(t, cache.Config{Enabled: false})
	_, err := e.Scan(context.Background(), ".", nil, Config{
		Rules: rules.RunConfig{
			SeverityOverrides: map[string]models.Severity{"NOPE99": models.SeverityHigh},
		},
	})
	require.Error(t, err)
}

func TestScanEmptyFileSet(t *testing.T) {
	e := newEngine(t, cache.Config{Enabled: false})
	result, err := e.Scan(context.Background(), ".", nil, Config{})
	require.NoError(t, err)
	assert.Zero(t, result.Stats.FilesScanned)
	assert.Empty(t, result.Findings)
	assert.False(t, result.Stats.Incomplete)
	assert.GreaterOrEqual(t, result.Stats.Duration, time.Duration(0))
}
