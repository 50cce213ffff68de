package ignore

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FanZDStar/oss-2025/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func parseText(text string) *Context {
	return ParseDirectives(models.NewSourceUnitFromText("test.py", text), testLogger())
}

func TestInlineIgnoreAllRules(t *testing.T) {
	ctx := parseText(`password = "hunter2"  # pysec: ignore
token = "abc"
`)
	assert.True(t, ctx.ShouldIgnore(1, "SEC001"))
	assert.True(t, ctx.ShouldIgnore(1, "SQL001"))
	assert.False(t, ctx.ShouldIgnore(2, "SEC001"))
}

func TestInlineIgnoreSpecificRules(t *testing.T) {
	ctx := parseText(`query = build()  # pysec: ignore[SQL001, CMD001]
`)
	assert.True(t, ctx.ShouldIgnore(1, "SQL001"))
	assert.True(t, ctx.ShouldIgnore(1, "CMD001"))
	assert.False(t, ctx.ShouldIgnore(1, "SEC001"))
}

func TestInlineIgnoreCaseInsensitive(t *testing.T) {
	ctx := parseText(`x = eval(y)  # PySec: Ignore[dng001]
`)
	assert.True(t, ctx.ShouldIgnore(1, "DNG001"))
}

func TestDisableEnableBlock(t *testing.T) {
	ctx := parseText(`a = 1
# pysec: disable
b = eval(x)
c = eval(y)
# pysec: enable
d = eval(z)
`)
	assert.False(t, ctx.ShouldIgnore(1, "DNG001"))
	assert.True(t, ctx.ShouldIgnore(3, "DNG001"))
	assert.True(t, ctx.ShouldIgnore(4, "DNG001"))
	// the directive lines themselves are not suppressed ranges
	assert.False(t, ctx.ShouldIgnore(6, "DNG001"))
}

func TestDisableBlockRuleScoped(t *testing.T) {
	ctx := parseText(`# pysec: disable[SQL001]
a = risky()
# pysec: enable[SQL001]
b = risky()
`)
	assert.True(t, ctx.ShouldIgnore(2, "SQL001"))
	assert.False(t, ctx.ShouldIgnore(2, "CMD001"))
	assert.False(t, ctx.ShouldIgnore(4, "SQL001"))
}

func TestUnclosedDisableRunsToEOF(t *testing.T) {
	ctx := parseText(`a = 1
# pysec: disable
b = eval(x)
c = eval(y)
`)
	assert.True(t, ctx.ShouldIgnore(3, "DNG001"))
	assert.True(t, ctx.ShouldIgnore(4, "DNG001"))
	assert.False(t, ctx.ShouldIgnore(1, "DNG001"))
}

func TestBareEnableClosesScopedBlocks(t *testing.T) {
	ctx := parseText(`# pysec: disable[SQL001]
# pysec: disable[CMD001]
a = risky()
# pysec: enable
b = risky()
`)
	assert.True(t, ctx.ShouldIgnore(3, "SQL001"))
	assert.True(t, ctx.ShouldIgnore(3, "CMD001"))
	assert.False(t, ctx.ShouldIgnore(5, "SQL001"))
	assert.False(t, ctx.ShouldIgnore(5, "CMD001"))
}

func TestFileLevelIgnoreAll(t *testing.T) {
	ctx := parseText(`# pysec: ignore-file
password = "hunter2"
x = eval(y)
`)
	assert.True(t, ctx.ShouldIgnore(2, "SEC001"))
	assert.True(t, ctx.ShouldIgnore(3, "DNG001"))
	assert.True(t, ctx.ShouldIgnore(99, "ANY999"))
}

func TestFileLevelIgnoreSpecific(t *testing.T) {
	ctx := parseText(`# pysec: ignore-file[SEC001]
password = "hunter2"
x = eval(y)
`)
	assert.True(t, ctx.ShouldIgnore(2, "SEC001"))
	assert.False(t, ctx.ShouldIgnore(3, "DNG001"))
}

func TestFilter(t *testing.T) {
	ctx := parseText(`password = "hunter2"  # pysec: ignore[SEC001]
x = eval(y)
`)
	findings := []models.Finding{
		{RuleID: "SEC001", Line: 1},
		{RuleID: "DNG001", Line: 2},
	}
	kept, suppressed := ctx.Filter(findings)
	require.Len(t, kept, 1)
	assert.Equal(t, "DNG001", kept[0].RuleID)
	assert.Equal(t, 1, suppressed)
}

func TestFilterEmpty(t *testing.T) {
	ctx := parseText("x = 1\n")
	kept, suppressed := ctx.Filter(nil)
	assert.Empty(t, kept)
	assert.Zero(t, suppressed)
}

func TestFilterIdempotent(t *testing.T) {
	ctx := parseText(`a = eval(x)  # pysec: ignore
b = eval(y)
`)
	findings := []models.Finding{
		{RuleID: "DNG001", Line: 1},
		{RuleID: "DNG001", Line: 2},
	}
	kept, suppressed := ctx.Filter(findings)
	require.Len(t, kept, 1)
	assert.Equal(t, 1, suppressed)

	again, suppressedAgain := ctx.Filter(kept)
	assert.Equal(t, kept, again)
	assert.Zero(t, suppressedAgain)
}

func TestMalformedDirectiveIsNotSuppression(t *testing.T) {
	ctx := parseText(`x = eval(y)  # pysec: ignroe[DNG001]
`)
	assert.False(t, ctx.ShouldIgnore(1, "DNG001"))
}

func TestRuleIDsNormalizedToUpper(t *testing.T) {
	ctx := parseText(`x = risky()  # pysec: ignore[sql001]
`)
	assert.True(t, ctx.ShouldIgnore(1, "SQL001"))
}
