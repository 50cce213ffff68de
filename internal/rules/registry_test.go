package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FanZDStar/oss-2025/internal/errors"
	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

func stubRule(id string, severity models.Severity, findings ...models.Finding) Descriptor {
	return Descriptor{
		ID:              id,
		Name:            id,
		DefaultSeverity: severity,
		Check: func(tree *parser.Tree, unit *models.SourceUnit) []models.Finding {
			out := make([]models.Finding, len(findings))
			copy(out, findings)
			return out
		},
	}
}

func emptyTree() *parser.Tree {
	return &parser.Tree{Root: &parser.Node{Kind: parser.KindModule}}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		stubRule("AAA001", models.SeverityLow),
		stubRule("AAA001", models.SeverityHigh),
	)
	require.Error(t, err)
	assert.Equal(t, errors.KindConfig, errors.GetKind(err))
}

func TestNewRegistryRejectsEmptyID(t *testing.T) {
	_, err := NewRegistry(stubRule("", models.SeverityLow))
	require.Error(t, err)
}

func TestNewRegistryRejectsNilCheck(t *testing.T) {
	_, err := NewRegistry(Descriptor{ID: "AAA001", Name: "a"})
	require.Error(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	r, err := DefaultRegistry()
	require.NoError(t, err)
	assert.Equal(t, 8, r.Len())

	for _, id := range []string{
		"SQL001", "CMD001", "SEC001", "DNG001",
		"PTH001", "XSS001", "RND001", "HSH001",
	} {
		_, ok := r.Get(id)
		assert.True(t, ok, "missing rule %s", id)
	}
}

func TestEffectiveAllowList(t *testing.T) {
	r, err := NewRegistry(
		stubRule("AAA001", models.SeverityLow),
		stubRule("BBB001", models.SeverityLow),
		stubRule("CCC001", models.SeverityLow),
	)
	require.NoError(t, err)

	effective := r.Effective(RunConfig{Enabled: []string{"CCC001", "AAA001"}})
	require.Len(t, effective, 2)
	// execution order is by rule id, not by config order
	assert.Equal(t, "AAA001", effective[0].ID)
	assert.Equal(t, "CCC001", effective[1].ID)

	// the allow-list wins over the deny-list
	effective = r.Effective(RunConfig{Enabled: []string{"BBB001"}, Disabled: []string{"BBB001"}})
	require.Len(t, effective, 1)
	assert.Equal(t, "BBB001", effective[0].ID)
}

func TestEffectiveDenyList(t *testing.T) {
	r, err := NewRegistry(
		stubRule("AAA001", models.SeverityLow),
		stubRule("BBB001", models.SeverityLow),
	)
	require.NoError(t, err)

	effective := r.Effective(RunConfig{Disabled: []string{"AAA001"}})
	require.Len(t, effective, 1)
	assert.Equal(t, "BBB001", effective[0].ID)
}

func TestValidateRejectsUnknownOverride(t *testing.T) {
	r, err := NewRegistry(stubRule("AAA001", models.SeverityLow))
	require.NoError(t, err)

	err = r.Validate(RunConfig{SeverityOverrides: map[string]models.Severity{
		"ZZZ999": models.SeverityHigh,
	}})
	require.Error(t, err)
	assert.Equal(t, errors.KindConfig, errors.GetKind(err))
}

func TestRunAppliesOverrideThenMinSeverity(t *testing.T) {
	r, err := NewRegistry(
		stubRule("AAA001", models.SeverityLow,
			models.Finding{RuleID: "AAA001", Severity: models.SeverityLow}),
		stubRule("BBB001", models.SeverityLow,
			models.Finding{RuleID: "BBB001", Severity: models.SeverityLow}),
	)
	require.NoError(t, err)

	unit := models.NewSourceUnitFromText("a.py", "")
	findings, diags := r.Run(emptyTree(), unit, RunConfig{
		MinSeverity: models.SeverityHigh,
		SeverityOverrides: map[string]models.Severity{
			"AAA001": models.SeverityCritical,
		},
	})
	assert.Empty(t, diags)
	// AAA001 is lifted above the floor by its override; BBB001 is dropped
	require.Len(t, findings, 1)
	assert.Equal(t, "AAA001", findings[0].RuleID)
	assert.Equal(t, models.SeverityCritical, findings[0].Severity)
}

func TestRunIsolatesPanickingRule(t *testing.T) {
	panicking := Descriptor{
		ID:   "BAD001",
		Name: "panics",
		Check: func(tree *parser.Tree, unit *models.SourceUnit) []models.Finding {
			panic("rule bug")
		},
	}
	r, err := NewRegistry(
		panicking,
		stubRule("GOOD01", models.SeverityHigh,
			models.Finding{RuleID: "GOOD01", Severity: models.SeverityHigh}),
	)
	require.NoError(t, err)

	unit := models.NewSourceUnitFromText("a.py", "")
	findings, diags := r.Run(emptyTree(), unit, RunConfig{})

	require.Len(t, findings, 1)
	assert.Equal(t, "GOOD01", findings[0].RuleID)
	require.Len(t, diags, 1)
	assert.Equal(t, errors.KindRuleExecution, errors.GetKind(diags[0]))
	assert.Contains(t, diags[0].Error(), "BAD001")
}
