package rules

import (
	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

// CheckFunc inspects a parsed tree and reports findings. Checks must
// be pure functions of (tree, unit): no clock, no randomness, no
// traversal order beyond the tree's own node order.
type CheckFunc func(tree *parser.Tree, unit *models.SourceUnit) []models.Finding

// Descriptor is the static description of one detection rule.
// Descriptors are plain values collected by the registry builder at
// startup; rules do not self-register.
type Descriptor struct {
	ID              string
	Name            string
	DefaultSeverity models.Severity
	Description     string
	Check           CheckFunc
}

// newFinding builds a Finding with the rule's default severity and the
// source line at the node as the snippet. Rules that grade individual
// findings differently set Severity afterwards.
func newFinding(d Descriptor, unit *models.SourceUnit, n *parser.Node, description, suggestion string) models.Finding {
	return models.Finding{
		RuleID:      d.ID,
		RuleName:    d.Name,
		Severity:    d.DefaultSeverity,
		FilePath:    unit.Path,
		Line:        n.Line,
		Column:      n.Column,
		Snippet:     unit.Line(n.Line),
		Description: description,
		Suggestion:  suggestion,
	}
}
