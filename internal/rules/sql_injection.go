package rules

import (
	"regexp"
	"strings"

	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

var sqlKeywordPattern = regexp.MustCompile(
	`\b(SELECT|INSERT|UPDATE|DELETE|DROP|UNION|WHERE|FROM|JOIN|EXEC|EXECUTE)\b`)

func containsSQL(text string) bool {
	if text == "" {
		return false
	}
	return sqlKeywordPattern.MatchString(strings.ToUpper(text))
}

const sqlSuggestion = "Use parameterized queries (cursor.execute(sql, params)) " +
	"or an ORM instead of building SQL from strings"

// SQLInjection detects SQL statements assembled from strings: "+"
// concatenation, "%" formatting, f-string interpolation, and
// str.format calls on SQL-keyword literals.
func SQLInjection() Descriptor {
	d := Descriptor{
		ID:              "SQL001",
		Name:            "SQL injection risk",
		DefaultSeverity: models.SeverityHigh,
		Description:     "Detects SQL statements built by string construction instead of parameterized queries",
	}
	d.Check = func(tree *parser.Tree, unit *models.SourceUnit) []models.Finding {
		var findings []models.Finding
		// nested "+" operands are visited with inConcat set so a
		// multi-part concatenation reports once, at its outermost node
		var visit func(n *parser.Node, inConcat bool)
		visit = func(n *parser.Node, inConcat bool) {
			childConcat := false
			switch {
			case n.Kind == parser.KindBinaryOp && n.Operator == "+":
				if !inConcat && concatHasSQL(n) {
					findings = append(findings, newFinding(d, unit, n,
						"SQL statement built with string concatenation", sqlSuggestion))
				}
				childConcat = true
			case n.Kind == parser.KindBinaryOp && n.Operator == "%" && leftIsSQLString(n):
				findings = append(findings, newFinding(d, unit, n,
					"SQL statement built with % string formatting", sqlSuggestion))
			case n.Kind == parser.KindFString && n.HasInterpolation && containsSQL(n.Value):
				findings = append(findings, newFinding(d, unit, n,
					"SQL statement built with f-string interpolation", sqlSuggestion))
			case n.Kind == parser.KindCall && strings.HasSuffix(n.Name, ".format") && containsSQL(n.Name):
				findings = append(findings, newFinding(d, unit, n,
					"SQL statement built with str.format", sqlSuggestion))
			}
			for _, child := range n.Children {
				visit(child, childConcat)
			}
		}
		visit(tree.Root, false)
		return findings
	}
	return d
}

// concatHasSQL reports whether a "+" chain contains a SQL-keyword
// string literal anywhere among its operands.
func concatHasSQL(n *parser.Node) bool {
	for _, child := range n.Children {
		switch child.Kind {
		case parser.KindString:
			if containsSQL(child.Value) {
				return true
			}
		case parser.KindBinaryOp:
			if child.Operator == "+" && concatHasSQL(child) {
				return true
			}
		}
	}
	return false
}

// leftIsSQLString checks the format-string operand of a "%" expression
func leftIsSQLString(n *parser.Node) bool {
	if len(n.Children) == 0 {
		return false
	}
	left := n.Children[0]
	return left.Kind == parser.KindString && containsSQL(left.Value)
}
