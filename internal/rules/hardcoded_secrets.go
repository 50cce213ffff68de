package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

var sensitiveNamePattern = regexp.MustCompile(
	`(?i)(password|passwd|pwd|secret|token|api_?key|apikey|access_?key|auth_?key|credential|private_?key|secret_?key|encryption_?key|signing_?key|jwt_?secret|session_?key|db_?password)`)

// values that look like placeholders rather than real credentials
var placeholderValues = map[string]bool{
	"":              true,
	"xxx":           true,
	"xxxx":          true,
	"changeme":      true,
	"your_password": true,
	"your_secret":   true,
	"your_token":    true,
	"your_api_key":  true,
	"placeholder":   true,
	"example":       true,
	"test":          true,
	"demo":          true,
	"sample":        true,
	"none":          true,
	"null":          true,
	"n/a":           true,
	"na":            true,
	"undefined":     true,
	"todo":          true,
	"fixme":         true,
}

// HardcodedSecrets detects credential-looking variables assigned
// string literals.
func HardcodedSecrets() Descriptor {
	d := Descriptor{
		ID:              "SEC001",
		Name:            "Hardcoded sensitive data",
		DefaultSeverity: models.SeverityHigh,
		Description:     "Detects passwords, keys and tokens hardcoded as string literals",
	}
	d.Check = func(tree *parser.Tree, unit *models.SourceUnit) []models.Finding {
		var findings []models.Finding
		parser.Walk(tree.Root, func(n *parser.Node) {
			if n.Kind != parser.KindAssign || n.Name == "" {
				return
			}
			if !sensitiveNamePattern.MatchString(n.Name) {
				return
			}
			value := assignedString(n)
			if value == nil {
				return
			}
			if placeholderValues[strings.ToLower(value.Value)] {
				return
			}
			findings = append(findings, newFinding(d, unit, n,
				fmt.Sprintf("Variable %q is assigned a hardcoded credential", n.Name),
				"Load the value from the environment or a secret manager instead of source code"))
		})
		return findings
	}
	return d
}

// assignedString returns the right-hand side when it is a plain string
// literal. Interpolated strings are not credentials-by-literal.
func assignedString(assign *parser.Node) *parser.Node {
	if len(assign.Children) == 0 {
		return nil
	}
	right := assign.Children[len(assign.Children)-1]
	if right.Kind == parser.KindString {
		return right
	}
	return nil
}
