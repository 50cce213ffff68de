package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

var securityValuePattern = regexp.MustCompile(
	`(?i)(token|secret|password|passwd|key|otp|nonce|salt|session|csrf)`)

// InsecureRandom detects the random module used to generate
// security-sensitive values. random uses Mersenne Twister and is
// predictable; secrets is the right tool.
func InsecureRandom() Descriptor {
	d := Descriptor{
		ID:              "RND001",
		Name:            "Insecure random number generation",
		DefaultSeverity: models.SeverityMedium,
		Description:     "Detects the random module generating security-sensitive values; use secrets instead",
	}
	d.Check = func(tree *parser.Tree, unit *models.SourceUnit) []models.Finding {
		var findings []models.Finding
		parser.Walk(tree.Root, func(n *parser.Node) {
			if n.Kind != parser.KindAssign || n.Name == "" {
				return
			}
			if !securityValuePattern.MatchString(n.Name) {
				return
			}
			call := findRandomCall(n)
			if call == nil {
				return
			}
			findings = append(findings, newFinding(d, unit, call,
				fmt.Sprintf("%s() generates the security-sensitive value %q", call.Name, n.Name),
				"Use the secrets module (secrets.token_hex, secrets.choice) for security-sensitive randomness"))
		})
		return findings
	}
	return d
}

// findRandomCall locates a random.* call in an assignment's value
func findRandomCall(assign *parser.Node) *parser.Node {
	var found *parser.Node
	parser.Walk(assign, func(c *parser.Node) {
		if found == nil && c.Kind == parser.KindCall && strings.HasPrefix(c.Name, "random.") {
			found = c
		}
	})
	return found
}
