package rules

import (
	"fmt"
	"strings"

	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

var weakHashCalls = map[string]string{
	"hashlib.md5":  "MD5",
	"hashlib.sha1": "SHA-1",
}

// InsecureHash detects use of broken hash algorithms. MD5 and SHA-1
// are collision-prone and must not protect passwords or signatures.
func InsecureHash() Descriptor {
	d := Descriptor{
		ID:              "HSH001",
		Name:            "Insecure hash algorithm",
		DefaultSeverity: models.SeverityMedium,
		Description:     "Detects MD5 and SHA-1 usage; both are cryptographically broken",
	}
	d.Check = func(tree *parser.Tree, unit *models.SourceUnit) []models.Finding {
		var findings []models.Finding
		parser.Walk(tree.Root, func(n *parser.Node) {
			if n.Kind != parser.KindCall {
				return
			}
			if algo, ok := weakHashCalls[n.Name]; ok {
				findings = append(findings, newFinding(d, unit, n,
					fmt.Sprintf("%s() uses the broken %s algorithm", n.Name, algo),
					"Use hashlib.sha256 or stronger; for passwords use bcrypt or argon2"))
				return
			}
			if n.Name != "hashlib.new" {
				return
			}
			if name := firstString(n); name != nil {
				switch strings.ToLower(name.Value) {
				case "md5", "sha1":
					findings = append(findings, newFinding(d, unit, n,
						fmt.Sprintf("hashlib.new(%q) selects a broken algorithm", name.Value),
						"Use hashlib.sha256 or stronger; for passwords use bcrypt or argon2"))
				}
			}
		})
		return findings
	}
	return d
}
