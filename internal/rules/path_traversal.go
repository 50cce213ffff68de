package rules

import (
	"fmt"

	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

var fileOpenFunctions = map[string]bool{
	"open":        true,
	"io.open":     true,
	"os.open":     true,
	"codecs.open": true,
}

// PathTraversal detects file operations whose path argument is built
// at runtime and may therefore escape the intended directory.
func PathTraversal() Descriptor {
	d := Descriptor{
		ID:              "PTH001",
		Name:            "Path traversal risk",
		DefaultSeverity: models.SeverityMedium,
		Description:     "Detects file operations on dynamically constructed paths",
	}
	d.Check = func(tree *parser.Tree, unit *models.SourceUnit) []models.Finding {
		var findings []models.Finding
		parser.Walk(tree.Root, func(n *parser.Node) {
			if n.Kind != parser.KindCall {
				return
			}
			switch {
			case fileOpenFunctions[n.Name]:
				args := positionalArgs(n)
				if len(args) > 0 && isDynamic(args[0]) {
					findings = append(findings, newFinding(d, unit, n,
						fmt.Sprintf("Path argument of %s() may come from user input", n.Name),
						"Normalize the path and verify it stays inside the allowed directory "+
							"(os.path.realpath plus a prefix check)"))
				}
			case n.Name == "os.path.join":
				if hasDynamicArg(n) {
					findings = append(findings, newFinding(d, unit, n,
						"os.path.join() argument may come from user input; '../' components escape the base directory",
						"Reject path separators and '..' in user-supplied components"))
				}
			}
		})
		return findings
	}
	return d
}
