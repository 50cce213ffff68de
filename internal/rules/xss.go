package rules

import (
	"fmt"
	"strings"

	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

// XSS detects web-framework calls that render or mark content as safe
// HTML while the content is built at runtime.
func XSS() Descriptor {
	d := Descriptor{
		ID:              "XSS001",
		Name:            "Cross-site scripting risk",
		DefaultSeverity: models.SeverityMedium,
		Description:     "Detects template rendering and HTML responses built from unescaped dynamic content",
	}
	d.Check = func(tree *parser.Tree, unit *models.SourceUnit) []models.Finding {
		var findings []models.Finding
		parser.Walk(tree.Root, func(n *parser.Node) {
			if n.Kind != parser.KindCall {
				return
			}
			base := n.Name
			if i := strings.LastIndex(base, "."); i >= 0 {
				base = base[i+1:]
			}
			switch base {
			case "render_template_string":
				if hasDynamicArg(n) {
					f := newFinding(d, unit, n,
						"render_template_string() renders a template containing dynamic content",
						"Use render_template with a static template file; never interpolate user input into template source")
					f.Severity = models.SeverityHigh
					findings = append(findings, f)
				}
			case "Markup":
				if hasDynamicArg(n) {
					f := newFinding(d, unit, n,
						"Markup() marks dynamic content as safe HTML",
						"Escape user input with markupsafe.escape before rendering")
					f.Severity = models.SeverityHigh
					findings = append(findings, f)
				}
			case "HttpResponse", "make_response", "Response":
				if hasInterpolatedArg(n) {
					findings = append(findings, newFinding(d, unit, n,
						fmt.Sprintf("%s() body is built from interpolated content", base),
						"Render through a template engine with auto-escaping enabled"))
				}
			}
		})
		return findings
	}
	return d
}

// hasInterpolatedArg reports whether any positional argument is an
// f-string with interpolations or a string concatenation.
func hasInterpolatedArg(call *parser.Node) bool {
	for _, arg := range positionalArgs(call) {
		if arg.Kind == parser.KindFString && arg.HasInterpolation {
			return true
		}
		if arg.Kind == parser.KindBinaryOp && arg.Operator == "+" {
			return true
		}
	}
	return false
}
