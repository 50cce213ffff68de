package rules

import (
	"fmt"

	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

type dangerInfo struct {
	severity models.Severity
	detail   string
	fix      string
}

var dangerousCalls = map[string]dangerInfo{
	"eval": {
		models.SeverityCritical,
		"eval() executes arbitrary Python expressions",
		"Avoid eval; use ast.literal_eval to parse literals",
	},
	"exec": {
		models.SeverityCritical,
		"exec() executes arbitrary Python code",
		"Avoid exec; redesign to avoid dynamic code execution",
	},
	"compile": {
		models.SeverityHigh,
		"compile() builds code objects that eval/exec can run",
		"Only compile input from trusted sources",
	},
	"__import__": {
		models.SeverityMedium,
		"__import__() imports modules dynamically",
		"Use importlib.import_module with an allow-list of module names",
	},
	"pickle.loads": {
		models.SeverityCritical,
		"Deserializing untrusted data with pickle can execute code",
		"Use a safe format such as JSON for untrusted data",
	},
	"pickle.load": {
		models.SeverityCritical,
		"Deserializing untrusted data with pickle can execute code",
		"Use a safe format such as JSON for untrusted data",
	},
	"marshal.loads": {
		models.SeverityHigh,
		"marshal deserialization of untrusted data is unsafe",
		"Use a safe format such as JSON for untrusted data",
	},
	"marshal.load": {
		models.SeverityHigh,
		"marshal deserialization of untrusted data is unsafe",
		"Use a safe format such as JSON for untrusted data",
	},
	"yaml.load": {
		models.SeverityMedium,
		"yaml.load without a safe loader can construct arbitrary objects",
		"Use yaml.safe_load",
	},
}

// DangerousFunctions detects calls that can lead to arbitrary code
// execution.
func DangerousFunctions() Descriptor {
	d := Descriptor{
		ID:              "DNG001",
		Name:            "Dangerous function call",
		DefaultSeverity: models.SeverityCritical,
		Description:     "Detects function calls that can lead to arbitrary code execution",
	}
	d.Check = func(tree *parser.Tree, unit *models.SourceUnit) []models.Finding {
		var findings []models.Finding
		parser.Walk(tree.Root, func(n *parser.Node) {
			if n.Kind != parser.KindCall {
				return
			}
			info, ok := dangerousCalls[n.Name]
			if !ok {
				return
			}
			f := newFinding(d, unit, n,
				fmt.Sprintf("Call to %s(): %s", n.Name, info.detail), info.fix)
			f.Severity = info.severity
			findings = append(findings, f)
		})
		return findings
	}
	return d
}
