package rules

import (
	"fmt"
	"strings"

	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

// shell-executing functions and the severity of calling them at all
var commandFunctions = map[string]models.Severity{
	"os.system":                models.SeverityCritical,
	"os.popen":                 models.SeverityCritical,
	"commands.getoutput":       models.SeverityCritical,
	"commands.getstatusoutput": models.SeverityCritical,
}

var commandPrefixes = []string{"os.exec", "os.spawn"}

// CommandInjection detects shell command execution: os.system-style
// calls, os.exec*/os.spawn* families, and subprocess calls with
// shell=True.
func CommandInjection() Descriptor {
	d := Descriptor{
		ID:              "CMD001",
		Name:            "Command injection risk",
		DefaultSeverity: models.SeverityCritical,
		Description:     "Detects calls that execute shell commands and can lead to command injection",
	}
	d.Check = func(tree *parser.Tree, unit *models.SourceUnit) []models.Finding {
		var findings []models.Finding
		parser.Walk(tree.Root, func(n *parser.Node) {
			if n.Kind != parser.KindCall {
				return
			}

			if sev, ok := commandFunctions[n.Name]; ok {
				f := newFinding(d, unit, n,
					fmt.Sprintf("Call to %s() executes a shell command", n.Name),
					"Use subprocess.run with an argument list and shell=False")
				f.Severity = sev
				findings = append(findings, f)
				return
			}

			for _, prefix := range commandPrefixes {
				if strings.HasPrefix(n.Name, prefix) {
					f := newFinding(d, unit, n,
						fmt.Sprintf("Call to %s() replaces or spawns a process", n.Name),
						"Use subprocess.run with an argument list; validate the executable path")
					f.Severity = models.SeverityHigh
					findings = append(findings, f)
					return
				}
			}

			if strings.HasPrefix(n.Name, "subprocess.") && hasShellTrue(n) {
				findings = append(findings, newFinding(d, unit, n,
					fmt.Sprintf("Call to %s() with shell=True", n.Name),
					"Pass the command as an argument list and drop shell=True"))
			}
		})
		return findings
	}
	return d
}

// hasShellTrue detects a shell=True keyword argument
func hasShellTrue(call *parser.Node) bool {
	kw := keywordArg(call, "shell")
	if kw == nil || len(kw.Children) == 0 {
		return false
	}
	value := kw.Children[len(kw.Children)-1]
	return value.Kind == parser.KindConstant && value.Value == "True"
}
