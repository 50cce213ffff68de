package fixer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FanZDStar/oss-2025/internal/models"
)

// assignmentPattern captures indent, variable, spacing, operator and
// trailing text of a simple `NAME = "literal"` line. Annotated
// assignments (`NAME: str = ...`) are out of scope: rewriting them
// would drop the annotation.
var assignmentPattern = regexp.MustCompile(`^(\s*)(\w+)(\s*)(=)(\s*)(?:"[^"]*"|'[^']*')(.*)$`)

// HardcodedSecretFix rewrites a hardcoded credential assignment into
// an environment lookup and adds the os import when missing.
type HardcodedSecretFix struct{}

func (HardcodedSecretFix) RuleID() string { return "SEC001" }

func (HardcodedSecretFix) CanFix(f models.Finding, source string) bool {
	line := lineAt(source, f.Line)
	return assignmentPattern.MatchString(line)
}

func (HardcodedSecretFix) Apply(f models.Finding, source string) (string, error) {
	lines := strings.Split(source, "\n")
	if f.Line < 1 || f.Line > len(lines) {
		return "", fmt.Errorf("line %d out of range", f.Line)
	}

	m := assignmentPattern.FindStringSubmatch(lines[f.Line-1])
	if m == nil {
		return "", fmt.Errorf("line %d is not a simple string assignment", f.Line)
	}
	indent, name, sp1, op, sp2, rest := m[1], m[2], m[3], m[4], m[5], m[6]

	envName := strings.ToUpper(name)
	lines[f.Line-1] = fmt.Sprintf(`%s%s%s%s%sos.environ.get("%s", "")%s`,
		indent, name, sp1, op, sp2, envName, rest)

	return strings.Join(lines, "\n"), nil
}

// EnsureImports prepends the os import the rewritten lookup needs.
// Called once per file, after all line rewrites, so line numbers of
// pending findings never shift mid-fix.
func (HardcodedSecretFix) EnsureImports(source string) string {
	if strings.Contains(source, "import os") || strings.Contains(source, "from os import") {
		return source
	}
	return "import os\n" + source
}

func (HardcodedSecretFix) Example() string {
	return `# Unsafe:
password = "hunter2"

# Safe:
import os
password = os.environ.get("PASSWORD", "")`
}

func lineAt(source string, n int) string {
	lines := strings.Split(source, "\n")
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}
