// Package fixer rewrites source to remove findings where a safe
// mechanical rewrite exists, and produces fix examples for the rest.
package fixer

import (
	"fmt"
	"os"
	"sort"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sirupsen/logrus"

	"github.com/FanZDStar/oss-2025/internal/models"
)

// Strategy produces a rewritten file for one rule's findings. Apply
// must return the complete new source, not a fragment; line numbers of
// other findings in the same file are adjusted by fixing bottom-up.
type Strategy interface {
	RuleID() string
	CanFix(f models.Finding, source string) bool
	Apply(f models.Finding, source string) (string, error)
	Example() string
}

// Fixer dispatches findings to rule strategies and renders diffs.
type Fixer struct {
	strategies map[string]Strategy
	log        *logrus.Logger
}

// New builds a Fixer with every built-in strategy registered.
func New(log *logrus.Logger) *Fixer {
	x := &Fixer{strategies: map[string]Strategy{}, log: log}
	for _, s := range []Strategy{
		HardcodedSecretFix{},
	} {
		x.strategies[s.RuleID()] = s
	}
	return x
}

// CanFix reports whether an automatic rewrite exists for the finding.
func (x *Fixer) CanFix(f models.Finding, source string) bool {
	s, ok := x.strategies[f.RuleID]
	return ok && s.CanFix(f, source)
}

// Example returns the manual-fix example for a rule, or "".
func (x *Fixer) Example(ruleID string) string {
	if s, ok := x.strategies[ruleID]; ok {
		return s.Example()
	}
	return fixExamples[ruleID]
}

// importEnsurer is implemented by strategies whose rewrite depends on
// an import being present. The import is added after line rewrites so
// pending finding line numbers never shift.
type importEnsurer interface {
	EnsureImports(source string) string
}

// Fix attempts one finding against the given source. A finding with no
// strategy is not an error; the result simply reports Success=false.
func (x *Fixer) Fix(f models.Finding, source string) models.FixResult {
	result := models.FixResult{Finding: f}

	s, ok := x.strategies[f.RuleID]
	if !ok || !s.CanFix(f, source) {
		return result
	}

	patched, err := x.apply(s, f, source)
	if err != nil || patched == "" {
		return result
	}
	if e, ok := s.(importEnsurer); ok {
		patched = e.EnsureImports(patched)
	}

	result.Success = true
	result.Patched = patched
	result.DiffText = renderDiff(source, patched)
	return result
}

func (x *Fixer) apply(s Strategy, f models.Finding, source string) (string, error) {
	patched, err := s.Apply(f, source)
	if err != nil {
		x.log.WithError(err).WithFields(logrus.Fields{
			"rule": f.RuleID,
			"file": f.FilePath,
			"line": f.Line,
		}).Warn("Fix strategy failed")
	}
	return patched, err
}

// FixFile applies every fixable finding for one file, bottom-up so
// earlier rewrites never shift the line numbers of later ones. With
// dryRun the file is left untouched and only diffs are produced.
func (x *Fixer) FixFile(path string, findings []models.Finding, dryRun bool) ([]models.FixResult, error) {
	unit, err := models.NewSourceUnit(path)
	if err != nil {
		return nil, err
	}

	ordered := make([]models.Finding, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Line > ordered[j].Line
	})

	source := unit.Text
	applied := 0
	usedImports := map[string]importEnsurer{}
	var results []models.FixResult
	for _, f := range ordered {
		res := models.FixResult{Finding: f}

		s, ok := x.strategies[f.RuleID]
		if ok && s.CanFix(f, source) {
			if patched, err := x.apply(s, f, source); err == nil && patched != "" {
				res.Success = true
				res.Patched = patched
				res.DiffText = renderDiff(source, patched)
				source = patched
				applied++
				if e, isEnsurer := s.(importEnsurer); isEnsurer {
					usedImports[f.RuleID] = e
				}
			}
		}
		results = append(results, res)
	}

	for _, e := range usedImports {
		source = e.EnsureImports(source)
	}

	if !dryRun && applied > 0 {
		if err := os.WriteFile(path, []byte(source), 0644); err != nil {
			return results, fmt.Errorf("failed to write %s: %w", path, err)
		}
		x.log.WithFields(logrus.Fields{
			"file":  path,
			"fixed": applied,
		}).Info("Applied fixes")
	}
	return results, nil
}

// renderDiff produces patch text describing the rewrite.
func renderDiff(original, patched string) string {
	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake(original, patched)
	return dmp.PatchToText(patches)
}

// fixExamples holds manual-fix guidance for rules without an automatic
// strategy, shown by the fix command.
var fixExamples = map[string]string{
	"SQL001": `# Unsafe:
query = f"SELECT * FROM users WHERE id = {user_id}"
cursor.execute(query)

# Safe (parameterized query):
cursor.execute("SELECT * FROM users WHERE id = %s", (user_id,))`,
	"CMD001": `# Unsafe:
os.system(f"ping {host}")

# Safe (argument list, no shell):
subprocess.run(["ping", host], check=True)`,
	"DNG001": `# Unsafe:
result = eval(user_input)

# Safe:
result = ast.literal_eval(user_input)`,
	"PTH001": `# Unsafe:
with open(user_filename) as f:
    content = f.read()

# Safe (confine to a base directory):
path = os.path.realpath(os.path.join(SAFE_DIR, user_filename))
if not path.startswith(SAFE_DIR + os.sep):
    raise ValueError("invalid path")`,
	"XSS001": `# Unsafe:
return HttpResponse(f"<div>{user_input}</div>")

# Safe:
from markupsafe import escape
return HttpResponse(f"<div>{escape(user_input)}</div>")`,
	"RND001": `# Unsafe:
token = ''.join(random.choices(string.ascii_letters, k=32))

# Safe:
import secrets
token = secrets.token_urlsafe(32)`,
	"HSH001": `# Unsafe:
digest = hashlib.md5(password.encode()).hexdigest()

# Safe (passwords):
import bcrypt
digest = bcrypt.hashpw(password.encode(), bcrypt.gensalt())

# Safe (integrity):
digest = hashlib.sha256(data).hexdigest()`,
}
