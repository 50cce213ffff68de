package rules

import (
	"fmt"
	"sort"

	"github.com/FanZDStar/oss-2025/internal/errors"
	"github.com/FanZDStar/oss-2025/internal/models"
	"github.com/FanZDStar/oss-2025/internal/parser"
)

// Registry is the immutable rule table built once at startup.
// It is read-only during scanning and safe for concurrent use.
type Registry struct {
	rules map[string]Descriptor
	order []string // ids sorted, fixes execution order
}

// NewRegistry collects descriptors into a registry. A duplicate rule
// id is a configuration error: fail fast rather than silently
// overwrite.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{rules: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		if d.ID == "" {
			return nil, errors.ConfigError("rule registered with empty id")
		}
		if _, exists := r.rules[d.ID]; exists {
			return nil, errors.ConfigErrorf("duplicate rule id %q", d.ID)
		}
		if d.Check == nil {
			return nil, errors.ConfigErrorf("rule %q has no check function", d.ID)
		}
		r.rules[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	sort.Strings(r.order)
	return r, nil
}

// DefaultRegistry builds the registry with every built-in rule
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(
		SQLInjection(),
		CommandInjection(),
		HardcodedSecrets(),
		DangerousFunctions(),
		PathTraversal(),
		XSS(),
		InsecureRandom(),
		InsecureHash(),
	)
}

// Get returns the descriptor for id, if registered
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.rules[id]
	return d, ok
}

// All returns every descriptor in id order
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// Len returns the number of registered rules
func (r *Registry) Len() int { return len(r.rules) }

// RunConfig is the per-scan rule selection and severity policy
type RunConfig struct {
	Enabled           []string // non-empty = strict allow-list
	Disabled          []string // deny-list when Enabled is empty
	MinSeverity       models.Severity
	SeverityOverrides map[string]models.Severity
}

// Validate checks the run config against the registry. Unknown rule
// ids in severity overrides are configuration errors caught before any
// file is processed.
func (r *Registry) Validate(cfg RunConfig) error {
	for id := range cfg.SeverityOverrides {
		if _, ok := r.rules[id]; !ok {
			return errors.ConfigErrorf("severity override for unknown rule %q", id)
		}
	}
	return nil
}

// Effective resolves the rule set for a scan: the allow-list when
// given, otherwise all rules minus the deny-list. Order is by rule id.
func (r *Registry) Effective(cfg RunConfig) []Descriptor {
	allowed := func(id string) bool {
		if len(cfg.Enabled) > 0 {
			for _, e := range cfg.Enabled {
				if e == id {
					return true
				}
			}
			return false
		}
		for _, d := range cfg.Disabled {
			if d == id {
				return false
			}
		}
		return true
	}

	var out []Descriptor
	for _, id := range r.order {
		if allowed(id) {
			out = append(out, r.rules[id])
		}
	}
	return out
}

// Run executes the effective rules against one parsed file. A rule
// that panics is isolated: its failure becomes a diagnostic and every
// other rule still runs. Severity overrides are applied and findings
// below the minimum severity are dropped before returning.
func (r *Registry) Run(tree *parser.Tree, unit *models.SourceUnit, cfg RunConfig) ([]models.Finding, []error) {
	var findings []models.Finding
	var diags []error

	for _, rule := range r.Effective(cfg) {
		results, err := runCheck(rule, tree, unit)
		if err != nil {
			diags = append(diags, err)
			continue
		}
		for _, f := range results {
			if override, ok := cfg.SeverityOverrides[rule.ID]; ok {
				f.Severity = override
			}
			if !f.Severity.AtLeast(cfg.MinSeverity) {
				continue
			}
			findings = append(findings, f)
		}
	}
	return findings, diags
}

// runCheck invokes one rule's check, converting a panic into a
// RuleExecutionError so a broken rule never aborts the scan of a file.
func runCheck(rule Descriptor, tree *parser.Tree, unit *models.SourceUnit) (results []models.Finding, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			results = nil
			err = errors.RuleError(rule.ID, unit.Path, fmt.Errorf("panic: %v", rec))
		}
	}()
	return rule.Check(tree, unit), nil
}
