// Package ignore implements suppression directives embedded in scanned
// source comments. Three forms are recognized:
//
//	# pysec: ignore[IDS]       suppress findings on this line
//	# pysec: ignore-file[IDS]  suppress findings in the whole file
//	# pysec: disable[IDS]      suppress findings until the matching enable
//
// The [IDS] part is optional; without it a directive applies to every
// rule. IDS is a comma-separated list of rule identifiers.
package ignore

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/FanZDStar/oss-2025/internal/models"
)

var (
	fileIgnorePattern   = regexp.MustCompile(`(?i)#\s*pysec:\s*ignore-file(?:\[([^\]]*)\])?\s*$`)
	blockDisablePattern = regexp.MustCompile(`(?i)#\s*pysec:\s*disable(?:\[([^\]]*)\])?\s*$`)
	blockEnablePattern  = regexp.MustCompile(`(?i)#\s*pysec:\s*enable(?:\[([^\]]*)\])?\s*$`)
	inlineIgnorePattern = regexp.MustCompile(`(?i)#\s*pysec:\s*ignore(?:\[([^\]]*)\])?\s*$`)

	// anything that starts like a directive but matches none of the
	// recognized forms
	directiveLikePattern = regexp.MustCompile(`(?i)#\s*pysec:`)
)

// block is a closed or EOF-terminated disable range. A nil rules slice
// means the block covers every rule.
type block struct {
	start, end int
	rules      []string
}

// Context holds the parsed suppression state of one file.
type Context struct {
	Path string

	fileIgnoreAll bool
	fileIgnored   map[string]bool

	// line number -> rule ids, nil slice meaning all rules
	lineIgnores map[int][]string
	hasLine     map[int]bool

	blocks []block
}

// ParseDirectives scans the unit's text for suppression comments.
// Malformed directives are logged and skipped, never fatal.
func ParseDirectives(unit *models.SourceUnit, log *logrus.Logger) *Context {
	ctx := &Context{
		Path:        unit.Path,
		fileIgnored: map[string]bool{},
		lineIgnores: map[int][]string{},
		hasLine:     map[int]bool{},
	}

	lines := strings.Split(unit.Text, "\n")

	// open disable blocks keyed by rule id, "" for the all-rules block
	open := map[string]int{}

	for i, line := range lines {
		num := i + 1

		if m := fileIgnorePattern.FindStringSubmatch(line); m != nil {
			ids := parseRuleIDs(m[1])
			if ids == nil {
				ctx.fileIgnoreAll = true
			} else {
				for _, id := range ids {
					ctx.fileIgnored[id] = true
				}
			}
			continue
		}

		if m := blockDisablePattern.FindStringSubmatch(line); m != nil {
			ids := parseRuleIDs(m[1])
			if ids == nil {
				if _, dup := open[""]; !dup {
					open[""] = num
				}
			} else {
				for _, id := range ids {
					if _, dup := open[id]; !dup {
						open[id] = num
					}
				}
			}
			continue
		}

		if m := blockEnablePattern.FindStringSubmatch(line); m != nil {
			ids := parseRuleIDs(m[1])
			if ids == nil {
				// close every open block
				for key, start := range open {
					ctx.closeBlock(key, start, num)
				}
				open = map[string]int{}
			} else {
				for _, id := range ids {
					if start, ok := open[id]; ok {
						ctx.closeBlock(id, start, num)
						delete(open, id)
					}
				}
				if start, ok := open[""]; ok {
					ctx.closeBlock("", start, num)
					delete(open, "")
				}
			}
			continue
		}

		if m := inlineIgnorePattern.FindStringSubmatch(line); m != nil {
			ctx.lineIgnores[num] = parseRuleIDs(m[1])
			ctx.hasLine[num] = true
			continue
		}

		if directiveLikePattern.MatchString(line) && log != nil {
			log.WithFields(logrus.Fields{
				"file": unit.Path,
				"line": num,
			}).Warn("unrecognized suppression directive")
		}
	}

	// unclosed disable blocks run to the end of the file
	for key, start := range open {
		ctx.closeBlock(key, start, len(lines)+1)
	}

	return ctx
}

func (c *Context) closeBlock(key string, start, end int) {
	var rules []string
	if key != "" {
		rules = []string{key}
	}
	// directive lines themselves are outside the suppressed range
	c.blocks = append(c.blocks, block{start: start + 1, end: end - 1, rules: rules})
}

// ShouldIgnore reports whether a finding on the given line for the
// given rule is suppressed. File directives are checked first, then
// disable blocks, then inline directives.
func (c *Context) ShouldIgnore(line int, ruleID string) bool {
	if c.fileIgnoreAll || c.fileIgnored[ruleID] {
		return true
	}
	for _, b := range c.blocks {
		if line < b.start || line > b.end {
			continue
		}
		if b.rules == nil {
			return true
		}
		for _, id := range b.rules {
			if id == ruleID {
				return true
			}
		}
	}
	if c.hasLine[line] {
		ids := c.lineIgnores[line]
		if ids == nil {
			return true
		}
		for _, id := range ids {
			if id == ruleID {
				return true
			}
		}
	}
	return false
}

// Filter drops suppressed findings and returns the survivors with the
// suppressed count. The input order is preserved.
func (c *Context) Filter(findings []models.Finding) ([]models.Finding, int) {
	if len(findings) == 0 {
		return findings, 0
	}
	kept := findings[:0:0]
	suppressed := 0
	for _, f := range findings {
		if c.ShouldIgnore(f.Line, f.RuleID) {
			suppressed++
			continue
		}
		kept = append(kept, f)
	}
	return kept, suppressed
}

// parseRuleIDs splits the bracketed id list. A nil result means the
// directive applies to all rules.
func parseRuleIDs(s string) []string {
	if s == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.ToUpper(strings.TrimSpace(part)); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
