package rules

import (
	"github.com/FanZDStar/oss-2025/internal/parser"
)

// callArgs returns the argument nodes of a call, keyword arguments
// included. The converter places the argument list as the call's last
// child.
func callArgs(call *parser.Node) []*parser.Node {
	if call.Kind != parser.KindCall || len(call.Children) == 0 {
		return nil
	}
	last := call.Children[len(call.Children)-1]
	if last.Kind == parser.KindOther {
		return last.Children
	}
	return nil
}

// positionalArgs filters keyword arguments out of a call's arguments
func positionalArgs(call *parser.Node) []*parser.Node {
	var out []*parser.Node
	for _, arg := range callArgs(call) {
		if arg.Kind != parser.KindKeywordArg {
			out = append(out, arg)
		}
	}
	return out
}

// keywordArg finds a keyword argument by name
func keywordArg(call *parser.Node, name string) *parser.Node {
	for _, arg := range callArgs(call) {
		if arg.Kind == parser.KindKeywordArg && arg.Name == name {
			return arg
		}
	}
	return nil
}

// isDynamic reports whether a node's value is not known at parse time:
// a variable, attribute access, call result, concatenation, or an
// f-string with interpolations. Plain literals are static.
func isDynamic(n *parser.Node) bool {
	switch n.Kind {
	case parser.KindIdentifier, parser.KindAttribute, parser.KindCall, parser.KindBinaryOp:
		return true
	case parser.KindFString:
		return n.HasInterpolation
	}
	return false
}

// hasDynamicArg reports whether any positional argument is dynamic
func hasDynamicArg(call *parser.Node) bool {
	for _, arg := range positionalArgs(call) {
		if isDynamic(arg) {
			return true
		}
	}
	return false
}

// firstString returns the first string-literal descendant, if any
func firstString(n *parser.Node) *parser.Node {
	var found *parser.Node
	parser.Walk(n, func(c *parser.Node) {
		if found == nil && c.Kind == parser.KindString {
			found = c
		}
	})
	return found
}
