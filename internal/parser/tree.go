package parser

// NodeKind is the closed set of syntax node kinds the rules match on.
// The parser is responsible for folding the raw grammar's node types
// into this variant representation; rules never see grammar names.
type NodeKind uint8

const (
	KindModule NodeKind = iota
	KindAssign
	KindCall
	KindBinaryOp
	KindString
	KindFString
	KindAttribute
	KindIdentifier
	KindKeywordArg
	KindComparison
	KindConstant
	KindOther
)

func (k NodeKind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindAssign:
		return "assign"
	case KindCall:
		return "call"
	case KindBinaryOp:
		return "binary_op"
	case KindString:
		return "string"
	case KindFString:
		return "fstring"
	case KindAttribute:
		return "attribute"
	case KindIdentifier:
		return "identifier"
	case KindKeywordArg:
		return "keyword_arg"
	case KindComparison:
		return "comparison"
	case KindConstant:
		return "constant"
	default:
		return "other"
	}
}

// Node is one element of the parsed tree. Nodes are plain data so the
// whole tree can be gob-encoded for the persistent parse cache.
//
// Field usage by kind:
//   - KindAssign:     Name = assignment target when it is a plain identifier
//   - KindCall:       Name = source text of the callee (e.g. "os.system")
//   - KindBinaryOp:   Operator = operator token ("+", "%", ...)
//   - KindString:     Value = literal content, placeholders for escapes kept
//   - KindFString:    Value = content with "{}" substituted for interpolations
//   - KindAttribute:  Name = full dotted text
//   - KindIdentifier: Name = identifier text
//   - KindKeywordArg: Name = argument name; value is the single child
//   - KindConstant:   Value = literal text ("True", "42", ...)
type Node struct {
	Kind             NodeKind
	Line             int // 1-based
	Column           int // 1-based
	Name             string
	Value            string
	Operator         string
	HasInterpolation bool
	Children         []*Node
}

// Tree is the parsed representation of one source unit
type Tree struct {
	Root *Node
}

// Walk visits nodes in depth-first preorder. Traversal order is fixed
// by the tree itself, which keeps rule output deterministic.
func Walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		Walk(child, fn)
	}
}

// FindAll returns every node for which pred is true, in walk order
func FindAll(root *Node, pred func(*Node) bool) []*Node {
	var out []*Node
	Walk(root, func(n *Node) {
		if pred(n) {
			out = append(out, n)
		}
	})
	return out
}
