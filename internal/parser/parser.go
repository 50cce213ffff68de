package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Parser turns Python source text into the tagged Tree representation.
// Each Parse call creates its own tree-sitter parser so a single Parser
// value is safe to share across scan workers.
type Parser struct{}

// New creates a Parser
func New() *Parser {
	return &Parser{}
}

// Supported reports whether the file extension is one we can parse
func Supported(path string) bool {
	switch filepath.Ext(path) {
	case ".py", ".pyi", ".pyw":
		return true
	}
	return false
}

// Parse parses source text and converts the syntax tree into the
// closed Node representation. A tree containing syntax errors is
// treated as unparsable, matching a strict-parser collaborator.
// Parse is deterministic for identical input text.
func (p *Parser) Parse(text string) (*Tree, error) {
	tsParser := sitter.NewParser()
	if tsParser == nil {
		return nil, fmt.Errorf("failed to create tree-sitter parser")
	}
	defer tsParser.Close()

	language := sitter.NewLanguage(tree_sitter_python.Language())
	if err := tsParser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	code := []byte(text)
	tsTree := tsParser.Parse(code, nil)
	if tsTree == nil {
		return nil, fmt.Errorf("failed to parse source")
	}
	defer tsTree.Close()

	root := tsTree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("syntax error at line %d", firstErrorLine(root))
	}

	return &Tree{Root: convert(root, code)}, nil
}

// firstErrorLine finds the first ERROR or missing node for diagnostics
func firstErrorLine(root *sitter.Node) int {
	line := int(root.StartPosition().Row) + 1
	var visit func(n *sitter.Node) bool
	visit = func(n *sitter.Node) bool {
		if n.IsError() || n.IsMissing() {
			line = int(n.StartPosition().Row) + 1
			return true
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if visit(n.Child(i)) {
				return true
			}
		}
		return false
	}
	visit(root)
	return line
}

func nodeText(node *sitter.Node, code []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if int(end) > len(code) {
		end = uint(len(code))
	}
	return string(code[start:end])
}

// convert maps a tree-sitter node onto the closed Node variant set.
// Unrecognized grammar kinds become KindOther but keep their children,
// so structural rules can still see through them.
func convert(tsNode *sitter.Node, code []byte) *Node {
	n := &Node{
		Kind:   KindOther,
		Line:   int(tsNode.StartPosition().Row) + 1,
		Column: int(tsNode.StartPosition().Column) + 1,
	}

	switch tsNode.Kind() {
	case "module":
		n.Kind = KindModule
	case "assignment", "augmented_assignment":
		n.Kind = KindAssign
		if left := tsNode.ChildByFieldName("left"); left != nil && left.Kind() == "identifier" {
			n.Name = nodeText(left, code)
		}
	case "call":
		n.Kind = KindCall
		n.Name = nodeText(tsNode.ChildByFieldName("function"), code)
	case "binary_operator":
		n.Kind = KindBinaryOp
		n.Operator = nodeText(tsNode.ChildByFieldName("operator"), code)
	case "string":
		return convertString(tsNode, code, n)
	case "attribute":
		n.Kind = KindAttribute
		n.Name = nodeText(tsNode, code)
	case "identifier":
		n.Kind = KindIdentifier
		n.Name = nodeText(tsNode, code)
	case "keyword_argument":
		n.Kind = KindKeywordArg
		n.Name = nodeText(tsNode.ChildByFieldName("name"), code)
	case "comparison_operator":
		n.Kind = KindComparison
	case "true", "false", "none", "integer", "float":
		n.Kind = KindConstant
		n.Value = nodeText(tsNode, code)
	}

	for i := uint(0); i < tsNode.NamedChildCount(); i++ {
		n.Children = append(n.Children, convert(tsNode.NamedChild(i), code))
	}
	return n
}

// convertString reconstructs a string literal's content, substituting
// "{}" for each f-string interpolation. A string with interpolations
// becomes KindFString; everything else is a plain KindString.
func convertString(tsNode *sitter.Node, code []byte, n *Node) *Node {
	var sb strings.Builder
	for i := uint(0); i < tsNode.ChildCount(); i++ {
		child := tsNode.Child(i)
		switch child.Kind() {
		case "string_content", "escape_sequence":
			sb.WriteString(nodeText(child, code))
		case "interpolation":
			sb.WriteString("{}")
			n.HasInterpolation = true
			n.Children = append(n.Children, convert(child, code))
		}
	}
	n.Value = sb.String()
	if n.HasInterpolation {
		n.Kind = KindFString
	} else {
		n.Kind = KindString
	}
	return n
}
