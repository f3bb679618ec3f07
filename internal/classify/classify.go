// Package classify performs a lightweight structural parse of single source
// lines to hint what kind of entity a line-level notification represents.
//
// Lines arrive in isolation and are frequently incomplete on their own (a
// bare "for x in xs:" header has no body), so the parse is best effort:
// tree-sitter's error recovery still produces usable nodes for partial input,
// and anything it cannot recognize degrades to a simple-statement hint.
// Classification never returns an error.
package classify

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Classifier wraps a tree-sitter parser configured for Python source.
// A Classifier is not safe for concurrent use; the capture pipeline is
// serialized by the session.
type Classifier struct {
	parser *sitter.Parser
}

// New creates a Classifier.
func New() *Classifier {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Classifier{parser: parser}
}

// Classify inspects one source line and returns its structural hint.
// Parse failures of any kind return a simple-statement hint.
func (c *Classifier) Classify(line string) Hint {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Hint{Type: HintSimple}
	}

	// Compound-statement headers are incomplete without a body; append a
	// synthetic one so the parser can close the construct.
	src := trimmed
	if strings.HasSuffix(trimmed, ":") {
		src = trimmed + "\n    pass"
	}

	tree, err := c.parser.ParseCtx(context.Background(), nil, []byte(src))
	if err != nil || tree == nil {
		return Hint{Type: HintSimple}
	}
	defer tree.Close()

	best := Hint{Type: HintSimple}
	scan(tree.RootNode(), []byte(src), &best)
	return best
}

// scan walks the tree collecting the highest-priority recognizable construct.
func scan(node *sitter.Node, src []byte, best *Hint) {
	if node == nil {
		return
	}
	if h, ok := categorize(node, src); ok && h.Type.rank() < best.Type.rank() {
		*best = h
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		scan(node.NamedChild(i), src, best)
	}
}

func categorize(node *sitter.Node, src []byte) (Hint, bool) {
	switch node.Type() {
	case "for_statement":
		return Hint{Type: HintLoop, LoopType: "For"}, true
	case "while_statement":
		return Hint{Type: HintLoop, LoopType: "While"}, true
	case "if_statement":
		return Hint{Type: HintConditional}, true
	case "try_statement":
		return Hint{Type: HintTryExcept}, true
	case "with_statement":
		return Hint{Type: HintContextManager}, true
	case "list_comprehension":
		return Hint{Type: HintComprehension, CompType: "ListComp"}, true
	case "dictionary_comprehension":
		return Hint{Type: HintComprehension, CompType: "DictComp"}, true
	case "set_comprehension":
		return Hint{Type: HintComprehension, CompType: "SetComp"}, true
	case "generator_expression":
		return Hint{Type: HintComprehension, CompType: "GeneratorExp"}, true
	case "lambda":
		return Hint{Type: HintLambda}, true
	case "assignment":
		return Hint{Type: HintAssignment, Variables: assignmentTargets(node, src)}, true
	case "import_statement", "import_from_statement":
		return Hint{Type: HintImport}, true
	}
	return Hint{}, false
}

// assignmentTargets extracts the names on the left side of an assignment.
// Non-identifier targets (attributes, subscripts) fall back to their source
// text.
func assignmentTargets(node *sitter.Node, src []byte) []string {
	left := node.ChildByFieldName("left")
	if left == nil {
		return nil
	}

	switch left.Type() {
	case "identifier":
		return []string{left.Content(src)}
	case "pattern_list", "tuple_pattern":
		var names []string
		for i := 0; i < int(left.NamedChildCount()); i++ {
			names = append(names, left.NamedChild(i).Content(src))
		}
		return names
	default:
		return []string{left.Content(src)}
	}
}
