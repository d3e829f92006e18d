package analysis

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if kids := namedChildren(n); len(kids) > 0 {
		return kids[0]
	}
	return nil
}

func lastNamed(n *sitter.Node) *sitter.Node {
	if kids := namedChildren(n); len(kids) > 0 {
		return kids[len(kids)-1]
	}
	return nil
}

// childOfType returns the first direct child (named or anonymous) of type t.
func childOfType(n *sitter.Node, t string) *sitter.Node {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		if c := n.Child(i); c != nil && c.Type() == t {
			return c
		}
	}
	return nil
}

// hasToken reports whether n has a direct anonymous child token tok, such
// as "default", "*" or "type".
func hasToken(n *sitter.Node, tok string) bool {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() && c.Type() == tok {
			return true
		}
	}
	return false
}

// unwrap strips expression wrappers (parentheses, type assertions, non-null
// assertions) and, when throughAwait is set, await expressions.
func unwrap(n *sitter.Node, throughAwait bool) *sitter.Node {
	for n != nil {
		switch {
		case n.Type() == "type_assertion":
			n = lastNamed(n)
		case unwrapKinds[n.Type()]:
			n = firstNamed(n)
		case throughAwait && n.Type() == "await_expression":
			n = firstNamed(n)
		default:
			return n
		}
	}
	return nil
}

func (x *extractor) text(n *sitter.Node) string {
	return n.Content(x.src)
}

// stringValue returns the contents of a string literal or a template string
// without substitutions.
func (x *extractor) stringValue(n *sitter.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "string":
	case "template_string":
		if childOfType(n, "template_substitution") != nil {
			return "", false
		}
	default:
		return "", false
	}
	s := x.text(n)
	if len(s) < 2 {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// exportName reads a module export name, which may be an identifier or a
// string literal (`export { x as "y z" }`).
func (x *extractor) exportName(n *sitter.Node) string {
	if s, ok := x.stringValue(n); ok {
		return s
	}
	return x.text(n)
}

// propertyKey reads the key of a pair_pattern.
func (x *extractor) propertyKey(key *sitter.Node) (string, error) {
	if key == nil {
		return "", fmt.Errorf("%w: missing property key", ErrMalformed)
	}
	switch key.Type() {
	case "property_identifier", "identifier", "number":
		return x.text(key), nil
	case "string":
		s, _ := x.stringValue(key)
		return s, nil
	}
	return "", x.malformed(key)
}

// bindingNames lists the local names a binding pattern declares. Unknown
// shapes contribute nothing.
func (x *extractor) bindingNames(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{x.text(n)}
	case "assignment_pattern", "object_assignment_pattern":
		return x.bindingNames(n.ChildByFieldName("left"))
	case "pair_pattern":
		return x.bindingNames(n.ChildByFieldName("value"))
	case "rest_pattern":
		return x.bindingNames(firstNamed(n))
	case "array_pattern", "object_pattern":
		var names []string
		for _, c := range namedChildren(n) {
			names = append(names, x.bindingNames(c)...)
		}
		return names
	}
	return nil
}

// patternIdentifiers is the strict form of bindingNames used for exported
// declarations: any shape it cannot name is an error.
func (x *extractor) patternIdentifiers(n *sitter.Node) ([]string, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: missing binding", ErrMalformed)
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{x.text(n)}, nil
	case "assignment_pattern", "object_assignment_pattern":
		return x.patternIdentifiers(n.ChildByFieldName("left"))
	case "pair_pattern":
		return x.patternIdentifiers(n.ChildByFieldName("value"))
	case "rest_pattern":
		return x.patternIdentifiers(firstNamed(n))
	case "array_pattern", "object_pattern":
		var names []string
		for _, c := range namedChildren(n) {
			sub, err := x.patternIdentifiers(c)
			if err != nil {
				return nil, err
			}
			names = append(names, sub...)
		}
		return names, nil
	}
	return nil, x.malformed(n)
}

// parameterNodes returns the binding pattern of each parameter of a
// function-like node.
func parameterNodes(fn *sitter.Node) []*sitter.Node {
	if p := fn.ChildByFieldName("parameter"); p != nil {
		return []*sitter.Node{p}
	}
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []*sitter.Node
	for _, c := range namedChildren(params) {
		switch c.Type() {
		case "required_parameter", "optional_parameter":
			if pat := c.ChildByFieldName("pattern"); pat != nil {
				out = append(out, pat)
			}
		default:
			out = append(out, c)
		}
	}
	return out
}
