package analysis

import sitter "github.com/smacker/go-tree-sitter"

// nodeKind is the closed set of syntax shapes the extractor dispatches on.
// Every tree-sitter node type the extractor cares about maps to exactly one
// kind; everything else is kindOther and only has its children walked.
type nodeKind uint8

const (
	kindOther nodeKind = iota
	kindImportStatement
	kindExportStatement
	kindVariableDeclarator
	kindMemberExpression
	kindSubscriptExpression
	kindCallExpression
	kindFunction
	kindClassDeclaration
	kindBlock
	kindForStatement
	kindForInStatement
	kindCatchClause
	kindNestedTypeIdentifier
	kindComment

	numNodeKinds
)

var nodeKinds = map[string]nodeKind{
	"import_statement":               kindImportStatement,
	"export_statement":               kindExportStatement,
	"variable_declarator":            kindVariableDeclarator,
	"member_expression":              kindMemberExpression,
	"subscript_expression":           kindSubscriptExpression,
	"call_expression":                kindCallExpression,
	"function_declaration":           kindFunction,
	"generator_function_declaration": kindFunction,
	"function_expression":            kindFunction,
	"function":                       kindFunction,
	"generator_function":             kindFunction,
	"arrow_function":                 kindFunction,
	"method_definition":              kindFunction,
	"class_declaration":              kindClassDeclaration,
	"abstract_class_declaration":     kindClassDeclaration,
	"statement_block":                kindBlock,
	"class_body":                     kindBlock,
	"for_statement":                  kindForStatement,
	"for_in_statement":               kindForInStatement,
	"catch_clause":                   kindCatchClause,
	"nested_type_identifier":         kindNestedTypeIdentifier,
	"comment":                        kindComment,
}

func kindOf(n *sitter.Node) nodeKind {
	if k, ok := nodeKinds[n.Type()]; ok {
		return k
	}
	return kindOther
}

// unwrapKinds are expression wrappers that do not change which module an
// expression evaluates to.
var unwrapKinds = map[string]bool{
	"parenthesized_expression": true,
	"as_expression":            true,
	"satisfies_expression":     true,
	"non_null_expression":      true,
	"type_assertion":           true,
}
