package analysis

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

func (x *extractor) exportValue(name, local string) {
	x.exports.Record.Values[name] = local
}

func (x *extractor) exportType(name, local string) {
	x.exports.Record.Types[name] = local
}

func (x *extractor) exportStatement(n *sitter.Node) error {
	decl := n.ChildByFieldName("declaration")
	source := n.ChildByFieldName("source")
	clause := childOfType(n, "export_clause")

	switch {
	case x.scopes.depth() > 1:
		// Exports inside namespace and ambient module bodies are members
		// of that namespace, not of the module.
	case hasToken(n, "default"):
		x.exportValue("default", "default")
	case decl != nil:
		if err := x.exportDeclaration(decl); err != nil {
			return err
		}
	case clause != nil:
		x.exportClause(n, clause, source)
	case childOfType(n, "namespace_export") != nil:
		// export * as ns from "spec"
		if name := firstNamed(childOfType(n, "namespace_export")); name != nil {
			exported := x.exportName(name)
			x.exportValue(exported, exported)
		}
	case hasToken(n, "*"):
		x.exportAll(source)
	default:
		// export = x, export as namespace X, export import A = B
		x.warn(n, "unsupported export form")
	}

	for _, c := range namedChildren(n) {
		if c.Type() == "export_clause" {
			continue
		}
		if err := x.visit(c); err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) exportDeclaration(decl *sitter.Node) error {
	switch decl.Type() {
	case "function_declaration", "generator_function_declaration", "function_signature",
		"class_declaration", "abstract_class_declaration", "enum_declaration":
		if name := decl.ChildByFieldName("name"); name != nil {
			x.exportValue(x.text(name), x.text(name))
		}
	case "interface_declaration", "type_alias_declaration":
		if name := decl.ChildByFieldName("name"); name != nil {
			x.exportType(x.text(name), x.text(name))
		}
	case "internal_module", "module":
		name := decl.ChildByFieldName("name")
		if name == nil || name.Type() == "string" {
			x.warn(decl, "ambient module declaration in export")
			return nil
		}
		// export namespace A.B {} exports A
		local, _, _ := strings.Cut(x.text(name), ".")
		x.exportValue(local, local)
	case "lexical_declaration", "variable_declaration":
		for _, d := range namedChildren(decl) {
			if d.Type() != "variable_declarator" {
				continue
			}
			if err := x.exportBinding(d.ChildByFieldName("name")); err != nil {
				return err
			}
		}
	case "ambient_declaration":
		inner := firstNamed(decl)
		if inner == nil || inner.Type() == "statement_block" {
			x.warn(decl, "unsupported ambient export")
			return nil
		}
		return x.exportDeclaration(inner)
	default:
		x.warn(decl, "unsupported exported declaration")
	}
	return nil
}

// exportBinding records the names a declarator binding exports.
func (x *extractor) exportBinding(name *sitter.Node) error {
	if name == nil {
		return fmt.Errorf("%w: declarator without a name", ErrMalformed)
	}
	switch name.Type() {
	case "identifier":
		x.exportValue(x.text(name), x.text(name))
		return nil
	case "object_pattern":
		return x.exportObjectPattern(name)
	case "array_pattern":
		names, err := x.patternIdentifiers(name)
		if err != nil {
			return err
		}
		for _, local := range names {
			x.exportValue(local, local)
		}
		return nil
	}
	return x.malformed(name)
}

// exportObjectPattern handles `export const {a, b: c} = obj`. A renamed
// property is exported under its key with the binding as the local name.
func (x *extractor) exportObjectPattern(p *sitter.Node) error {
	for _, c := range namedChildren(p) {
		switch c.Type() {
		case "shorthand_property_identifier_pattern":
			x.exportValue(x.text(c), x.text(c))
		case "object_assignment_pattern":
			left := c.ChildByFieldName("left")
			if left == nil || left.Type() != "shorthand_property_identifier_pattern" {
				return x.malformed(c)
			}
			x.exportValue(x.text(left), x.text(left))
		case "pair_pattern":
			key, err := x.propertyKey(c.ChildByFieldName("key"))
			if err != nil {
				return err
			}
			value := c.ChildByFieldName("value")
			if value != nil && value.Type() == "assignment_pattern" {
				value = value.ChildByFieldName("left")
			}
			if value != nil && value.Type() == "identifier" {
				x.exportValue(key, x.text(value))
				continue
			}
			names, err := x.patternIdentifiers(value)
			if err != nil {
				return err
			}
			for _, local := range names {
				x.exportValue(local, local)
			}
		case "rest_pattern":
			names, err := x.patternIdentifiers(c)
			if err != nil {
				return err
			}
			for _, local := range names {
				x.exportValue(local, local)
			}
		default:
			return x.malformed(c)
		}
	}
	return nil
}

// exportClause handles `export { a, b as c }` with or without a source.
// Re-exported names also count as used on the source module.
func (x *extractor) exportClause(stmt, clause, source *sitter.Node) {
	typeOnly := hasToken(stmt, "type")

	var (
		target     ModuleID
		haveTarget bool
	)
	if source != nil {
		if spec, ok := x.stringValue(source); ok {
			target, haveTarget = x.resolve(spec, RefReExport, source)
		}
	}

	for _, s := range namedChildren(clause) {
		if s.Type() != "export_specifier" {
			continue
		}
		nameNode := s.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		local := x.exportName(nameNode)
		exported := local
		if alias := s.ChildByFieldName("alias"); alias != nil {
			exported = x.exportName(alias)
		}
		if haveTarget {
			x.use(target, local)
		}
		switch {
		case exported == "default":
			x.exportValue("default", "default")
		case typeOnly || hasToken(s, "type"):
			x.exportType(exported, local)
		default:
			x.exportValue(exported, local)
		}
	}
}

func (x *extractor) exportAll(source *sitter.Node) {
	spec, ok := x.stringValue(source)
	if !ok {
		if source != nil {
			x.warn(source, "unrecognized export-all source")
		}
		return
	}
	if target, ok := x.resolve(spec, RefReExport, source); ok {
		x.exports.ExportAll = append(x.exports.ExportAll, target)
	}
}
