package analysis

import (
	"fmt"
	"io"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"
)

// promiseMethods are members of an un-awaited import() promise; they never
// name an export.
var promiseMethods = map[string]bool{
	"then":    true,
	"catch":   true,
	"finally": true,
}

type extractor struct {
	module   ModuleID
	src      []byte
	resolver Resolver
	log      *slog.Logger

	facts   *FileFacts
	exports *ModuleExports
	scopes  *scopeStack
}

// Extract walks one module's syntax tree and returns its export record,
// export-all edges and the usage facts it emits against other modules.
// An error means the module could not be interpreted safely; partial
// results are discarded.
func Extract(id ModuleID, root *sitter.Node, src []byte, resolver Resolver, log *slog.Logger) (*FileFacts, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	x := &extractor{
		module:   id,
		src:      src,
		resolver: resolver,
		log:      log,
		facts:    &FileFacts{Module: id},
		exports:  &ModuleExports{Record: newExportRecord()},
		scopes:   newScopeStack(),
	}
	if err := x.visit(root); err != nil {
		return nil, fmt.Errorf("extract %s: %w", id, err)
	}
	x.facts.Exports = x.exports
	return x.facts, nil
}

func (x *extractor) visit(n *sitter.Node) error {
	if n == nil {
		return nil
	}
	switch k := kindOf(n); k {
	case kindOther:
		return x.visitChildren(n)
	case kindComment:
		return nil
	case kindImportStatement:
		return x.importStatement(n)
	case kindExportStatement:
		return x.exportStatement(n)
	case kindVariableDeclarator:
		return x.variableDeclarator(n)
	case kindMemberExpression:
		x.memberExpression(n)
		return x.visitChildren(n)
	case kindSubscriptExpression:
		x.subscriptExpression(n)
		return x.visitChildren(n)
	case kindCallExpression:
		return x.callExpression(n)
	case kindFunction:
		return x.function(n, nil)
	case kindClassDeclaration:
		if name := n.ChildByFieldName("name"); name != nil {
			x.scopes.shadow(x.text(name))
		}
		return x.visitChildren(n)
	case kindBlock, kindForStatement:
		x.scopes.push()
		defer x.scopes.pop()
		return x.visitChildren(n)
	case kindForInStatement:
		return x.forInStatement(n)
	case kindCatchClause:
		return x.catchClause(n)
	case kindNestedTypeIdentifier:
		x.nestedTypeIdentifier(n)
		return nil
	default:
		panic(fmt.Sprintf("analysis: no dispatch for node kind %d (%s)", k, n.Type()))
	}
}

func (x *extractor) visitChildren(n *sitter.Node) error {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		if err := x.visit(n.NamedChild(i)); err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) warn(n *sitter.Node, msg string) {
	p := n.StartPoint()
	x.log.Warn(msg,
		slog.String("file", string(x.module)),
		slog.Int("line", int(p.Row)+1),
		slog.Int("col", int(p.Column)+1),
		slog.String("node", n.Type()))
}

func (x *extractor) malformed(n *sitter.Node) error {
	p := n.StartPoint()
	return fmt.Errorf("%w: unexpected %s at %d:%d", ErrMalformed, n.Type(), p.Row+1, p.Column+1)
}

func (x *extractor) use(target ModuleID, symbol string) {
	x.facts.recordUsage(target, symbol)
}

// resolve maps a specifier through the Resolver. Only Resolved outcomes
// yield a module.
func (x *extractor) resolve(spec string, kind RefKind, at *sitter.Node) (ModuleID, bool) {
	res := x.resolver.Resolve(spec, x.module, kind)
	switch res.Kind {
	case Resolved:
		return res.Module, true
	case Builtin, Ignored:
		return "", false
	case Unresolved:
		p := at.StartPoint()
		attrs := []any{
			slog.String("file", string(x.module)),
			slog.Int("line", int(p.Row)+1),
			slog.String("specifier", spec),
			slog.String("kind", kind.String()),
		}
		if res.Err != nil {
			attrs = append(attrs, slog.String("error", res.Err.Error()))
		}
		x.log.Warn("unresolved module specifier", attrs...)
		return "", false
	}
	x.warn(at, "unknown resolution outcome")
	return "", false
}

// moduleCall recognizes require("spec") and import("spec").
func (x *extractor) moduleCall(n *sitter.Node) (string, RefKind, bool) {
	if n == nil || n.Type() != "call_expression" {
		return "", 0, false
	}
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil || args == nil {
		return "", 0, false
	}
	var kind RefKind
	switch {
	case fn.Type() == "import":
		kind = RefDynamicImport
	case fn.Type() == "identifier" && x.text(fn) == "require":
		kind = RefRequire
	default:
		return "", 0, false
	}
	arg := firstNamed(args)
	if arg == nil {
		x.warn(n, "module call without arguments")
		return "", 0, false
	}
	spec, ok := x.stringValue(arg)
	if !ok {
		x.warn(arg, "non-literal module specifier")
		return "", 0, false
	}
	return spec, kind, true
}

// moduleOf reports which module an expression evaluates to: a bound alias,
// a require() call or an (optionally awaited) import() call.
func (x *extractor) moduleOf(n *sitter.Node) (ModuleID, bool) {
	n = unwrap(n, true)
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "identifier":
		return x.scopes.lookup(x.text(n))
	case "call_expression":
		spec, kind, ok := x.moduleCall(n)
		if !ok {
			return "", false
		}
		return x.resolve(spec, kind, n)
	}
	return "", false
}

// pendingImport reports whether n is an un-awaited import() call.
func (x *extractor) pendingImport(n *sitter.Node) bool {
	n = unwrap(n, false)
	if n == nil || n.Type() != "call_expression" {
		return false
	}
	fn := n.ChildByFieldName("function")
	return fn != nil && fn.Type() == "import"
}

func (x *extractor) importStatement(n *sitter.Node) error {
	kind := RefImport
	if hasToken(n, "type") || hasToken(n, "typeof") {
		kind = RefTypeImport
	}

	// import m = require("spec")
	if req := childOfType(n, "import_require_clause"); req != nil {
		src := req.ChildByFieldName("source")
		if src == nil {
			src = childOfType(req, "string")
		}
		spec, ok := x.stringValue(src)
		if !ok {
			x.warn(req, "unrecognized import-require clause")
			return nil
		}
		id := childOfType(req, "identifier")
		target, ok := x.resolve(spec, RefRequire, req)
		if ok && id != nil {
			x.scopes.bind(x.text(id), target)
		}
		return nil
	}

	clause := childOfType(n, "import_clause")
	source := n.ChildByFieldName("source")
	if clause == nil || source == nil {
		return nil // side-effect import
	}
	spec, ok := x.stringValue(source)
	if !ok {
		x.warn(source, "unrecognized import source")
		return nil
	}
	target, ok := x.resolve(spec, kind, source)
	if !ok {
		return nil
	}
	for _, c := range namedChildren(clause) {
		switch c.Type() {
		case "identifier":
			x.use(target, "default")
		case "namespace_import":
			if id := childOfType(c, "identifier"); id != nil {
				x.scopes.bind(x.text(id), target)
			}
		case "named_imports":
			for _, s := range namedChildren(c) {
				if s.Type() != "import_specifier" {
					continue
				}
				if name := s.ChildByFieldName("name"); name != nil {
					x.use(target, x.exportName(name))
				}
			}
		default:
			x.warn(c, "unrecognized import clause")
		}
	}
	return nil
}

func (x *extractor) variableDeclarator(n *sitter.Node) error {
	name := n.ChildByFieldName("name")
	value := n.ChildByFieldName("value")
	if err := x.visit(value); err != nil {
		return err
	}
	if name == nil {
		return nil
	}

	var (
		target   ModuleID
		isModule bool
	)
	if value != nil {
		target, isModule = x.moduleOf(value)
	}

	switch name.Type() {
	case "identifier":
		if isModule {
			x.scopes.bind(x.text(name), target)
		} else {
			x.scopes.shadow(x.text(name))
		}
		return nil
	case "object_pattern":
		// Default values inside the pattern may reference modules too.
		if err := x.visitChildren(name); err != nil {
			return err
		}
		for _, local := range x.bindingNames(name) {
			x.scopes.shadow(local)
		}
		if !isModule {
			return nil
		}
		rest, err := x.destructure(target, name)
		if err != nil {
			return err
		}
		if rest != "" {
			x.scopes.bind(rest, target)
		}
		return nil
	case "array_pattern":
		if isModule {
			x.warn(name, "array destructuring of a module")
		}
		if err := x.visitChildren(name); err != nil {
			return err
		}
		for _, local := range x.bindingNames(name) {
			x.scopes.shadow(local)
		}
		return nil
	}
	x.warn(name, "unrecognized declarator binding")
	return nil
}

// destructure records one usage fact per property taken from target by an
// object pattern. A rest element keeps the whole module surface, so its name
// is returned for the caller to bind as an alias.
func (x *extractor) destructure(target ModuleID, pattern *sitter.Node) (string, error) {
	var rest string
	for _, c := range namedChildren(pattern) {
		switch c.Type() {
		case "shorthand_property_identifier_pattern":
			x.use(target, x.text(c))
		case "pair_pattern":
			key, err := x.propertyKey(c.ChildByFieldName("key"))
			if err != nil {
				return "", err
			}
			x.use(target, key)
		case "object_assignment_pattern":
			left := c.ChildByFieldName("left")
			if left == nil || left.Type() != "shorthand_property_identifier_pattern" {
				return "", x.malformed(c)
			}
			x.use(target, x.text(left))
		case "rest_pattern":
			if id := firstNamed(c); id != nil && id.Type() == "identifier" {
				rest = x.text(id)
			}
		default:
			return "", x.malformed(c)
		}
	}
	return rest, nil
}

func (x *extractor) memberExpression(n *sitter.Node) {
	obj := n.ChildByFieldName("object")
	prop := n.ChildByFieldName("property")
	if obj == nil || prop == nil || prop.Type() != "property_identifier" {
		return
	}
	name := x.text(prop)
	if promiseMethods[name] && x.pendingImport(obj) {
		return
	}
	if target, ok := x.moduleOf(obj); ok {
		x.use(target, name)
	}
}

// nestedTypeIdentifier handles ns.Foo in type position.
func (x *extractor) nestedTypeIdentifier(n *sitter.Node) {
	module := n.ChildByFieldName("module")
	name := n.ChildByFieldName("name")
	if module == nil || name == nil || module.Type() != "identifier" {
		return
	}
	if target, ok := x.scopes.lookup(x.text(module)); ok {
		x.use(target, x.text(name))
	}
}

func (x *extractor) subscriptExpression(n *sitter.Node) {
	obj := n.ChildByFieldName("object")
	name, ok := x.stringValue(n.ChildByFieldName("index"))
	if obj == nil || !ok {
		return
	}
	if target, ok := x.moduleOf(obj); ok {
		x.use(target, name)
	}
}

func (x *extractor) callExpression(n *sitter.Node) error {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	cb, target, ok := x.thenCallback(fn, args)
	if !ok {
		return x.visitChildren(n)
	}
	if err := x.visit(fn); err != nil {
		return err
	}
	for i, a := range namedChildren(args) {
		var err error
		if i == 0 {
			err = x.callback(cb, target)
		} else {
			err = x.visit(a)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// thenCallback recognizes import("spec").then(cb) and returns the callback
// with the module its first parameter is bound to.
func (x *extractor) thenCallback(fn, args *sitter.Node) (*sitter.Node, ModuleID, bool) {
	if fn == nil || args == nil || fn.Type() != "member_expression" {
		return nil, "", false
	}
	prop := fn.ChildByFieldName("property")
	if prop == nil || x.text(prop) != "then" {
		return nil, "", false
	}
	obj := fn.ChildByFieldName("object")
	if !x.pendingImport(obj) {
		return nil, "", false
	}
	cb := firstNamed(args)
	if cb == nil || kindOf(cb) != kindFunction {
		return nil, "", false
	}
	target, ok := x.moduleOf(obj)
	if !ok {
		return nil, "", false
	}
	return cb, target, true
}

// callback visits a .then callback with its first parameter bound to
// target. The binding lives in the callback's own scope and disappears,
// restoring any outer binding of the same name, when the visit returns.
func (x *extractor) callback(cb *sitter.Node, target ModuleID) error {
	params := parameterNodes(cb)
	if len(params) == 0 {
		return x.visit(cb)
	}
	first := params[0]
	switch first.Type() {
	case "identifier":
		return x.function(cb, map[string]ModuleID{x.text(first): target})
	case "object_pattern":
		rest, err := x.destructure(target, first)
		if err != nil {
			return err
		}
		if rest != "" {
			return x.function(cb, map[string]ModuleID{rest: target})
		}
		return x.visit(cb)
	}
	x.warn(first, "unrecognized callback parameter")
	return x.visit(cb)
}

// function visits a function-like node in its own scope. Parameters shadow
// outer aliases unless aliases binds them to a module.
func (x *extractor) function(n *sitter.Node, aliases map[string]ModuleID) error {
	name := n.ChildByFieldName("name")
	declaration := n.Type() == "function_declaration" || n.Type() == "generator_function_declaration"
	if name != nil && declaration {
		x.scopes.shadow(x.text(name))
	}

	x.scopes.push()
	defer x.scopes.pop()

	if name != nil && !declaration && name.Type() == "identifier" {
		x.scopes.shadow(x.text(name))
	}
	for _, p := range parameterNodes(n) {
		for _, local := range x.bindingNames(p) {
			if target, ok := aliases[local]; ok {
				x.scopes.bind(local, target)
			} else {
				x.scopes.shadow(local)
			}
		}
	}
	return x.visitChildren(n)
}

// forInStatement visits for-in and for-of loops. A declared loop variable
// lives in the loop's own scope; an assignment target is an expression.
func (x *extractor) forInStatement(n *sitter.Node) error {
	left := n.ChildByFieldName("left")
	if err := x.visit(n.ChildByFieldName("right")); err != nil {
		return err
	}

	x.scopes.push()
	defer x.scopes.pop()

	if hasToken(n, "const") || hasToken(n, "let") || hasToken(n, "var") {
		for _, local := range x.bindingNames(left) {
			x.scopes.shadow(local)
		}
	} else if err := x.visit(left); err != nil {
		return err
	}
	return x.visit(n.ChildByFieldName("body"))
}

// catchClause visits a catch block with its parameter bound as a local.
func (x *extractor) catchClause(n *sitter.Node) error {
	x.scopes.push()
	defer x.scopes.pop()

	for _, local := range x.bindingNames(n.ChildByFieldName("parameter")) {
		x.scopes.shadow(local)
	}
	return x.visit(n.ChildByFieldName("body"))
}
