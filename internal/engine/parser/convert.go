package parser

import (
	"strings"

	"pyscope/internal/engine/ast"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// stmtHandler translates one statement-level CST node into zero or more arena
// nodes, emitted in source order.
type stmtHandler func(n *sitter.Node) []ast.NodeID

// exprHandler translates one expression-level CST node into a single arena node.
type exprHandler func(n *sitter.Node) ast.NodeID

// converter walks a tree-sitter Python CST and rebuilds it bottom-up in an
// ast.Builder. Expressions evaluated in the enclosing scope (decorators, base
// classes, parameter defaults and annotations) are emitted as an Other node
// in front of the definition they belong to.
type converter struct {
	b     *ast.Builder
	src   []byte
	stmts map[string]stmtHandler
	exprs map[string]exprHandler
}

func newConverter(src []byte) *converter {
	c := &converter{b: ast.NewBuilder(), src: src}
	c.stmts = map[string]stmtHandler{
		"class_definition":      func(n *sitter.Node) []ast.NodeID { return c.class(n, nil) },
		"function_definition":   func(n *sitter.Node) []ast.NodeID { return c.function(n, nil) },
		"decorated_definition":  c.decorated,
		"import_statement":      c.importStmt,
		"import_from_statement": c.importFrom,
		"expression_statement":  c.expressionStmt,
		"global_statement":      c.global,
		"nonlocal_statement":    c.global,
	}
	c.exprs = map[string]exprHandler{
		"identifier":           func(n *sitter.Node) ast.NodeID { return c.b.Name(c.text(n), line(n), ast.Load) },
		"attribute":            c.attribute,
		"dotted_name":          c.dottedName,
		"call":                 c.call,
		"keyword_argument":     c.keywordArgument,
		"string":               c.str,
		"integer":              c.literal,
		"float":                c.literal,
		"true":                 c.literal,
		"false":                c.literal,
		"none":                 c.literal,
		"ellipsis":             c.literal,
		"block":                func(n *sitter.Node) ast.NodeID { return c.b.Other(line(n), c.block(n)...) },
		"for_statement":        c.forLoop,
		"for_in_clause":        c.forLoop,
		"named_expression":     c.walrus,
		"as_pattern":           c.asPattern,
		"except_clause":        c.asPattern,
		"lambda":               c.lambda,
		"assignment":           func(n *sitter.Node) ast.NodeID { return c.b.Other(line(n), c.assignment(n)...) },
		"augmented_assignment": c.augmented,
	}
	return c
}

func (c *converter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(c.src[n.StartByte():n.EndByte()])
}

func line(n *sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

func endLine(n *sitter.Node) int {
	return int(n.EndPosition().Row) + 1
}

// namedChildren returns the named children of n, comments excluded.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		ch := n.Child(i)
		if ch == nil || !ch.IsNamed() || ch.Kind() == "comment" {
			continue
		}
		out = append(out, ch)
	}
	return out
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil &&
		a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

func (c *converter) module(root *sitter.Node, name string) ast.NodeID {
	id := c.b.Module(name, c.block(root)...)
	c.b.SetEndLine(id, endLine(root))
	return id
}

func (c *converter) block(n *sitter.Node) []ast.NodeID {
	var out []ast.NodeID
	for _, ch := range namedChildren(n) {
		out = append(out, c.stmt(ch)...)
	}
	return out
}

func (c *converter) stmt(n *sitter.Node) []ast.NodeID {
	if h, ok := c.stmts[n.Kind()]; ok {
		return h(n)
	}
	return []ast.NodeID{c.expr(n)}
}

func (c *converter) expr(n *sitter.Node) ast.NodeID {
	if h, ok := c.exprs[n.Kind()]; ok {
		return h(n)
	}
	return c.generic(n)
}

// generic keeps the node's position in the tree and translates its named
// children as expressions.
func (c *converter) generic(n *sitter.Node) ast.NodeID {
	kids := namedChildren(n)
	ids := make([]ast.NodeID, 0, len(kids))
	for _, ch := range kids {
		ids = append(ids, c.expr(ch))
	}
	return c.b.Other(line(n), ids...)
}

func (c *converter) exprsOf(nodes ...*sitter.Node) []ast.NodeID {
	var out []ast.NodeID
	for _, n := range nodes {
		if n != nil {
			out = append(out, c.expr(n))
		}
	}
	return out
}

// target translates an assignment target in store context.
func (c *converter) target(n *sitter.Node) ast.NodeID {
	switch n.Kind() {
	case "identifier":
		return c.b.Name(c.text(n), line(n), ast.Store)
	case "attribute":
		obj := c.expr(n.ChildByFieldName("object"))
		return c.b.Attribute(obj, c.text(n.ChildByFieldName("attribute")), line(n), ast.Store)
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list", "parenthesized_expression", "expression_list":
		kids := namedChildren(n)
		ids := make([]ast.NodeID, 0, len(kids))
		for _, ch := range kids {
			ids = append(ids, c.target(ch))
		}
		return c.b.Other(line(n), ids...)
	case "list_splat_pattern", "list_splat", "as_pattern_target":
		if kids := namedChildren(n); len(kids) == 1 {
			return c.b.Other(line(n), c.target(kids[0]))
		}
	}
	// Subscripts and anything else: stores into an existing object, not bindings.
	return c.expr(n)
}

func (c *converter) decorated(n *sitter.Node) []ast.NodeID {
	var decorators []ast.NodeID
	for _, ch := range namedChildren(n) {
		if ch.Kind() == "decorator" {
			decorators = append(decorators, c.generic(ch))
		}
	}
	def := n.ChildByFieldName("definition")
	if def == nil {
		return []ast.NodeID{c.b.Other(line(n), decorators...)}
	}
	switch def.Kind() {
	case "class_definition":
		return c.class(def, decorators)
	case "function_definition":
		return c.function(def, decorators)
	}
	return append([]ast.NodeID{c.b.Other(line(n), decorators...)}, c.stmt(def)...)
}

func (c *converter) class(n *sitter.Node, outer []ast.NodeID) []ast.NodeID {
	if bases := n.ChildByFieldName("superclasses"); bases != nil {
		outer = append(outer, c.generic(bases))
	}
	body := c.block(n.ChildByFieldName("body"))
	id := c.b.ClassDef(c.text(n.ChildByFieldName("name")), line(n), body...)
	c.b.SetEndLine(id, endLine(n))
	return withPrelude(c.b, line(n), outer, id)
}

func (c *converter) function(n *sitter.Node, outer []ast.NodeID) []ast.NodeID {
	args, evaluated := c.parameters(n.ChildByFieldName("parameters"))
	outer = append(outer, evaluated...)
	outer = append(outer, c.exprsOf(n.ChildByFieldName("return_type"))...)

	body := c.block(n.ChildByFieldName("body"))
	id := c.b.FunctionDef(c.text(n.ChildByFieldName("name")), line(n), args, body...)
	c.b.SetEndLine(id, endLine(n))
	return withPrelude(c.b, line(n), outer, id)
}

func withPrelude(b *ast.Builder, ln int, prelude []ast.NodeID, def ast.NodeID) []ast.NodeID {
	if len(prelude) == 0 {
		return []ast.NodeID{def}
	}
	return []ast.NodeID{b.Other(ln, prelude...), def}
}

// parameters returns the Arguments node for a parameter list plus the default
// values and annotations, which are evaluated in the enclosing scope.
func (c *converter) parameters(n *sitter.Node) (ast.NodeID, []ast.NodeID) {
	if n == nil {
		return ast.NoNode, nil
	}
	var (
		params        []string
		vararg, kwarg string
		evaluated     []ast.NodeID
	)
	var bind func(p *sitter.Node)
	bind = func(p *sitter.Node) {
		switch p.Kind() {
		case "identifier":
			params = append(params, c.text(p))
		case "list_splat_pattern":
			if kids := namedChildren(p); len(kids) > 0 {
				vararg = c.text(kids[0])
			}
		case "dictionary_splat_pattern":
			if kids := namedChildren(p); len(kids) > 0 {
				kwarg = c.text(kids[0])
			}
		case "typed_parameter":
			if kids := namedChildren(p); len(kids) > 0 {
				bind(kids[0])
			}
			evaluated = append(evaluated, c.exprsOf(p.ChildByFieldName("type"))...)
		case "default_parameter", "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				bind(name)
			}
			evaluated = append(evaluated, c.exprsOf(p.ChildByFieldName("type"), p.ChildByFieldName("value"))...)
		}
	}
	for _, p := range namedChildren(n) {
		bind(p)
	}
	return c.b.Arguments(line(n), params, vararg, kwarg), evaluated
}

func (c *converter) importStmt(n *sitter.Node) []ast.NodeID {
	var names []ast.ImportName
	for _, ch := range namedChildren(n) {
		if name, ok := c.importName(ch); ok {
			names = append(names, name)
		}
	}
	return []ast.NodeID{c.b.Import(line(n), names...)}
}

func (c *converter) importName(n *sitter.Node) (ast.ImportName, bool) {
	switch n.Kind() {
	case "dotted_name", "identifier":
		return ast.ImportName{Name: c.text(n)}, true
	case "aliased_import":
		return ast.ImportName{
			Name:   c.text(n.ChildByFieldName("name")),
			AsName: c.text(n.ChildByFieldName("alias")),
		}, true
	case "wildcard_import":
		return ast.ImportName{Name: ast.Wildcard}, true
	}
	return ast.ImportName{}, false
}

func (c *converter) importFrom(n *sitter.Node) []ast.NodeID {
	moduleNode := n.ChildByFieldName("module_name")
	var (
		module string
		level  int
	)
	if moduleNode != nil {
		if moduleNode.Kind() == "relative_import" {
			for _, ch := range namedChildren(moduleNode) {
				switch ch.Kind() {
				case "import_prefix":
					level = strings.Count(c.text(ch), ".")
				case "dotted_name":
					module = c.text(ch)
				}
			}
		} else {
			module = c.text(moduleNode)
		}
	}

	var names []ast.ImportName
	for _, ch := range namedChildren(n) {
		if sameNode(ch, moduleNode) {
			continue
		}
		if name, ok := c.importName(ch); ok {
			names = append(names, name)
		}
	}
	return []ast.NodeID{c.b.ImportFrom(line(n), module, level, names...)}
}

func (c *converter) global(n *sitter.Node) []ast.NodeID {
	var names []string
	for _, ch := range namedChildren(n) {
		if ch.Kind() == "identifier" {
			names = append(names, c.text(ch))
		}
	}
	return []ast.NodeID{c.b.Global(line(n), names...)}
}

func (c *converter) expressionStmt(n *sitter.Node) []ast.NodeID {
	kids := namedChildren(n)
	if len(kids) == 1 && kids[0].Kind() == "assignment" {
		return c.assignment(kids[0])
	}
	ids := make([]ast.NodeID, 0, len(kids))
	for _, ch := range kids {
		ids = append(ids, c.expr(ch))
	}
	return []ast.NodeID{c.b.Other(line(n), ids...)}
}

// assignment flattens `a = b = value` into one Assign with every target. An
// annotation-only statement (`x: int`) binds its target without a value.
func (c *converter) assignment(n *sitter.Node) []ast.NodeID {
	var targets []*sitter.Node
	cur := n
	for {
		targets = append(targets, cur.ChildByFieldName("left"))
		right := cur.ChildByFieldName("right")
		if right != nil && right.Kind() == "assignment" {
			cur = right
			continue
		}
		break
	}

	var out []ast.NodeID
	if ann := c.exprsOf(cur.ChildByFieldName("type")); len(ann) > 0 {
		out = append(out, c.b.Other(line(cur), ann...))
	}

	right := cur.ChildByFieldName("right")
	if right == nil {
		ids := make([]ast.NodeID, 0, len(targets))
		for _, t := range targets {
			if t != nil {
				ids = append(ids, c.target(t))
			}
		}
		return append(out, c.b.Other(line(n), ids...))
	}

	value := c.expr(right)
	ids := make([]ast.NodeID, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			ids = append(ids, c.target(t))
		}
	}
	return append(out, c.b.Assign(line(n), value, ids...))
}

// augmented reads its target; `x += 1` does not introduce a new binding.
func (c *converter) augmented(n *sitter.Node) ast.NodeID {
	return c.b.Other(line(n), c.exprsOf(n.ChildByFieldName("left"), n.ChildByFieldName("right"))...)
}

func (c *converter) attribute(n *sitter.Node) ast.NodeID {
	obj := c.expr(n.ChildByFieldName("object"))
	return c.b.Attribute(obj, c.text(n.ChildByFieldName("attribute")), line(n), ast.Load)
}

// dottedName turns a.b.c into nested Attribute loads over Name a.
func (c *converter) dottedName(n *sitter.Node) ast.NodeID {
	parts := strings.Split(c.text(n), ".")
	id := c.b.Name(strings.TrimSpace(parts[0]), line(n), ast.Load)
	for _, p := range parts[1:] {
		id = c.b.Attribute(id, strings.TrimSpace(p), line(n), ast.Load)
	}
	return id
}

func (c *converter) call(n *sitter.Node) ast.NodeID {
	fn := c.expr(n.ChildByFieldName("function"))
	var args []ast.NodeID
	if list := n.ChildByFieldName("arguments"); list != nil {
		if list.Kind() == "argument_list" {
			for _, ch := range namedChildren(list) {
				args = append(args, c.expr(ch))
			}
		} else {
			args = append(args, c.expr(list))
		}
	}
	return c.b.Call(fn, line(n), args...)
}

func (c *converter) keywordArgument(n *sitter.Node) ast.NodeID {
	if v := n.ChildByFieldName("value"); v != nil {
		return c.expr(v)
	}
	return c.literal(n)
}

func (c *converter) literal(n *sitter.Node) ast.NodeID {
	return c.b.Literal(line(n))
}

// str is a Literal unless it is an f-string with interpolated expressions.
func (c *converter) str(n *sitter.Node) ast.NodeID {
	var parts []ast.NodeID
	for _, ch := range namedChildren(n) {
		if ch.Kind() != "interpolation" {
			continue
		}
		parts = append(parts, c.exprsOf(ch.ChildByFieldName("expression"))...)
	}
	if len(parts) == 0 {
		return c.literal(n)
	}
	return c.b.Other(line(n), parts...)
}

// forLoop binds the loop targets; comprehension targets bind in the enclosing
// scope since comprehensions are not modelled as scopes.
func (c *converter) forLoop(n *sitter.Node) ast.NodeID {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	var ids []ast.NodeID
	if right != nil {
		ids = append(ids, c.expr(right))
	}
	if left != nil {
		ids = append(ids, c.target(left))
	}
	for _, ch := range namedChildren(n) {
		if sameNode(ch, left) || sameNode(ch, right) {
			continue
		}
		ids = append(ids, c.expr(ch))
	}
	return c.b.Other(line(n), ids...)
}

func (c *converter) walrus(n *sitter.Node) ast.NodeID {
	var ids []ast.NodeID
	ids = append(ids, c.exprsOf(n.ChildByFieldName("value"))...)
	if name := n.ChildByFieldName("name"); name != nil {
		ids = append(ids, c.target(name))
	}
	return c.b.Other(line(n), ids...)
}

func (c *converter) asPattern(n *sitter.Node) ast.NodeID {
	alias := n.ChildByFieldName("alias")
	var ids []ast.NodeID
	for _, ch := range namedChildren(n) {
		if sameNode(ch, alias) {
			ids = append(ids, c.target(ch))
			continue
		}
		ids = append(ids, c.expr(ch))
	}
	return c.b.Other(line(n), ids...)
}

// lambda parameters bind in the enclosing scope; lambdas are not scopes here.
func (c *converter) lambda(n *sitter.Node) ast.NodeID {
	var ids []ast.NodeID
	var bind func(p *sitter.Node)
	bind = func(p *sitter.Node) {
		switch p.Kind() {
		case "identifier":
			ids = append(ids, c.b.Name(c.text(p), line(p), ast.Store))
		case "default_parameter":
			ids = append(ids, c.exprsOf(p.ChildByFieldName("value"))...)
			if name := p.ChildByFieldName("name"); name != nil {
				bind(name)
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			for _, ch := range namedChildren(p) {
				bind(ch)
			}
		}
	}
	for _, p := range namedChildren(n.ChildByFieldName("parameters")) {
		bind(p)
	}
	ids = append(ids, c.exprsOf(n.ChildByFieldName("body"))...)
	return c.b.Other(line(n), ids...)
}
