package ast

// ExprContext selects the Load or Store child created for Name and Attribute nodes.
type ExprContext int

const (
	Load ExprContext = iota
	Store
)

// Builder assembles a Tree bottom-up: children are created before parents and
// Build is called with the root once the tree is complete. A Builder must not
// be reused after Build.
type Builder struct {
	nodes []Node
}

func NewBuilder() *Builder {
	return &Builder{nodes: make([]Node, 0, 64)}
}

func (b *Builder) add(n Node) NodeID {
	// Reference fields that do not apply to the kind are cleared to NoNode,
	// since NodeID 0 is a valid arena slot.
	if n.Kind != KindAssign {
		n.Value = NoNode
	}
	if n.Kind != KindAttribute {
		n.Object = NoNode
	}
	if n.Kind != KindCall {
		n.Func = NoNode
	}
	if n.Kind != KindName && n.Kind != KindAttribute {
		n.Ctx = NoNode
	}
	b.nodes = append(b.nodes, n)
	return NodeID(len(b.nodes) - 1)
}

func (b *Builder) ctx(c ExprContext, line int) NodeID {
	kind := KindLoad
	if c == Store {
		kind = KindStore
	}
	return b.add(Node{Kind: kind, Pos: Position{Line: line}})
}

// Module creates the module node. Its Name is the module's own identifier,
// used as the outermost scope-chain segment.
func (b *Builder) Module(name string, body ...NodeID) NodeID {
	return b.add(Node{Kind: KindModule, Name: name, Pos: Position{Line: 1}, Children: body})
}

func (b *Builder) ClassDef(name string, line int, body ...NodeID) NodeID {
	return b.add(Node{Kind: KindClassDef, Name: name, Pos: Position{Line: line}, Children: body})
}

// FunctionDef creates a function node; args may be NoNode.
func (b *Builder) FunctionDef(name string, line int, args NodeID, body ...NodeID) NodeID {
	children := make([]NodeID, 0, len(body)+1)
	if args.Valid() {
		children = append(children, args)
	}
	children = append(children, body...)
	return b.add(Node{Kind: KindFunctionDef, Name: name, Pos: Position{Line: line}, Children: children})
}

func (b *Builder) Arguments(line int, params []string, vararg, kwarg string) NodeID {
	return b.add(Node{
		Kind:   KindArguments,
		Pos:    Position{Line: line},
		Params: append([]string(nil), params...),
		Vararg: vararg,
		Kwarg:  kwarg,
	})
}

func (b *Builder) Import(line int, names ...ImportName) NodeID {
	return b.add(Node{Kind: KindImport, Pos: Position{Line: line}, Names: names})
}

// ImportFrom creates `from <level dots><module> import names`.
func (b *Builder) ImportFrom(line int, module string, level int, names ...ImportName) NodeID {
	return b.add(Node{Kind: KindImportFrom, Pos: Position{Line: line}, Module: module, Level: level, Names: names})
}

func (b *Builder) Name(id string, line int, c ExprContext) NodeID {
	ctx := b.ctx(c, line)
	return b.add(Node{Kind: KindName, Name: id, Pos: Position{Line: line}, Ctx: ctx, Children: []NodeID{ctx}})
}

func (b *Builder) Attribute(object NodeID, attr string, line int, c ExprContext) NodeID {
	ctx := b.ctx(c, line)
	return b.add(Node{
		Kind:     KindAttribute,
		Name:     attr,
		Pos:      Position{Line: line},
		Object:   object,
		Ctx:      ctx,
		Children: []NodeID{object, ctx},
	})
}

func (b *Builder) Call(fn NodeID, line int, args ...NodeID) NodeID {
	children := append([]NodeID{fn}, args...)
	return b.add(Node{Kind: KindCall, Pos: Position{Line: line}, Func: fn, Args: args, Children: children})
}

// Assign creates `targets... = value`. Children are the targets followed by the value.
func (b *Builder) Assign(line int, value NodeID, targets ...NodeID) NodeID {
	children := append(append([]NodeID(nil), targets...), value)
	return b.add(Node{Kind: KindAssign, Pos: Position{Line: line}, Targets: targets, Value: value, Children: children})
}

func (b *Builder) Global(line int, names ...string) NodeID {
	return b.add(Node{Kind: KindGlobal, Pos: Position{Line: line}, Globals: names})
}

func (b *Builder) Literal(line int) NodeID {
	return b.add(Node{Kind: KindLiteral, Pos: Position{Line: line}})
}

func (b *Builder) Other(line int, children ...NodeID) NodeID {
	return b.add(Node{Kind: KindOther, Pos: Position{Line: line}, Children: children})
}

// SetEndLine records the inclusive last line of a node.
func (b *Builder) SetEndLine(id NodeID, end int) {
	if id.Valid() && int(id) < len(b.nodes) {
		b.nodes[id].Pos.EndLine = end
	}
}

func (b *Builder) Len() int { return len(b.nodes) }

func (b *Builder) Build(root NodeID) *Tree {
	t := &Tree{nodes: b.nodes, root: root}
	b.nodes = nil
	return t
}
