package symbols

import (
	"fmt"
	"log/slog"
	"strings"

	domainerrors "pyscope/internal/core/errors"
	"pyscope/internal/engine/ast"
	"pyscope/internal/engine/scope"
)

// Introspector lists the public identifiers a module exports. It backs
// wildcard imports; an error coded MODULE_UNAVAILABLE means the module cannot
// be inspected and the import is skipped.
type Introspector interface {
	Exports(module string) ([]string, error)
}

type Option func(*Builder)

func WithIntrospector(in Introspector) Option {
	return func(b *Builder) {
		if in != nil {
			b.introspector = in
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithParameterBindings also binds plain positional and keyword parameter
// names. By default only *args and **kwargs names are bound.
func WithParameterBindings(enabled bool) Option {
	return func(b *Builder) {
		b.bindParams = enabled
	}
}

type noIntrospector struct{}

func (noIntrospector) Exports(module string) ([]string, error) {
	return nil, domainerrors.New(domainerrors.CodeModuleUnavailable, fmt.Sprintf("no module index for %s", module))
}

// Builder runs the forward pass that produces a Table.
type Builder struct {
	introspector Introspector
	logger       *slog.Logger
	bindParams   bool
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		introspector: noIntrospector{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// buildState is the per-tree state of one Build call.
type buildState struct {
	tree     *ast.Tree
	table    *Table
	scopes   *scope.Tracker
	globals  map[ast.NodeID]map[string]bool
	warnings []error
}

// Build visits every node of tree once and returns the completed table along
// with recoverable warnings (unavailable wildcard modules).
func (b *Builder) Build(tree *ast.Tree) (*Table, []error) {
	st := &buildState{
		tree:    tree,
		table:   NewTable(),
		scopes:  scope.NewTracker(),
		globals: make(map[ast.NodeID]map[string]bool),
	}

	tree.Walk(func(f ast.Frame) bool {
		st.scopes.EvictStale(f.Depth)
		b.visit(st, f.ID)
		// Pushed after recording so a def/class binds in its enclosing chain.
		st.scopes.EnterIfScope(tree, f.ID, f.Depth)
		return true
	})

	b.logger.Debug("symbol table built", "bindings", st.table.Len(), "names", len(st.table.entries), "warnings", len(st.warnings))
	return st.table, st.warnings
}

func (b *Builder) visit(st *buildState, id ast.NodeID) {
	n := st.tree.Node(id)
	switch n.Kind {
	case ast.KindClassDef, ast.KindFunctionDef:
		st.bind(n.Name, id, n.Pos, BindDefinition)

	case ast.KindImport:
		for _, name := range n.Names {
			key, source := importBinding(name)
			st.table.Add(&Binding{
				Name:         key,
				Scope:        st.scopes.Chain(),
				Node:         id,
				Pos:          n.Pos,
				Kind:         BindImport,
				SourceModule: source,
				IsModule:     true,
			})
		}

	case ast.KindImportFrom:
		if n.IsWildcard() {
			b.expandWildcard(st, id, n)
			return
		}
		module := n.QualifiedModule()
		for _, name := range n.Names {
			st.table.Add(&Binding{
				Name:         name.Bound(),
				Scope:        st.scopes.Chain(),
				Node:         id,
				Pos:          n.Pos,
				Kind:         BindImport,
				SourceModule: module,
				Imported:     name.Name,
			})
		}

	case ast.KindName:
		if !st.tree.IsStore(id) || st.isGlobal(n.Name) {
			return
		}
		st.bind(n.Name, id, n.Pos, BindAssignment)

	case ast.KindArguments:
		if b.bindParams {
			for _, p := range n.Params {
				st.bind(p, id, n.Pos, BindParameter)
			}
		}
		if n.Vararg != "" {
			st.bind(n.Vararg, id, n.Pos, BindParameter)
		}
		if n.Kwarg != "" {
			st.bind(n.Kwarg, id, n.Pos, BindParameter)
		}

	case ast.KindGlobal:
		top, ok := st.scopes.Innermost()
		if !ok {
			return
		}
		set := st.globals[top.Node]
		if set == nil {
			set = make(map[string]bool, len(n.Globals))
			st.globals[top.Node] = set
		}
		for _, name := range n.Globals {
			set[name] = true
		}
	}
}

func (b *Builder) expandWildcard(st *buildState, id ast.NodeID, n *ast.Node) {
	module := n.QualifiedModule()
	exports, err := b.introspector.Exports(module)
	if err != nil {
		// Introspectors may cache and share their errors, so wrap instead of
		// attaching context to err itself.
		warning := domainerrors.Diagnostic(domainerrors.CodeModuleUnavailable, n.Pos.Line, "wildcard import skipped").
			WithContext(domainerrors.CtxModule, module)
		warning.Err = err
		st.warnings = append(st.warnings, warning)
		b.logger.Warn("wildcard import skipped", "module", module, "line", n.Pos.Line, "error", err)
		return
	}
	for _, name := range exports {
		if name == "" || strings.HasPrefix(name, "_") {
			continue
		}
		st.table.Add(&Binding{
			Name:         name,
			Scope:        st.scopes.Chain(),
			Node:         id,
			Pos:          n.Pos,
			Kind:         BindWildcard,
			SourceModule: module,
			Imported:     name,
		})
	}
}

func (st *buildState) bind(name string, id ast.NodeID, pos ast.Position, kind BindingKind) {
	st.table.Add(&Binding{
		Name:  name,
		Scope: st.scopes.Chain(),
		Node:  id,
		Pos:   pos,
		Kind:  kind,
	})
}

func (st *buildState) isGlobal(name string) bool {
	top, ok := st.scopes.Innermost()
	if !ok {
		return false
	}
	return st.globals[top.Node][name]
}

// importBinding returns the bound identifier and the module object it refers
// to for one `import` entry: `import a.b` binds `a` to module a, while
// `import a.b as c` binds `c` to module a.b.
func importBinding(name ast.ImportName) (key, source string) {
	if name.AsName != "" {
		return name.AsName, name.Name
	}
	head := name.Name
	if i := strings.IndexByte(head, '.'); i > 0 {
		head = head[:i]
	}
	return head, head
}
