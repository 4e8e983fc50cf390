// Package resolver runs the second pass over a module tree: every use of a
// name or attribute chain is resolved against the symbol table and recorded
// as an edge in the dependency graph.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainerrors "pyscope/internal/core/errors"
	"pyscope/internal/engine/alias"
	"pyscope/internal/engine/ast"
	"pyscope/internal/engine/graph"
	"pyscope/internal/engine/scope"
	"pyscope/internal/engine/symbols"

	"github.com/gobwas/glob"
)

// UnresolvedPolicy decides what happens to a use with no compatible binding.
type UnresolvedPolicy int

const (
	// UnresolvedSkip reports UNRESOLVED_REFERENCE and records no edge.
	UnresolvedSkip UnresolvedPolicy = iota
	// UnresolvedExternal reports the diagnostic and records an edge to the
	// bare use chain, as if it named an external symbol.
	UnresolvedExternal
)

func (p UnresolvedPolicy) String() string {
	if p == UnresolvedExternal {
		return "external"
	}
	return "skip"
}

func ParseUnresolvedPolicy(s string) (UnresolvedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return UnresolvedSkip, nil
	case "external":
		return UnresolvedExternal, nil
	}
	return UnresolvedSkip, domainerrors.New(domainerrors.CodeValidationError, fmt.Sprintf("unknown unresolved policy %q", s))
}

type Option func(*Resolver)

func WithTieBreak(policy TieBreak) Option {
	return func(r *Resolver) { r.tieBreak = policy }
}

func WithUnresolvedPolicy(policy UnresolvedPolicy) Option {
	return func(r *Resolver) { r.unresolved = policy }
}

// WithIgnored silences unresolved uses whose head identifier matches one of
// the globs (builtins such as print or len).
func WithIgnored(patterns ...glob.Glob) Option {
	return func(r *Resolver) { r.ignored = append(r.ignored, patterns...) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// CompileIgnored compiles identifier globs for WithIgnored.
func CompileIgnored(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, fmt.Sprintf("invalid ignore pattern %q", p))
		}
		out = append(out, g)
	}
	return out, nil
}

// Resolver is stateless between calls; each Resolve owns its scope and alias
// state, so one Resolver may serve concurrent analyses.
type Resolver struct {
	tieBreak   TieBreak
	unresolved UnresolvedPolicy
	ignored    []glob.Glob
	logger     *slog.Logger
}

func New(opts ...Option) *Resolver {
	r := &Resolver{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result is the outcome of one resolver pass.
type Result struct {
	Graph       *graph.Graph
	Diagnostics []*domainerrors.DomainError

	Resolved   int
	Unresolved int
	Ambiguous  int
	Ignored    int
	Aliases    int // aliases recorded, including ones later replaced or forgotten
}

// Resolve walks tree once, with the same traversal discipline as the symbol
// table builder, and returns the dependency graph built from table.
func (r *Resolver) Resolve(tree *ast.Tree, table *symbols.Table) *Result {
	p := &pass{
		r:       r,
		tree:    tree,
		table:   table,
		scopes:  scope.NewTracker(),
		aliases: alias.NewTracker(),
		result:  &Result{Graph: graph.New()},
	}
	tree.WalkFrames(func(f ast.Frame) []ast.Frame {
		for _, ev := range p.scopes.EvictStale(f.Depth) {
			p.aliases.Drop(ev.Node)
		}
		next := p.visit(f)
		p.scopes.EnterIfScope(tree, f.ID, f.Depth)
		return next
	})

	res := p.result
	vertices, edges := res.Graph.Stats()
	r.logger.Debug("resolver pass complete",
		"resolved", res.Resolved,
		"unresolved", res.Unresolved,
		"ambiguous", res.Ambiguous,
		"aliases", res.Aliases,
		"vertices", vertices,
		"edges", edges)
	return res
}

type pass struct {
	r       *Resolver
	tree    *ast.Tree
	table   *symbols.Table
	scopes  *scope.Tracker
	aliases *alias.Tracker
	result  *Result
}

func (p *pass) visit(f ast.Frame) []ast.Frame {
	n := p.tree.Node(f.ID)
	switch n.Kind {
	case ast.KindName:
		if p.tree.IsLoad(f.ID) {
			p.use([]string{n.Name}, n.Pos)
		}
		return nil
	case ast.KindAttribute:
		if p.tree.IsStore(f.ID) {
			return nil
		}
		labels, args, ok := p.attributeChain(f)
		if !ok {
			return p.tree.ChildFrames(f)
		}
		p.use(labels, n.Pos)
		return args
	case ast.KindAssign:
		return p.assign(f, n)
	}
	return p.tree.ChildFrames(f)
}

// attributeChain flattens an Attribute rooted at f into its labels, unwrapping
// Call nodes met along the way through their callee. The argument subtrees of
// those calls are returned so the walk still visits them. ok is false when the
// chain does not bottom out in a Name.
func (p *pass) attributeChain(f ast.Frame) (labels []string, args []ast.Frame, ok bool) {
	cur := f
	for {
		n := p.tree.Node(cur.ID)
		if n == nil {
			return nil, nil, false
		}
		switch n.Kind {
		case ast.KindAttribute:
			labels = append(labels, n.Name)
			cur = ast.Frame{ID: n.Object, Depth: cur.Depth + 1}
		case ast.KindCall:
			for _, a := range n.Args {
				args = append(args, ast.Frame{ID: a, Depth: cur.Depth + 1})
			}
			cur = ast.Frame{ID: n.Func, Depth: cur.Depth + 1}
		case ast.KindName:
			labels = append(labels, n.Name)
			reverse(labels)
			reverseFrames(args)
			return labels, args, true
		default:
			return nil, nil, false
		}
	}
}

// pureChain returns the labels of a bare Name or an Attribute chain that
// contains no call.
func (p *pass) pureChain(id ast.NodeID) ([]string, bool) {
	var labels []string
	for {
		n := p.tree.Node(id)
		if n == nil {
			return nil, false
		}
		switch n.Kind {
		case ast.KindAttribute:
			labels = append(labels, n.Name)
			id = n.Object
		case ast.KindName:
			labels = append(labels, n.Name)
			reverse(labels)
			return labels, true
		default:
			return nil, false
		}
	}
}

// assign records an alias for `target = source` where target is a Name or
// pure attribute chain and source is one too. Other shapes are traversed as
// ordinary expressions; shapes whose target cannot be modelled are reported.
func (p *pass) assign(f ast.Frame, n *ast.Node) []ast.Frame {
	if len(n.Targets) != 1 {
		p.unsupported(n, fmt.Sprintf("assignment with %d targets", len(n.Targets)))
		return p.tree.ChildFrames(f)
	}
	target, ok := p.pureChain(n.Targets[0])
	if !ok {
		p.unsupported(n, "assignment target is not a name or attribute chain")
		return p.tree.ChildFrames(f)
	}
	source, ok := p.pureChain(n.Value)
	if !ok {
		// x = foo(), x = 1: no alias, but uses inside the value still count.
		p.forgetAlias(target)
		return p.tree.ChildFrames(f)
	}

	dest, ok := p.use(source, n.Pos)
	if !ok {
		p.forgetAlias(target)
		return nil
	}
	chain := p.scopes.Chain()
	inner, ok := chain.Innermost()
	if !ok {
		return nil
	}
	p.aliases.Record(inner.Node, alias.NewKey(chain, target), dest)
	p.result.Aliases++
	return nil
}

// forgetAlias drops the alias target held in the current scope. A rebinding
// that records no alias must not leave the earlier one in effect.
func (p *pass) forgetAlias(target []string) {
	chain := p.scopes.Chain()
	inner, ok := chain.Innermost()
	if !ok {
		return
	}
	p.aliases.Forget(inner.Node, alias.NewKey(chain, target))
}

// use resolves a use chain at the current scope, records its edge and
// returns the destination path.
func (p *pass) use(labels []string, pos ast.Position) ([]string, bool) {
	chain := p.scopes.Chain()
	dest, err := p.resolve(chain, labels, pos.Line)
	if err == nil {
		p.result.Resolved++
		p.result.Graph.AddEdge(chain.Names(), dest)
		return dest, true
	}

	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeUnresolvedReference:
		if p.isIgnored(labels[0]) {
			p.result.Ignored++
			return nil, false
		}
		p.result.Unresolved++
		p.report(domainerrors.Diagnostic(domainerrors.CodeUnresolvedReference, pos.Line,
			fmt.Sprintf("unresolved reference %s", strings.Join(labels, "."))), chain, labels)
		if p.r.unresolved == UnresolvedExternal {
			p.result.Graph.AddEdge(chain.Names(), labels)
			return append([]string(nil), labels...), true
		}
	case domainerrors.CodeResolutionAmbiguity:
		p.result.Ambiguous++
		var de *domainerrors.DomainError
		if errors.As(err, &de) {
			p.report(de, chain, labels)
		}
	default:
		p.report(domainerrors.Diagnostic(domainerrors.CodeInternal, pos.Line, err.Error()), chain, labels)
	}
	return nil, false
}

// resolve applies the longest matching alias prefix first and falls back to
// the symbol table for the head identifier. An alias owned by an enclosing
// scope is skipped when the head is bound again in a scope nested inside it.
func (p *pass) resolve(chain scope.Chain, labels []string, line int) ([]string, error) {
	for n := len(labels); n >= 1; n-- {
		dest, owner, ok := p.aliases.ResolveOwned(chain, labels[:n])
		if !ok || p.shadowed(chain, labels[0], owner) {
			continue
		}
		return append(dest, labels[n:]...), nil
	}
	b, err := ResolveScope(chain, p.table.Lookup(labels[0]), line, p.r.tieBreak)
	if err != nil {
		return nil, err
	}
	return b.Destination(labels[1:]), nil
}

// shadowed reports whether name has a binding visible from chain in a scope
// deeper than the first owner frames.
func (p *pass) shadowed(chain scope.Chain, name string, owner int) bool {
	for _, b := range p.table.Lookup(name) {
		if len(b.Scope) > owner && b.Scope.IsPrefixOf(chain) {
			return true
		}
	}
	return false
}

func (p *pass) unsupported(n *ast.Node, msg string) {
	d := domainerrors.Diagnostic(domainerrors.CodeUnsupportedConstruct, n.Pos.Line, msg).
		WithContext(domainerrors.CtxNodeKind, n.Kind.String())
	p.report(d, p.scopes.Chain(), nil)
}

func (p *pass) report(d *domainerrors.DomainError, chain scope.Chain, labels []string) {
	d.WithContext(domainerrors.CtxScope, chain.String())
	if len(labels) > 0 {
		d.WithContext(domainerrors.CtxSymbol, strings.Join(labels, "."))
	}
	p.result.Diagnostics = append(p.result.Diagnostics, d)
	p.r.logger.Debug("resolver diagnostic", "code", d.Code, "message", d.Message, "scope", chain.String())
}

func (p *pass) isIgnored(name string) bool {
	for _, g := range p.r.ignored {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseFrames(s []ast.Frame) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
