// Package symbols builds the per-module symbol table: every binding site of
// the tree together with the scope chain active when it was defined.
package symbols

import (
	"sort"
	"strings"

	"pyscope/internal/engine/ast"
	"pyscope/internal/engine/scope"
)

type BindingKind int

const (
	BindDefinition BindingKind = iota // def / class
	BindImport
	BindAssignment
	BindParameter
	BindWildcard
)

func (k BindingKind) String() string {
	switch k {
	case BindDefinition:
		return "definition"
	case BindImport:
		return "import"
	case BindAssignment:
		return "assignment"
	case BindParameter:
		return "parameter"
	case BindWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// Binding is one definition event. It is never mutated after the builder
// records it.
type Binding struct {
	Name  string
	Scope scope.Chain
	Node  ast.NodeID
	Pos   ast.Position
	Kind  BindingKind

	// SourceModule is set when the binding comes from an import.
	SourceModule string
	// Imported is the member name in `from m import name as alias`.
	Imported string
	// IsModule distinguishes `import foo` (binds the module) from
	// `from foo import bar` (binds a member).
	IsModule bool
}

func (b *Binding) FromModule() bool { return b.SourceModule != "" }

// Destination returns the fully-qualified path of a use of this binding
// followed by the member labels in rest.
func (b *Binding) Destination(rest []string) []string {
	var head []string
	switch {
	case b.IsModule:
		head = ModulePath(b.SourceModule)
	case b.FromModule():
		head = append(ModulePath(b.SourceModule), b.Imported)
	default:
		head = append(b.Scope.Names(), b.Name)
	}
	out := make([]string, 0, len(head)+len(rest))
	out = append(out, head...)
	return append(out, rest...)
}

// ModulePath splits dotted module text into path segments. The leading dots of
// a relative module are kept together as the first segment.
func ModulePath(module string) []string {
	trimmed := strings.TrimLeft(module, ".")
	var out []string
	if level := len(module) - len(trimmed); level > 0 {
		out = append(out, module[:level])
	}
	for _, part := range strings.Split(trimmed, ".") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Table maps identifier text to its bindings in insertion order.
type Table struct {
	entries map[string][]*Binding
	count   int
}

func NewTable() *Table {
	return &Table{entries: make(map[string][]*Binding)}
}

func (t *Table) Add(b *Binding) {
	t.entries[b.Name] = append(t.entries[b.Name], b)
	t.count++
}

// Lookup returns the bindings recorded for name. The returned slice is a copy.
func (t *Table) Lookup(name string) []*Binding {
	if t == nil {
		return nil
	}
	list := t.entries[name]
	if len(list) == 0 {
		return nil
	}
	return append([]*Binding(nil), list...)
}

// Names returns every bound identifier, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of bindings.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.count
}

// Exports returns the public identifiers bound directly in the module scope,
// i.e. what `from <this module> import *` would make visible.
func (t *Table) Exports() []string {
	var out []string
	for name, list := range t.entries {
		if strings.HasPrefix(name, "_") {
			continue
		}
		for _, b := range list {
			if len(b.Scope) == 1 {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
