// Package scope tracks the chain of lexical scopes enclosing the current node
// of a depth-first traversal.
package scope

import (
	"strings"

	"pyscope/internal/engine/ast"
)

// Frame is one active scope: the scope-defining node, its structural depth
// and its identifier text.
type Frame struct {
	Node  ast.NodeID
	Depth int
	Name  string
}

// Chain lists scopes from the outermost (module) to the innermost.
type Chain []Frame

func (c Chain) Names() []string {
	out := make([]string, len(c))
	for i, f := range c {
		out[i] = f.Name
	}
	return out
}

func (c Chain) String() string {
	return strings.Join(c.Names(), ".")
}

// Innermost returns the last frame of the chain.
func (c Chain) Innermost() (Frame, bool) {
	if len(c) == 0 {
		return Frame{}, false
	}
	return c[len(c)-1], true
}

// IsPrefixOf reports whether c is an ancestor-or-same chain of other, comparing
// scope node identity position by position.
func (c Chain) IsPrefixOf(other Chain) bool {
	if len(c) > len(other) {
		return false
	}
	for i := range c {
		if c[i].Node != other[i].Node {
			return false
		}
	}
	return true
}

// Tracker is a stack of active scopes. It is a pure state machine driven by a
// single traversal.
type Tracker struct {
	stack []Frame
}

func NewTracker() *Tracker {
	return &Tracker{stack: make([]Frame, 0, 8)}
}

// EnterIfScope pushes id when it is a Module, ClassDef or FunctionDef node.
func (t *Tracker) EnterIfScope(tree *ast.Tree, id ast.NodeID, depth int) bool {
	n := tree.Node(id)
	if n == nil || !n.Kind.IsScope() {
		return false
	}
	t.stack = append(t.stack, Frame{Node: id, Depth: depth, Name: n.Name})
	return true
}

// EvictStale pops every scope whose depth is >= depth and returns the popped
// frames, innermost first. A scope stays active only for nodes strictly deeper
// than its defining node.
func (t *Tracker) EvictStale(depth int) []Frame {
	var evicted []Frame
	for len(t.stack) > 0 {
		top := t.stack[len(t.stack)-1]
		if top.Depth < depth {
			break
		}
		evicted = append(evicted, top)
		t.stack = t.stack[:len(t.stack)-1]
	}
	return evicted
}

// Chain returns a copy of the active scopes.
func (t *Tracker) Chain() Chain {
	out := make(Chain, len(t.stack))
	copy(out, t.stack)
	return out
}

func (t *Tracker) Innermost() (Frame, bool) {
	if len(t.stack) == 0 {
		return Frame{}, false
	}
	return t.stack[len(t.stack)-1], true
}

func (t *Tracker) Len() int { return len(t.stack) }
