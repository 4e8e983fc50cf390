package ast

// Tree is a read-only node arena with a single root.
type Tree struct {
	nodes []Node
	root  NodeID
}

func (t *Tree) Root() NodeID { return t.root }

func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node stored at id. Callers must not modify it.
func (t *Tree) Node(id NodeID) *Node {
	if t == nil || id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Kind returns the node kind, or KindOther for an invalid id.
func (t *Tree) Kind(id NodeID) Kind {
	n := t.Node(id)
	if n == nil {
		return KindOther
	}
	return n.Kind
}

// IsStore reports whether a Name or Attribute node occurs in store context.
func (t *Tree) IsStore(id NodeID) bool {
	n := t.Node(id)
	return n != nil && n.Ctx.Valid() && t.Kind(n.Ctx) == KindStore
}

// IsLoad reports whether a Name or Attribute node occurs in load context.
func (t *Tree) IsLoad(id NodeID) bool {
	n := t.Node(id)
	return n != nil && n.Ctx.Valid() && t.Kind(n.Ctx) == KindLoad
}

// Frame is one entry of the traversal work-stack.
type Frame struct {
	ID    NodeID
	Depth int
}

// Walk visits the tree depth-first in pre-order using an explicit work-stack
// seeded with the root at depth 0. Children are pushed in reverse so they are
// visited left to right. When visit returns false the node's children are not
// pushed.
func (t *Tree) Walk(visit func(f Frame) bool) {
	t.WalkFrames(func(f Frame) []Frame {
		if !visit(f) {
			return nil
		}
		return t.ChildFrames(f)
	})
}

// WalkFrames is Walk with visitor-selected descent: visit returns the frames
// to push next, in source order. Returning nil prunes the subtree.
func (t *Tree) WalkFrames(visit func(f Frame) []Frame) {
	if t == nil || !t.root.Valid() {
		return
	}
	stack := []Frame{{ID: t.root, Depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		next := visit(f)
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
}

// ChildFrames returns the frames of f's children at depth f.Depth+1.
func (t *Tree) ChildFrames(f Frame) []Frame {
	children := t.nodes[f.ID].Children
	if len(children) == 0 {
		return nil
	}
	out := make([]Frame, len(children))
	for i, c := range children {
		out[i] = Frame{ID: c, Depth: f.Depth + 1}
	}
	return out
}

// Depths computes the structural depth of every node reachable from the root.
// Unreachable nodes report -1.
func (t *Tree) Depths() []int {
	depths := make([]int, t.Len())
	for i := range depths {
		depths[i] = -1
	}
	t.Walk(func(f Frame) bool {
		depths[f.ID] = f.Depth
		return true
	})
	return depths
}
