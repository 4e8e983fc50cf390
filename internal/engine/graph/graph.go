// Package graph is the dependency graph: a trie over path segments whose
// vertices also carry "references" edges to other vertices.
package graph

import (
	"sort"
	"strings"
)

// Vertex is one materialized path. Containment (children) and dependency
// edges are kept apart: a child is a sub-path, a dependency is a reference.
type Vertex struct {
	segment  string
	parent   *Vertex
	depth    int
	children map[string]*Vertex
	deps     map[*Vertex]struct{}
}

func newVertex(segment string, parent *Vertex) *Vertex {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}
	return &Vertex{
		segment:  segment,
		parent:   parent,
		depth:    depth,
		children: make(map[string]*Vertex),
		deps:     make(map[*Vertex]struct{}),
	}
}

func (v *Vertex) Segment() string { return v.segment }

func (v *Vertex) Parent() *Vertex { return v.parent }

// Path returns the segments from the root down to v. The root's path is empty.
func (v *Vertex) Path() []string {
	out := make([]string, v.depth)
	for cur := v; cur != nil && cur.depth > 0; cur = cur.parent {
		out[cur.depth-1] = cur.segment
	}
	return out
}

func (v *Vertex) String() string {
	return strings.Join(v.Path(), ".")
}

// Child returns the direct sub-path named segment.
func (v *Vertex) Child(segment string) (*Vertex, bool) {
	c, ok := v.children[segment]
	return c, ok
}

// Children returns a copy of the segment -> child mapping.
func (v *Vertex) Children() map[string]*Vertex {
	out := make(map[string]*Vertex, len(v.children))
	for k, c := range v.children {
		out[k] = c
	}
	return out
}

// Dependencies returns the vertices v references, ordered by path.
func (v *Vertex) Dependencies() []*Vertex {
	out := make([]*Vertex, 0, len(v.deps))
	for d := range v.deps {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (v *Vertex) DependsOn(other *Vertex) bool {
	_, ok := v.deps[other]
	return ok
}

// Edge is a dependency between two materialized paths.
type Edge struct {
	Src []string
	Dst []string
}

func (e Edge) String() string {
	return strings.Join(e.Src, ".") + " -> " + strings.Join(e.Dst, ".")
}

// Graph is built by a single resolver pass and read afterwards; it is not
// safe for concurrent mutation.
type Graph struct {
	root     *Vertex
	vertices int
	edges    int
}

func New() *Graph {
	return &Graph{root: newVertex("", nil)}
}

func (g *Graph) Root() *Vertex { return g.root }

// AddPath materializes path segment by segment and returns its last vertex.
// Adding an existing path returns the existing vertex.
func (g *Graph) AddPath(path []string) *Vertex {
	cur := g.root
	for _, seg := range path {
		next, ok := cur.children[seg]
		if !ok {
			next = newVertex(seg, cur)
			cur.children[seg] = next
			g.vertices++
		}
		cur = next
	}
	return cur
}

// Lookup returns the vertex for path if it has been materialized.
func (g *Graph) Lookup(path []string) (*Vertex, bool) {
	cur := g.root
	for _, seg := range path {
		next, ok := cur.children[seg]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// AddEdge records that src references dst, materializing both paths. It
// reports whether the edge is new.
func (g *Graph) AddEdge(src, dst []string) bool {
	from := g.AddPath(src)
	to := g.AddPath(dst)
	if _, ok := from.deps[to]; ok {
		return false
	}
	from.deps[to] = struct{}{}
	g.edges++
	return true
}

// Stats returns the number of materialized vertices (excluding the root) and
// dependency edges.
func (g *Graph) Stats() (vertices, edges int) {
	return g.vertices, g.edges
}

// Walk visits every vertex below the root in depth-first order with children
// sorted by segment. Returning false from fn skips the vertex's subtree.
func (g *Graph) Walk(fn func(v *Vertex) bool) {
	var visit func(v *Vertex)
	visit = func(v *Vertex) {
		keys := make([]string, 0, len(v.children))
		for k := range v.children {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			c := v.children[k]
			if fn(c) {
				visit(c)
			}
		}
	}
	visit(g.root)
}

// Edges lists every dependency edge ordered by source then destination path.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	g.Walk(func(v *Vertex) bool {
		for _, d := range v.Dependencies() {
			out = append(out, Edge{Src: v.Path(), Dst: d.Path()})
		}
		return true
	})
	return out
}
