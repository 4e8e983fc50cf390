package scope

import (
	"testing"

	"pyscope/internal/engine/ast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildNested(t *testing.T) (*ast.Tree, ast.NodeID, ast.NodeID, ast.NodeID) {
	t.Helper()
	b := ast.NewBuilder()
	body := b.Other(3)
	fn := b.FunctionDef("f", 2, ast.NoNode, body)
	cls := b.ClassDef("C", 1, fn)
	mod := b.Module("m", cls)
	return b.Build(mod), mod, cls, fn
}

func TestTracker_EnterIfScope(t *testing.T) {
	tree, mod, cls, _ := buildNested(t)
	tr := NewTracker()

	assert.True(t, tr.EnterIfScope(tree, mod, 0))
	assert.True(t, tr.EnterIfScope(tree, cls, 1))

	b := ast.NewBuilder()
	lit := b.Literal(1)
	other := b.Build(b.Module("x", lit))
	assert.False(t, tr.EnterIfScope(other, lit, 2))

	assert.Equal(t, []string{"m", "C"}, tr.Chain().Names())
	assert.Equal(t, "m.C", tr.Chain().String())
}

func TestTracker_EvictStaleUsesDepth(t *testing.T) {
	tree, mod, cls, fn := buildNested(t)
	tr := NewTracker()
	tr.EnterIfScope(tree, mod, 0)
	tr.EnterIfScope(tree, cls, 1)
	tr.EnterIfScope(tree, fn, 2)

	// A sibling of fn at depth 2 is evaluated in C's scope.
	evicted := tr.EvictStale(2)
	require.Len(t, evicted, 1)
	assert.Equal(t, fn, evicted[0].Node)
	assert.Equal(t, []string{"m", "C"}, tr.Chain().Names())

	// Nodes at depth 1 leave only the module active.
	evicted = tr.EvictStale(1)
	require.Len(t, evicted, 1)
	assert.Equal(t, cls, evicted[0].Node)

	assert.Empty(t, tr.EvictStale(1))
	top, ok := tr.Innermost()
	require.True(t, ok)
	assert.Equal(t, mod, top.Node)
}

func TestTracker_ChainIsACopy(t *testing.T) {
	tree, mod, cls, _ := buildNested(t)
	tr := NewTracker()
	tr.EnterIfScope(tree, mod, 0)

	captured := tr.Chain()
	tr.EnterIfScope(tree, cls, 1)
	tr.EvictStale(0)
	tr.EnterIfScope(tree, cls, 0)

	require.Len(t, captured, 1)
	assert.Equal(t, mod, captured[0].Node)
}

func TestChain_IsPrefixOf(t *testing.T) {
	m := Frame{Node: 0, Name: "m"}
	f := Frame{Node: 1, Depth: 1, Name: "f"}
	g := Frame{Node: 2, Depth: 1, Name: "f"}

	tests := []struct {
		name string
		a, b Chain
		want bool
	}{
		{"same", Chain{m, f}, Chain{m, f}, true},
		{"ancestor", Chain{m}, Chain{m, f}, true},
		{"descendant", Chain{m, f}, Chain{m}, false},
		{"sibling with same name", Chain{m, g}, Chain{m, f}, false},
		{"empty", Chain{}, Chain{m}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.IsPrefixOf(tt.b))
		})
	}
}
