package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalk_PreOrderLeftToRight(t *testing.T) {
	b := NewBuilder()
	x := b.Name("x", 1, Store)
	one := b.Literal(1)
	assign := b.Assign(1, one, x)
	fn := b.FunctionDef("f", 2, NoNode, b.Other(3))
	mod := b.Module("m", assign, fn)
	tree := b.Build(mod)

	var kinds []Kind
	var depths []int
	tree.Walk(func(f Frame) bool {
		kinds = append(kinds, tree.Kind(f.ID))
		depths = append(depths, f.Depth)
		return true
	})

	assert.Equal(t, []Kind{
		KindModule, KindAssign, KindName, KindStore, KindLiteral, KindFunctionDef, KindOther,
	}, kinds)
	assert.Equal(t, []int{0, 1, 2, 3, 2, 1, 2}, depths)
}

func TestWalk_SkipsChildrenWhenVisitReturnsFalse(t *testing.T) {
	b := NewBuilder()
	pdb := b.Name("pdb", 1, Load)
	attr := b.Attribute(pdb, "set_trace", 1, Load)
	mod := b.Module("m", attr)
	tree := b.Build(mod)

	visited := 0
	tree.Walk(func(f Frame) bool {
		visited++
		return tree.Kind(f.ID) != KindAttribute
	})
	assert.Equal(t, 2, visited)
}

func TestBuilder_ContextAndReferences(t *testing.T) {
	b := NewBuilder()
	load := b.Name("a", 4, Load)
	store := b.Name("b", 4, Store)
	lit := b.Literal(4)
	tree := b.Build(b.Module("m", load, store, lit))

	assert.True(t, tree.IsLoad(load))
	assert.False(t, tree.IsStore(load))
	assert.True(t, tree.IsStore(store))

	litNode := tree.Node(lit)
	require.NotNil(t, litNode)
	assert.Equal(t, NoNode, litNode.Value)
	assert.Equal(t, NoNode, litNode.Ctx)
	assert.Nil(t, tree.Node(NodeID(999)))
}

func TestDepths(t *testing.T) {
	b := NewBuilder()
	inner := b.FunctionDef("g", 3, NoNode, b.Other(4))
	outer := b.FunctionDef("f", 2, NoNode, inner)
	root := b.Module("m", outer)
	orphan := b.Literal(9)
	tree := b.Build(root)

	depths := tree.Depths()
	assert.Equal(t, 0, depths[root])
	assert.Equal(t, 1, depths[outer])
	assert.Equal(t, 2, depths[inner])
	assert.Equal(t, -1, depths[orphan])
}

func TestImportHelpers(t *testing.T) {
	assert.Equal(t, "np", ImportName{Name: "numpy", AsName: "np"}.Bound())
	assert.Equal(t, "os", ImportName{Name: "os"}.Bound())

	b := NewBuilder()
	wild := b.ImportFrom(1, "pkg", 2, ImportName{Name: Wildcard})
	tree := b.Build(b.Module("m", wild))
	n := tree.Node(wild)
	assert.True(t, n.IsWildcard())
	assert.Equal(t, "..pkg", n.QualifiedModule())
	assert.Equal(t, "Attribute", KindAttribute.String())
	assert.True(t, KindClassDef.IsScope())
	assert.False(t, KindCall.IsScope())
}
