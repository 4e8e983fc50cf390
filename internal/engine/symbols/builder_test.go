package symbols

import (
	"errors"
	"testing"

	domainerrors "pyscope/internal/core/errors"
	"pyscope/internal/engine/ast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIntrospector map[string][]string

func (f fakeIntrospector) Exports(module string) ([]string, error) {
	names, ok := f[module]
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeModuleUnavailable, "not installed")
	}
	return names, nil
}

func TestBuild_DefinitionsBindInEnclosingScope(t *testing.T) {
	// class C:
	//     def method(self): pass
	// def f(): pass
	b := ast.NewBuilder()
	method := b.FunctionDef("method", 2, ast.NoNode, b.Other(2))
	cls := b.ClassDef("C", 1, method)
	fn := b.FunctionDef("f", 3, ast.NoNode, b.Other(3))
	tree := b.Build(b.Module("mod", cls, fn))

	table, warnings := NewBuilder().Build(tree)
	require.Empty(t, warnings)

	c := table.Lookup("C")
	require.Len(t, c, 1)
	assert.Equal(t, []string{"mod"}, c[0].Scope.Names())
	assert.Equal(t, BindDefinition, c[0].Kind)

	m := table.Lookup("method")
	require.Len(t, m, 1)
	assert.Equal(t, []string{"mod", "C"}, m[0].Scope.Names())

	f := table.Lookup("f")
	require.Len(t, f, 1)
	assert.Equal(t, []string{"mod"}, f[0].Scope.Names(), "sibling after class must not see class scope")
}

func TestBuild_Imports(t *testing.T) {
	// import pdb, os.path, numpy as np
	// from os import path as p, sep
	b := ast.NewBuilder()
	imp := b.Import(1,
		ast.ImportName{Name: "pdb"},
		ast.ImportName{Name: "os.path"},
		ast.ImportName{Name: "numpy", AsName: "np"},
	)
	from := b.ImportFrom(2, "os", 0, ast.ImportName{Name: "path", AsName: "p"}, ast.ImportName{Name: "sep"})
	rel := b.ImportFrom(3, "utils", 1, ast.ImportName{Name: "helper"})
	tree := b.Build(b.Module("mod", imp, from, rel))

	table, _ := NewBuilder().Build(tree)

	tests := []struct {
		name     string
		source   string
		imported string
		isModule bool
	}{
		{"pdb", "pdb", "", true},
		{"os", "os", "", true},
		{"np", "numpy", "", true},
		{"p", "os", "path", false},
		{"sep", "os", "sep", false},
		{"helper", ".utils", "helper", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Lookup(tt.name)
			require.Len(t, got, 1)
			assert.Equal(t, tt.source, got[0].SourceModule)
			assert.Equal(t, tt.imported, got[0].Imported)
			assert.Equal(t, tt.isModule, got[0].IsModule)
			assert.Equal(t, BindImport, got[0].Kind)
		})
	}
	assert.Empty(t, table.Lookup("numpy"), "aliased module name must not be bound")
}

func TestBuild_WildcardExpansion(t *testing.T) {
	b := ast.NewBuilder()
	wild := b.ImportFrom(1, "helpers", 0, ast.ImportName{Name: ast.Wildcard})
	tree := b.Build(b.Module("mod", wild))

	in := fakeIntrospector{"helpers": {"run", "_private", "stop"}}
	table, warnings := NewBuilder(WithIntrospector(in)).Build(tree)
	require.Empty(t, warnings)

	assert.Equal(t, []string{"run", "stop"}, table.Names())
	run := table.Lookup("run")
	require.Len(t, run, 1)
	assert.Equal(t, BindWildcard, run[0].Kind)
	assert.Equal(t, "helpers", run[0].SourceModule)
	assert.False(t, run[0].IsModule)
}

func TestBuild_WildcardUnavailableDegradesGracefully(t *testing.T) {
	b := ast.NewBuilder()
	wild := b.ImportFrom(1, "nonexistent_module", 0, ast.ImportName{Name: ast.Wildcard})
	x := b.Name("x", 2, ast.Store)
	assign := b.Assign(2, b.Literal(2), x)
	tree := b.Build(b.Module("mod", wild, assign))

	table, warnings := NewBuilder().Build(tree)
	require.Len(t, warnings, 1)
	assert.True(t, domainerrors.IsCode(warnings[0], domainerrors.CodeModuleUnavailable))

	var de *domainerrors.DomainError
	require.True(t, errors.As(warnings[0], &de))
	assert.Equal(t, "nonexistent_module", de.Context[domainerrors.CtxModule])

	assert.Equal(t, 1, table.Len())
	assert.Len(t, table.Lookup("x"), 1)
}

func TestBuild_NamesStoreOnly(t *testing.T) {
	b := ast.NewBuilder()
	store := b.Assign(1, b.Name("y", 1, ast.Load), b.Name("x", 1, ast.Store))
	tree := b.Build(b.Module("mod", store))

	table, _ := NewBuilder().Build(tree)
	assert.Len(t, table.Lookup("x"), 1)
	assert.Empty(t, table.Lookup("y"))
}

func TestBuild_GlobalDeclarationExclusion(t *testing.T) {
	// counter = 0
	// def bump():
	//     global counter
	//     counter = 1
	//     local = 2
	b := ast.NewBuilder()
	top := b.Assign(1, b.Literal(1), b.Name("counter", 1, ast.Store))
	glob := b.Global(3, "counter")
	inner := b.Assign(4, b.Literal(4), b.Name("counter", 4, ast.Store))
	local := b.Assign(5, b.Literal(5), b.Name("local", 5, ast.Store))
	fn := b.FunctionDef("bump", 2, ast.NoNode, glob, inner, local)
	tree := b.Build(b.Module("mod", top, fn))

	table, _ := NewBuilder().Build(tree)

	counter := table.Lookup("counter")
	require.Len(t, counter, 1)
	assert.Equal(t, []string{"mod"}, counter[0].Scope.Names())

	l := table.Lookup("local")
	require.Len(t, l, 1)
	assert.Equal(t, []string{"mod", "bump"}, l[0].Scope.Names())
}

func TestBuild_Arguments(t *testing.T) {
	b := ast.NewBuilder()
	args := b.Arguments(1, []string{"a", "b"}, "rest", "opts")
	fn := b.FunctionDef("f", 1, args, b.Other(2))
	tree := b.Build(b.Module("mod", fn))

	table, _ := NewBuilder().Build(tree)
	assert.Empty(t, table.Lookup("a"))
	rest := table.Lookup("rest")
	require.Len(t, rest, 1)
	assert.Equal(t, []string{"mod", "f"}, rest[0].Scope.Names())
	assert.Len(t, table.Lookup("opts"), 1)

	withParams, _ := NewBuilder(WithParameterBindings(true)).Build(tree)
	a := withParams.Lookup("a")
	require.Len(t, a, 1)
	assert.Equal(t, BindParameter, a[0].Kind)
	assert.Equal(t, []string{"mod", "f"}, a[0].Scope.Names())
}

func TestBuild_RedefinitionsAccumulate(t *testing.T) {
	b := ast.NewBuilder()
	first := b.FunctionDef("foo", 1, ast.NoNode, b.Other(2))
	second := b.FunctionDef("foo", 4, ast.NoNode, b.Other(5))
	tree := b.Build(b.Module("mod", first, second))

	table, _ := NewBuilder().Build(tree)
	foo := table.Lookup("foo")
	require.Len(t, foo, 2)
	assert.Equal(t, first, foo[0].Node)
	assert.Equal(t, second, foo[1].Node)
	assert.Equal(t, 2, table.Len())
}
