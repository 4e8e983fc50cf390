package resolver

import (
	"testing"

	domainerrors "pyscope/internal/core/errors"
	"pyscope/internal/engine/ast"
	"pyscope/internal/engine/scope"
	"pyscope/internal/engine/symbols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mod = scope.Frame{Node: 0, Depth: 0, Name: "mod"}
	fnF = scope.Frame{Node: 3, Depth: 1, Name: "f"}
	fnG = scope.Frame{Node: 7, Depth: 1, Name: "g"}
	fnH = scope.Frame{Node: 9, Depth: 2, Name: "h"}
)

func binding(name string, line int, frames ...scope.Frame) *symbols.Binding {
	return &symbols.Binding{Name: name, Scope: scope.Chain(frames), Pos: ast.Position{Line: line}}
}

func TestResolveScope_AncestorOrSame(t *testing.T) {
	outer := binding("x", 1, mod)
	sibling := binding("x", 4, mod, fnG)

	got, err := ResolveScope(scope.Chain{mod, fnF, fnH}, []*symbols.Binding{sibling, outer}, 5, TieBreakNone)
	require.NoError(t, err)
	assert.Same(t, outer, got)
}

func TestResolveScope_DescendantIsNotCompatible(t *testing.T) {
	inner := binding("x", 3, mod, fnF)

	_, err := ResolveScope(scope.Chain{mod}, []*symbols.Binding{inner}, 10, TieBreakNone)
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeUnresolvedReference))
}

func TestResolveScope_SameTextDifferentNode(t *testing.T) {
	// Two functions both named f: identity, not text, decides compatibility.
	other := scope.Frame{Node: 42, Depth: 1, Name: "f"}
	b := binding("x", 3, mod, other)

	_, err := ResolveScope(scope.Chain{mod, fnF}, []*symbols.Binding{b}, 4, TieBreakNone)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeUnresolvedReference))
}

func TestResolveScope_ShadowingIsAmbiguousByDefault(t *testing.T) {
	outer := binding("x", 1, mod)
	inner := binding("x", 3, mod, fnF)

	_, err := ResolveScope(scope.Chain{mod, fnF}, []*symbols.Binding{outer, inner}, 4, TieBreakNone)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeResolutionAmbiguity, domainerrors.CodeOf(err))

	var de *domainerrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 2, de.Context[domainerrors.CtxCandidates])
	assert.Equal(t, "2 bindings in scope mod, mod.f", de.Message)
}

func TestResolveScope_InnermostWins(t *testing.T) {
	outer := binding("x", 1, mod)
	inner := binding("x", 3, mod, fnF)

	got, err := ResolveScope(scope.Chain{mod, fnF}, []*symbols.Binding{outer, inner}, 4, TieBreakInnermost)
	require.NoError(t, err)
	assert.Same(t, inner, got)

	got, err = ResolveScope(scope.Chain{mod, fnF}, []*symbols.Binding{outer, inner}, 4, TieBreakNearestPreceding)
	require.NoError(t, err)
	assert.Same(t, inner, got, "nearest_preceding shadows before comparing lines")
}

func TestResolveScope_InnermostTieIsAmbiguous(t *testing.T) {
	outer := binding("x", 1, mod)
	first := binding("x", 3, mod, fnF)
	second := binding("x", 5, mod, fnF)

	_, err := ResolveScope(scope.Chain{mod, fnF}, []*symbols.Binding{outer, first, second}, 6, TieBreakInnermost)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeResolutionAmbiguity, domainerrors.CodeOf(err))

	var de *domainerrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 2, de.Context[domainerrors.CtxCandidates], "only the innermost scope competes")
}

func TestResolveScope_Ambiguity(t *testing.T) {
	first := binding("x", 1, mod)
	second := binding("x", 6, mod)
	candidates := []*symbols.Binding{first, second}

	_, err := ResolveScope(scope.Chain{mod}, candidates, 3, TieBreakNone)
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeResolutionAmbiguity, domainerrors.CodeOf(err))

	got, err := ResolveScope(scope.Chain{mod}, candidates, 3, TieBreakNearestPreceding)
	require.NoError(t, err)
	assert.Same(t, first, got)

	got, err = ResolveScope(scope.Chain{mod}, candidates, 7, TieBreakNearestPreceding)
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestResolveScope_NearestFollowingWhenNonePrecedes(t *testing.T) {
	late := binding("x", 9, mod)
	later := binding("x", 12, mod)

	got, err := ResolveScope(scope.Chain{mod}, []*symbols.Binding{later, late}, 2, TieBreakNearestPreceding)
	require.NoError(t, err)
	assert.Same(t, late, got)
}

func TestResolveScope_NoCandidates(t *testing.T) {
	_, err := ResolveScope(scope.Chain{mod}, nil, 1, TieBreakNone)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeUnresolvedReference))
}

func TestParseTieBreak(t *testing.T) {
	tb, err := ParseTieBreak("nearest_preceding")
	require.NoError(t, err)
	assert.Equal(t, TieBreakNearestPreceding, tb)
	assert.Equal(t, "nearest_preceding", tb.String())

	tb, err = ParseTieBreak(" Innermost ")
	require.NoError(t, err)
	assert.Equal(t, TieBreakInnermost, tb)
	assert.Equal(t, "innermost", tb.String())

	tb, err = ParseTieBreak("")
	require.NoError(t, err)
	assert.Equal(t, TieBreakNone, tb)

	_, err = ParseTieBreak("first")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
}
