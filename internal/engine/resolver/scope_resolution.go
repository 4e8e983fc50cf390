package resolver

import (
	"fmt"
	"strings"

	domainerrors "pyscope/internal/core/errors"
	"pyscope/internal/engine/scope"
	"pyscope/internal/engine/symbols"
)

// TieBreak selects how several compatible candidates are disambiguated.
type TieBreak int

const (
	// TieBreakNone reports RESOLUTION_AMBIGUITY whenever more than one
	// candidate is compatible.
	TieBreakNone TieBreak = iota
	// TieBreakInnermost lets the innermost compatible scope shadow the outer
	// ones; several candidates in that scope are still ambiguous.
	TieBreakInnermost
	// TieBreakNearestPreceding shadows like TieBreakInnermost, then picks the
	// last definition at or before the use line, or the first one after it
	// when none precedes.
	TieBreakNearestPreceding
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakInnermost:
		return "innermost"
	case TieBreakNearestPreceding:
		return "nearest_preceding"
	default:
		return "none"
	}
}

func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return TieBreakNone, nil
	case "innermost":
		return TieBreakInnermost, nil
	case "nearest_preceding":
		return TieBreakNearestPreceding, nil
	}
	return TieBreakNone, domainerrors.New(domainerrors.CodeValidationError, fmt.Sprintf("unknown tie-break policy %q", s))
}

// ResolveScope picks the binding a use at useLine within match refers to.
//
// A candidate is compatible when its scope chain is an ancestor-or-same of
// match; siblings and descendants never are. Exactly one compatible candidate
// resolves. More than one is ambiguous unless policy narrows them down.
func ResolveScope(match scope.Chain, candidates []*symbols.Binding, useLine int, policy TieBreak) (*symbols.Binding, error) {
	var compatible, innermost []*symbols.Binding
	best := -1
	for _, c := range candidates {
		if !c.Scope.IsPrefixOf(match) {
			continue
		}
		compatible = append(compatible, c)
		switch depth := len(c.Scope); {
		case depth > best:
			best = depth
			innermost = append(innermost[:0], c)
		case depth == best:
			innermost = append(innermost, c)
		}
	}

	switch len(compatible) {
	case 0:
		return nil, domainerrors.New(domainerrors.CodeUnresolvedReference, "no compatible binding")
	case 1:
		return compatible[0], nil
	}

	switch policy {
	case TieBreakInnermost:
		if len(innermost) == 1 {
			return innermost[0], nil
		}
		return nil, ambiguous(innermost, useLine)
	case TieBreakNearestPreceding:
		return nearestPreceding(innermost, useLine), nil
	}
	return nil, ambiguous(compatible, useLine)
}

func ambiguous(candidates []*symbols.Binding, useLine int) error {
	scopes := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if s := c.Scope.String(); !seen[s] {
			seen[s] = true
			scopes = append(scopes, s)
		}
	}
	err := domainerrors.Diagnostic(domainerrors.CodeResolutionAmbiguity, useLine,
		fmt.Sprintf("%d bindings in scope %s", len(candidates), strings.Join(scopes, ", ")))
	return err.WithContext(domainerrors.CtxCandidates, len(candidates))
}

func nearestPreceding(candidates []*symbols.Binding, useLine int) *symbols.Binding {
	var before, after *symbols.Binding
	for _, c := range candidates {
		line := c.Pos.Line
		if line <= useLine {
			if before == nil || line >= before.Pos.Line {
				before = c
			}
			continue
		}
		if after == nil || line < after.Pos.Line {
			after = c
		}
	}
	if before != nil {
		return before
	}
	return after
}
