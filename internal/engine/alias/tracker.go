// Package alias records simple assignment aliases (`x = pdb`) per owning scope
// so later uses of the target resolve through the assigned source.
package alias

import (
	"strings"

	"pyscope/internal/engine/ast"
	"pyscope/internal/engine/scope"
)

// Key identifies an alias by text: the dotted scope chain it was recorded in
// and the dotted assignment target. Two keys built from different tree nodes
// are equal when their text is.
type Key struct {
	Scope  string
	Target string
}

func NewKey(chain scope.Chain, target []string) Key {
	return Key{Scope: chain.String(), Target: strings.Join(target, ".")}
}

// Tracker owns one alias map per live scope.
type Tracker struct {
	maps map[ast.NodeID]map[Key][]string
}

func NewTracker() *Tracker {
	return &Tracker{maps: make(map[ast.NodeID]map[Key][]string)}
}

// Record stores dest under key in the map owned by scopeNode, replacing any
// earlier alias for the same key.
func (t *Tracker) Record(scopeNode ast.NodeID, key Key, dest []string) {
	m := t.maps[scopeNode]
	if m == nil {
		m = make(map[Key][]string)
		t.maps[scopeNode] = m
	}
	m[key] = append([]string(nil), dest...)
}

func (t *Tracker) Lookup(scopeNode ast.NodeID, key Key) ([]string, bool) {
	dest, ok := t.maps[scopeNode][key]
	if !ok {
		return nil, false
	}
	return append([]string(nil), dest...), true
}

// Forget removes the alias stored under key in the map owned by scopeNode.
// It reports whether there was one.
func (t *Tracker) Forget(scopeNode ast.NodeID, key Key) bool {
	m := t.maps[scopeNode]
	if _, ok := m[key]; !ok {
		return false
	}
	delete(m, key)
	return true
}

// Resolve looks target up in the innermost scope of chain first and then in
// each enclosing scope, keyed by that scope's own chain.
func (t *Tracker) Resolve(chain scope.Chain, target []string) ([]string, bool) {
	dest, _, ok := t.ResolveOwned(chain, target)
	return dest, ok
}

// ResolveOwned is Resolve that also returns the length of the chain prefix
// owning the alias it found.
func (t *Tracker) ResolveOwned(chain scope.Chain, target []string) ([]string, int, bool) {
	for i := len(chain) - 1; i >= 0; i-- {
		if dest, ok := t.Lookup(chain[i].Node, NewKey(chain[:i+1], target)); ok {
			return dest, i + 1, true
		}
	}
	return nil, 0, false
}

// Drop discards the aliases owned by an evicted scope.
func (t *Tracker) Drop(scopeNode ast.NodeID) {
	delete(t.maps, scopeNode)
}

// Len returns the number of live aliases across all scopes.
func (t *Tracker) Len() int {
	n := 0
	for _, m := range t.maps {
		n += len(m)
	}
	return n
}
