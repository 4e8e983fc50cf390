// Package modindex answers "what does module M export?" for wildcard imports.
// Every implementation satisfies symbols.Introspector and reports a module it
// cannot describe with an error coded MODULE_UNAVAILABLE.
package modindex

import (
	"fmt"
	"sort"
	"strings"

	domainerrors "pyscope/internal/core/errors"
	"pyscope/internal/engine/symbols"
)

var (
	_ symbols.Introspector = Unavailable{}
	_ symbols.Introspector = (*Static)(nil)
	_ symbols.Introspector = Chain(nil)
	_ symbols.Introspector = (*Cached)(nil)
	_ symbols.Introspector = (*SQLiteIndex)(nil)
)

func unavailable(module string) error {
	err := &domainerrors.DomainError{
		Code:    domainerrors.CodeModuleUnavailable,
		Message: fmt.Sprintf("module %s is not indexed", module),
	}
	return err.WithContext(domainerrors.CtxModule, module)
}

// Unavailable never knows any module.
type Unavailable struct{}

func (Unavailable) Exports(module string) ([]string, error) {
	return nil, unavailable(module)
}

// Static serves exports from an in-memory map, typically the [wildcard.modules]
// table of the configuration.
type Static struct {
	modules map[string][]string
}

func NewStatic(modules map[string][]string) *Static {
	s := &Static{modules: make(map[string][]string, len(modules))}
	for name, exports := range modules {
		s.modules[strings.TrimSpace(name)] = publicNames(exports)
	}
	return s
}

func (s *Static) Exports(module string) ([]string, error) {
	exports, ok := s.modules[module]
	if !ok {
		return nil, unavailable(module)
	}
	return append([]string(nil), exports...), nil
}

// Chain asks each introspector in turn. The first one that knows the module
// answers; an error other than MODULE_UNAVAILABLE stops the search.
type Chain []symbols.Introspector

func (c Chain) Exports(module string) ([]string, error) {
	for _, in := range c {
		exports, err := in.Exports(module)
		if err == nil {
			return exports, nil
		}
		if !domainerrors.IsCode(err, domainerrors.CodeModuleUnavailable) {
			return nil, err
		}
	}
	return nil, unavailable(module)
}

// publicNames drops empty and underscore-prefixed names, deduplicates and sorts.
func publicNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || strings.HasPrefix(n, "_") {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
