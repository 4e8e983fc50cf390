// Package parser is the tree-sitter front end: it turns Python source into the
// ast.Tree the resolver passes consume.
package parser

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	domainerrors "pyscope/internal/core/errors"
	"pyscope/internal/engine/ast"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

type Option func(*PythonFrontend)

// WithModuleRoot names modules by their dotted path relative to root instead
// of by file stem.
func WithModuleRoot(root string) Option {
	return func(f *PythonFrontend) { f.root = root }
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *PythonFrontend) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// PythonFrontend parses Python source with tree-sitter. It is safe for
// concurrent use.
type PythonFrontend struct {
	pool   *parserPool
	root   string
	logger *slog.Logger
}

func NewPythonFrontend(opts ...Option) *PythonFrontend {
	f := &PythonFrontend{
		pool:   newParserPool(sitter.NewLanguage(tree_sitter_python.Language())),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ModuleName returns the module identifier Parse uses for path.
func (f *PythonFrontend) ModuleName(path string) string {
	return ModuleName(path, f.root)
}

// Parse builds the arena for one module. Source with syntax errors is
// rejected rather than analysed from a recovered tree.
func (f *PythonFrontend) Parse(path string, src []byte) (*ast.Tree, error) {
	sp := f.pool.get()
	defer f.pool.put(sp)

	tree := sp.Parse(src, nil)
	if tree == nil {
		return nil, domainerrors.New(domainerrors.CodeInternal, fmt.Sprintf("tree-sitter returned no tree for %s", path))
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		err := domainerrors.New(domainerrors.CodeValidationError, "syntax error")
		err = domainerrors.AddContext(err, domainerrors.CtxPath, path)
		return nil, domainerrors.AddContext(err, domainerrors.CtxLine, firstErrorLine(root))
	}

	c := newConverter(src)
	id := c.module(root, f.ModuleName(path))
	out := c.b.Build(id)
	f.logger.Debug("parsed module", "path", path, "nodes", out.Len())
	return out, nil
}

func firstErrorLine(n *sitter.Node) int {
	if n.Kind() == "ERROR" || n.IsMissing() {
		return line(n)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		ch := n.Child(i)
		if ch != nil && ch.HasError() {
			return firstErrorLine(ch)
		}
	}
	return line(n)
}

// ModuleName derives a module identifier from a file path. With an empty root
// the file stem is used; otherwise the path relative to root is dotted
// (pkg/sub/mod.py -> pkg.sub.mod). A package's __init__.py names the package.
func ModuleName(path, root string) string {
	clean := filepath.Clean(path)
	if root != "" {
		if rel, err := filepath.Rel(root, clean); err == nil && !strings.HasPrefix(rel, "..") {
			clean = rel
		} else {
			root = ""
		}
	}

	dir, file := filepath.Split(clean)
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	if stem == "__init__" {
		dir = strings.TrimSuffix(dir, string(filepath.Separator))
		if dir == "" {
			return stem
		}
		dir, stem = filepath.Split(dir)
	}
	if root == "" {
		return stem
	}

	var parts []string
	for _, p := range strings.Split(filepath.ToSlash(dir), "/") {
		if p != "" && p != "." {
			parts = append(parts, p)
		}
	}
	return strings.Join(append(parts, stem), ".")
}
