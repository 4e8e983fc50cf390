package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	domainerrors "pyscope/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_WriteEdgesAndDiagnostics(t *testing.T) {
	a := newAnalyzer(t, nil)
	report, err := a.AnalyzeSource(context.Background(), "svc.py", []byte(`
import logging

def handler():
    logging.info("hi")

def handler():
    pass

handler()
`))
	require.NoError(t, err)

	var edges, diags bytes.Buffer
	require.NoError(t, report.WriteEdges(&edges))
	require.NoError(t, report.WriteDiagnostics(&diags))
	assert.Equal(t, "svc.handler -> logging.info\n", edges.String())
	assert.Equal(t,
		"svc.py:10: RESOLUTION_AMBIGUITY: 2 bindings in scope svc candidates=2 scope=svc symbol=handler\n",
		diags.String())

	assert.Equal(t, map[domainerrors.ErrorCode]int{domainerrors.CodeResolutionAmbiguity: 1}, report.DiagnosticsByCode())
}

func TestFormatDiagnostic(t *testing.T) {
	d := domainerrors.Diagnostic(domainerrors.CodeUnresolvedReference, 3, "unresolved reference").
		WithContext(domainerrors.CtxSymbol, "foo.bar")
	assert.Equal(t, "mod.py:3: UNRESOLVED_REFERENCE: unresolved reference symbol=foo.bar", formatDiagnostic("mod.py", d))
	assert.Equal(t, "3: UNRESOLVED_REFERENCE: unresolved reference symbol=foo.bar", formatDiagnostic("", d))
}

func TestCollectModules(t *testing.T) {
	dir := t.TempDir()
	app := writeModule(t, dir, filepath.Join("app", "main.py"), "")
	util := writeModule(t, dir, filepath.Join("app", "util", "strings.py"), "")
	writeModule(t, dir, filepath.Join("app", "__pycache__", "main.py"), "")
	writeModule(t, dir, filepath.Join("app", "schema_generated.py"), "")
	writeModule(t, dir, filepath.Join("app", "README.md"), "")
	loose := writeModule(t, dir, "loose_generated.py", "")

	files, err := CollectModules(
		[]string{filepath.Join(dir, "app"), loose, app},
		[]string{"__pycache__"},
		[]string{"*_generated.py"},
	)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{app, util, loose}, files)

	_, err = CollectModules([]string{filepath.Join(dir, "nope")}, nil, nil)
	assert.Error(t, err)

	_, err = CollectModules([]string{dir}, []string{"[unclosed"}, nil)
	assert.Error(t, err)
}
