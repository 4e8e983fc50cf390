package app

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	domainerrors "pyscope/internal/core/errors"
	"pyscope/internal/engine/graph"
	"pyscope/internal/engine/symbols"
)

// Report is the outcome of analysing one module.
type Report struct {
	RunID       string
	Module      string
	Path        string
	Table       *symbols.Table
	Graph       *graph.Graph
	Diagnostics []*domainerrors.DomainError
	Stats       Stats
	Duration    time.Duration
}

type Stats struct {
	Bindings   int
	Edges      int
	Resolved   int
	Unresolved int
	Ambiguous  int
	Ignored    int
	Aliases    int
}

// Edges renders the dependency edges as "src -> dst", sorted.
func (r *Report) Edges() []string {
	if r == nil || r.Graph == nil {
		return nil
	}
	edges := r.Graph.Edges()
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.String())
	}
	return out
}

// DiagnosticsByCode counts diagnostics per code.
func (r *Report) DiagnosticsByCode() map[domainerrors.ErrorCode]int {
	out := make(map[domainerrors.ErrorCode]int)
	for _, d := range r.Diagnostics {
		out[d.Code]++
	}
	return out
}

// WriteEdges prints one "src -> dst" line per edge.
func (r *Report) WriteEdges(w io.Writer) error {
	for _, e := range r.Edges() {
		if _, err := fmt.Fprintln(w, e); err != nil {
			return err
		}
	}
	return nil
}

// WriteDiagnostics prints one "path:line: CODE: message key=value..." line per
// diagnostic.
func (r *Report) WriteDiagnostics(w io.Writer) error {
	for _, d := range r.Diagnostics {
		if _, err := fmt.Fprintln(w, formatDiagnostic(r.Path, d)); err != nil {
			return err
		}
	}
	return nil
}

func formatDiagnostic(path string, d *domainerrors.DomainError) string {
	var b strings.Builder
	if path != "" {
		b.WriteString(path)
		b.WriteByte(':')
	}
	if line, ok := d.Context[domainerrors.CtxLine]; ok {
		fmt.Fprintf(&b, "%v:", line)
	}
	fmt.Fprintf(&b, " %s: %s", d.Code, d.Message)

	keys := make([]string, 0, len(d.Context))
	for k := range d.Context {
		if k != domainerrors.CtxLine {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, d.Context[k])
	}
	return b.String()
}
