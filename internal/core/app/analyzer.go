package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"pyscope/internal/core/config"
	domainerrors "pyscope/internal/core/errors"
	"pyscope/internal/engine/ast"
	"pyscope/internal/engine/modindex"
	"pyscope/internal/engine/parser"
	"pyscope/internal/engine/resolver"
	"pyscope/internal/engine/symbols"
	"pyscope/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type Option func(*Analyzer)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithIntrospector consults in before the configured wildcard sources.
func WithIntrospector(in symbols.Introspector) Option {
	return func(a *Analyzer) {
		if in != nil {
			a.extra = append(a.extra, in)
		}
	}
}

// Analyzer runs the parse, symbol table and resolver passes for Python modules
// and keeps the module index current. It is safe for concurrent use.
type Analyzer struct {
	cfg      *config.Config
	logger   *slog.Logger
	frontend *parser.PythonFrontend
	builder  *symbols.Builder
	resolver *resolver.Resolver
	index    *modindex.SQLiteIndex
	cache    *modindex.Cached
	extra    []symbols.Introspector
}

// New wires an Analyzer from cfg. A nil cfg means DefaultConfig.
func New(cfg *config.Config, opts ...Option) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	a := &Analyzer{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}

	tieBreak, err := resolver.ParseTieBreak(cfg.Analysis.TieBreak)
	if err != nil {
		return nil, err
	}
	unresolved, err := resolver.ParseUnresolvedPolicy(cfg.Analysis.Unresolved)
	if err != nil {
		return nil, err
	}
	ignored, err := resolver.CompileIgnored(cfg.Analysis.IgnoreSymbols)
	if err != nil {
		return nil, err
	}

	sources := modindex.Chain(append([]symbols.Introspector{}, a.extra...))
	if len(cfg.Wildcard.Modules) > 0 {
		sources = append(sources, modindex.NewStatic(cfg.Wildcard.Modules))
	}
	if cfg.Wildcard.IndexPath != "" {
		idx, err := modindex.OpenSQLiteIndex(cfg.Wildcard.IndexPath, cfg.Wildcard.ProjectKey)
		if err != nil {
			return nil, err
		}
		a.index = idx
		sources = append(sources, idx)
	}
	var introspector symbols.Introspector = sources
	if cfg.Wildcard.CacheSize > 0 {
		a.cache = modindex.NewCached(sources, cfg.Wildcard.CacheSize)
		introspector = a.cache
	}

	var frontendOpts []parser.Option
	if cfg.Analysis.ModuleNameFrom == config.ModuleNameFromPath {
		frontendOpts = append(frontendOpts, parser.WithModuleRoot(cfg.Analysis.ModuleRoot))
	}
	a.frontend = parser.NewPythonFrontend(append(frontendOpts, parser.WithLogger(a.logger))...)
	a.builder = symbols.NewBuilder(
		symbols.WithIntrospector(introspector),
		symbols.WithParameterBindings(cfg.Analysis.BindParameters),
		symbols.WithLogger(a.logger),
	)
	a.resolver = resolver.New(
		resolver.WithTieBreak(tieBreak),
		resolver.WithUnresolvedPolicy(unresolved),
		resolver.WithIgnored(ignored...),
		resolver.WithLogger(a.logger),
	)
	return a, nil
}

// Close releases the module index, if one is open.
func (a *Analyzer) Close() error {
	if a.index == nil {
		return nil
	}
	return a.index.Close()
}

// ModuleName returns the module identifier used for path.
func (a *Analyzer) ModuleName(path string) string {
	return a.frontend.ModuleName(path)
}

// AnalyzeSource parses src as the module at path and resolves it.
func (a *Analyzer) AnalyzeSource(ctx context.Context, path string, src []byte) (*Report, error) {
	return a.analyzeSource(ctx, uuid.NewString(), path, src)
}

// AnalyzeTree runs the symbol table and resolver passes over an already built
// tree. The module name is taken from the tree's root; path is only recorded
// in the module index.
func (a *Analyzer) AnalyzeTree(ctx context.Context, path string, tree *ast.Tree) (*Report, error) {
	return a.analyzeTree(ctx, uuid.NewString(), path, tree)
}

// AnalyzeFiles analyses every path with up to analysis.workers goroutines.
// Reports come back in input order. Files that cannot be read or parsed are
// left out and their errors joined into the returned error.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string) ([]*Report, error) {
	runID := uuid.NewString()
	ctx, span := observability.Tracer.Start(ctx, "app.AnalyzeFiles", trace.WithAttributes(
		attribute.String("pyscope.run_id", runID),
		attribute.Int("pyscope.files", len(paths)),
	))
	defer span.End()

	reports := make([]*Report, len(paths))
	failures := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.cfg.Analysis.Workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				failures[i] = domainerrors.AddContext(
					domainerrors.Wrap(err, domainerrors.CodeNotFound, "read module"),
					domainerrors.CtxPath, path)
				return nil
			}
			report, err := a.analyzeSource(gctx, runID, path, src)
			if err != nil {
				failures[i] = err
				return nil
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]*Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	err := errors.Join(failures...)
	if err != nil {
		span.SetStatus(codes.Error, "some modules failed")
	}
	a.logger.Info("analysis run complete", "run_id", runID, "modules", len(out), "failed", len(paths)-len(out))
	return out, err
}

// Forget drops a deleted module from the module index.
func (a *Analyzer) Forget(path string) error {
	module := a.ModuleName(path)
	if a.cache != nil {
		a.cache.Invalidate(module)
	}
	if a.index == nil {
		return nil
	}
	return a.index.Delete(module)
}

func (a *Analyzer) analyzeSource(ctx context.Context, runID, path string, src []byte) (*Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.AnalyzeSource", trace.WithAttributes(
		attribute.String("pyscope.run_id", runID),
		attribute.String("pyscope.path", path),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	tree, err := a.frontend.Parse(path, src)
	observability.PassDuration.WithLabelValues(observability.PhaseParse).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ModulesAnalyzed.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}

	report, err := a.analyzeTree(ctx, runID, path, tree)
	if report != nil {
		report.Duration = time.Since(start)
	}
	return report, err
}

func (a *Analyzer) analyzeTree(ctx context.Context, runID, path string, tree *ast.Tree) (*Report, error) {
	if tree == nil {
		return nil, domainerrors.New(domainerrors.CodeValidationError, "tree is required")
	}
	root := tree.Node(tree.Root())
	if root == nil || root.Kind != ast.KindModule {
		err := domainerrors.New(domainerrors.CodeValidationError, "tree root must be a module")
		return nil, domainerrors.AddContext(err, domainerrors.CtxPath, path)
	}
	module := root.Name
	ctx, span := observability.Tracer.Start(ctx, "app.AnalyzeTree", trace.WithAttributes(
		attribute.String("pyscope.run_id", runID),
		attribute.String("pyscope.module", module),
	))
	defer span.End()

	start := time.Now()
	report := &Report{RunID: runID, Module: module, Path: path}

	var warnings []error
	table := phase(ctx, observability.PhaseSymbols, func() *symbols.Table {
		t, w := a.builder.Build(tree)
		warnings = w
		return t
	})
	report.Table = table
	for _, w := range warnings {
		report.Diagnostics = append(report.Diagnostics, asDiagnostic(w))
	}
	observability.BindingsRecorded.Add(float64(table.Len()))

	res := phase(ctx, observability.PhaseResolve, func() *resolver.Result {
		return a.resolver.Resolve(tree, table)
	})
	report.Graph = res.Graph
	report.Diagnostics = append(report.Diagnostics, res.Diagnostics...)
	report.Stats = Stats{
		Bindings:   table.Len(),
		Resolved:   res.Resolved,
		Unresolved: res.Unresolved,
		Ambiguous:  res.Ambiguous,
		Ignored:    res.Ignored,
		Aliases:    res.Aliases,
	}
	_, report.Stats.Edges = res.Graph.Stats()
	observability.EdgesRecorded.Add(float64(report.Stats.Edges))
	for _, d := range report.Diagnostics {
		observability.DiagnosticsTotal.WithLabelValues(string(d.Code)).Inc()
	}

	if err := a.record(ctx, module, path, table); err != nil {
		// The analysis itself succeeded; a stale index only affects later
		// wildcard imports.
		a.logger.Warn("module index update failed", "module", module, "error", err)
		span.RecordError(err)
	}

	report.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("pyscope.edges", report.Stats.Edges),
		attribute.Int("pyscope.diagnostics", len(report.Diagnostics)),
	)
	observability.ModulesAnalyzed.WithLabelValues("ok").Inc()
	return report, nil
}

// phase times fn under its own span and the pass duration histogram.
func phase[T any](ctx context.Context, name string, fn func() T) T {
	_, span := observability.Tracer.Start(ctx, "app.phase."+name)
	defer span.End()
	start := time.Now()
	out := fn()
	observability.PassDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return out
}

// record stores the module's public names so later wildcard imports of it
// can be expanded.
func (a *Analyzer) record(ctx context.Context, module, path string, table *symbols.Table) error {
	if a.cache != nil {
		defer a.cache.Invalidate(module)
	}
	if a.index == nil || path == "" {
		return nil
	}
	_, span := observability.Tracer.Start(ctx, "app.phase."+observability.PhaseIndex)
	defer span.End()
	start := time.Now()
	err := a.index.Put(module, path, table.Exports())
	observability.PassDuration.WithLabelValues(observability.PhaseIndex).Observe(time.Since(start).Seconds())
	return err
}

func asDiagnostic(err error) *domainerrors.DomainError {
	var de *domainerrors.DomainError
	if errors.As(err, &de) {
		return de
	}
	return &domainerrors.DomainError{
		Code:    domainerrors.CodeInternal,
		Message: fmt.Sprintf("symbol table warning: %v", err),
		Err:     err,
	}
}
