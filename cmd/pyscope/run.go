package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pyscope/internal/core/app"
	"pyscope/internal/core/config"
	"pyscope/internal/shared/observability"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const VERSION = "0.3.0"

const defaultConfigPath = "./pyscope.toml"

const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	shutdownWait = 5 * time.Second
)

type options struct {
	configPath string
	watch      bool
	verbose    bool
	version    bool
	paths      []string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	flags := flag.NewFlagSet("pyscope", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	flags.BoolVar(&opts.watch, "watch", false, "Re-analyse files as they change")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	flags.BoolVar(&opts.version, "version", false, "Print version and exit")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: pyscope [flags] <file.py|dir>...")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return opts, err
	}
	opts.paths = flags.Args()
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if opts.version {
		fmt.Fprintf(stdout, "pyscope v%s\n", VERSION)
		return exitOK
	}

	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		logger.Error("failed to load config", "path", opts.configPath, "error", err)
		return exitUsage
	}

	paths := inputPaths(opts.paths, cfg)
	if len(paths) == 0 {
		fmt.Fprintln(stderr, "no input paths; pass files or directories, or set watch.paths")
		return exitUsage
	}

	if cfg.Tracing.Enabled {
		shutdown, err := observability.SetupTracing(ctx, observability.TracingOptions{
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    cfg.Tracing.Insecure,
			ServiceName: cfg.Tracing.ServiceName,
		})
		if err != nil {
			logger.Error("failed to set up tracing", "error", err)
			return exitFailure
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}
	if cfg.Metrics.Enabled {
		stopMetrics := serveMetrics(cfg.Metrics.Address, logger)
		defer stopMetrics()
	}

	analyzer, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		logger.Error("failed to initialize analyzer", "error", err)
		return exitFailure
	}

	out := &printer{stdout: stdout, stderr: stderr}
	files, err := app.CollectModules(paths, cfg.Watch.ExcludeDirs, cfg.Watch.ExcludeFiles)
	if err != nil {
		logger.Error("failed to collect modules", "error", err)
		analyzer.Close()
		return exitFailure
	}
	reports, err := analyzer.AnalyzeFiles(ctx, files)
	out.print(reports)
	code := exitOK
	if err != nil {
		logger.Error("analysis failed", "error", err)
		code = exitFailure
	}

	if !opts.watch {
		analyzer.Close()
		return code
	}
	return watch(ctx, opts, cfg, analyzer, out, logger)
}

// loadConfig reads path, falling back to defaults when the default path does
// not exist. Environment overrides are applied last.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		var pathErr *fs.PathError
		if path != defaultConfigPath || !errors.As(err, &pathErr) {
			return nil, err
		}
		cfg = config.DefaultConfig()
	}
	config.ApplyEnvOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// watch runs the analyzer's watch loop until ctx is done, rebuilding the
// analyzer whenever the config file changes.
func watch(ctx context.Context, opts options, cfg *config.Config, analyzer *app.Analyzer, out *printer, logger *slog.Logger) int {
	configPath := opts.configPath
	reloads := make(chan *config.Config, 1)
	cw := config.NewWatcher(configPath, logger, func(next *config.Config) {
		select {
		case reloads <- next:
		default:
		}
	})
	if err := cw.Start(ctx); err != nil {
		logger.Warn("config hot reload disabled", "path", configPath, "error", err)
	} else {
		defer cw.Stop()
	}

	for {
		paths := inputPaths(opts.paths, cfg)
		wctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- analyzer.Watch(wctx, paths, func(reports []*app.Report, err error) {
				out.print(reports)
				if err != nil {
					logger.Error("re-analysis failed", "error", err)
				}
			})
		}()
		logger.Info("watching for changes", "paths", paths)

		select {
		case <-ctx.Done():
			cancel()
			err := <-done
			analyzer.Close()
			if err != nil {
				logger.Error("watcher failed", "error", err)
				return exitFailure
			}
			return exitOK
		case err := <-done:
			cancel()
			analyzer.Close()
			logger.Error("watcher failed", "error", err)
			return exitFailure
		case next := <-reloads:
			cancel()
			<-done
			rebuilt, err := app.New(next, app.WithLogger(logger))
			if err != nil {
				logger.Warn("keeping previous analyzer after config reload", "error", err)
				continue
			}
			analyzer.Close()
			analyzer, cfg = rebuilt, next
		}
	}
}

// inputPaths prefers paths named on the command line over watch.paths.
func inputPaths(args []string, cfg *config.Config) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Watch.Paths
}

// printer serialises report output from concurrent watch batches.
type printer struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
}

func (p *printer) print(reports []*app.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range reports {
		if err := r.WriteEdges(p.stdout); err != nil {
			slog.Warn("failed to write edges", "module", r.Module, "error", err)
		}
		if err := r.WriteDiagnostics(p.stderr); err != nil {
			slog.Warn("failed to write diagnostics", "module", r.Module, "error", err)
		}
	}
}

func serveMetrics(addr string, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
