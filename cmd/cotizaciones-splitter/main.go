package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/a3tai/cotizaciones-splitter/internal/archive"
	"github.com/a3tai/cotizaciones-splitter/internal/config"
	"github.com/a3tai/cotizaciones-splitter/internal/mcp"
	"github.com/a3tai/cotizaciones-splitter/internal/pdf"
	"github.com/a3tai/cotizaciones-splitter/internal/processor"
	"github.com/a3tai/cotizaciones-splitter/internal/statement"
	"github.com/a3tai/cotizaciones-splitter/internal/watch"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// newLogger builds the process logger. Logs always go to w (stderr in
// production) so stdout stays free for the MCP protocol and cli output.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// debug logs carry their source location
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.IsDebug()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newProcessor(cfg *config.Config, svc *pdf.Service, logger *slog.Logger) (*processor.Processor, error) {
	policy, err := statement.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}
	search, err := statement.ParseMonthSearch(cfg.MonthSearch)
	if err != nil {
		return nil, err
	}

	return processor.New(svc, svc, processor.Options{
		Policy:      policy,
		MonthSearch: search,
		Workers:     cfg.Workers,
		Logger:      logger,
	}), nil
}

// runCLI splits cfg.Input into cfg.Output and reports the result on stdout
func runCLI(ctx context.Context, cfg *config.Config, svc *pdf.Service, logger *slog.Logger, stdout io.Writer) error {
	proc, err := newProcessor(cfg, svc, logger)
	if err != nil {
		return err
	}

	data, err := svc.ReadSource(cfg.Input)
	if err != nil {
		return err
	}

	result, err := proc.Process(ctx, data)
	if err != nil {
		return err
	}

	output, err := svc.ResolvePath(cfg.Output)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if err := archive.WriteFile(output, result.Archive); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Archive: %s\n", output)
	fmt.Fprintf(stdout, "Pages: %d, files: %d, warnings: %d\n", result.Pages, result.Artifacts, len(result.Warnings))
	for _, w := range result.WarningStrings() {
		fmt.Fprintf(stdout, "warning: %s\n", w)
	}
	return nil
}

// runWatch splits every batch dropped into the configured directory
func runWatch(ctx context.Context, cfg *config.Config, svc *pdf.Service, logger *slog.Logger) error {
	proc, err := newProcessor(cfg, svc, logger)
	if err != nil {
		return err
	}

	w, err := watch.New(watch.Config{
		Dir:         cfg.PDFDirectory,
		InitialScan: true,
	}, svc, proc, logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// run dispatches on the configured mode
func run(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	svc, err := pdf.NewService(cfg.MaxFileSize, cfg.PDFDirectory)
	if err != nil {
		return fmt.Errorf("failed to create PDF service: %w", err)
	}

	switch {
	case cfg.Mode == config.ModeCLI:
		return runCLI(ctx, cfg, svc, logger, stdout)
	case cfg.Mode == config.ModeWatch:
		return runWatch(ctx, cfg, svc, logger)
	case cfg.IsStdioMode(), cfg.IsServerMode():
		server, err := mcp.NewServer(cfg, svc, logger)
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		return server.Run(ctx)
	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger := newLogger(cfg, os.Stderr)
	logger.Debug("starting", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, logger); err != nil {
		logger.Error("stopped with error", "mode", cfg.Mode, "error", err)
		stop()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Cotizaciones Splitter\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
