package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/control-theory/logoscope/internal/analyzer"
	"github.com/control-theory/logoscope/internal/config"
	"github.com/control-theory/logoscope/internal/logging"
	"github.com/control-theory/logoscope/internal/logsource"
)

// Build variables, set by ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, paths, err := config.Load(args)
	if err != nil {
		if config.IsVersionRequest(err) {
			fmt.Printf("logoscope %s (%s)\n", version, commit)
			return 0
		}
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		return 1
	}

	log := logging.New(cfg.LogLevel)
	cleanupLogger := logging.Configure(log, "logoscope", cfg.LogFormat == "json")
	defer cleanupLogger()

	runID := uuid.New().String()
	log.WithField("run_id", runID).Info("starting")

	a := analyzer.New(cfg.AnalyzerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received, cancelling")
		cancel()
	}()

	sources := openSources(ctx, paths, cfg.AnalyzerConfig().MaxLineBytes)

	var code int
	if cfg.Follow {
		code = runStreaming(ctx, log, a, cfg, sources)
	} else {
		code = runBatch(ctx, log, a, cfg, sources)
	}

	signal.Stop(sigCh)
	return code
}

// openSources opens stdin when no file paths are given, otherwise one
// source per path. A missing file surfaces as a per-source io_error
// rather than aborting the run.
func openSources(ctx context.Context, paths []string, maxLineBytes int) []logsource.Source {
	if len(paths) == 0 {
		return []logsource.Source{logsource.NewStdin(ctx, maxLineBytes)}
	}
	sources := make([]logsource.Source, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, logsource.NewFile(ctx, p, maxLineBytes))
	}
	return sources
}
