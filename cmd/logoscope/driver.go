package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/control-theory/logoscope/internal/analyzer"
	"github.com/control-theory/logoscope/internal/config"
	"github.com/control-theory/logoscope/internal/logsource"
	"github.com/control-theory/logoscope/internal/model"
	"github.com/control-theory/logoscope/internal/summary"
)

// exitSuccess, exitError, exitAnomalyThreshold and exitFailFast mirror the
// specification's four exit codes.
const (
	exitSuccess          = 0
	exitError            = 1
	exitAnomalyThreshold = 2
	exitFailFast         = 3
)

// runBatch drains every source to completion via a multiplexer, then runs
// the analyzer's batch driver once over the collected lines and prints the
// rendered document to stdout.
func runBatch(ctx context.Context, log *logrus.Logger, a *analyzer.Analyzer, cfg config.AppConfig, sources []logsource.Source) int {
	mux := logsource.NewMultiplexer(ctx, sources, 0)
	mux.Start()
	defer mux.Stop()

	var lines []model.RawLine
	var srcErrs []model.LineError

	errCh := mux.Errors()
	lineCh := mux.Lines()
	for lineCh != nil || errCh != nil {
		select {
		case l, ok := <-lineCh:
			if !ok {
				lineCh = nil
				continue
			}
			lines = append(lines, l)
		case e, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			srcErrs = append(srcErrs, e)
			log.WithField("source_id", e.SourceID).WithField("kind", e.Kind).Warn("source error")
			if cfg.FailFast {
				return writeDocAndExit(a, cfg, srcErrs, exitFailFast)
			}
		}
	}

	s, err := a.RunBatch(ctx, lines, cfg.ParsedView(), uint64(cfg.MinCount), cfg.ExamplesForView())
	if err != nil {
		log.WithError(err).Error("batch run failed")
		if cfg.FailFast {
			return writeDocAndExit(a, cfg, srcErrs, exitFailFast)
		}
		return exitError
	}
	return emit(s, cfg, a, srcErrs)
}

// runStreaming interleaves Ingest with periodic Tick calls on a real-time
// cadence, emitting one JSONL delta record per tick and a full summary
// every cfg's summary interval, until every source closes or the context
// is cancelled.
func runStreaming(ctx context.Context, log *logrus.Logger, a *analyzer.Analyzer, cfg config.AppConfig, sources []logsource.Source) int {
	mux := logsource.NewMultiplexer(ctx, sources, 0)
	mux.Start()
	defer mux.Stop()

	interval := cfg.Interval
	if interval <= 0 {
		interval = model.DefaultUpdateInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	enc := json.NewEncoder(os.Stdout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	var srcErrs []model.LineError
	lineCh := mux.Lines()
	errCh := mux.Errors()
	for lineCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			lineCh, errCh = nil, nil
		case <-ticker.C:
			delta := a.Tick(time.Now())
			_ = enc.Encode(delta)
			if delta.FullSummary != nil {
				_ = enc.Encode(BuildDocument(*delta.FullSummary, cfg.ParsedView(), 0, nil))
			}
		case l, ok := <-lineCh:
			if !ok {
				lineCh = nil
				continue
			}
			if err := a.Ingest(l); err != nil {
				log.WithError(err).Error("ingest failed")
				if cfg.FailFast {
					return writeDocAndExit(a, cfg, srcErrs, exitFailFast)
				}
			}
		case e, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			srcErrs = append(srcErrs, e)
			log.WithField("source_id", e.SourceID).WithField("kind", e.Kind).Warn("source error")
		}
	}

	_ = g.Wait()
	s := a.FinalizeView(cfg.ParsedView(), uint64(cfg.MinCount), cfg.ExamplesForView())
	return emit(s, cfg, a, srcErrs)
}

func writeDocAndExit(a *analyzer.Analyzer, cfg config.AppConfig, srcErrs []model.LineError, code int) int {
	s := a.FinalizeView(cfg.ParsedView(), uint64(cfg.MinCount), cfg.ExamplesForView())
	emit(s, cfg, a, srcErrs)
	return code
}

// emit prints the rendered document and resolves the run's exit code:
// anomaly-threshold breach takes priority over plain success. The
// errors{} section merges source-level errors (missing files, truncated
// lines) with the analyzer's own recorded line-level errors.
func emit(s summary.Summary, cfg config.AppConfig, a *analyzer.Analyzer, srcErrs []model.LineError) int {
	lineTotal, lineSamples := a.Errors()
	errTotal := uint64(len(srcErrs)) + lineTotal
	errSamples := append(append([]model.LineError(nil), srcErrs...), lineSamples...)
	doc := BuildDocument(s, cfg.ParsedView(), errTotal, errSamples)
	_ = json.NewEncoder(os.Stdout).Encode(doc)

	if cfg.AnomalyExitThreshold > 0 {
		count := len(s.PatternAnomalies) + len(s.FieldAnomalies) + len(s.TemporalAnomalies)
		if count >= cfg.AnomalyExitThreshold {
			return exitAnomalyThreshold
		}
	}
	return exitSuccess
}
