package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/control-theory/logoscope/internal/model"
	"github.com/control-theory/logoscope/internal/summary"
)

// RunBatch runs the full pipeline over a pre-loaded slice of raw lines: a
// sequential line-assembly pass, a parallel stateless prepare stage fanned
// out across cfg.WorkerCount workers, and a sequential reduce stage that
// replays the prepared entries in their original order through the single
// shared reducer. This satisfies the ordering guarantee (the Drain tree and
// every other shared structure only ever observes entries serialized in
// one deterministic order) while still parallelizing the CPU-bound half of
// the pipeline across cores.
//
// A context cancellation during either the parallel or sequential phase
// yields a partial, Incomplete summary rather than an error, matching the
// specification's cancellation-handling rule; only a non-cancellation
// failure (or fail_fast tripping on a line-level error) is returned as an
// error. The terminal render (and every partial-summary render) honors
// the requested view and min-count/max-examples knobs, the same as a
// later standalone View call would.
func (a *Analyzer) RunBatch(ctx context.Context, lines []model.RawLine, view summary.View, minCount uint64, maxExamples int) (summary.Summary, error) {
	entries, err := a.assembleAll(ctx, lines)
	if err != nil {
		if isCancellation(err) {
			return a.partialSummary(view, minCount, maxExamples, "cancelled during line assembly"), nil
		}
		return summary.Summary{}, err
	}

	prepared := make([]preparedEntry, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workerCount())
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			prepared[i] = a.prepare(e)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if isCancellation(err) {
			return a.partialSummary(view, minCount, maxExamples, "cancelled during parallel preparation"), nil
		}
		return summary.Summary{}, newError(model.ErrKindIOError, err)
	}

	for i, p := range prepared {
		if ctx.Err() != nil {
			return a.partialSummary(view, minCount, maxExamples, fmt.Sprintf("cancelled after reducing %d of %d prepared entries", i, len(prepared))), nil
		}
		if rerr := a.reducePrepared(p); rerr != nil {
			return a.finalizeView(view, minCount, maxExamples), rerr
		}
	}
	return a.finalizeView(view, minCount, maxExamples), nil
}

// assembleAll runs the Line Assembler sequentially per source, since
// multi-line joining is inherently stateful and order-dependent; this
// produces the ordered entry list the parallel prepare stage then fans
// out over.
func (a *Analyzer) assembleAll(ctx context.Context, lines []model.RawLine) ([]model.LogicalEntry, error) {
	entries := make([]model.LogicalEntry, 0, len(lines))
	for _, l := range lines {
		if ctx.Err() != nil {
			return entries, ctx.Err()
		}
		if len(l.Text) > a.cfg.MaxLineBytes {
			a.recordError(model.LineError{
				LineNumber: l.Ordinal, SourceID: l.SourceID,
				Kind: model.ErrKindLineTooLong, Detail: "line exceeds the configured maximum size",
			})
			if a.cfg.FailFast {
				return entries, newError(model.ErrKindLineTooLong, nil)
			}
			continue
		}
		asm := a.assemblerFor(l.SourceID)
		if entry, ok := asm.Push(l.Ordinal, l.Text); ok {
			entries = append(entries, entry)
		}
		entries = append(entries, asm.Pending()...)
	}

	sourceIDs := make([]string, 0, len(a.assemblers))
	for id := range a.assemblers {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)
	for _, id := range sourceIDs {
		if entry, ok := a.assemblers[id].Finish(); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (a *Analyzer) workerCount() int {
	if a.cfg.WorkerCount > 0 {
		return a.cfg.WorkerCount
	}
	return 4
}

func (a *Analyzer) partialSummary(view summary.View, minCount uint64, maxExamples int, reason string) summary.Summary {
	s := a.finalizeView(view, minCount, maxExamples)
	s.Incomplete = true
	s.IncompleteReason = reason
	return s
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
