// Package analyzer implements the Streaming/Batch Driver: the single
// synchronous Ingest/Tick surface that threads one logical entry at a time
// through the Line Assembler, Parser, Masker, Drain Tree, Parameter &
// Schema Tracker, Temporal Analyzer, Field & Pattern Anomaly detector,
// Correlation Engine and Query Index, and renders the accumulated state
// into a Summary on demand.
package analyzer

import (
	"sort"
	"strings"
	"time"

	"github.com/control-theory/logoscope/internal/assembler"
	"github.com/control-theory/logoscope/internal/correlation"
	"github.com/control-theory/logoscope/internal/drain"
	"github.com/control-theory/logoscope/internal/masking"
	"github.com/control-theory/logoscope/internal/model"
	"github.com/control-theory/logoscope/internal/paramstats"
	"github.com/control-theory/logoscope/internal/parser"
	"github.com/control-theory/logoscope/internal/queryindex"
	"github.com/control-theory/logoscope/internal/summary"
)

// Analyzer owns every component's state for one run and drives them
// through a single serialized reduction path. Ingest/Tick are the only
// entry points a caller needs: everything downstream of line assembly is
// deterministic given the order entries are reduced in.
type Analyzer struct {
	cfg Config

	assemblers map[string]*assembler.Assembler
	parserCfg  *parser.Config
	smart      *masking.SmartMasker

	drain  *drain.Drain
	params *paramstats.Tracker
	corr   *correlation.Engine
	index  *queryindex.Index

	timestamps      map[uint64][]time.Time
	firstSeenAtLine map[uint64]uint64

	totalLines uint64
	timeStart  time.Time
	timeEnd    time.Time

	errSamples []model.LineError
	errTotal   uint64

	baselineEstablished bool
	tick                int

	// streaming delta bookkeeping
	seenClusters  map[uint64]bool
	knownBursts   map[burstKey]bool
	knownGaps     map[gapKey]bool
	knownFindings map[findingKey]bool
}

type burstKey struct {
	clusterID uint64
	start     time.Time
}

type gapKey struct {
	clusterID uint64
	start     time.Time
}

type findingKey struct {
	kind      string
	clusterID uint64
	field     string
}

// New constructs an Analyzer from a resolved Config.
func New(cfg Config) *Analyzer {
	cfg = cfg.normalized()
	return &Analyzer{
		cfg:             cfg,
		assemblers:      make(map[string]*assembler.Assembler),
		parserCfg:       cfg.parserConfig(),
		smart:           masking.NewSmartMasker(cfg.MaskCacheSize),
		drain:           drain.New(cfg.Drain),
		params:          paramstats.New(cfg.ParamValueCap),
		corr:            correlation.New(cfg.Correlation),
		index:           queryindex.New(cfg.ResultCap, cfg.Streaming),
		timestamps:      make(map[uint64][]time.Time),
		firstSeenAtLine: make(map[uint64]uint64),
		seenClusters:    make(map[uint64]bool),
		knownBursts:     make(map[burstKey]bool),
		knownGaps:       make(map[gapKey]bool),
		knownFindings:   make(map[findingKey]bool),
	}
}

func (a *Analyzer) assemblerFor(sourceID string) *assembler.Assembler {
	asm, ok := a.assemblers[sourceID]
	if !ok {
		asm = assembler.New(sourceID, a.cfg.MaxLinesPerEntry)
		a.assemblers[sourceID] = asm
	}
	return asm
}

func (a *Analyzer) recordError(e model.LineError) {
	a.errTotal++
	if len(a.errSamples) < a.cfg.ErrorSampleCap {
		a.errSamples = append(a.errSamples, e)
	}
}

// Ingest feeds one raw line through assembly and, once it closes a logical
// entry, the full reduction pipeline. It is the sole entry point for both
// batch mode's sequential fallback and streaming mode.
func (a *Analyzer) Ingest(line model.RawLine) error {
	if len(line.Text) > a.cfg.MaxLineBytes {
		a.recordError(model.LineError{
			LineNumber: line.Ordinal, SourceID: line.SourceID,
			Kind: model.ErrKindLineTooLong, Detail: "line exceeds the configured maximum size",
		})
		if a.cfg.FailFast {
			return newError(model.ErrKindLineTooLong, nil)
		}
		return nil
	}

	asm := a.assemblerFor(line.SourceID)
	if entry, ok := asm.Push(line.Ordinal, line.Text); ok {
		if err := a.reduceLogicalEntry(entry); err != nil {
			return err
		}
	}
	for _, pending := range asm.Pending() {
		if err := a.reduceLogicalEntry(pending); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) reduceLogicalEntry(entry model.LogicalEntry) error {
	p := a.prepare(entry)
	return a.reducePrepared(p)
}

// preparedEntry is the stateless, worker-safe output of parsing, masking
// and tokenizing one logical entry: everything reducePrepared needs,
// computed without touching any shared mutable state.
type preparedEntry struct {
	entry     model.LogicalEntry
	record    model.ParsedRecord
	lineErr   *model.LineError
	tokens    []string
	rawTokens []string
}

// prepare runs the CPU-bound, side-effect-free half of the pipeline: parse,
// then mask and tokenize the resulting message text. It touches only
// a.parserCfg (read-only) and a.smart, whose cache is internally
// synchronized, so it is safe to call concurrently across entries.
func (a *Analyzer) prepare(entry model.LogicalEntry) preparedEntry {
	rec, lineErr := parser.Parse(a.parserCfg, entry)
	msgText := rec.MessageText()
	rawTokens := strings.Fields(msgText)

	var tokens []string
	if rec.Kind == model.KindPlaintext {
		if sm := a.smart.Mask(msgText); sm.BypassesDrain() {
			tokens = drain.Tokenize(sm.Template)
		}
	}
	if tokens == nil {
		tokens = drain.Tokenize(masking.Mask(msgText))
	}

	return preparedEntry{entry: entry, record: rec, lineErr: lineErr, tokens: tokens, rawTokens: rawTokens}
}

// reducePrepared performs every stateful mutation for one prepared entry:
// Drain insertion, parameter/schema tracking, correlation observation and
// retained-line indexing. Callers (Ingest, and the batch driver's
// sequential reduce stage) must invoke this in entry order — it is the
// pipeline's single reducer.
func (a *Analyzer) reducePrepared(p preparedEntry) error {
	if p.lineErr != nil {
		a.recordError(*p.lineErr)
		if a.cfg.FailFast {
			return newError(p.lineErr.Kind, nil)
		}
	}

	rec := p.record
	entry := p.entry

	cluster, _ := a.drain.Insert(drain.Insertion{
		Tokens:    p.tokens,
		Timestamp: rec.Timestamp,
		HasTime:   rec.HasTime,
		Level:     rec.Level,
		Service:   rec.Service,
		Host:      rec.Host,
		RawLine:   entry.Text,
	})

	if _, seen := a.firstSeenAtLine[cluster.ID]; !seen {
		a.firstSeenAtLine[cluster.ID] = a.totalLines + 1
	}

	a.params.ObserveTemplate(cluster.ID, wildcardPositions(cluster.Template), p.rawTokens)
	if rec.Kind == model.KindJSON {
		a.params.ObserveFields(cluster.ID, rec.FlatFields)
		a.params.ObserveSchema(rec.Timestamp, rec.FlatFields)
	}

	if rec.HasTime {
		a.corr.Observe(cluster.ID, rec.Timestamp)
		a.timestamps[cluster.ID] = append(a.timestamps[cluster.ID], rec.Timestamp)
		if a.timeStart.IsZero() || rec.Timestamp.Before(a.timeStart) {
			a.timeStart = rec.Timestamp
		}
		if rec.Timestamp.After(a.timeEnd) {
			a.timeEnd = rec.Timestamp
		}
	}

	a.index.Append(model.RetainedLine{
		Ordinal:    entry.Ordinal,
		Timestamp:  rec.Timestamp,
		SourceID:   entry.SourceID,
		Text:       entry.Text,
		TemplateID: cluster.ID,
		Template:   cluster.TemplateString(),
	})

	a.totalLines++
	return nil
}

// wildcardPositions returns the indices of a template's variable
// positions, the raw-token slots the Parameter & Schema Tracker should
// observe for this cluster. A position counts as variable once Drain has
// generalized it to the bare wildcard, or when it still holds one of
// masking's placeholders — the same test Drain's own descend() uses to
// decide a token is a branch-worthy wildcard rather than a literal.
func wildcardPositions(template []string) []int {
	var out []int
	for i, t := range template {
		if t == drain.WildcardToken || masking.IsPlaceholder(t) {
			out = append(out, i)
		}
	}
	return out
}

// Finalize flushes any pending assembler state, then renders the current
// state into a full-view Summary — the terminal call for a caller that has
// no view/query knobs of its own to apply.
func (a *Analyzer) Finalize() summary.Summary {
	return a.finalizeView(summary.ViewFull, 0, 0)
}

// View renders the current state for a specific view and query knobs,
// without flushing pending assembler state — used by a CLI surface that
// wants to re-render the same accumulated state under a different view.
func (a *Analyzer) View(view summary.View, minCount uint64, maxExamples int) summary.Summary {
	return a.buildSummary(view, minCount, maxExamples)
}

// FinalizeView flushes any pending assembler state, then renders it under
// the given view and query knobs — the view-aware counterpart to
// Finalize, for a caller (the batch/streaming driver) whose terminal
// render must honor -view triage/verbose/deep/patterns/logs and the
// min-count/examples knobs instead of always rendering full.
func (a *Analyzer) FinalizeView(view summary.View, minCount uint64, maxExamples int) summary.Summary {
	return a.finalizeView(view, minCount, maxExamples)
}

// finalizeView is the shared flush-then-render path Finalize, FinalizeView
// and RunBatch's terminal/partial renders all go through.
func (a *Analyzer) finalizeView(view summary.View, minCount uint64, maxExamples int) summary.Summary {
	a.flushAssemblers()
	return a.buildSummary(view, minCount, maxExamples)
}

func (a *Analyzer) flushAssemblers() {
	sourceIDs := make([]string, 0, len(a.assemblers))
	for id := range a.assemblers {
		sourceIDs = append(sourceIDs, id)
	}
	sort.Strings(sourceIDs)
	for _, id := range sourceIDs {
		if entry, ok := a.assemblers[id].Finish(); ok {
			a.reduceLogicalEntry(entry)
		}
	}
}

func overflowCluster(d *drain.Drain) *drain.Cluster {
	return &drain.Cluster{
		ID:       ^uint64(0),
		Template: []string{drain.OverflowTemplate},
		Count:    d.OverflowCount(),
		Examples: d.OverflowExamples(5),
	}
}

// Errors returns the total count of recoverable line-level errors observed
// so far and the bounded sample retained for the output document's
// errors{} section.
func (a *Analyzer) Errors() (uint64, []model.LineError) {
	return a.errTotal, a.errSamples
}

// QueryIndex exposes the retained-line buffer for drill-down lookups (the
// output document's query_interface surface).
func (a *Analyzer) QueryIndex() model.QueryIndex {
	return a.index
}
