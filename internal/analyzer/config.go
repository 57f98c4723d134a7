package analyzer

import (
	"time"

	"github.com/control-theory/logoscope/internal/anomaly"
	"github.com/control-theory/logoscope/internal/correlation"
	"github.com/control-theory/logoscope/internal/drain"
	"github.com/control-theory/logoscope/internal/model"
	"github.com/control-theory/logoscope/internal/parser"
	"github.com/control-theory/logoscope/internal/summary"
	"github.com/control-theory/logoscope/internal/temporal"
)

// Config bundles every tunable the pipeline's components need, resolved
// once by the caller (the CLI's config loader, or a test) and treated as
// immutable for the lifetime of a run.
type Config struct {
	MaxLinesPerEntry int
	MaxLineBytes     int
	TimeKeys         []string
	DropKeys         map[string]bool

	Drain       drain.Config
	Temporal    temporal.Config
	Anomaly     anomaly.Config
	Correlation correlation.Config

	ParamValueCap      int
	MaskCacheSize      int
	ResultCap          int
	SchemaImpactWindow time.Duration

	// Streaming mode knobs; ignored by RunBatch.
	Streaming       bool
	Window          time.Duration
	SummaryInterval int

	// SummaryView and its query knobs: the view streaming's periodic
	// full-summary re-emission (Tick) renders under. RunBatch and View
	// take their own view/minCount/maxExamples arguments instead, since
	// a batch or ad-hoc render can vary per call; a tick's periodic
	// re-emission has no per-call argument to carry them, so it reads
	// them from here.
	SummaryView        summary.View
	SummaryMinCount    uint64
	SummaryMaxExamples int

	ErrorSampleCap int
	FailFast       bool
	WorkerCount    int
}

// DefaultConfig returns every tunable at the specification's default,
// mirroring each sub-package's own DefaultConfig.
func DefaultConfig() Config {
	return Config{
		MaxLinesPerEntry:   model.DefaultMaxLinesPerEntry,
		MaxLineBytes:       model.DefaultMaxLineBytes,
		DropKeys:           parser.DefaultDropKeys(),
		Drain:              drain.Config{},
		Temporal:           temporal.DefaultConfig(),
		Anomaly:            anomaly.DefaultConfig(),
		Correlation:        correlation.DefaultConfig(),
		ParamValueCap:      model.DefaultParamValueCap,
		MaskCacheSize:      model.DefaultMaskCacheSize,
		ResultCap:          model.DefaultQueryResultCap,
		SchemaImpactWindow: model.DefaultSchemaImpactWindow,
		Window:             model.DefaultUpdateInterval * time.Duration(model.DefaultSummaryInterval),
		SummaryInterval:    model.DefaultSummaryInterval,
		SummaryView:        summary.ViewFull,
		ErrorSampleCap:     model.DefaultErrorSampleCap,
		WorkerCount:        4,
	}
}

func (c Config) normalized() Config {
	if c.MaxLinesPerEntry <= 0 {
		c.MaxLinesPerEntry = model.DefaultMaxLinesPerEntry
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = model.DefaultMaxLineBytes
	}
	if c.DropKeys == nil {
		c.DropKeys = parser.DefaultDropKeys()
	}
	if c.ParamValueCap <= 0 {
		c.ParamValueCap = model.DefaultParamValueCap
	}
	if c.MaskCacheSize <= 0 {
		c.MaskCacheSize = model.DefaultMaskCacheSize
	}
	if c.ResultCap <= 0 {
		c.ResultCap = model.DefaultQueryResultCap
	}
	if c.SchemaImpactWindow <= 0 {
		c.SchemaImpactWindow = model.DefaultSchemaImpactWindow
	}
	if c.SummaryInterval <= 0 {
		c.SummaryInterval = model.DefaultSummaryInterval
	}
	if c.SummaryView == "" {
		c.SummaryView = summary.ViewFull
	}
	if c.ErrorSampleCap <= 0 {
		c.ErrorSampleCap = model.DefaultErrorSampleCap
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	return c
}

func (c Config) parserConfig() *parser.Config {
	return &parser.Config{TimeKeys: c.TimeKeys, DropKeys: c.DropKeys}
}
