package model

import "time"

// Shared defaults used across the analysis pipeline and the CLI entrypoint.
// Keeping them here, rather than scattered per-package, lets the config
// loader establish every one of them with a single SetDefault call site.
const (
	DefaultMaxLinesPerEntry = 1000    // Line Assembler: bracket-balanced JSON accumulation ceiling
	DefaultMaxLineBytes     = 1 << 20 // input line-size ceiling, same as stdin ingestion's scanner buffer

	DefaultMaxDepth    = 4     // Drain: depth layers below the length layer
	DefaultMaxChildren = 100   // Drain: children per internal node before wildcard collapse
	DefaultSimMin      = 0.4   // Drain: minimum leaf-cluster similarity to assign rather than create
	DefaultMaxClusters = 10000 // Drain: global cluster cap before LRU eviction to <overflow>

	DefaultParamValueCap = 64 // Parameter Tracker: unique values tallied per position before "other"

	DefaultBucketWidth      = 60 * time.Second // Temporal Analyzer: fixed bucket width
	DefaultBurstMultiplier  = 3.0
	DefaultGapMultiplier    = 10.0
	DefaultGapMinDuration   = 5 * time.Second
	DefaultSpikeZ           = 3.5
	DefaultSchemaImpactWindow = 60 * time.Second

	DefaultRareThreshold          = 0.001
	DefaultNewPatternWarmupShare  = 0.05
	DefaultNumericOutlierZ        = 3.5
	DefaultNumericOutlierMinCount = 5
	DefaultCardinalityRatio       = 0.8
	DefaultCardinalityMinTotal    = 50

	DefaultCorrelationWindow      = 10 * time.Second
	DefaultCorrelationTopK        = 5
	DefaultCorrelationMinStrength = 0.2

	DefaultMaskCacheSize    = 1024
	DefaultErrorSampleCap   = 100
	DefaultQueryResultCap   = 10000
	DefaultSmartMaskBypassConfidence = 0.8

	DefaultUpdateInterval = 2 * time.Second // streaming: tick cadence
	DefaultSummaryInterval = 10             // streaming: full summary every N ticks
)
