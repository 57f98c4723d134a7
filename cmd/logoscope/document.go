package main

import (
	"time"

	"github.com/control-theory/logoscope/internal/anomaly"
	"github.com/control-theory/logoscope/internal/correlation"
	"github.com/control-theory/logoscope/internal/model"
	"github.com/control-theory/logoscope/internal/summary"
)

// Document is the top-level JSON document rendered to stdout, per the
// configuration surface's output schema: summary, patterns, schema
// changes, anomalies grouped by kind, correlations (deep view only),
// accumulated errors, and the query interface's drill-down suggestions.
type Document struct {
	Summary        SummaryMeta                     `json:"summary"`
	Patterns       []summary.Pattern                `json:"patterns"`
	SchemaChanges  []model.SchemaChange             `json:"schema_changes"`
	Anomalies      Anomalies                        `json:"anomalies"`
	Correlations   map[uint64][]correlation.Partner `json:"correlations,omitempty"`
	Errors         ErrorsSection                    `json:"errors"`
	QueryInterface summary.QueryInterface           `json:"query_interface"`
	Insights       []string                         `json:"insights,omitempty"`
}

// SummaryMeta is the document's summary{} section.
type SummaryMeta struct {
	TotalLines       uint64    `json:"total_lines"`
	UniquePatterns   int       `json:"unique_patterns"`
	CompressionRatio float64   `json:"compression_ratio"`
	TimeSpanStart    time.Time `json:"time_span_start,omitempty"`
	TimeSpanEnd      time.Time `json:"time_span_end,omitempty"`
	Status           string    `json:"status,omitempty"`
	Incomplete       bool      `json:"incomplete,omitempty"`
	IncompleteReason string    `json:"incomplete_reason,omitempty"`
}

// Anomalies is the document's anomalies{} section.
type Anomalies struct {
	PatternAnomalies  []anomaly.Finding         `json:"pattern_anomalies"`
	FieldAnomalies    []anomaly.Finding         `json:"field_anomalies"`
	TemporalAnomalies []summary.TemporalAnomaly `json:"temporal_anomalies"`
}

// ErrorsSection is the document's errors{} section.
type ErrorsSection struct {
	Total   uint64            `json:"total"`
	Samples []model.LineError `json:"samples"`
}

// BuildDocument renders a Summary into the output document shape. It
// includes correlations only for the deep view, matching the
// specification's "correlations[] (deep mode)" rule.
func BuildDocument(s summary.Summary, view summary.View, errTotal uint64, errSamples []model.LineError) Document {
	doc := Document{
		Summary: SummaryMeta{
			TotalLines:       s.TotalLines,
			UniquePatterns:   s.UniquePatterns,
			CompressionRatio: s.CompressionRatio,
			TimeSpanStart:    s.TimeSpanStart,
			TimeSpanEnd:      s.TimeSpanEnd,
			Status:           s.Status,
			Incomplete:       s.Incomplete,
			IncompleteReason: s.IncompleteReason,
		},
		Patterns:      s.Patterns,
		SchemaChanges: s.SchemaChanges,
		Anomalies: Anomalies{
			PatternAnomalies:  s.PatternAnomalies,
			FieldAnomalies:    s.FieldAnomalies,
			TemporalAnomalies: s.TemporalAnomalies,
		},
		Errors:         ErrorsSection{Total: errTotal, Samples: errSamples},
		QueryInterface: summary.BuildQueryInterface(s),
		Insights:       s.Insights,
	}
	if view == summary.ViewDeep {
		doc.Correlations = s.Correlations
	}
	return doc
}
