// Package summary implements the Summary Builder: it assembles the
// pipeline's per-cluster state and cross-cutting analyses into the final
// JSON document, selectable by view.
package summary

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/control-theory/logoscope/internal/anomaly"
	"github.com/control-theory/logoscope/internal/correlation"
	"github.com/control-theory/logoscope/internal/drain"
	"github.com/control-theory/logoscope/internal/model"
	"github.com/control-theory/logoscope/internal/paramstats"
	"github.com/control-theory/logoscope/internal/temporal"
)

// View selects the Summary Builder's output shape.
type View string

const (
	ViewFull     View = "full"
	ViewTriage   View = "triage"
	ViewVerbose  View = "verbose"
	ViewDeep     View = "deep"
	ViewPatterns View = "patterns"
	ViewLogs     View = "logs"
)

// severityRank ranks logparse.NormalizeSeverity's output classes, highest
// first. FATAL (which NormalizeSeverity also yields for CRITICAL/CRIT/PANIC)
// outranks ERROR and, like ERROR, resolves to the "error" severity below —
// the summary's canonical set has no separate fatal tier.
var severityRank = map[string]int{
	"FATAL": 6, "ERROR": 5, "WARN": 4, "INFO": 3, "DEBUG": 2, "TRACE": 1,
}

func severityOf(hist map[string]uint64) string {
	best := ""
	bestCount := uint64(0)
	bestRank := -1
	for level, count := range hist {
		rank := severityRank[level]
		if count > bestCount || (count == bestCount && rank > bestRank) {
			best, bestCount, bestRank = level, count, rank
		}
	}
	if best == "" {
		return "unknown"
	}
	return toLowerLevel(best)
}

func toLowerLevel(level string) string {
	switch level {
	case "FATAL", "ERROR":
		return "error"
	case "WARN":
		return "warn"
	case "INFO":
		return "info"
	case "DEBUG":
		return "debug"
	case "TRACE":
		return "trace"
	default:
		return "unknown"
	}
}

var verboseOrder = map[string]int{"error": 0, "warn": 1, "info": 2, "debug": 3, "trace": 4, "unknown": 5}

// TemporalAnomaly attaches the template a spike belongs to, since
// temporal.Spike itself carries no cluster identity.
type TemporalAnomaly struct {
	Template string    `json:"template"`
	Time     time.Time `json:"time"`
	Count    int       `json:"count"`
	ZScore   float64   `json:"z_score"`
}

// Pattern is one cluster's rendered summary entry.
type Pattern struct {
	Template         string                   `json:"template"`
	TotalCount       uint64                   `json:"total_count"`
	Frequency        float64                  `json:"frequency"`
	Severity         string                   `json:"severity"`
	PatternStability float64                  `json:"pattern_stability"`
	Temporal         temporal.Analysis        `json:"temporal"`
	Examples         []string                 `json:"examples"`
	Correlations     []correlation.Partner    `json:"correlations,omitempty"`
	SourcesByService map[string]uint64        `json:"sources_by_service,omitempty"`
	SourcesByHost    map[string]uint64        `json:"sources_by_host,omitempty"`
	ParamStats       *paramstats.ClusterStats `json:"param_stats,omitempty"`
	FirstSeen        time.Time                `json:"first_seen"`
	CreatedSeq       uint64                   `json:"-"`
}

// Summary is the top-level document, rendered per the selected view by the
// caller (the JSON encoder picks which fields to marshal).
type Summary struct {
	View              View                              `json:"view"`
	TotalLines        uint64                            `json:"total_lines"`
	UniquePatterns    int                               `json:"unique_patterns"`
	CompressionRatio  float64                           `json:"compression_ratio"`
	TimeSpanStart     time.Time                         `json:"time_span_start,omitempty"`
	TimeSpanEnd       time.Time                         `json:"time_span_end,omitempty"`
	Status            string                            `json:"status,omitempty"` // triage only: CRITICAL | WARNING | NORMAL
	Patterns          []Pattern                         `json:"patterns"`
	SchemaChanges     []model.SchemaChange              `json:"schema_changes"`
	PatternAnomalies  []anomaly.Finding                 `json:"pattern_anomalies"`
	FieldAnomalies    []anomaly.Finding                 `json:"field_anomalies"`
	TemporalAnomalies []TemporalAnomaly                 `json:"temporal_anomalies"`
	Correlations      map[uint64][]correlation.Partner  `json:"correlations,omitempty"`
	Insights          []string                          `json:"insights,omitempty"`
	Incomplete        bool                              `json:"incomplete,omitempty"`
	IncompleteReason  string                            `json:"incomplete_reason,omitempty"`
}

// Inputs bundles every upstream result the Builder needs.
type Inputs struct {
	Clusters     []*drain.Cluster
	TotalLines   uint64
	Temporal     map[uint64]temporal.Analysis
	ParamStats   map[uint64]*paramstats.ClusterStats
	Correlations map[uint64][]correlation.Partner
	Findings     []anomaly.Finding
	SchemaDiffs  []model.SchemaChange
	TimeStart    time.Time
	TimeEnd      time.Time
	MaxExamples  int
	MinCount     uint64 // suppress clusters below this count, except in deep view
}

// Build assembles a Summary for the requested view.
func Build(view View, in Inputs) Summary {
	maxCount := uint64(0)
	for _, c := range in.Clusters {
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}

	patterns := make([]Pattern, 0, len(in.Clusters))
	for _, c := range in.Clusters {
		an := in.Temporal[c.ID]
		ps := in.ParamStats[c.ID]
		p := Pattern{
			Template:         c.TemplateString(),
			TotalCount:       c.Count,
			Frequency:        frequency(c.Count, in.TotalLines),
			Severity:         severityOf(c.LevelHist),
			PatternStability: patternStability(an, c.Count, maxCount),
			Temporal:         an,
			Examples:         boundedExamples(c.Examples, in.MaxExamples),
			Correlations:     in.Correlations[c.ID],
			SourcesByService: c.ServiceHist,
			SourcesByHost:    c.HostHist,
			ParamStats:       ps,
			FirstSeen:        c.FirstSeen,
			CreatedSeq:       c.CreatedSeq,
		}
		patterns = append(patterns, p)
	}

	s := Summary{
		View:             view,
		TotalLines:       in.TotalLines,
		UniquePatterns:   len(in.Clusters),
		CompressionRatio: compressionRatio(in.TotalLines, len(in.Clusters)),
		TimeSpanStart:    in.TimeStart,
		TimeSpanEnd:      in.TimeEnd,
		SchemaChanges:    in.SchemaDiffs,
		Correlations:     in.Correlations,
	}
	for _, f := range in.Findings {
		switch f.Kind {
		case anomaly.KindNewPattern, anomaly.KindRarePattern:
			s.PatternAnomalies = append(s.PatternAnomalies, f)
		case anomaly.KindNumericOutlier, anomaly.KindCardinalityExplosion:
			s.FieldAnomalies = append(s.FieldAnomalies, f)
		}
	}
	for _, c := range in.Clusters {
		for _, sp := range in.Temporal[c.ID].Spikes {
			s.TemporalAnomalies = append(s.TemporalAnomalies, TemporalAnomaly{
				Template: c.TemplateString(), Time: sp.Time, Count: sp.Count, ZScore: sp.ZScore,
			})
		}
	}

	switch view {
	case ViewTriage:
		s.Patterns = filterTriage(patterns, in.Findings)
		sortByCountDesc(s.Patterns)
		s.Status = triageStatus(patterns, in.TotalLines)
		s.Insights = topInsights(patterns, in.Findings, 3)
	case ViewVerbose:
		s.Patterns = filterMinCount(patterns, in.MinCount)
		sortVerbose(s.Patterns)
	case ViewDeep:
		s.Patterns = patterns
		sortVerbose(s.Patterns)
	case ViewPatterns:
		s.Patterns = filterMinCount(patterns, in.MinCount)
		sortByCountDesc(s.Patterns)
	default: // full
		s.Patterns = filterMinCount(patterns, in.MinCount)
		sortByCountDesc(s.Patterns)
	}
	return s
}

func frequency(count, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

func compressionRatio(totalLines uint64, uniquePatterns int) float64 {
	if uniquePatterns == 0 {
		return 0
	}
	return float64(totalLines) / float64(uniquePatterns)
}

func patternStability(an temporal.Analysis, count, maxCount uint64) float64 {
	totalBuckets := len(an.Buckets)
	if totalBuckets == 0 {
		return 0
	}
	populated := 0
	for _, b := range an.Buckets {
		if b.Count > 0 {
			populated++
		}
	}
	presence := float64(populated) / float64(totalBuckets)
	frequencyFactor := 1.0
	if maxCount > 0 {
		frequencyFactor = math.Log(1+float64(count)) / math.Log(1+float64(maxCount))
		if frequencyFactor > 1 {
			frequencyFactor = 1
		}
	}
	return 0.5*presence + 0.5*frequencyFactor
}

func boundedExamples(examples []string, max int) []string {
	if max <= 0 {
		max = 5
	}
	if len(examples) <= max {
		return examples
	}
	return examples[len(examples)-max:]
}

func filterMinCount(patterns []Pattern, minCount uint64) []Pattern {
	if minCount == 0 {
		return patterns
	}
	out := make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		if p.TotalCount >= minCount {
			out = append(out, p)
		}
	}
	return out
}

// filterTriage keeps error-severity patterns and any pattern that exhibits
// a burst or was flagged new_pattern/rare_pattern by the anomaly detector,
// even when it has neither an error severity nor a burst of its own.
// newOrRare is keyed by template since Pattern carries no cluster ID.
func filterTriage(patterns []Pattern, findings []anomaly.Finding) []Pattern {
	newOrRare := make(map[string]bool)
	for _, f := range findings {
		if f.Kind == anomaly.KindNewPattern || f.Kind == anomaly.KindRarePattern {
			newOrRare[f.Template] = true
		}
	}
	out := make([]Pattern, 0)
	for _, p := range patterns {
		if p.Severity == "error" || hasBurstOrNewPattern(p, newOrRare) {
			out = append(out, p)
		}
	}
	return out
}

func hasBurstOrNewPattern(p Pattern, newOrRare map[string]bool) bool {
	return len(p.Temporal.Bursts) > 0 || newOrRare[p.Template]
}

func sortByCountDesc(patterns []Pattern) {
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].TotalCount != patterns[j].TotalCount {
			return patterns[i].TotalCount > patterns[j].TotalCount
		}
		return patterns[i].FirstSeen.Before(patterns[j].FirstSeen)
	})
}

func sortVerbose(patterns []Pattern) {
	sort.Slice(patterns, func(i, j int) bool {
		ri, rj := verboseOrder[patterns[i].Severity], verboseOrder[patterns[j].Severity]
		if ri != rj {
			return ri < rj
		}
		return patterns[i].TotalCount > patterns[j].TotalCount
	})
}

// triageStatus implements the specification's three-tier status:
// CRITICAL when any error-severity cluster has a burst, or the overall
// error-line fraction is at least 1%; WARNING when errors are present
// without a burst; NORMAL otherwise.
func triageStatus(patterns []Pattern, totalLines uint64) string {
	var errorLines uint64
	hasError := false
	hasErrorBurst := false
	for _, p := range patterns {
		if p.Severity != "error" {
			continue
		}
		hasError = true
		errorLines += p.TotalCount
		if len(p.Temporal.Bursts) > 0 {
			hasErrorBurst = true
		}
	}
	errorFraction := frequency(errorLines, totalLines)
	if hasErrorBurst || errorFraction >= 0.01 {
		return "CRITICAL"
	}
	if hasError {
		return "WARNING"
	}
	return "NORMAL"
}

func topInsights(patterns []Pattern, findings []anomaly.Finding, n int) []string {
	var insights []string
	type scored struct {
		text string
		rank int
	}
	var candidates []scored
	for _, p := range patterns {
		if len(p.Temporal.Bursts) == 0 {
			continue
		}
		biggest := p.Temporal.Bursts[0]
		for _, b := range p.Temporal.Bursts[1:] {
			if b.PeakRate > biggest.PeakRate {
				biggest = b
			}
		}
		candidates = append(candidates, scored{
			text: "burst in \"" + p.Template + "\" peaking at " + strconv.Itoa(biggest.PeakRate) + " lines/bucket",
			rank: biggest.PeakRate,
		})
	}
	for _, f := range findings {
		if f.Kind == anomaly.KindNewPattern {
			candidates = append(candidates, scored{text: "new pattern: \"" + f.Template + "\"", rank: 1})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].rank > candidates[j].rank })
	for i := 0; i < len(candidates) && i < n; i++ {
		insights = append(insights, candidates[i].text)
	}
	return insights
}

