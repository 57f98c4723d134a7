package analyzer

import (
	"time"

	"github.com/control-theory/logoscope/internal/anomaly"
	"github.com/control-theory/logoscope/internal/drain"
	"github.com/control-theory/logoscope/internal/paramstats"
	"github.com/control-theory/logoscope/internal/summary"
	"github.com/control-theory/logoscope/internal/temporal"
)

// liveClusters returns every live Drain cluster plus a synthetic overflow
// pseudo-cluster when the cluster cap has ever been exceeded.
func (a *Analyzer) liveClusters() []*drain.Cluster {
	clusters := a.drain.Clusters()
	if a.drain.OverflowCount() > 0 {
		clusters = append(clusters, overflowCluster(a.drain))
	}
	return clusters
}

// analysisPass is the shared per-cluster computation both Finalize/View
// and Tick's delta need: temporal analysis, parameter stats lookup and
// every anomaly finding, computed once per cluster rather than separately
// by each caller.
type analysisPass struct {
	temporal map[uint64]temporal.Analysis
	params   map[uint64]*paramstats.ClusterStats
	findings []anomaly.Finding
	bursts   []time.Time
}

// analyze runs every anomaly detector and temporal analysis over the
// current state, returning the full finding set (not yet deduplicated
// against any prior tick — callers that care about "newly crossed"
// semantics filter by key). baselineEstablished is forwarded to
// anomaly.NewOrRarePatterns: a full re-render of accumulated state (batch
// Finalize/View, or streaming's periodic full-summary re-emission) always
// passes true, since by then every cluster's first-seen line number is
// already known against the run's own total; only a streaming tick's
// incremental delta passes the analyzer's own baselineEstablished field,
// which is false solely during the very first tick.
func (a *Analyzer) analyze(clusters []*drain.Cluster, baselineEstablished bool) analysisPass {
	pass := analysisPass{
		temporal: make(map[uint64]temporal.Analysis, len(clusters)),
		params:   make(map[uint64]*paramstats.ClusterStats, len(clusters)),
	}
	clusterInfos := make([]anomaly.ClusterInfo, 0, len(clusters))

	for _, c := range clusters {
		an := temporal.Analyze(a.timestamps[c.ID], a.cfg.Temporal)
		pass.temporal[c.ID] = an
		for _, b := range an.Bursts {
			pass.bursts = append(pass.bursts, b.Start)
		}

		cs := a.params.ClusterStats(c.ID)
		pass.params[c.ID] = cs
		clusterInfos = append(clusterInfos, anomaly.ClusterInfo{
			ID: c.ID, Template: c.TemplateString(), Count: c.Count,
			FirstSeenAtLine: a.firstSeenAtLine[c.ID],
		})

		pass.findings = append(pass.findings, anomaly.CardinalityExplosions(a.cfg.Anomaly, c.ID, c.TemplateString(), cs)...)
		pass.findings = append(pass.findings, anomaly.NumericOutliers(a.cfg.Anomaly, c.ID, c.TemplateString(), cs, numericObservations(cs))...)
	}
	pass.findings = append(pass.findings, anomaly.NewOrRarePatterns(a.cfg.Anomaly, clusterInfos, a.totalLines, baselineEstablished)...)
	return pass
}

// numericObservations collects every numeric position's accumulated sample
// values, the shape anomaly.NumericOutliers needs to test against its own
// running median/MAD.
func numericObservations(cs *paramstats.ClusterStats) map[string][]float64 {
	out := make(map[string][]float64, len(cs.Positions))
	for field, pos := range cs.Positions {
		if pos.Numeric == nil || !pos.IsNumeric() {
			continue
		}
		out[field] = pos.Numeric.Samples()
	}
	return out
}

// buildSummary assembles a Summary for the requested view over the
// analyzer's current accumulated state.
func (a *Analyzer) buildSummary(view summary.View, minCount uint64, maxExamples int) summary.Summary {
	clusters := a.liveClusters()
	pass := a.analyze(clusters, true)

	in := summary.Inputs{
		Clusters:     clusters,
		TotalLines:   a.totalLines,
		Temporal:     pass.temporal,
		ParamStats:   pass.params,
		Correlations: a.corr.Correlations(),
		Findings:     pass.findings,
		SchemaDiffs:  a.params.Diffs(a.cfg.SchemaImpactWindow, pass.bursts),
		TimeStart:    a.timeStart,
		TimeEnd:      a.timeEnd,
		MaxExamples:  maxExamples,
		MinCount:     minCount,
	}
	return summary.Build(view, in)
}
