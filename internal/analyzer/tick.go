package analyzer

import (
	"time"

	"github.com/control-theory/logoscope/internal/anomaly"
	"github.com/control-theory/logoscope/internal/summary"
	"github.com/control-theory/logoscope/internal/temporal"
)

// Delta is one streaming tick's incremental report: what changed since the
// previous tick, independent of whether this tick also re-emits a full
// summary. Every slice reports only newly observed events, deduplicated
// against everything already reported on a prior tick.
type Delta struct {
	Tick          int               `json:"tick"`
	Time          time.Time         `json:"time"`
	NewClusters   []string          `json:"new_clusters,omitempty"`
	NewFindings   []anomaly.Finding `json:"new_findings,omitempty"`
	BurstsStarted []temporal.Burst  `json:"bursts_started,omitempty"`
	GapsDetected  []temporal.Gap    `json:"gaps_detected,omitempty"`
	FullSummary   *summary.Summary  `json:"full_summary,omitempty"` // set only on ticks that cross the summary interval
}

// Tick advances streaming mode by one step: it flushes whatever the Line
// Assembler is holding, evicts retained state older than the rolling
// window, computes this tick's Delta, and — every SummaryInterval ticks —
// attaches a full re-rendered Summary.
func (a *Analyzer) Tick(now time.Time) *Delta {
	a.flushAssemblers()
	a.tick++

	if a.cfg.Window > 0 {
		a.evictOlderThan(now.Add(-a.cfg.Window))
	}

	delta := a.computeDelta(now)
	a.baselineEstablished = true

	if a.tick%a.cfg.SummaryInterval == 0 {
		s := a.buildSummary(a.cfg.SummaryView, a.cfg.SummaryMinCount, a.cfg.SummaryMaxExamples)
		delta.FullSummary = &s
	}
	return delta
}

// evictOlderThan drops retained lines and per-cluster timestamp history
// older than cutoff, bounding streaming mode's memory to the rolling
// window regardless of run length.
func (a *Analyzer) evictOlderThan(cutoff time.Time) {
	a.index.EvictBefore(cutoff)
	for id, times := range a.timestamps {
		kept := times[:0]
		for _, t := range times {
			if !t.Before(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(a.timestamps, id)
			continue
		}
		a.timestamps[id] = kept
	}
}

// computeDelta diffs the current state against what prior ticks have
// already reported, via the seenClusters/knownBursts/knownGaps/
// knownFindings membership sets. A finding is keyed by (kind, cluster,
// field) rather than its exact value, so a threshold that stays crossed
// across many ticks is reported once, on the tick it was first crossed —
// "newly crossed", not "currently crossed".
func (a *Analyzer) computeDelta(now time.Time) *Delta {
	delta := &Delta{Tick: a.tick, Time: now}
	clusters := a.liveClusters()
	pass := a.analyze(clusters, a.baselineEstablished)

	for _, c := range clusters {
		if !a.seenClusters[c.ID] {
			a.seenClusters[c.ID] = true
			delta.NewClusters = append(delta.NewClusters, c.TemplateString())
		}

		an := pass.temporal[c.ID]
		for _, b := range an.Bursts {
			key := burstKey{c.ID, b.Start}
			if !a.knownBursts[key] {
				a.knownBursts[key] = true
				delta.BurstsStarted = append(delta.BurstsStarted, b)
			}
		}
		for _, g := range an.Gaps {
			key := gapKey{c.ID, g.Start}
			if !a.knownGaps[key] {
				a.knownGaps[key] = true
				delta.GapsDetected = append(delta.GapsDetected, g)
			}
		}
	}

	for _, f := range pass.findings {
		key := findingKey{kind: string(f.Kind), clusterID: f.ClusterID, field: f.Field}
		if !a.knownFindings[key] {
			a.knownFindings[key] = true
			delta.NewFindings = append(delta.NewFindings, f)
		}
	}
	return delta
}
