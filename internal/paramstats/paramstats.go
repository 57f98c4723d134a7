// Package paramstats implements the Parameter & Schema Tracker: per-cluster,
// per-variable-position value tallies with running numeric stats, and a
// JSON schema fingerprint diff stream.
package paramstats

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/control-theory/logoscope/internal/model"
)

// ValueTally bounds the unique values observed at one variable position:
// the first cap distinct values seen keep their own counts, and every
// occurrence of any other value is counted in Other. A retained value is
// never replaced by a later, more frequent one, so Counts is not
// necessarily the top-K by count.
type ValueTally struct {
	Counts map[string]uint64
	Other  uint64
	cap    int
}

func newValueTally(cap int) *ValueTally {
	if cap <= 0 {
		cap = model.DefaultParamValueCap
	}
	return &ValueTally{Counts: make(map[string]uint64), cap: cap}
}

func (t *ValueTally) observe(value string) {
	if _, ok := t.Counts[value]; ok {
		t.Counts[value]++
		return
	}
	if len(t.Counts) < t.cap {
		t.Counts[value] = 1
		return
	}
	t.Other++
}

// NumericStats tracks running numeric statistics for a position once at
// least half its observations parse as numbers. MAD is computed from a
// bounded sample rather than the full population, trading exactness for
// bounded memory the same way the value tally does.
type NumericStats struct {
	Count  uint64
	Min    float64
	Max    float64
	sample []float64
	maxN   int
}

func newNumericStats() *NumericStats {
	return &NumericStats{maxN: 4096}
}

func (n *NumericStats) observe(v float64) {
	if n.Count == 0 {
		n.Min, n.Max = v, v
	} else {
		if v < n.Min {
			n.Min = v
		}
		if v > n.Max {
			n.Max = v
		}
	}
	n.Count++
	if len(n.sample) < n.maxN {
		n.sample = append(n.sample, v)
	}
}

// Median returns the sample median, or 0 if no observations were recorded.
func (n *NumericStats) Median() float64 {
	return median(n.sample)
}

// Samples returns a defensive copy of the bounded reservoir backing this
// position's running statistics, for callers (outlier detection) that need
// to test specific observed values against the running median/MAD.
func (n *NumericStats) Samples() []float64 {
	return append([]float64(nil), n.sample...)
}

// MAD returns the median absolute deviation of the sample, floored to a
// tiny positive value so downstream robust z-scores never divide by zero.
func (n *NumericStats) MAD() float64 {
	m := n.Median()
	devs := make([]float64, len(n.sample))
	for i, v := range n.sample {
		devs[i] = math.Abs(v - m)
	}
	mad := median(devs)
	if mad == 0 {
		return 1e-9
	}
	return mad
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// PositionStats is one variable position's accumulated tracking state.
type PositionStats struct {
	Tally    *ValueTally
	Numeric  *NumericStats
	total    uint64
	numCount uint64
}

// IsNumeric reports whether at least half this position's observed values
// have parsed as numbers, the threshold at which numeric stats are
// considered representative enough to report.
func (p *PositionStats) IsNumeric() bool {
	return p.total > 0 && float64(p.numCount)/float64(p.total) >= 0.5
}

// Total returns the number of values observed at this position.
func (p *PositionStats) Total() uint64 {
	return p.total
}

// ClusterStats is the per-cluster parameter tracking state, keyed by
// variable position for templated parameters and by JSON path for
// structured fields.
type ClusterStats struct {
	Positions map[string]*PositionStats
	cap       int
}

func newClusterStats(cap int) *ClusterStats {
	return &ClusterStats{Positions: make(map[string]*PositionStats), cap: cap}
}

func (cs *ClusterStats) position(key string) *PositionStats {
	p, ok := cs.Positions[key]
	if !ok {
		p = &PositionStats{Tally: newValueTally(cs.cap)}
		cs.Positions[key] = p
	}
	return p
}

// Observe records one value at one position: it always updates the value
// tally, and additionally feeds the numeric-stats tracker when the value
// parses as a float.
func (cs *ClusterStats) Observe(position, value string) {
	p := cs.position(position)
	p.total++
	p.Tally.observe(value)
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		p.numCount++
		if p.Numeric == nil {
			p.Numeric = newNumericStats()
		}
		p.Numeric.observe(f)
	}
}

// Tracker owns per-cluster parameter statistics plus the schema fingerprint
// diff stream, shared across the pipeline run.
type Tracker struct {
	valueCap int

	clusters map[uint64]*ClusterStats

	lastFingerprint map[string]string // sorted "path:type" key set, as a canonical string
	diffs           []model.SchemaChange
}

// New constructs a Tracker with the given per-position value cap (default
// model.DefaultParamValueCap when <= 0).
func New(valueCap int) *Tracker {
	if valueCap <= 0 {
		valueCap = model.DefaultParamValueCap
	}
	return &Tracker{
		valueCap: valueCap,
		clusters: make(map[uint64]*ClusterStats),
	}
}

// ClusterStats returns (creating if necessary) the tracking state for one
// Drain cluster ID.
func (t *Tracker) ClusterStats(clusterID uint64) *ClusterStats {
	cs, ok := t.clusters[clusterID]
	if !ok {
		cs = newClusterStats(t.valueCap)
		t.clusters[clusterID] = cs
	}
	return cs
}

// ObserveTemplate records every variable position of a templated message:
// positions is a list of (position index, observed raw token) pairs,
// typically the indices where the cluster's template holds a wildcard.
func (t *Tracker) ObserveTemplate(clusterID uint64, positions []int, tokens []string) {
	cs := t.ClusterStats(clusterID)
	for _, pos := range positions {
		if pos < 0 || pos >= len(tokens) {
			continue
		}
		cs.Observe(strconv.Itoa(pos), tokens[pos])
	}
}

// ObserveFields records every flattened JSON field of a structured record
// against the cluster's per-path tallies.
func (t *Tracker) ObserveFields(clusterID uint64, fields []model.FlatField) {
	cs := t.ClusterStats(clusterID)
	for _, f := range fields {
		cs.Observe(f.Path, f.RawValue)
	}
}

// ObserveSchema records one JSON record's schema fingerprint in timestamp
// order, emitting field_added/field_removed/type_changed diffs against the
// immediately preceding distinct fingerprint. Consecutive identical
// fingerprints are collapsed (no diff emitted, and the stored "previous"
// fingerprint is left unchanged).
func (t *Tracker) ObserveSchema(ts time.Time, fields []model.FlatField) {
	fp := make(map[string]string, len(fields))
	for _, f := range fields {
		fp[f.Path] = f.TypeTag
	}
	if t.lastFingerprint == nil {
		t.lastFingerprint = fp
		return
	}
	if fingerprintEqual(t.lastFingerprint, fp) {
		return
	}
	t.diffs = append(t.diffs, diffFingerprints(ts, t.lastFingerprint, fp)...)
	t.lastFingerprint = fp
}

func fingerprintEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func diffFingerprints(ts time.Time, before, after map[string]string) []model.SchemaChange {
	var changes []model.SchemaChange
	paths := make([]string, 0, len(before)+len(after))
	seen := make(map[string]bool)
	for p := range before {
		paths = append(paths, p)
		seen[p] = true
	}
	for p := range after {
		if !seen[p] {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	for _, p := range paths {
		bt, bok := before[p]
		at, aok := after[p]
		switch {
		case bok && !aok:
			changes = append(changes, model.SchemaChange{Timestamp: ts, Kind: model.SchemaFieldRemoved, Field: p, OldType: bt})
		case !bok && aok:
			changes = append(changes, model.SchemaChange{Timestamp: ts, Kind: model.SchemaFieldAdded, Field: p, NewType: at})
		case bok && aok && bt != at:
			changes = append(changes, model.SchemaChange{Timestamp: ts, Kind: model.SchemaTypeChanged, Field: p, OldType: bt, NewType: at})
		}
	}
	return changes
}

// Diffs returns the accumulated schema-change stream in chronological
// order, with the impact annotation set for any change whose timestamp
// falls within window of any time in burstTimes.
func (t *Tracker) Diffs(window time.Duration, burstTimes []time.Time) []model.SchemaChange {
	out := make([]model.SchemaChange, len(t.diffs))
	copy(out, t.diffs)
	for i := range out {
		out[i].Impact = nearAny(out[i].Timestamp, burstTimes, window)
	}
	return out
}

func nearAny(ts time.Time, candidates []time.Time, window time.Duration) bool {
	for _, c := range candidates {
		d := ts.Sub(c)
		if d < 0 {
			d = -d
		}
		if d <= window {
			return true
		}
	}
	return false
}
