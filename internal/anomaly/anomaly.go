// Package anomaly implements the Field & Pattern Anomaly detector:
// numeric outliers, cardinality explosions, new patterns, and rare
// patterns, all evaluated against a cluster's accumulated parameter
// statistics and the run's global frequency counts.
package anomaly

import (
	"math"
	"strconv"

	"github.com/control-theory/logoscope/internal/model"
	"github.com/control-theory/logoscope/internal/paramstats"
)

// Kind is the closed set of anomaly categories this detector emits.
type Kind string

const (
	KindNumericOutlier       Kind = "numeric_outlier"
	KindCardinalityExplosion Kind = "cardinality_explosion"
	KindNewPattern           Kind = "new_pattern"
	KindRarePattern          Kind = "rare_pattern"
)

// Finding is one reported anomaly.
type Finding struct {
	Kind      Kind    `json:"kind"`
	ClusterID uint64  `json:"cluster_id"`
	Template  string  `json:"template"`
	Field     string  `json:"field,omitempty"` // variable position (stringified index) or JSON path
	Value     string  `json:"value,omitempty"`
	ZScore    float64 `json:"z_score,omitempty"`
	Unique    int     `json:"unique,omitempty"`
	Total     int     `json:"total,omitempty"`
	Frequency float64 `json:"frequency,omitempty"`
}

// Config bundles the detector's tunables.
type Config struct {
	NumericOutlierZ        float64
	NumericOutlierMinCount int
	CardinalityRatio       float64
	CardinalityMinTotal    int
	NewPatternWarmupShare  float64
	RareThreshold          float64
}

// DefaultConfig returns the specification's default tunables.
func DefaultConfig() Config {
	return Config{
		NumericOutlierZ:        model.DefaultNumericOutlierZ,
		NumericOutlierMinCount: model.DefaultNumericOutlierMinCount,
		CardinalityRatio:       model.DefaultCardinalityRatio,
		CardinalityMinTotal:    model.DefaultCardinalityMinTotal,
		NewPatternWarmupShare:  model.DefaultNewPatternWarmupShare,
		RareThreshold:          model.DefaultRareThreshold,
	}
}

// ClusterInfo is the minimal per-cluster shape anomaly detection needs
// from Drain, decoupling this package from the drain package directly.
// FirstSeenAtLine is the running total-analyzed-line count at the moment
// this cluster was first created, the basis for the "created after the
// warm-up window" check.
type ClusterInfo struct {
	ID              uint64
	Template        string
	Count           uint64
	FirstSeenAtLine uint64
}

// NumericOutliers scans every numeric position of cs against its running
// median/MAD, reporting the given sample values whose robust z-score meets
// the threshold. Callers pass the raw observed values to check per
// position (the analyzer passes each position's bounded sample reservoir
// from NumericStats.Samples) since ValueTally does not itself retain a
// full per-value history.
func NumericOutliers(cfg Config, clusterID uint64, template string, cs *paramstats.ClusterStats, observations map[string][]float64) []Finding {
	var out []Finding
	for field, values := range observations {
		pos, ok := cs.Positions[field]
		if !ok || pos.Numeric == nil || !pos.IsNumeric() {
			continue
		}
		if pos.Numeric.Count < uint64(cfg.NumericOutlierMinCount) {
			continue
		}
		med := pos.Numeric.Median()
		mad := pos.Numeric.MAD()
		for _, v := range values {
			z := 0.6745 * math.Abs(v-med) / mad
			if z >= cfg.NumericOutlierZ {
				out = append(out, Finding{
					Kind: KindNumericOutlier, ClusterID: clusterID, Template: template,
					Field: field, Value: formatFloat(v), ZScore: z,
				})
			}
		}
	}
	return out
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// CardinalityExplosions flags positions whose unique-value ratio and total
// observation count both cross the configured thresholds.
func CardinalityExplosions(cfg Config, clusterID uint64, template string, cs *paramstats.ClusterStats) []Finding {
	var out []Finding
	for field, pos := range cs.Positions {
		total := int(pos.Total())
		if total < cfg.CardinalityMinTotal {
			continue
		}
		unique := len(pos.Tally.Counts)
		if pos.Tally.Other > 0 {
			unique += int(pos.Tally.Other) // overflowed values are each distinct by construction
		}
		ratio := float64(unique) / float64(total)
		if ratio >= cfg.CardinalityRatio {
			out = append(out, Finding{
				Kind: KindCardinalityExplosion, ClusterID: clusterID, Template: template,
				Field: field, Unique: unique, Total: total,
			})
		}
	}
	return out
}

// NewOrRarePatterns evaluates every cluster against the run's global
// analyzed-line total, reporting new_pattern and/or rare_pattern findings.
// baselineEstablished is false only during the very first streaming tick
// (no prior baseline template set yet), per the specification's edge case
// that a cluster first seen while the baseline set is empty is never
// flagged new; batch-mode callers always pass true.
func NewOrRarePatterns(cfg Config, clusters []ClusterInfo, totalLines uint64, baselineEstablished bool) []Finding {
	var out []Finding
	if totalLines == 0 {
		return nil
	}
	warmupCutoff := uint64(float64(totalLines) * cfg.NewPatternWarmupShare)
	for _, c := range clusters {
		freq := float64(c.Count) / float64(totalLines)
		createdAfterWarmup := baselineEstablished && c.FirstSeenAtLine > warmupCutoff
		if createdAfterWarmup && freq < 0.001 {
			out = append(out, Finding{Kind: KindNewPattern, ClusterID: c.ID, Template: c.Template, Frequency: freq})
		}
		if freq < cfg.RareThreshold {
			out = append(out, Finding{Kind: KindRarePattern, ClusterID: c.ID, Template: c.Template, Frequency: freq})
		}
	}
	return out
}
