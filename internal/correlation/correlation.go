// Package correlation implements the Correlation Engine: it folds each
// cluster's activity into fixed-width time-window presence bitmaps and
// reports Jaccard-strength correlated partners per cluster.
package correlation

import (
	"sort"
	"time"

	"github.com/control-theory/logoscope/internal/model"
)

// Config bundles the engine's tunables.
type Config struct {
	Window      time.Duration
	TopK        int
	MinStrength float64
}

// DefaultConfig returns the specification's default tunables.
func DefaultConfig() Config {
	return Config{
		Window:      model.DefaultCorrelationWindow,
		TopK:        model.DefaultCorrelationTopK,
		MinStrength: model.DefaultCorrelationMinStrength,
	}
}

// Partner is one correlated cluster and its Jaccard strength.
type Partner struct {
	ClusterID uint64  `json:"cluster_id"`
	Strength  float64 `json:"strength"`
	CoWindows int      `json:"co_windows"`
}

// Engine accumulates per-cluster occurrence timestamps and computes
// pairwise window-bitmap correlations on demand.
type Engine struct {
	cfg   Config
	times map[uint64][]time.Time
}

// New constructs a correlation Engine.
func New(cfg Config) *Engine {
	if cfg.Window <= 0 {
		cfg.Window = model.DefaultCorrelationWindow
	}
	if cfg.TopK <= 0 {
		cfg.TopK = model.DefaultCorrelationTopK
	}
	if cfg.MinStrength <= 0 {
		cfg.MinStrength = model.DefaultCorrelationMinStrength
	}
	return &Engine{cfg: cfg, times: make(map[uint64][]time.Time)}
}

// Observe records one occurrence of clusterID at ts.
func (e *Engine) Observe(clusterID uint64, ts time.Time) {
	e.times[clusterID] = append(e.times[clusterID], ts)
}

// windowSet returns the set of window-bucket keys in which clusterID had
// at least one occurrence.
func (e *Engine) windowSet(clusterID uint64) map[int64]bool {
	set := make(map[int64]bool)
	for _, t := range e.times[clusterID] {
		set[floorWindow(t, e.cfg.Window)] = true
	}
	return set
}

func floorWindow(t time.Time, width time.Duration) int64 {
	sec := t.Unix()
	w := int64(width / time.Second)
	if w <= 0 {
		return sec
	}
	m := sec % w
	if m < 0 {
		m += w
	}
	return sec - m
}

// Correlations returns, for every cluster with at least one occurrence,
// its top-K correlated partners meeting the minimum strength, sorted by
// descending strength with a deterministic tie-break on cluster ID.
func (e *Engine) Correlations() map[uint64][]Partner {
	ids := make([]uint64, 0, len(e.times))
	for id := range e.times {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	sets := make(map[uint64]map[int64]bool, len(ids))
	for _, id := range ids {
		sets[id] = e.windowSet(id)
	}

	result := make(map[uint64][]Partner, len(ids))
	for i := 0; i < len(ids); i++ {
		a := ids[i]
		for j := i + 1; j < len(ids); j++ {
			b := ids[j]
			co := intersectionSize(sets[a], sets[b])
			if co == 0 {
				continue
			}
			union := len(sets[a]) + len(sets[b]) - co
			if union == 0 {
				continue
			}
			strength := float64(co) / float64(union)
			if strength < e.cfg.MinStrength {
				continue
			}
			result[a] = append(result[a], Partner{ClusterID: b, Strength: strength, CoWindows: co})
			result[b] = append(result[b], Partner{ClusterID: a, Strength: strength, CoWindows: co})
		}
	}

	for id, partners := range result {
		sort.Slice(partners, func(i, j int) bool {
			if partners[i].Strength != partners[j].Strength {
				return partners[i].Strength > partners[j].Strength
			}
			return partners[i].ClusterID < partners[j].ClusterID
		})
		if len(partners) > e.cfg.TopK {
			partners = partners[:e.cfg.TopK]
		}
		result[id] = partners
	}
	return result
}

func intersectionSize(a, b map[int64]bool) int {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	count := 0
	for k := range small {
		if large[k] {
			count++
		}
	}
	return count
}
