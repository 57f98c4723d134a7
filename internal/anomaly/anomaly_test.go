package anomaly

import (
	"strconv"
	"testing"

	"github.com/control-theory/logoscope/internal/paramstats"
)

func TestNumericOutlierDetected(t *testing.T) {
	tr := paramstats.New(64)
	for i := 0; i < 10; i++ {
		tr.ObserveTemplate(1, []int{0}, []string{"100"})
	}
	cs := tr.ClusterStats(1)
	cfg := DefaultConfig()
	findings := NumericOutliers(cfg, 1, "tpl", cs, map[string][]float64{"0": {9999}})
	if len(findings) != 1 {
		t.Fatalf("expected 1 outlier finding, got %d", len(findings))
	}
	if findings[0].Kind != KindNumericOutlier {
		t.Fatalf("got kind %v", findings[0].Kind)
	}
}

func TestNumericOutlierSuppressedBelowMinCount(t *testing.T) {
	tr := paramstats.New(64)
	tr.ObserveTemplate(1, []int{0}, []string{"100"})
	cs := tr.ClusterStats(1)
	cfg := DefaultConfig()
	findings := NumericOutliers(cfg, 1, "tpl", cs, map[string][]float64{"0": {9999}})
	if len(findings) != 0 {
		t.Fatalf("expected no findings before min count reached, got %d", len(findings))
	}
}

func TestCardinalityExplosionDetected(t *testing.T) {
	tr := paramstats.New(1000)
	cs := tr.ClusterStats(2)
	for i := 0; i < 60; i++ {
		cs.Observe("user_id", strconv.Itoa(i))
	}
	cfg := DefaultConfig()
	findings := CardinalityExplosions(cfg, 2, "tpl", cs)
	if len(findings) != 1 {
		t.Fatalf("expected 1 cardinality finding, got %d", len(findings))
	}
}

func TestCardinalityExplosionSuppressedBelowMinTotal(t *testing.T) {
	tr := paramstats.New(1000)
	cs := tr.ClusterStats(2)
	for i := 0; i < 10; i++ {
		cs.Observe("user_id", strconv.Itoa(i))
	}
	cfg := DefaultConfig()
	findings := CardinalityExplosions(cfg, 2, "tpl", cs)
	if len(findings) != 0 {
		t.Fatalf("expected no findings below min total, got %d", len(findings))
	}
}

func TestNewPatternRequiresBaselineEstablished(t *testing.T) {
	cfg := DefaultConfig()
	clusters := []ClusterInfo{{ID: 1, Template: "tpl", Count: 1, FirstSeenAtLine: 9000}}
	findings := NewOrRarePatterns(cfg, clusters, 10000, false)
	for _, f := range findings {
		if f.Kind == KindNewPattern {
			t.Fatal("expected no new_pattern finding when baseline is not yet established")
		}
	}
}

func TestNewPatternDetectedAfterWarmup(t *testing.T) {
	cfg := DefaultConfig()
	clusters := []ClusterInfo{{ID: 1, Template: "tpl", Count: 1, FirstSeenAtLine: 9000}}
	findings := NewOrRarePatterns(cfg, clusters, 10000, true)
	found := false
	for _, f := range findings {
		if f.Kind == KindNewPattern {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a new_pattern finding")
	}
}

func TestRarePatternIndependentOfAge(t *testing.T) {
	cfg := DefaultConfig()
	clusters := []ClusterInfo{{ID: 1, Template: "tpl", Count: 1, FirstSeenAtLine: 0}}
	findings := NewOrRarePatterns(cfg, clusters, 10000, true)
	found := false
	for _, f := range findings {
		if f.Kind == KindRarePattern {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a rare_pattern finding for a low-frequency early cluster")
	}
}

