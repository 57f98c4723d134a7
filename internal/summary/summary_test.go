package summary

import (
	"testing"
	"time"

	"github.com/control-theory/logoscope/internal/anomaly"
	"github.com/control-theory/logoscope/internal/drain"
	"github.com/control-theory/logoscope/internal/temporal"
)

func cluster(id uint64, count uint64, levels map[string]uint64) *drain.Cluster {
	d := drain.New(drain.Config{})
	var last *drain.Cluster
	for i := uint64(0); i < count; i++ {
		last, _ = d.Insert(drain.Insertion{Tokens: []string{"tpl", "x"}, RawLine: "tpl x", Level: levelFor(levels, i)})
	}
	_ = id
	return last
}

func levelFor(levels map[string]uint64, i uint64) string {
	var acc uint64
	for lvl, n := range levels {
		acc += n
		if i < acc {
			return lvl
		}
	}
	return "INFO"
}

func TestCompressionRatioZeroWhenNoPatterns(t *testing.T) {
	s := Build(ViewFull, Inputs{TotalLines: 0})
	if s.CompressionRatio != 0 {
		t.Fatalf("got %v", s.CompressionRatio)
	}
}

func TestCompressionRatioComputed(t *testing.T) {
	c := cluster(1, 10, map[string]uint64{"INFO": 10})
	in := Inputs{Clusters: []*drain.Cluster{c}, TotalLines: 10}
	s := Build(ViewFull, in)
	if s.CompressionRatio != 10 {
		t.Fatalf("got %v", s.CompressionRatio)
	}
	if s.UniquePatterns != 1 {
		t.Fatalf("got %d", s.UniquePatterns)
	}
}

func TestSeverityModeTieBreaksTowardHigherSeverity(t *testing.T) {
	c := cluster(1, 10, map[string]uint64{"INFO": 5, "ERROR": 5})
	in := Inputs{Clusters: []*drain.Cluster{c}, TotalLines: 10}
	s := Build(ViewFull, in)
	if len(s.Patterns) != 1 || s.Patterns[0].Severity != "error" {
		t.Fatalf("got %+v", s.Patterns)
	}
}

func TestTriageStatusNormalWithNoErrors(t *testing.T) {
	c := cluster(1, 10, map[string]uint64{"INFO": 10})
	in := Inputs{Clusters: []*drain.Cluster{c}, TotalLines: 10}
	s := Build(ViewTriage, in)
	if s.Status != "NORMAL" {
		t.Fatalf("got %v", s.Status)
	}
}

func TestTriageStatusWarningWithErrorsNoBurst(t *testing.T) {
	c := cluster(1, 3, map[string]uint64{"ERROR": 3})
	in := Inputs{Clusters: []*drain.Cluster{c}, TotalLines: 1000}
	s := Build(ViewTriage, in)
	if s.Status != "WARNING" {
		t.Fatalf("got %v", s.Status)
	}
}

func TestTriageStatusCriticalWithErrorBurst(t *testing.T) {
	c := cluster(1, 10, map[string]uint64{"ERROR": 10})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	an := temporal.Analysis{
		Buckets: []temporal.Bucket{{Start: base, Count: 1}, {Start: base.Add(time.Minute), Count: 1}, {Start: base.Add(2 * time.Minute), Count: 10}},
		Bursts:  []temporal.Burst{{Start: base.Add(2 * time.Minute), End: base.Add(2 * time.Minute), PeakRate: 10, Severity: 10}},
	}
	in := Inputs{
		Clusters: []*drain.Cluster{c},
		TotalLines: 10,
		Temporal: map[uint64]temporal.Analysis{c.ID: an},
	}
	s := Build(ViewTriage, in)
	if s.Status != "CRITICAL" {
		t.Fatalf("got %v", s.Status)
	}
}

func TestPatternStabilityApproachesOneForSteadyFrequentCluster(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var buckets []temporal.Bucket
	for i := 0; i < 10; i++ {
		buckets = append(buckets, temporal.Bucket{Start: base.Add(time.Duration(i) * time.Minute), Count: 100})
	}
	an := temporal.Analysis{Buckets: buckets}
	ps := patternStability(an, 1000, 1000)
	if ps < 0.95 {
		t.Fatalf("expected stability near 1, got %v", ps)
	}
}

func TestSeverityFatalResolvesToError(t *testing.T) {
	c := cluster(1, 5, map[string]uint64{"FATAL": 5})
	in := Inputs{Clusters: []*drain.Cluster{c}, TotalLines: 5}
	s := Build(ViewFull, in)
	if len(s.Patterns) != 1 || s.Patterns[0].Severity != "error" {
		t.Fatalf("got %+v", s.Patterns)
	}
}

func TestTriageStatusCriticalWithFatalBurst(t *testing.T) {
	c := cluster(1, 10, map[string]uint64{"FATAL": 10})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	an := temporal.Analysis{Bursts: []temporal.Burst{{Start: base, End: base, PeakRate: 10}}}
	in := Inputs{
		Clusters:   []*drain.Cluster{c},
		TotalLines: 10,
		Temporal:   map[uint64]temporal.Analysis{c.ID: an},
	}
	s := Build(ViewTriage, in)
	if s.Status != "CRITICAL" {
		t.Fatalf("got %v", s.Status)
	}
}

func TestFilterTriageKeepsNewPatternWithoutBurst(t *testing.T) {
	c := cluster(1, 1, map[string]uint64{"INFO": 1})
	finding := anomaly.Finding{Kind: anomaly.KindNewPattern, ClusterID: c.ID, Template: c.TemplateString()}
	in := Inputs{
		Clusters:   []*drain.Cluster{c},
		TotalLines: 1,
		Findings:   []anomaly.Finding{finding},
	}
	s := Build(ViewTriage, in)
	if len(s.Patterns) != 1 {
		t.Fatalf("expected new pattern without a burst to survive triage filtering, got %+v", s.Patterns)
	}
}

func TestVerboseOrderingPutsErrorsFirst(t *testing.T) {
	c1 := cluster(1, 5, map[string]uint64{"INFO": 5})
	c2 := cluster(2, 3, map[string]uint64{"ERROR": 3})
	in := Inputs{Clusters: []*drain.Cluster{c1, c2}, TotalLines: 8}
	s := Build(ViewVerbose, in)
	if s.Patterns[0].Severity != "error" {
		t.Fatalf("expected error-severity pattern first, got %+v", s.Patterns[0])
	}
}
