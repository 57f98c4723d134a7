package correlation

import (
	"testing"
	"time"
)

func at(base time.Time, sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func TestCorrelatedClustersShareWindows(t *testing.T) {
	e := New(DefaultConfig())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		e.Observe(1, at(base, i*10))
		e.Observe(2, at(base, i*10+1))
	}
	corr := e.Correlations()
	partners, ok := corr[1]
	if !ok || len(partners) == 0 {
		t.Fatal("expected cluster 1 to have a correlated partner")
	}
	if partners[0].ClusterID != 2 {
		t.Fatalf("got %+v", partners)
	}
	if partners[0].Strength < 0.99 {
		t.Fatalf("expected near-perfect correlation, got %v", partners[0].Strength)
	}
}

func TestUncorrelatedClustersNotReported(t *testing.T) {
	e := New(DefaultConfig())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		e.Observe(1, at(base, i*10))
	}
	for i := 0; i < 10; i++ {
		e.Observe(2, at(base, 100000+i*10))
	}
	corr := e.Correlations()
	if len(corr[1]) != 0 {
		t.Fatalf("expected no correlation, got %+v", corr[1])
	}
}

func TestCorrelationIsSymmetric(t *testing.T) {
	e := New(DefaultConfig())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e.Observe(1, at(base, i*10))
		e.Observe(2, at(base, i*10))
	}
	corr := e.Correlations()
	if len(corr[1]) == 0 || len(corr[2]) == 0 {
		t.Fatal("expected correlation to be reported from both sides")
	}
	if corr[1][0].Strength != corr[2][0].Strength {
		t.Fatalf("expected symmetric strength, got %v vs %v", corr[1][0].Strength, corr[2][0].Strength)
	}
}

func TestTopKLimitsPartnerCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TopK = 1
	e := New(cfg)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e.Observe(1, at(base, i*10))
		e.Observe(2, at(base, i*10))
		e.Observe(3, at(base, i*10))
	}
	corr := e.Correlations()
	if len(corr[1]) != 1 {
		t.Fatalf("expected topK=1 to cap partner list, got %d", len(corr[1]))
	}
}
