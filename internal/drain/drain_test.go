package drain

import (
	"testing"
	"time"

	"github.com/control-theory/logoscope/internal/masking"
)

func ins(text string) Insertion {
	return Insertion{
		Tokens:    Tokenize(masking.Mask(text)),
		Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		HasTime:   true,
		Level:     "INFO",
		RawLine:   text,
	}
}

func TestIdenticalLinesShareCluster(t *testing.T) {
	d := New(Config{})
	c1, _ := d.Insert(ins("user 42 logged in"))
	c2, _ := d.Insert(ins("user 43 logged in"))
	if c1.ID != c2.ID {
		t.Fatalf("expected same cluster, got %d and %d", c1.ID, c2.ID)
	}
	if c1.Count != 2 {
		t.Fatalf("expected count 2, got %d", c1.Count)
	}
	if c1.TemplateString() != "user <NUM> logged in" {
		t.Fatalf("got template %q", c1.TemplateString())
	}
}

func TestDifferentLengthsGoToDifferentClusters(t *testing.T) {
	d := New(Config{})
	c1, _ := d.Insert(ins("short line"))
	c2, _ := d.Insert(ins("a much longer line here"))
	if c1.ID == c2.ID {
		t.Fatal("expected different clusters for different token counts")
	}
}

func TestDissimilarLinesSameLengthSplit(t *testing.T) {
	d := New(Config{SimMin: 0.9})
	c1, _ := d.Insert(ins("connect to database failed"))
	c2, _ := d.Insert(ins("render report export failed"))
	if c1.ID == c2.ID {
		t.Fatal("expected low-similarity lines to form distinct clusters")
	}
}

func TestMaxChildrenCollapsesToWildcard(t *testing.T) {
	d := New(Config{MaxChildren: 2})
	for i := 0; i < 10; i++ {
		d.Insert(ins("op alpha beta gamma"))
	}
	d.Insert(ins("a1 alpha beta gamma"))
	d.Insert(ins("a2 alpha beta gamma"))
	d.Insert(ins("a3 alpha beta gamma"))
	clusters := d.Clusters()
	if len(clusters) == 0 {
		t.Fatal("expected at least one cluster")
	}
}

func TestLevelHistogramTracksAssignments(t *testing.T) {
	d := New(Config{})
	d.Insert(Insertion{Tokens: []string{"x", "a", "b", "c", "y"}, Level: "INFO", RawLine: "x a b c y"})
	d.Insert(Insertion{Tokens: []string{"x", "a", "b", "c", "z"}, Level: "ERROR", RawLine: "x a b c z"})
	clusters := d.Clusters()
	if len(clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if c.LevelHist["INFO"] != 1 || c.LevelHist["ERROR"] != 1 {
		t.Fatalf("got %v", c.LevelHist)
	}
}

func TestTemplateIDStableAcrossInstances(t *testing.T) {
	d1 := New(Config{})
	d2 := New(Config{})
	c1, _ := d1.Insert(ins("user 1 logged in"))
	c2, _ := d2.Insert(ins("user 2 logged in"))
	if c1.ID != c2.ID {
		t.Fatalf("expected stable hash across instances, got %d vs %d", c1.ID, c2.ID)
	}
}

func TestClusterCapEvictsLeastRecentlyUsed(t *testing.T) {
	d := New(Config{MaxClusters: 2})
	d.Insert(ins("aaa bbb"))
	d.Insert(ins("ccc ddd"))
	d.Insert(ins("eee fff"))
	if len(d.Clusters()) > 2 {
		t.Fatalf("expected eviction to cap clusters at 2, got %d", len(d.Clusters()))
	}
	if d.OverflowCount() == 0 {
		t.Fatal("expected an overflow count to be charged")
	}
}

func TestExamplesRingBounded(t *testing.T) {
	d := New(Config{MaxExamples: 2})
	var last *Cluster
	for i := 0; i < 5; i++ {
		last, _ = d.Insert(ins("steady state tick"))
	}
	if len(last.Examples) != 2 {
		t.Fatalf("expected 2 retained examples, got %d", len(last.Examples))
	}
}
