package paramstats

import (
	"testing"
	"time"

	"github.com/control-theory/logoscope/internal/model"
)

func TestObserveTemplateTalliesByPosition(t *testing.T) {
	tr := New(64)
	tr.ObserveTemplate(1, []int{1}, []string{"user", "42", "logged", "in"})
	tr.ObserveTemplate(1, []int{1}, []string{"user", "43", "logged", "in"})
	cs := tr.ClusterStats(1)
	p := cs.Positions["1"]
	if p == nil || p.total != 2 {
		t.Fatalf("expected 2 observations at position 1, got %v", p)
	}
	if !p.IsNumeric() {
		t.Fatal("expected position to be classified numeric")
	}
	if p.Numeric.Median() != 42.5 {
		t.Fatalf("got median %v", p.Numeric.Median())
	}
}

func TestValueTallyOverflowsToOther(t *testing.T) {
	tr := New(2)
	cs := tr.ClusterStats(5)
	cs.Observe("0", "a")
	cs.Observe("0", "b")
	cs.Observe("0", "c")
	p := cs.Positions["0"]
	if len(p.Tally.Counts) != 2 {
		t.Fatalf("expected cap of 2 unique values, got %d", len(p.Tally.Counts))
	}
	if p.Tally.Other != 1 {
		t.Fatalf("expected 1 overflowed value, got %d", p.Tally.Other)
	}
}

func TestObserveFieldsTracksJSONPaths(t *testing.T) {
	tr := New(64)
	tr.ObserveFields(9, []model.FlatField{{Path: "status", RawValue: "200"}})
	tr.ObserveFields(9, []model.FlatField{{Path: "status", RawValue: "500"}})
	cs := tr.ClusterStats(9)
	p := cs.Positions["status"]
	if p.total != 2 {
		t.Fatalf("got %d", p.total)
	}
}

func TestSchemaDiffDetectsAddedRemovedChanged(t *testing.T) {
	tr := New(64)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.ObserveSchema(t0, []model.FlatField{{Path: "a", TypeTag: "string"}, {Path: "b", TypeTag: "int"}})
	tr.ObserveSchema(t0.Add(time.Second), []model.FlatField{{Path: "a", TypeTag: "int"}, {Path: "c", TypeTag: "string"}})
	diffs := tr.Diffs(time.Minute, nil)
	var added, removed, changed bool
	for _, d := range diffs {
		switch d.Kind {
		case model.SchemaFieldAdded:
			if d.Field == "c" {
				added = true
			}
		case model.SchemaFieldRemoved:
			if d.Field == "b" {
				removed = true
			}
		case model.SchemaTypeChanged:
			if d.Field == "a" && d.OldType == "string" && d.NewType == "int" {
				changed = true
			}
		}
	}
	if !added || !removed || !changed {
		t.Fatalf("missing expected diff kinds: %+v", diffs)
	}
}

func TestSchemaDiffCollapsesIdenticalFingerprints(t *testing.T) {
	tr := New(64)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fields := []model.FlatField{{Path: "a", TypeTag: "string"}}
	tr.ObserveSchema(t0, fields)
	tr.ObserveSchema(t0.Add(time.Second), fields)
	tr.ObserveSchema(t0.Add(2*time.Second), fields)
	if len(tr.Diffs(time.Minute, nil)) != 0 {
		t.Fatalf("expected no diffs for identical fingerprints, got %v", tr.Diffs(time.Minute, nil))
	}
}

func TestSchemaDiffImpactAnnotation(t *testing.T) {
	tr := New(64)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.ObserveSchema(t0, []model.FlatField{{Path: "a", TypeTag: "string"}})
	tr.ObserveSchema(t0.Add(5*time.Second), []model.FlatField{{Path: "a", TypeTag: "int"}})
	diffs := tr.Diffs(time.Minute, []time.Time{t0.Add(5 * time.Second)})
	if len(diffs) == 0 || !diffs[0].Impact {
		t.Fatalf("expected impact annotation, got %+v", diffs)
	}
}
