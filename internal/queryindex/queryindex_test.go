package queryindex

import (
	"testing"
	"time"

	"github.com/control-theory/logoscope/internal/model"
)

func line(ord uint64, ts time.Time, tpl, text string) model.RetainedLine {
	return model.RetainedLine{Ordinal: ord, Timestamp: ts, SourceID: "s1", Template: tpl, Text: text}
}

func TestByTemplateExactMatch(t *testing.T) {
	idx := New(0, false)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	idx.Append(line(1, base, "a <NUM>", "a 1"))
	idx.Append(line(2, base, "b <NUM>", "b 2"))
	idx.Append(line(3, base, "a <NUM>", "a 3"))
	got := idx.ByTemplate("a <NUM>")
	if len(got) != 2 {
		t.Fatalf("got %d", len(got))
	}
}

func TestByTimeHalfOpenRange(t *testing.T) {
	idx := New(0, false)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	idx.Append(line(1, base, "t", "x"))
	idx.Append(line(2, base.Add(time.Second), "t", "y"))
	idx.Append(line(3, base.Add(2*time.Second), "t", "z"))
	got := idx.ByTime(base, base.Add(2*time.Second), "")
	if len(got) != 2 {
		t.Fatalf("expected half-open range to exclude the end boundary, got %d", len(got))
	}
}

func TestContextClampsToBounds(t *testing.T) {
	idx := New(0, false)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := uint64(1); i <= 5; i++ {
		idx.Append(line(i, base.Add(time.Duration(i)*time.Second), "t", "line"))
	}
	got := idx.Context("s1", 1, 3, 1)
	if len(got) != 2 {
		t.Fatalf("expected context clamped at the start of the buffer, got %d", len(got))
	}
	got = idx.Context("s1", 5, 1, 10)
	if len(got) != 2 {
		t.Fatalf("expected context clamped at the end of the buffer, got %d", len(got))
	}
}

func TestContextUnknownOrdinalReturnsEmpty(t *testing.T) {
	idx := New(0, false)
	if got := idx.Context("s1", 99, 1, 1); got != nil {
		t.Fatalf("expected nil for unknown ordinal, got %v", got)
	}
}

func TestEvictBeforeDropsOldLinesAndRebuildsContext(t *testing.T) {
	idx := New(0, true)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	idx.Append(line(1, base, "t", "old"))
	idx.Append(line(2, base.Add(time.Minute), "t", "old2"))
	idx.Append(line(3, base.Add(time.Hour), "t", "recent"))

	idx.EvictBefore(base.Add(30 * time.Minute))

	got := idx.ByTemplate("t")
	if len(got) != 1 || got[0].Ordinal != 3 {
		t.Fatalf("expected only the recent line to survive, got %+v", got)
	}
	if ctx := idx.Context("s1", 1, 1, 1); ctx != nil {
		t.Fatalf("expected evicted ordinal to drop out of context index, got %v", ctx)
	}
	if ctx := idx.Context("s1", 3, 1, 1); len(ctx) != 1 || ctx[0].Ordinal != 3 {
		t.Fatalf("expected surviving ordinal still queryable by context, got %+v", ctx)
	}
}

func TestEvictBeforeKeepsUntimestampedLines(t *testing.T) {
	idx := New(0, true)
	idx.Append(model.RetainedLine{Ordinal: 1, SourceID: "s1", Template: "t", Text: "no time"})
	idx.EvictBefore(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	if got := idx.ByTemplate("t"); len(got) != 1 {
		t.Fatalf("expected untimestamped line to survive eviction, got %d", len(got))
	}
}

func TestResultCapTruncatesOldestFirstInStreamingMode(t *testing.T) {
	idx := New(2, true)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	idx.Append(line(1, base, "t", "a"))
	idx.Append(line(2, base.Add(time.Second), "t", "b"))
	idx.Append(line(3, base.Add(2*time.Second), "t", "c"))
	got := idx.ByTemplate("t")
	if len(got) != 2 {
		t.Fatalf("got %d", len(got))
	}
	if got[0].Ordinal != 2 || got[1].Ordinal != 3 {
		t.Fatalf("expected the two most recent lines, got %+v", got)
	}
}
