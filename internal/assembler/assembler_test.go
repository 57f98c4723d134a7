package assembler

import "testing"

func feed(a *Assembler, lines []string) []string {
	var out []string
	for i, l := range lines {
		if e, ok := a.Push(uint64(i+1), l); ok {
			out = append(out, e.Text)
		}
		for _, p := range a.Pending() {
			out = append(out, p.Text)
		}
	}
	if e, ok := a.Finish(); ok {
		out = append(out, e.Text)
	}
	return out
}

func TestMultilineStackTrace(t *testing.T) {
	a := New("app.log", 0)
	lines := []string{
		"ERROR boom",
		"    at f(...)",
		"    at g(...)",
		"    at h(...)",
		"    at i(...)",
		"    at j(...)",
		"INFO ok",
	}
	entries := feed(a, lines)
	if len(entries) != 2 {
		t.Fatalf("expected 2 logical entries, got %d: %v", len(entries), entries)
	}
	if entries[0] != "ERROR boom\n    at f(...)\n    at g(...)\n    at h(...)\n    at i(...)\n    at j(...)" {
		t.Fatalf("unexpected first entry: %q", entries[0])
	}
	if entries[1] != "INFO ok" {
		t.Fatalf("unexpected second entry: %q", entries[1])
	}
}

func TestSingleLineJSON(t *testing.T) {
	a := New("app.log", 0)
	entries := feed(a, []string{`{"level":"info","msg":"hi"}`})
	if len(entries) != 1 || entries[0] != `{"level":"info","msg":"hi"}` {
		t.Fatalf("got %v", entries)
	}
}

func TestMultilineJSONBracketBalance(t *testing.T) {
	a := New("app.log", 0)
	lines := []string{
		`{"level":"info",`,
		`"nested": {"a": 1},`,
		`"msg": "done"}`,
	}
	entries := feed(a, lines)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d: %v", len(entries), entries)
	}
}

func TestJSONBracketsInsideStringsIgnored(t *testing.T) {
	a := New("app.log", 0)
	lines := []string{
		`{"msg": "value with { and [ inside a string"}`,
	}
	entries := feed(a, lines)
	if len(entries) != 1 {
		t.Fatalf("expected single-line JSON to close immediately, got %d: %v", len(entries), entries)
	}
}

func TestUnterminatedJSONFlushedAtEOS(t *testing.T) {
	a := New("app.log", 0)
	if _, ok := a.Push(1, `{"level":"info",`); ok {
		t.Fatal("did not expect early completion")
	}
	e, ok := a.Finish()
	if !ok {
		t.Fatal("expected Finish to flush pending JSON")
	}
	if e.Text != `{"level":"info",` {
		t.Fatalf("got %q", e.Text)
	}
}

func TestCausedByIsContinuation(t *testing.T) {
	a := New("app.log", 0)
	entries := feed(a, []string{
		"ERROR failed",
		"Caused by: IOException",
		"... 3 more",
	})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d: %v", len(entries), entries)
	}
}

func TestNewTimestampedLineStartsNewEntry(t *testing.T) {
	a := New("app.log", 0)
	entries := feed(a, []string{
		"2024-01-15T10:00:00Z INFO first",
		"2024-01-15T10:00:01Z INFO second",
	})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(entries), entries)
	}
}
