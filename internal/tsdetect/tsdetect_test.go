package tsdetect

import (
	"testing"
	"time"
)

func TestDetectISO(t *testing.T) {
	ts, ok := Detect("level=info msg at 2024-01-15T10:00:00Z done")
	if !ok {
		t.Fatal("expected detection")
	}
	if !ts.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %v", ts)
	}
}

func TestDetectSyslog(t *testing.T) {
	ts, ok := Detect("Sep 05 14:20:00 host myapp: started")
	if !ok {
		t.Fatal("expected detection")
	}
	if ts.Month() != time.September || ts.Day() != 5 || ts.Hour() != 14 {
		t.Fatalf("got %v", ts)
	}
}

func TestDetectEpochSeconds(t *testing.T) {
	ts, ok := Detect("event at 1000000000 happened")
	if !ok {
		t.Fatal("expected detection")
	}
	if !ts.Equal(time.Date(2001, 9, 9, 1, 46, 40, 0, time.UTC)) {
		t.Fatalf("got %v", ts)
	}
}

func TestDetectNone(t *testing.T) {
	if _, ok := Detect("nothing temporal here"); ok {
		t.Fatal("did not expect detection")
	}
}

func TestParseValueRFC3339(t *testing.T) {
	ts, ok := ParseValue("2024-01-15T10:00:00Z")
	if !ok || ts.Year() != 2024 {
		t.Fatalf("got %v ok=%v", ts, ok)
	}
}

func TestParseValueEpochMillis(t *testing.T) {
	ts, ok := ParseValue("1705312800000")
	if !ok {
		t.Fatal("expected parse")
	}
	if ts.Year() != 2024 {
		t.Fatalf("got %v", ts)
	}
}
