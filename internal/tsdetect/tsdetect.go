// Package tsdetect finds and parses timestamps. The Parser & Timestamp
// Detector uses ParseValue on JSON field values and Detect to scan a
// plaintext entry's text for the first recognizable timestamp.
package tsdetect

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reISOAny = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?\b`)
	reSyslog = regexp.MustCompile(`\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}\b`)
	reEpoch16 = regexp.MustCompile(`\b\d{16}\b`)
	reEpoch13 = regexp.MustCompile(`\b\d{13}\b`)
	reEpoch10 = regexp.MustCompile(`\b\d{10}\b`)

	isoLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05,999",
	}
)

// now is overridable by tests so syslog's year-inference is deterministic.
var now = time.Now

// Detect scans free text for the first recognizable timestamp substring and
// returns it normalized to UTC. Priority order: ISO8601/RFC3339 substring,
// syslog "Mon dd HH:MM:SS" (current year assumed), then 10/13/16-digit
// epoch seconds/milliseconds/microseconds.
func Detect(text string) (time.Time, bool) {
	if m := reISOAny.FindString(text); m != "" {
		if t, ok := parseISOCandidate(m); ok {
			return t, true
		}
	}
	if m := reSyslog.FindString(text); m != "" {
		candidate := strconv.Itoa(now().Year()) + " " + m
		if t, err := time.Parse("2006 Jan 2 15:04:05", candidate); err == nil {
			return t.UTC(), true
		}
	}
	if m := reEpoch16.FindString(text); m != "" {
		if t, ok := epochFromDigits(m, 16); ok {
			return t, true
		}
	}
	if m := reEpoch13.FindString(text); m != "" {
		if t, ok := epochFromDigits(m, 13); ok {
			return t, true
		}
	}
	if m := reEpoch10.FindString(text); m != "" {
		if t, ok := epochFromDigits(m, 10); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseValue interprets a scalar value (typically a JSON field's string or
// numeric representation) as a timestamp: RFC3339/ISO8601 string, or a
// bare 10/13/16-digit epoch string.
func ParseValue(s string) (time.Time, bool) {
	if t, ok := parseISOCandidate(s); ok {
		return t, true
	}
	digitsOnly := s != "" && strings.TrimFunc(s, isDigit) == ""
	if digitsOnly {
		return epochFromDigits(s, len(s))
	}
	return time.Time{}, false
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func parseISOCandidate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func epochFromDigits(digits string, width int) (time.Time, bool) {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	switch width {
	case 10:
		return time.Unix(n, 0).UTC(), true
	case 13:
		return time.UnixMilli(n).UTC(), true
	case 16:
		return time.UnixMicro(n).UTC(), true
	}
	return time.Time{}, false
}
