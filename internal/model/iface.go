package model

import "time"

// RetainedLine is one entry in the Query Index's append-only retained
// buffer: enough to answer by_template, by_time and context lookups
// without re-parsing the original text.
type RetainedLine struct {
	Ordinal    uint64
	Timestamp  time.Time
	SourceID   string
	Text       string
	TemplateID uint64
	Template   string
}

// QueryIndex is the read contract the Summary Builder's `logs` view and any
// external caller use to drill from an aggregate back into retained lines.
type QueryIndex interface {
	ByTemplate(template string) []RetainedLine
	ByTime(start, end time.Time, template string) []RetainedLine
	Context(sourceID string, ordinal uint64, before, after int) []RetainedLine
}
