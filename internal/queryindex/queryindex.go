// Package queryindex implements the Query Index: an append-only buffer of
// retained lines supporting by_template, by_time, and context lookups,
// bounded by an absolute result cap with oldest-first truncation in
// streaming mode.
package queryindex

import (
	"sort"
	"time"

	"github.com/control-theory/logoscope/internal/model"
)

// Index retains lines in ingestion order, partitioned by source_id for
// context lookups, and maintains a by-template secondary index.
type Index struct {
	resultCap int
	streaming bool

	bySource map[string][]model.RetainedLine // ordinal-ordered per source
	byOrdinalIdx map[string]map[uint64]int    // source -> ordinal -> index into bySource[source]
	all      []model.RetainedLine            // ingestion order, for by_time/by_template scans
}

// New constructs an Index. resultCap <= 0 uses model.DefaultQueryResultCap.
// streaming controls truncation direction when a query would exceed the
// cap: true truncates oldest-first (favoring recent results), false simply
// caps without implying any particular retention policy beyond the cap.
func New(resultCap int, streaming bool) *Index {
	if resultCap <= 0 {
		resultCap = model.DefaultQueryResultCap
	}
	return &Index{
		resultCap:    resultCap,
		streaming:    streaming,
		bySource:     make(map[string][]model.RetainedLine),
		byOrdinalIdx: make(map[string]map[uint64]int),
	}
}

// Append records one retained line.
func (idx *Index) Append(line model.RetainedLine) {
	idx.all = append(idx.all, line)
	src := idx.bySource[line.SourceID]
	pos := len(src)
	idx.bySource[line.SourceID] = append(src, line)
	m, ok := idx.byOrdinalIdx[line.SourceID]
	if !ok {
		m = make(map[uint64]int)
		idx.byOrdinalIdx[line.SourceID] = m
	}
	m[line.Ordinal] = pos
}

// ByTemplate returns every retained line whose template matches exactly.
func (idx *Index) ByTemplate(template string) []model.RetainedLine {
	var out []model.RetainedLine
	for _, l := range idx.all {
		if l.Template == template {
			out = append(out, l)
		}
	}
	return idx.cap(out)
}

// ByTime returns retained lines in [start, end), in (timestamp, ordinal)
// order, optionally filtered by template. An empty template matches all.
func (idx *Index) ByTime(start, end time.Time, template string) []model.RetainedLine {
	var out []model.RetainedLine
	for _, l := range idx.all {
		if l.Timestamp.Before(start) || !l.Timestamp.Before(end) {
			continue
		}
		if template != "" && l.Template != template {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return idx.cap(out)
}

// Context returns the lines from the same source_id whose ordinals lie in
// [ordinal-before, ordinal+after], clamped to the buffer's actual bounds.
// The anchor ordinal itself must already be retained; callers that query
// an unknown ordinal get an empty result rather than a panic.
func (idx *Index) Context(sourceID string, ordinal uint64, before, after int) []model.RetainedLine {
	src := idx.bySource[sourceID]
	posByOrdinal := idx.byOrdinalIdx[sourceID]
	pos, ok := posByOrdinal[ordinal]
	if !ok {
		return nil
	}
	start := pos - before
	if start < 0 {
		start = 0
	}
	end := pos + after
	if end > len(src)-1 {
		end = len(src) - 1
	}
	if end < start {
		return nil
	}
	out := make([]model.RetainedLine, end-start+1)
	copy(out, src[start:end+1])
	return idx.cap(out)
}

// EvictBefore drops every retained line whose timestamp is strictly before
// cutoff, rebuilding the per-source context index. Lines with no timestamp
// (the zero time) are never evicted by age; callers relying on a rolling
// window should only invoke this once a run has an established time axis.
func (idx *Index) EvictBefore(cutoff time.Time) {
	kept := make([]model.RetainedLine, 0, len(idx.all))
	for _, l := range idx.all {
		if l.Timestamp.IsZero() || !l.Timestamp.Before(cutoff) {
			kept = append(kept, l)
		}
	}
	idx.all = kept

	idx.bySource = make(map[string][]model.RetainedLine, len(idx.bySource))
	idx.byOrdinalIdx = make(map[string]map[uint64]int, len(idx.byOrdinalIdx))
	for _, l := range kept {
		src := idx.bySource[l.SourceID]
		pos := len(src)
		idx.bySource[l.SourceID] = append(src, l)
		m, ok := idx.byOrdinalIdx[l.SourceID]
		if !ok {
			m = make(map[uint64]int)
			idx.byOrdinalIdx[l.SourceID] = m
		}
		m[l.Ordinal] = pos
	}
}

// cap enforces the absolute result cap, truncating oldest-first when in
// streaming mode (keeping the most recent results) and simply slicing
// from the front otherwise.
func (idx *Index) cap(lines []model.RetainedLine) []model.RetainedLine {
	if len(lines) <= idx.resultCap {
		return lines
	}
	if idx.streaming {
		return lines[len(lines)-idx.resultCap:]
	}
	return lines[:idx.resultCap]
}
