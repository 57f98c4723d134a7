// Package assembler implements the Line Assembler: it joins consecutive
// raw lines from a single source into logical entries, handling
// bracket-balanced JSON accumulation and plaintext stack-trace
// continuations so that downstream parsing sees one coherent record per
// logical entry rather than fragments.
package assembler

import (
	"regexp"
	"strings"

	"github.com/control-theory/logoscope/internal/model"
)

// reContinuation matches plaintext lines that continue the previous
// logical entry rather than starting a new one: indented text, stack
// frame lines ("\tat ..."), chained-exception headers, and the
// "... N more" elision Java stack traces use.
var reContinuation = regexp.MustCompile(`^(\s+|\tat\s|Caused by:|\.\.\. \d+ more)`)

// Assembler accumulates raw lines for exactly one source_id. Callers feeding
// multiple interleaved sources own one Assembler per source_id.
type Assembler struct {
	sourceID         string
	maxLinesPerEntry int

	buf          strings.Builder
	inJSON       bool
	jsonDepth    int
	linesInEntry int
	startOrdinal uint64
	haveBuf      bool
	pending      []model.LogicalEntry
}

// New constructs an Assembler for one source. maxLinesPerEntry bounds
// bracket-balanced JSON accumulation (default model.DefaultMaxLinesPerEntry);
// a value <= 0 uses the default.
func New(sourceID string, maxLinesPerEntry int) *Assembler {
	if maxLinesPerEntry <= 0 {
		maxLinesPerEntry = model.DefaultMaxLinesPerEntry
	}
	return &Assembler{sourceID: sourceID, maxLinesPerEntry: maxLinesPerEntry}
}

func isJSONStart(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}

// jsonBalanceDelta returns the net change in bracket depth contributed by
// line, ignoring brackets that appear inside single- or double-quoted
// strings and respecting backslash escapes, matching the requirement that
// JSON accumulation must not be confused by literal braces inside string
// values.
func jsonBalanceDelta(line string) int {
	delta := 0
	inString := false
	var quote byte
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case quote:
				inString = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = true
			quote = c
		case '{', '[':
			delta++
		case '}', ']':
			delta--
		}
	}
	return delta
}

func (a *Assembler) reset() {
	a.buf.Reset()
	a.inJSON = false
	a.jsonDepth = 0
	a.linesInEntry = 0
	a.haveBuf = false
}

func (a *Assembler) appendLine(line string) {
	if a.buf.Len() > 0 {
		a.buf.WriteByte('\n')
	}
	a.buf.WriteString(line)
	a.linesInEntry++
}

func (a *Assembler) flush() model.LogicalEntry {
	entry := model.LogicalEntry{
		SourceID:    a.sourceID,
		Ordinal:     a.startOrdinal,
		Text:        a.buf.String(),
		RawLineSpan: a.linesInEntry,
	}
	a.reset()
	return entry
}

// Push feeds one raw line (already assigned its ordinal) into the
// assembler. It returns a completed logical entry and true when pushing
// this line closed one out; otherwise it returns the zero value and false,
// meaning the line was buffered for a future entry.
func (a *Assembler) Push(ordinal uint64, line string) (model.LogicalEntry, bool) {
	if a.inJSON {
		a.appendLine(line)
		a.jsonDepth += jsonBalanceDelta(line)
		if a.jsonDepth <= 0 || a.linesInEntry >= a.maxLinesPerEntry {
			a.inJSON = false
			return a.flush(), true
		}
		return model.LogicalEntry{}, false
	}

	if isJSONStart(line) {
		// Starting a new JSON entry always closes whatever plaintext
		// continuation was pending, since JSON accumulation and stack-trace
		// continuation never interleave.
		var prior model.LogicalEntry
		hadPrior := false
		if a.haveBuf {
			prior = a.flush()
			hadPrior = true
		}
		a.startOrdinal = ordinal
		a.haveBuf = true
		a.appendLine(line)
		a.jsonDepth = jsonBalanceDelta(line)
		if a.jsonDepth > 0 {
			a.inJSON = true
			if hadPrior {
				return prior, true
			}
			return model.LogicalEntry{}, false
		}
		// Single-line JSON: close immediately.
		done := a.flush()
		if hadPrior {
			// Emit the prior entry first. Push returns only one entry, so
			// prior is returned here and done is requeued as a one-line
			// pending entry that the caller drains with Pending().
			a.requeue(done)
			return prior, true
		}
		return done, true
	}

	isCont := reContinuation.MatchString(line)

	if !a.haveBuf {
		a.startOrdinal = ordinal
		a.haveBuf = true
		a.appendLine(line)
		return model.LogicalEntry{}, false
	}

	if !isCont {
		out := a.flush()
		a.startOrdinal = ordinal
		a.haveBuf = true
		a.appendLine(line)
		return out, true
	}

	a.appendLine(line)
	return model.LogicalEntry{}, false
}

// requeue holds at most one already-complete entry produced as a side
// effect of closing a plaintext buffer to start a single-line JSON entry;
// the next Pending() call drains it.
func (a *Assembler) requeue(e model.LogicalEntry) {
	a.pending = append(a.pending, e)
}

// Pending drains any entries queued internally by requeue. Callers should
// check this after every Push.
func (a *Assembler) Pending() []model.LogicalEntry {
	if len(a.pending) == 0 {
		return nil
	}
	p := a.pending
	a.pending = nil
	return p
}

// Finish flushes whatever is buffered at end-of-stream; the assembler must
// never deadlock on partial input, so an unterminated JSON accumulation or
// a pending continuation is emitted as-is rather than discarded.
func (a *Assembler) Finish() (model.LogicalEntry, bool) {
	if !a.haveBuf {
		return model.LogicalEntry{}, false
	}
	a.inJSON = false
	return a.flush(), true
}
