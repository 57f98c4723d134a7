// Package logsource implements the module's two input surfaces: stdin and
// file paths, both scanned as newline-delimited byte streams and fed into
// the pipeline as model.RawLine values carrying a per-source monotonic
// ordinal. A missing file opens as an io_error for that source rather than
// aborting the whole run, unless fail_fast is set.
package logsource

import "github.com/control-theory/logoscope/internal/model"

// Source is a unified interface over stdin and file inputs.
type Source interface {
	Lines() <-chan model.RawLine
	Errors() <-chan model.LineError
	Stop()
	Name() string
}
