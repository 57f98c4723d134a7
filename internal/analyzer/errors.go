package analyzer

import (
	"fmt"

	"github.com/control-theory/logoscope/internal/model"
)

// Error is a typed, kind-carrying error the analyzer returns for run-level
// failures (as opposed to recoverable line-level errors, which are
// accumulated as model.LineError samples instead of returned). It reuses
// the same closed error-kind set so callers can branch on classification
// with errors.Is/errors.As rather than string matching.
type Error struct {
	Kind model.ErrorKind
	Err  error
}

func newError(kind model.ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, letting callers write
// errors.Is(err, &analyzer.Error{Kind: model.ErrKindCancelled}) without
// caring about the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// ErrCancelled is the sentinel run-level error of kind cancelled, for
// matching an error against cancellation with errors.Is. RunBatch does not
// return it: a cancelled batch run, in any stage, yields a partial,
// Incomplete summary with a nil error.
var ErrCancelled = &Error{Kind: model.ErrKindCancelled}
