package logsource

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/control-theory/logoscope/internal/model"
)

const (
	// DefaultBuffer is the default channel buffer size for ingested lines.
	DefaultBuffer = 50_000
)

// scanSource is the shared implementation behind stdin and file sources:
// scan newline-delimited lines from r, replacing invalid UTF-8 with
// U+FFFD, and forward each as a model.RawLine with a monotonic ordinal.
type scanSource struct {
	ch     chan model.RawLine
	errCh  chan model.LineError
	cancel context.CancelFunc
	name   string
	closer io.Closer
}

func newScanSource(ctx context.Context, r io.Reader, closer io.Closer, name string, maxLineBytes, bufferSize int) *scanSource {
	if bufferSize <= 0 {
		bufferSize = DefaultBuffer
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &scanSource{
		ch:     make(chan model.RawLine, bufferSize),
		errCh:  make(chan model.LineError, 1),
		cancel: cancel,
		name:   name,
		closer: closer,
	}
	go s.scan(ctx, r, maxLineBytes)
	return s
}

func (s *scanSource) scan(ctx context.Context, r io.Reader, maxLineBytes int) {
	defer close(s.ch)
	defer close(s.errCh)
	if s.closer != nil {
		defer s.closer.Close()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	type scanResult struct {
		line string
		ok   bool
	}
	results := make(chan scanResult)
	go func() {
		defer close(results)
		for scanner.Scan() {
			line := strings.ToValidUTF8(scanner.Text(), "�")
			select {
			case results <- scanResult{line: line, ok: true}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			kind := model.ErrKindIOError
			detail := err.Error()
			if errors.Is(err, bufio.ErrTooLong) {
				kind = model.ErrKindLineTooLong
				detail = "line exceeds the configured maximum size"
			}
			select {
			case s.errCh <- model.LineError{SourceID: s.name, Kind: kind, Detail: detail}:
			case <-ctx.Done():
			}
		}
	}()

	var ordinal uint64
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-results:
			if !ok {
				return
			}
			ordinal++
			select {
			case s.ch <- model.RawLine{SourceID: s.name, Ordinal: ordinal, Text: r.line}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *scanSource) Lines() <-chan model.RawLine    { return s.ch }
func (s *scanSource) Errors() <-chan model.LineError { return s.errCh }
func (s *scanSource) Stop()                          { s.cancel() }
func (s *scanSource) Name() string                   { return s.name }

// NewStdin reads from stdin until EOF or ctx is cancelled.
func NewStdin(ctx context.Context, maxLineBytes int) Source {
	return newScanSource(ctx, os.Stdin, nil, "stdin", maxLineBytes, DefaultBuffer)
}

// NewFile opens path and reads it as a single source. A failure to open
// surfaces as an io_error on Errors() rather than a returned error, so
// callers can treat every source uniformly: one missing file does not
// abort a multi-file run.
func NewFile(ctx context.Context, path string, maxLineBytes int) Source {
	f, err := os.Open(path)
	if err != nil {
		_, cancel := context.WithCancel(ctx)
		s := &scanSource{
			ch:     make(chan model.RawLine),
			errCh:  make(chan model.LineError, 1),
			cancel: cancel,
			name:   path,
		}
		close(s.ch)
		s.errCh <- model.LineError{SourceID: path, Kind: model.ErrKindIOError, Detail: err.Error()}
		close(s.errCh)
		return s
	}
	return newScanSource(ctx, f, f, path, maxLineBytes, DefaultBuffer)
}
