package logsource

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/control-theory/logoscope/internal/model"
)

func TestScanSourceEmitsOrderedLinesWithAssignedOrdinals(t *testing.T) {
	r := strings.NewReader("first\nsecond\nthird\n")
	s := newScanSource(context.Background(), r, nil, "fixture", 1<<16, 0)

	var got []model.RawLine
	for l := range s.Lines() {
		got = append(got, l)
	}
	require.Len(t, got, 3)
	assert.Equal(t, uint64(1), got[0].Ordinal)
	assert.Equal(t, "second", got[1].Text)
	assert.Equal(t, "fixture", got[2].SourceID)
}

func TestNewFileReportsIOErrorForMissingPath(t *testing.T) {
	s := NewFile(context.Background(), "/nonexistent/path/does-not-exist.log", 1<<16)
	_, open := <-s.Lines()
	assert.False(t, open)

	errs := <-s.Errors()
	assert.Equal(t, model.ErrKindIOError, errs.Kind)
}

func TestScanSourceReplacesInvalidUTF8(t *testing.T) {
	r := strings.NewReader("valid\xffbytes\n")
	s := newScanSource(context.Background(), r, nil, "fixture", 1<<16, 0)
	l := <-s.Lines()
	assert.Contains(t, l.Text, "�")
}
