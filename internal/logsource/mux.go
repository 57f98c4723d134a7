package logsource

import (
	"context"
	"sync"

	"github.com/control-theory/logoscope/internal/model"
)

// DefaultMuxBuffer is the default channel buffer size for the multiplexer.
const DefaultMuxBuffer = 50_000

// Multiplexer merges multiple sources' line and error streams into single
// read-only streams, so a caller drives one pair of channels regardless of
// how many files or stdin sources are open.
type Multiplexer struct {
	ctx    context.Context
	cancel context.CancelFunc

	sources []Source
	lines   chan model.RawLine
	errs    chan model.LineError

	startOnce sync.Once
	stopOnce  sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewMultiplexer builds a Multiplexer over sources. Call Start to begin
// forwarding.
func NewMultiplexer(parent context.Context, sources []Source, buffer int) *Multiplexer {
	if buffer <= 0 {
		buffer = DefaultMuxBuffer
	}
	ctx, cancel := context.WithCancel(parent)
	return &Multiplexer{
		ctx:     ctx,
		cancel:  cancel,
		sources: sources,
		lines:   make(chan model.RawLine, buffer),
		errs:    make(chan model.LineError, buffer),
	}
}

func (m *Multiplexer) Start() {
	m.startOnce.Do(func() {
		if len(m.sources) == 0 {
			m.closeOutput()
			return
		}
		for _, src := range m.sources {
			src := src
			m.wg.Add(1)
			go m.forward(src)
		}
		go func() {
			m.wg.Wait()
			m.closeOutput()
		}()
	})
}

func (m *Multiplexer) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		for _, src := range m.sources {
			src.Stop()
		}
		m.wg.Wait()
		m.closeOutput()
	})
}

func (m *Multiplexer) Lines() <-chan model.RawLine    { return m.lines }
func (m *Multiplexer) Errors() <-chan model.LineError { return m.errs }

func (m *Multiplexer) forward(src Source) {
	defer m.wg.Done()
	lines := src.Lines()
	errs := src.Errors()
	for lines != nil || errs != nil {
		select {
		case <-m.ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			select {
			case m.lines <- l:
			case <-m.ctx.Done():
				return
			}
		case e, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			select {
			case m.errs <- e:
			case <-m.ctx.Done():
				return
			}
		}
	}
}

func (m *Multiplexer) closeOutput() {
	m.closeOnce.Do(func() {
		close(m.lines)
		close(m.errs)
	})
}
