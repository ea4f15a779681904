package entities

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
)

// LoadFunc builds a recognizer. It runs at most once per Model.
type LoadFunc func() (Recognizer, error)

// Model owns a recognizer that is expensive to build. The recognizer is
// loaded on first use and shared by every caller holding the Model; Close
// releases it. A Model is passed by reference to the extractors that use it.
type Model struct {
	load LoadFunc

	once sync.Once
	mu   sync.RWMutex
	rec  Recognizer
	err  error

	closed bool
}

// NewModel creates an unloaded model
func NewModel(load LoadFunc) *Model {
	return &Model{load: load}
}

// NewStaticModel wraps an already built recognizer
func NewStaticModel(rec Recognizer) *Model {
	return NewModel(func() (Recognizer, error) { return rec, nil })
}

// Recognizer returns the loaded recognizer, loading it on first call
func (m *Model) Recognizer() (Recognizer, error) {
	if m.isClosed() {
		return nil, internalerr.ErrClosed
	}

	m.once.Do(func() {
		if m.isClosed() {
			return
		}
		rec, err := m.load()
		if err == nil && rec == nil {
			err = fmt.Errorf("entities: loader returned no recognizer")
		}
		m.mu.Lock()
		m.rec, m.err = rec, err
		m.mu.Unlock()
	})

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, internalerr.ErrClosed
	}
	return m.rec, m.err
}

func (m *Model) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Recognize delegates to the loaded recognizer
func (m *Model) Recognize(ctx context.Context, text string) ([]Span, error) {
	rec, err := m.Recognizer()
	if err != nil {
		return nil, err
	}
	return rec.Recognize(ctx, text)
}

// Close releases the recognizer. Further use returns internalerr.ErrClosed.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	rec := m.rec
	m.rec = nil
	if c, ok := rec.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
