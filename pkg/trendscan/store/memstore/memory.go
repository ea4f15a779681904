package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/trendscan/pkg/trendscan/corpus"
	"github.com/cognicore/trendscan/pkg/trendscan/embedding"
	"github.com/cognicore/trendscan/pkg/trendscan/internalerr"
	"github.com/cognicore/trendscan/pkg/trendscan/store"
)

// Store is an in-memory implementation of store.Store. Models are shared,
// not copied; they are read-only once trained.
type Store struct {
	mu     sync.RWMutex
	models map[string]*embedding.Model
	runs   map[string]store.Run
	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		models: make(map[string]*embedding.Model),
		runs:   make(map[string]store.Run),
	}
}

// Close implements store.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// GetModel returns a cached model
func (s *Store) GetModel(ctx context.Context, key string) (*embedding.Model, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, internalerr.ErrClosed
	}
	m, ok := s.models[key]
	return m, ok, nil
}

// PutModel caches a model under key
func (s *Store) PutModel(ctx context.Context, key string, m *embedding.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return internalerr.ErrClosed
	}
	s.models[key] = m
	return nil
}

// PurgeModels drops every cached model
func (s *Store) PurgeModels(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, internalerr.ErrClosed
	}
	n := len(s.models)
	clear(s.models)
	return n, nil
}

// PutRun stores a run, replacing any run with the same ID
func (s *Store) PutRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return internalerr.ErrClosed
	}
	r.Result = append([]byte(nil), r.Result...)
	s.runs[r.ID] = r
	return nil
}

// GetRun returns a run by ID
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.Run{}, internalerr.ErrClosed
	}
	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, internalerr.ErrNotFound
	}
	return r, nil
}

// RecentRuns returns up to k runs for platform, newest first. An empty
// platform matches every run.
func (s *Store) RecentRuns(ctx context.Context, platform corpus.Platform, k int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, internalerr.ErrClosed
	}
	if k <= 0 {
		k = 10
	}
	var out []store.Run
	for _, r := range s.runs {
		if platform == "" || r.Platform == platform {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}
