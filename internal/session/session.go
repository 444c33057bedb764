package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"docchat/internal/index"
)

var ErrNoIndex = errors.New("no document index loaded")

// Session is the process-wide slot holding at most one index.
type Session struct {
	mu       sync.RWMutex
	idx      *index.Index
	onChange func(*index.Index)
	logger   *slog.Logger
}

func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{logger: logger.With("component", "session")}
}

// OnChange registers fn to observe every Set and Clear. fn runs under the
// session lock with the index now held (nil after Clear), so observers see
// changes in the order they took effect. fn must not call back into s.
func (s *Session) OnChange(fn func(*index.Index)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) Get() (*index.Index, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx, s.idx != nil
}

func (s *Session) Require() (*index.Index, error) {
	idx, ok := s.Get()
	if !ok {
		return nil, ErrNoIndex
	}
	return idx, nil
}

// Set installs idx and releases whatever index it replaces.
func (s *Session) Set(ctx context.Context, idx *index.Index) {
	s.mu.Lock()
	prev := s.idx
	s.idx = idx
	s.notify()
	s.mu.Unlock()
	if prev != nil && prev != idx {
		s.release(ctx, prev)
	}
}

// Clear empties the slot. It reports whether an index was held.
func (s *Session) Clear(ctx context.Context) bool {
	s.mu.Lock()
	prev := s.idx
	s.idx = nil
	s.notify()
	s.mu.Unlock()
	if prev == nil {
		return false
	}
	s.release(ctx, prev)
	return true
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.idx)
	}
}

func (s *Session) release(ctx context.Context, idx *index.Index) {
	if err := idx.Release(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("release index failed", "index_id", idx.ID, "file", idx.Filename, "error", err)
		return
	}
	s.logger.Info("index released", "index_id", idx.ID, "file", idx.Filename)
}
