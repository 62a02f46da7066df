package session

import (
	"context"
	"fmt"
	"log/slog"

	"library/internal/storage"
)

type Manager struct {
	src Source
	l   *slog.Logger
}

func NewManager(src Source, l *slog.Logger) *Manager {
	return &Manager{src: src, l: l}
}

// Begin opens a session on a fresh connection which is checked to be alive.
func (m *Manager) Begin(ctx context.Context) (*Session, error) {
	h, err := m.src.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}

	if err := h.Ping(ctx); err != nil {
		h.Release()
		return nil, fmt.Errorf("checking connection: %w", err)
	}

	return &Session{h: h, state: StateOpen, l: m.l}, nil
}

// Do runs fn inside a transaction of its own session. The transaction is
// committed when fn succeeds and rolled back otherwise; fn's error is returned as is.
func (m *Manager) Do(ctx context.Context, fn func(conn storage.Conn) error) error {
	s, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if err := s.StartTransaction(ctx); err != nil {
		return err
	}

	if err := fn(s.Conn()); err != nil {
		if rbErr := s.Rollback(ctx); rbErr != nil {
			m.l.ErrorContext(ctx, "Failed to roll back after error: "+rbErr.Error(), slog.String("cause", err.Error()))
		}
		_ = s.Finish()
		return err
	}

	if err := s.Commit(ctx); err != nil {
		_ = s.Finish()
		return err
	}

	return s.Finish()
}
