package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"library/internal/storage"
)

type State uint8

const (
	StateIdle State = iota
	StateOpen
	StateInTransaction
	StateCommitted
	StateRolledBack
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateInTransaction:
		return "in-transaction"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled-back"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	ErrNotOpen           = errors.New("session is not open")
	ErrNoTransaction     = errors.New("no transaction in progress")
	ErrTransactionActive = errors.New("transaction already in progress")
	ErrNotFinished       = errors.New("transaction was neither committed nor rolled back")
)

// Handle is a single connection taken from a Source.
type Handle interface {
	storage.Conn
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Release()
}

type Source interface {
	Acquire(ctx context.Context) (Handle, error)
}

// PoolSource hands out connections of a pgx pool.
type PoolSource struct {
	Pool *pgxpool.Pool
}

func (p PoolSource) Acquire(ctx context.Context) (Handle, error) {
	c, err := p.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Session owns one connection for the duration of a repository call.
// Not safe for concurrent use.
type Session struct {
	h     Handle
	tx    pgx.Tx
	state State
	l     *slog.Logger
}

func (s *Session) State() State {
	return s.state
}

// Conn returns the transaction while one is active and the bare connection otherwise.
func (s *Session) Conn() storage.Conn {
	if s.tx != nil {
		return s.tx
	}

	return s.h
}

func (s *Session) StartTransaction(ctx context.Context) error {
	switch s.state {
	case StateOpen:
	case StateInTransaction, StateCommitted, StateRolledBack:
		return ErrTransactionActive
	default:
		return ErrNotOpen
	}

	tx, err := s.h.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	s.tx = tx
	s.state = StateInTransaction
	s.l.DebugContext(ctx, "Transaction started")

	return nil
}

func (s *Session) Commit(ctx context.Context) error {
	if err := s.requireTransaction(); err != nil {
		return err
	}

	if err := s.tx.Commit(ctx); err != nil {
		// pgx rolls back a transaction whose commit failed
		s.state = StateRolledBack
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.state = StateCommitted
	s.l.DebugContext(ctx, "Transaction committed")

	return nil
}

func (s *Session) Rollback(ctx context.Context) error {
	if err := s.requireTransaction(); err != nil {
		return err
	}

	s.state = StateRolledBack
	if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rolling back transaction: %w", err)
	}

	s.l.DebugContext(ctx, "Transaction rolled back")

	return nil
}

// Finish returns the session to autocommit mode after a commit or rollback.
func (s *Session) Finish() error {
	switch s.state {
	case StateCommitted, StateRolledBack:
	case StateInTransaction:
		return ErrNotFinished
	case StateOpen:
		return ErrNoTransaction
	default:
		return ErrNotOpen
	}

	s.tx = nil
	s.state = StateOpen

	return nil
}

// Close releases the connection. An unfinished transaction is rolled back first.
// Calling Close more than once is a no-op.
func (s *Session) Close(ctx context.Context) {
	if s.state == StateClosed || s.state == StateIdle {
		return
	}

	if s.state == StateInTransaction {
		s.l.WarnContext(ctx, "Closing session with a transaction in progress, rolling back")
		if err := s.Rollback(ctx); err != nil {
			s.l.ErrorContext(ctx, "Failed to roll back on close: "+err.Error())
		}
	}

	s.tx = nil
	s.h.Release()
	s.state = StateClosed
}

func (s *Session) requireTransaction() error {
	switch s.state {
	case StateInTransaction:
		return nil
	case StateOpen, StateCommitted, StateRolledBack:
		return ErrNoTransaction
	default:
		return ErrNotOpen
	}
}
