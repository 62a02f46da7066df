package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library/internal/storage"
)

type fakeTx struct {
	pgx.Tx
	log       *[]string
	commitErr error
}

func (t *fakeTx) Commit(context.Context) error {
	*t.log = append(*t.log, "commit")
	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	*t.log = append(*t.log, "rollback")
	return nil
}

type fakeHandle struct {
	log     []string
	pingErr error
	tx      *fakeTx
}

func (h *fakeHandle) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("SELECT 0"), nil
}

func (h *fakeHandle) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (h *fakeHandle) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (h *fakeHandle) Begin(context.Context) (pgx.Tx, error) {
	h.log = append(h.log, "begin")
	h.tx = &fakeTx{log: &h.log}
	return h.tx, nil
}

func (h *fakeHandle) Ping(context.Context) error {
	h.log = append(h.log, "ping")
	return h.pingErr
}

func (h *fakeHandle) Release() {
	h.log = append(h.log, "release")
}

type fakeSource struct {
	h   *fakeHandle
	err error
}

func (s *fakeSource) Acquire(context.Context) (Handle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.h, nil
}

func newTestManager(h *fakeHandle) *Manager {
	return NewManager(&fakeSource{h: h}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSession_Lifecycle(t *testing.T) {
	ctx := context.Background()
	h := &fakeHandle{}
	m := newTestManager(h)

	s, err := m.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, s.State())
	assert.Same(t, h, s.Conn())

	require.NoError(t, s.StartTransaction(ctx))
	assert.Equal(t, StateInTransaction, s.State())
	assert.Same(t, h.tx, s.Conn())

	require.NoError(t, s.Commit(ctx))
	assert.Equal(t, StateCommitted, s.State())

	require.NoError(t, s.Finish())
	assert.Equal(t, StateOpen, s.State())

	s.Close(ctx)
	s.Close(ctx)
	assert.Equal(t, StateClosed, s.State())

	assert.Equal(t, []string{"ping", "begin", "commit", "release"}, h.log)
}

func TestSession_CommitWithoutTransaction(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(&fakeHandle{}).Begin(ctx)
	require.NoError(t, err)
	defer s.Close(ctx)

	assert.ErrorIs(t, s.Commit(ctx), ErrNoTransaction)
	assert.ErrorIs(t, s.Rollback(ctx), ErrNoTransaction)
	assert.ErrorIs(t, s.Finish(), ErrNoTransaction)
}

func TestSession_FinishBeforeCommit(t *testing.T) {
	ctx := context.Background()
	s, err := newTestManager(&fakeHandle{}).Begin(ctx)
	require.NoError(t, err)
	defer s.Close(ctx)

	require.NoError(t, s.StartTransaction(ctx))
	assert.ErrorIs(t, s.Finish(), ErrNotFinished)
	assert.ErrorIs(t, s.StartTransaction(ctx), ErrTransactionActive)
}

func TestSession_CloseRollsBackOpenTransaction(t *testing.T) {
	ctx := context.Background()
	h := &fakeHandle{}
	s, err := newTestManager(h).Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, s.StartTransaction(ctx))
	s.Close(ctx)

	assert.Equal(t, []string{"ping", "begin", "rollback", "release"}, h.log)
	assert.ErrorIs(t, s.StartTransaction(ctx), ErrNotOpen)
}

func TestManager_BeginReleasesDeadConnection(t *testing.T) {
	h := &fakeHandle{pingErr: errors.New("connection reset")}

	_, err := newTestManager(h).Begin(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{"ping", "release"}, h.log)
}

func TestManager_Do(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		h := &fakeHandle{}
		var got storage.Conn

		err := newTestManager(h).Do(context.Background(), func(conn storage.Conn) error {
			got = conn
			return nil
		})

		require.NoError(t, err)
		assert.Same(t, h.tx, got)
		assert.Equal(t, []string{"ping", "begin", "commit", "release"}, h.log)
	})

	t.Run("rolls back and returns the error", func(t *testing.T) {
		h := &fakeHandle{}
		boom := errors.New("boom")

		err := newTestManager(h).Do(context.Background(), func(storage.Conn) error {
			return boom
		})

		assert.Same(t, boom, err)
		assert.Equal(t, []string{"ping", "begin", "rollback", "release"}, h.log)
	})

	t.Run("acquire failure", func(t *testing.T) {
		m := NewManager(&fakeSource{err: errors.New("pool closed")}, slog.New(slog.NewTextHandler(io.Discard, nil)))

		err := m.Do(context.Background(), func(storage.Conn) error {
			t.Fatal("must not be called")
			return nil
		})

		require.Error(t, err)
	})
}
