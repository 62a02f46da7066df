package books

import (
	"context"
	"io"
	"log/slog"
	"testing"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library/internal/storage/storagetest"
	"library/internal/types"
)

func newTestRepo() Repository {
	return NewPGXRepository(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPGXRepository_Save(t *testing.T) {
	conn := &storagetest.Conn{Returning: []any{int64(11)}}

	id, err := newTestRepo().Save(context.Background(), conn, &types.Book{
		Title: "book1",
		Genre: types.Genre{Id: 3, Name: "genre1"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.Contains(t, conn.Last().SQL, `INSERT INTO "book"`)
	assert.Equal(t, []any{int64(3), "book1"}, conn.Last().Args)
}

func TestPGXRepository_Update(t *testing.T) {
	conn := &storagetest.Conn{Tag: "UPDATE 0"}

	n, err := newTestRepo().Update(context.Background(), conn, &types.Book{
		Id:    9,
		Title: "book9",
		Genre: types.Genre{Id: 2},
	})

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []any{int64(2), "book9", int64(9)}, conn.Last().Args)
}

func TestPGXRepository_DeleteById(t *testing.T) {
	conn := &storagetest.Conn{Tag: "DELETE 1"}

	n, err := newTestRepo().DeleteById(context.Background(), conn, 5)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, conn.Last().SQL, `DELETE FROM "book"`)
	assert.Equal(t, []any{int64(5)}, conn.Last().Args)
}
