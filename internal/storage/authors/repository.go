package authors

import (
	"context"

	"library/internal/storage"
	"library/internal/types"
)

type Repository interface {
	// GetById returns nil when there is no such author. Books are not loaded.
	GetById(ctx context.Context, conn storage.Conn, id int64) (*types.Author, error)
	// GetAll returns every author with their books, ordered by id
	GetAll(ctx context.Context, conn storage.Conn) ([]types.Author, error)
	GetByBook(ctx context.Context, conn storage.Conn, bookId int64) ([]types.Author, error)
	// GetIdByName returns 0 when there is no such author
	GetIdByName(ctx context.Context, conn storage.Conn, name, surname string) (int64, error)

	Save(ctx context.Context, conn storage.Conn, author *types.Author) (int64, error)
	Update(ctx context.Context, conn storage.Conn, author *types.Author) (int64, error)
	DeleteById(ctx context.Context, conn storage.Conn, id int64) (int64, error)

	CountByName(ctx context.Context, conn storage.Conn, name, surname string) (int64, error)
	CountByNameExcept(ctx context.Context, conn storage.Conn, name, surname string, id int64) (int64, error)

	// AddRelation links an author and a book. Linking an already linked pair is a no-op.
	AddRelation(ctx context.Context, conn storage.Conn, authorId, bookId int64) error
	RemoveRelation(ctx context.Context, conn storage.Conn, authorId, bookId int64) (int64, error)
}
