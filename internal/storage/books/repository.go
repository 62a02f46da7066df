package books

import (
	"context"

	"library/internal/storage"
	"library/internal/types"
)

type Repository interface {
	// GetById returns nil when there is no such book. Authors are not loaded.
	GetById(ctx context.Context, conn storage.Conn, id int64) (*types.Book, error)
	// GetAll returns every book with its genre and authors, ordered by id
	GetAll(ctx context.Context, conn storage.Conn) ([]types.Book, error)
	GetByAuthor(ctx context.Context, conn storage.Conn, authorId int64) ([]types.Book, error)
	// GetIdByTitle returns 0 when there is no book with this title in the named genre
	GetIdByTitle(ctx context.Context, conn storage.Conn, title, genreName string) (int64, error)

	// Save and Update expect book.Genre.Id to reference a stored genre
	Save(ctx context.Context, conn storage.Conn, book *types.Book) (int64, error)
	Update(ctx context.Context, conn storage.Conn, book *types.Book) (int64, error)
	DeleteById(ctx context.Context, conn storage.Conn, id int64) (int64, error)

	CountByTitle(ctx context.Context, conn storage.Conn, title string, genreId int64) (int64, error)
	CountByTitleExcept(ctx context.Context, conn storage.Conn, title string, genreId, id int64) (int64, error)
}
