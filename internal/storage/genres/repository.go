package genres

import (
	"context"

	"library/internal/storage"
	"library/internal/types"
)

type Repository interface {
	// GetById returns nil when there is no such genre
	GetById(ctx context.Context, conn storage.Conn, id int64) (*types.Genre, error)
	GetAll(ctx context.Context, conn storage.Conn) ([]types.Genre, error)
	// GetIdByName returns 0 when there is no such genre
	GetIdByName(ctx context.Context, conn storage.Conn, name string) (int64, error)

	Save(ctx context.Context, conn storage.Conn, genre *types.Genre) (int64, error)
	Update(ctx context.Context, conn storage.Conn, genre *types.Genre) (int64, error)
	DeleteById(ctx context.Context, conn storage.Conn, id int64) (int64, error)

	CountByName(ctx context.Context, conn storage.Conn, name string) (int64, error)
	CountByNameExcept(ctx context.Context, conn storage.Conn, name string, id int64) (int64, error)
	CountBooks(ctx context.Context, conn storage.Conn, id int64) (int64, error)
}
