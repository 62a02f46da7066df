package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"library/internal/storage"
	"library/internal/storage/genres"
	"library/internal/storage/session"
	"library/internal/types"
)

type Genres struct {
	sm     *session.Manager
	genres genres.Repository
	l      *slog.Logger
}

func NewGenres(sm *session.Manager, gr genres.Repository, l *slog.Logger) *Genres {
	return &Genres{sm: sm, genres: gr, l: l}
}

// FindById returns nil when there is no such genre.
func (g *Genres) FindById(ctx context.Context, id int64) (*types.Genre, error) {
	var ret *types.Genre

	err := g.sm.Do(ctx, func(conn storage.Conn) (err error) {
		ret, err = g.genres.GetById(ctx, conn, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("finding genre %d: %w", id, err)
	}

	return ret, nil
}

func (g *Genres) FindAll(ctx context.Context) ([]types.Genre, error) {
	var ret []types.Genre

	err := g.sm.Do(ctx, func(conn storage.Conn) (err error) {
		ret, err = g.genres.GetAll(ctx, conn)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing genres: %w", err)
	}

	return ret, nil
}

func (g *Genres) Save(ctx context.Context, genre *types.Genre) (int64, error) {
	var id int64

	err := g.sm.Do(ctx, func(conn storage.Conn) error {
		n, err := g.genres.CountByName(ctx, conn, genre.Name)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}

		id, err = g.genres.Save(ctx, conn, genre)
		if err != nil {
			return conflictOr(err, "inserting genre")
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("saving genre: %w", err)
	}

	return id, nil
}

func (g *Genres) Update(ctx context.Context, genre *types.Genre) error {
	err := g.sm.Do(ctx, func(conn storage.Conn) error {
		existing, err := g.genres.GetById(ctx, conn, genre.Id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}

		n, err := g.genres.CountByNameExcept(ctx, conn, genre.Name, genre.Id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}

		if _, err := g.genres.Update(ctx, conn, genre); err != nil {
			return conflictOr(err, "updating genre")
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("updating genre %d: %w", genre.Id, err)
	}

	return nil
}

// DeleteById returns ErrInUse while books still reference the genre and 0 when
// there is no such genre.
func (g *Genres) DeleteById(ctx context.Context, id int64) (int64, error) {
	var n int64

	err := g.sm.Do(ctx, func(conn storage.Conn) error {
		existing, err := g.genres.GetById(ctx, conn, id)
		if err != nil || existing == nil {
			return err
		}

		refs, err := g.genres.CountBooks(ctx, conn, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			g.l.InfoContext(ctx, "Refusing to delete genre still used by books",
				slog.Int64("id", id), slog.Int64("books", refs))
			return ErrInUse
		}

		n, err = g.genres.DeleteById(ctx, conn, id)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("deleting genre %d: %w", id, err)
	}

	return n, nil
}
