package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"library/internal/storage"
	"library/internal/storage/authors"
	"library/internal/storage/books"
	"library/internal/storage/genres"
	"library/internal/storage/reconcile"
	"library/internal/storage/session"
	"library/internal/types"
)

type Books struct {
	sm      *session.Manager
	authors authors.Repository
	books   books.Repository
	genres  genres.Repository
	links   *reconcile.Linker[types.Author]
	l       *slog.Logger
}

func NewBooks(sm *session.Manager, ar authors.Repository, br books.Repository, gr genres.Repository,
	l *slog.Logger) *Books {

	return &Books{
		sm:      sm,
		authors: ar,
		books:   br,
		genres:  gr,
		links:   authorLinks(ar),
		l:       l,
	}
}

// FindById returns nil when there is no such book.
func (b *Books) FindById(ctx context.Context, id int64) (*types.Book, error) {
	var ret *types.Book

	err := b.sm.Do(ctx, func(conn storage.Conn) error {
		book, err := b.books.GetById(ctx, conn, id)
		if err != nil || book == nil {
			return err
		}

		book.Authors, err = b.authors.GetByBook(ctx, conn, id)
		if err != nil {
			return err
		}

		ret = book
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finding book %d: %w", id, err)
	}

	return ret, nil
}

func (b *Books) FindAll(ctx context.Context) ([]types.Book, error) {
	var ret []types.Book

	err := b.sm.Do(ctx, func(conn storage.Conn) (err error) {
		ret, err = b.books.GetAll(ctx, conn)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}

	return ret, nil
}

// Save stores a new book, its genre when missing, and links its authors,
// creating the authors which are not stored yet. Returns ErrConflict when a
// book with the same title exists in the same genre.
func (b *Books) Save(ctx context.Context, book *types.Book) (int64, error) {
	var id int64

	err := b.sm.Do(ctx, func(conn storage.Conn) error {
		if err := ensureGenre(ctx, conn, b.genres, &book.Genre); err != nil {
			return err
		}

		n, err := b.books.CountByTitle(ctx, conn, book.Title, book.Genre.Id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}

		id, err = b.books.Save(ctx, conn, book)
		if err != nil {
			return conflictOr(err, "inserting book")
		}

		res, err := b.links.Reconcile(ctx, conn, id, book.Authors)
		if err != nil {
			return fmt.Errorf("linking authors: %w", err)
		}

		b.l.DebugContext(ctx, "Saved book", slog.Int64("id", id), slog.Int64("genre_id", book.Genre.Id),
			slog.Int("linked", len(res.Linked)), slog.Int("inserted", len(res.Inserted)))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("saving book: %w", err)
	}

	return id, nil
}

// Update rewrites title and genre and brings the linked authors in line with
// book.Authors. The row is left untouched on ErrNotFound or ErrConflict.
func (b *Books) Update(ctx context.Context, book *types.Book) error {
	err := b.sm.Do(ctx, func(conn storage.Conn) error {
		existing, err := b.books.GetById(ctx, conn, book.Id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}

		if err := ensureGenre(ctx, conn, b.genres, &book.Genre); err != nil {
			return err
		}

		n, err := b.books.CountByTitleExcept(ctx, conn, book.Title, book.Genre.Id, book.Id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}

		if _, err := b.books.Update(ctx, conn, book); err != nil {
			return conflictOr(err, "updating book")
		}

		res, err := b.links.Reconcile(ctx, conn, book.Id, book.Authors)
		if err != nil {
			return fmt.Errorf("linking authors: %w", err)
		}

		b.l.DebugContext(ctx, "Updated book", slog.Int64("id", book.Id),
			slog.Int("linked", len(res.Linked)), slog.Int("removed", len(res.Removed)))
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating book %d: %w", book.Id, err)
	}

	return nil
}

// DeleteById unlinks the book from its authors and deletes it. Authors stay.
// Returns 0 without touching anything when there is no such book.
func (b *Books) DeleteById(ctx context.Context, id int64) (int64, error) {
	var n int64

	err := b.sm.Do(ctx, func(conn storage.Conn) error {
		existing, err := b.books.GetById(ctx, conn, id)
		if err != nil || existing == nil {
			return err
		}

		linked, err := b.authors.GetByBook(ctx, conn, id)
		if err != nil {
			return err
		}

		for _, a := range linked {
			if _, err := b.authors.RemoveRelation(ctx, conn, a.Id, id); err != nil {
				return fmt.Errorf("unlinking author %d: %w", a.Id, err)
			}
		}

		n, err = b.books.DeleteById(ctx, conn, id)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("deleting book %d: %w", id, err)
	}

	return n, nil
}
