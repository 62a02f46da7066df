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

type Authors struct {
	sm      *session.Manager
	authors authors.Repository
	books   books.Repository
	links   *reconcile.Linker[types.Book]
	l       *slog.Logger
}

func NewAuthors(sm *session.Manager, ar authors.Repository, br books.Repository, gr genres.Repository,
	l *slog.Logger) *Authors {

	return &Authors{
		sm:      sm,
		authors: ar,
		books:   br,
		links:   bookLinks(ar, br, gr),
		l:       l,
	}
}

// FindById returns nil when there is no such author.
func (a *Authors) FindById(ctx context.Context, id int64) (*types.Author, error) {
	var ret *types.Author

	err := a.sm.Do(ctx, func(conn storage.Conn) error {
		author, err := a.authors.GetById(ctx, conn, id)
		if err != nil || author == nil {
			return err
		}

		author.Books, err = a.books.GetByAuthor(ctx, conn, id)
		if err != nil {
			return err
		}

		ret = author
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finding author %d: %w", id, err)
	}

	return ret, nil
}

func (a *Authors) FindAll(ctx context.Context) ([]types.Author, error) {
	var ret []types.Author

	err := a.sm.Do(ctx, func(conn storage.Conn) (err error) {
		ret, err = a.authors.GetAll(ctx, conn)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing authors: %w", err)
	}

	return ret, nil
}

// Save stores a new author and links its books, creating the books (and their
// genres) which are not stored yet. Returns ErrConflict when an author with the
// same name and surname exists.
func (a *Authors) Save(ctx context.Context, author *types.Author) (int64, error) {
	var id int64

	err := a.sm.Do(ctx, func(conn storage.Conn) error {
		n, err := a.authors.CountByName(ctx, conn, author.Name, author.Surname)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}

		id, err = a.authors.Save(ctx, conn, author)
		if err != nil {
			return conflictOr(err, "inserting author")
		}

		res, err := a.links.Reconcile(ctx, conn, id, author.Books)
		if err != nil {
			return fmt.Errorf("linking books: %w", err)
		}

		a.l.DebugContext(ctx, "Saved author", slog.Int64("id", id),
			slog.Int("linked", len(res.Linked)), slog.Int("inserted", len(res.Inserted)))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("saving author: %w", err)
	}

	return id, nil
}

// Update rewrites name and surname and brings the linked books in line with
// author.Books. The row is left untouched on ErrNotFound or ErrConflict.
func (a *Authors) Update(ctx context.Context, author *types.Author) error {
	err := a.sm.Do(ctx, func(conn storage.Conn) error {
		existing, err := a.authors.GetById(ctx, conn, author.Id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}

		n, err := a.authors.CountByNameExcept(ctx, conn, author.Name, author.Surname, author.Id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}

		if _, err := a.authors.Update(ctx, conn, author); err != nil {
			return conflictOr(err, "updating author")
		}

		res, err := a.links.Reconcile(ctx, conn, author.Id, author.Books)
		if err != nil {
			return fmt.Errorf("linking books: %w", err)
		}

		a.l.DebugContext(ctx, "Updated author", slog.Int64("id", author.Id),
			slog.Int("linked", len(res.Linked)), slog.Int("removed", len(res.Removed)))
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating author %d: %w", author.Id, err)
	}

	return nil
}

// DeleteById unlinks the author from its books and deletes it. Books stay.
// Returns 0 without touching anything when there is no such author.
func (a *Authors) DeleteById(ctx context.Context, id int64) (int64, error) {
	var n int64

	err := a.sm.Do(ctx, func(conn storage.Conn) error {
		existing, err := a.authors.GetById(ctx, conn, id)
		if err != nil || existing == nil {
			return err
		}

		linked, err := a.books.GetByAuthor(ctx, conn, id)
		if err != nil {
			return err
		}

		for _, b := range linked {
			if _, err := a.authors.RemoveRelation(ctx, conn, id, b.Id); err != nil {
				return fmt.Errorf("unlinking book %d: %w", b.Id, err)
			}
		}

		n, err = a.authors.DeleteById(ctx, conn, id)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("deleting author %d: %w", id, err)
	}

	return n, nil
}
