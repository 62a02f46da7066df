// Package catalog runs the storage operations of every catalog use case inside
// one transaction and keeps author/book links consistent.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"library/internal/storage"
	"library/internal/storage/authors"
	"library/internal/storage/books"
	"library/internal/storage/genres"
	"library/internal/storage/reconcile"
	"library/internal/types"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("an entry with the same name already exists")
	ErrInUse    = errors.New("still referenced by other entries")
)

// conflictOr turns unique constraint violations into ErrConflict.
func conflictOr(err error, what string) error {
	if storage.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}

	return fmt.Errorf("%s: %w", what, err)
}

// ensureGenre makes genre reference a stored row, inserting it when no genre
// with the same name exists.
func ensureGenre(ctx context.Context, conn storage.Conn, gr genres.Repository, genre *types.Genre) error {
	id, err := gr.GetIdByName(ctx, conn, genre.Name)
	if err != nil {
		return fmt.Errorf("looking up genre: %w", err)
	}

	if id == 0 {
		id, err = gr.Save(ctx, conn, genre)
		if err != nil {
			return conflictOr(err, "inserting genre")
		}
	}

	genre.Id = id
	return nil
}

// bookLinks reconciles the books of an author.
func bookLinks(ar authors.Repository, br books.Repository, gr genres.Repository) *reconcile.Linker[types.Book] {
	return &reconcile.Linker[types.Book]{
		Same:      types.SameBook,
		Id:        func(b types.Book) int64 { return b.Id },
		Persisted: br.GetByAuthor,
		Lookup: func(ctx context.Context, conn storage.Conn, b types.Book) (int64, error) {
			return br.GetIdByTitle(ctx, conn, b.Title, b.Genre.Name)
		},
		Insert: func(ctx context.Context, conn storage.Conn, b types.Book) (int64, error) {
			if err := ensureGenre(ctx, conn, gr, &b.Genre); err != nil {
				return 0, err
			}

			id, err := br.Save(ctx, conn, &b)
			if err != nil {
				return 0, conflictOr(err, "inserting book")
			}

			return id, nil
		},
		Link: ar.AddRelation,
		Unlink: func(ctx context.Context, conn storage.Conn, authorId, bookId int64) error {
			_, err := ar.RemoveRelation(ctx, conn, authorId, bookId)
			return err
		},
	}
}

// authorLinks reconciles the authors of a book.
func authorLinks(ar authors.Repository) *reconcile.Linker[types.Author] {
	return &reconcile.Linker[types.Author]{
		Same:      types.SameAuthor,
		Id:        func(a types.Author) int64 { return a.Id },
		Persisted: ar.GetByBook,
		Lookup: func(ctx context.Context, conn storage.Conn, a types.Author) (int64, error) {
			return ar.GetIdByName(ctx, conn, a.Name, a.Surname)
		},
		Insert: func(ctx context.Context, conn storage.Conn, a types.Author) (int64, error) {
			id, err := ar.Save(ctx, conn, &a)
			if err != nil {
				return 0, conflictOr(err, "inserting author")
			}

			return id, nil
		},
		Link: func(ctx context.Context, conn storage.Conn, bookId, authorId int64) error {
			return ar.AddRelation(ctx, conn, authorId, bookId)
		},
		Unlink: func(ctx context.Context, conn storage.Conn, bookId, authorId int64) error {
			_, err := ar.RemoveRelation(ctx, conn, authorId, bookId)
			return err
		},
	}
}
