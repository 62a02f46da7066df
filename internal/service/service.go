// Package service translates catalog outcomes into business errors and exposes
// entities as DTOs.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"library/internal/catalog"
	"library/internal/types"
)

// Store is the repository side of one entity kind.
type Store[T any] interface {
	FindById(ctx context.Context, id int64) (*T, error)
	FindAll(ctx context.Context) ([]T, error)
	Save(ctx context.Context, entity *T) (int64, error)
	Update(ctx context.Context, entity *T) error
	DeleteById(ctx context.Context, id int64) (int64, error)
}

// Service is what the HTTP layer needs from one entity kind.
type Service[D any] interface {
	FindById(ctx context.Context, id int64) (*D, error)
	FindAll(ctx context.Context) ([]D, error)
	Save(ctx context.Context, dto D) (int64, error)
	Update(ctx context.Context, id int64, dto D) error
	DeleteById(ctx context.Context, id int64) error
}

type crud[T, D any] struct {
	store  Store[T]
	entity string
	from   func(T) D
	into   func(D) T
	setId  func(*T, int64)
	l      *slog.Logger
}

func NewAuthors(store Store[types.Author], l *slog.Logger) Service[AuthorDTO] {
	return &crud[types.Author, AuthorDTO]{
		store:  store,
		entity: "author",
		from:   AuthorFromCommon,
		into:   AuthorDTO.IntoCommon,
		setId:  func(a *types.Author, id int64) { a.Id = id },
		l:      l,
	}
}

func NewBooks(store Store[types.Book], l *slog.Logger) Service[BookDTO] {
	return &crud[types.Book, BookDTO]{
		store:  store,
		entity: "book",
		from:   BookFromCommon,
		into:   BookDTO.IntoCommon,
		setId:  func(b *types.Book, id int64) { b.Id = id },
		l:      l,
	}
}

func NewGenres(store Store[types.Genre], l *slog.Logger) Service[GenreDTO] {
	return &crud[types.Genre, GenreDTO]{
		store:  store,
		entity: "genre",
		from:   GenreFromCommon,
		into:   GenreDTO.IntoCommon,
		setId:  func(g *types.Genre, id int64) { g.Id = id },
		l:      l,
	}
}

func (c *crud[T, D]) FindById(ctx context.Context, id int64) (*D, error) {
	e, err := c.store.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, newError(KindNotFound, c.entity, id, nil)
	}

	dto := c.from(*e)
	return &dto, nil
}

// FindAll returns an empty list for an empty catalog.
func (c *crud[T, D]) FindAll(ctx context.Context) ([]D, error) {
	es, err := c.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	return lo.Map(es, func(e T, _ int) D { return c.from(e) }), nil
}

func (c *crud[T, D]) Save(ctx context.Context, dto D) (int64, error) {
	e := c.into(dto)
	c.setId(&e, 0)

	id, err := c.store.Save(ctx, &e)
	if err != nil {
		if errors.Is(err, catalog.ErrConflict) {
			return 0, newError(KindNotAdded, c.entity, 0, catalog.ErrConflict)
		}
		return 0, err
	}
	if id == 0 {
		return 0, newError(KindNotAdded, c.entity, 0, nil)
	}

	c.l.InfoContext(ctx, fmt.Sprintf("Added %s", c.entity), slog.Int64("id", id))
	return id, nil
}

func (c *crud[T, D]) Update(ctx context.Context, id int64, dto D) error {
	e := c.into(dto)
	c.setId(&e, id)

	err := c.store.Update(ctx, &e)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return newError(KindNotUpdated, c.entity, id, catalog.ErrNotFound)
	case errors.Is(err, catalog.ErrConflict):
		return newError(KindNotUpdated, c.entity, id, catalog.ErrConflict)
	case err != nil:
		return err
	}

	c.l.InfoContext(ctx, fmt.Sprintf("Updated %s", c.entity), slog.Int64("id", id))
	return nil
}

func (c *crud[T, D]) DeleteById(ctx context.Context, id int64) error {
	n, err := c.store.DeleteById(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrInUse) {
			return newError(KindNotDeleted, c.entity, id, catalog.ErrInUse)
		}
		return err
	}
	if n == 0 {
		return newError(KindNotDeleted, c.entity, id, catalog.ErrNotFound)
	}

	c.l.InfoContext(ctx, fmt.Sprintf("Deleted %s", c.entity), slog.Int64("id", id))
	return nil
}
