package genres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"library/internal/storage"
	"library/internal/types"
)

func NewPGXRepository(l *slog.Logger) Repository {
	return &pgxRepo{g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	g goqu.DialectWrapper
	l *slog.Logger
}

type pgxGenre struct {
	Id   int64  `db:"id"`
	Name string `db:"name"`
}

func (p *pgxRepo) GetById(ctx context.Context, conn storage.Conn, id int64) (*types.Genre, error) {
	sql, params, err := p.g.From("genre").
		Select("id", "name").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxGenre

	err = pgxscan.Get(ctx, conn, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	return &types.Genre{Id: row.Id, Name: row.Name}, nil
}

func (p *pgxRepo) GetAll(ctx context.Context, conn storage.Conn) ([]types.Genre, error) {
	sql, params, err := p.g.From("genre").
		Select("id", "name").
		Order(goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxGenre

	err = pgxscan.Select(ctx, conn, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]types.Genre, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, types.Genre{Id: row.Id, Name: row.Name})
	}

	return ret, nil
}

func (p *pgxRepo) GetIdByName(ctx context.Context, conn storage.Conn, name string) (int64, error) {
	sql, params, err := p.g.From("genre").
		Select("id").
		Where(goqu.C("name").Eq(name)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var id int64

	err = pgxscan.Get(ctx, conn, &id, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return 0, err
	}

	return id, nil
}

func (p *pgxRepo) Save(ctx context.Context, conn storage.Conn, genre *types.Genre) (int64, error) {
	sql, params, err := p.g.Insert("genre").
		Rows(goqu.Record{"name": genre.Name}).
		Returning("id").
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var id int64
	if err := conn.QueryRow(ctx, sql, params...).Scan(&id); err != nil {
		return 0, err
	}

	p.l.DebugContext(ctx, "Inserted genre "+genre.Name, slog.Int64("id", id))
	return id, nil
}

func (p *pgxRepo) Update(ctx context.Context, conn storage.Conn, genre *types.Genre) (int64, error) {
	sql, params, err := p.g.Update("genre").
		Set(goqu.Record{"name": genre.Name}).
		Where(goqu.C("id").Eq(genre.Id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	tag, err := conn.Exec(ctx, sql, params...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *pgxRepo) DeleteById(ctx context.Context, conn storage.Conn, id int64) (int64, error) {
	sql, params, err := p.g.Delete("genre").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	tag, err := conn.Exec(ctx, sql, params...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *pgxRepo) CountByName(ctx context.Context, conn storage.Conn, name string) (int64, error) {
	return p.count(ctx, conn, "genre", goqu.C("name").Eq(name))
}

func (p *pgxRepo) CountByNameExcept(ctx context.Context, conn storage.Conn, name string, id int64) (int64, error) {
	return p.count(ctx, conn, "genre", goqu.C("name").Eq(name), goqu.C("id").Neq(id))
}

func (p *pgxRepo) CountBooks(ctx context.Context, conn storage.Conn, id int64) (int64, error) {
	return p.count(ctx, conn, "book", goqu.C("genre_id").Eq(id))
}

func (p *pgxRepo) count(ctx context.Context, conn storage.Conn, table string, where ...exp.Expression) (int64, error) {
	sql, params, err := p.g.From(table).
		Select(goqu.COUNT("*")).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var n int64
	err = pgxscan.Get(ctx, conn, &n, sql, params...)
	return n, err
}
