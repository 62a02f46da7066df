package authors

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

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

type pgxAuthor struct {
	Id      int64  `db:"id"`
	Name    string `db:"name"`
	Surname string `db:"surname"`
}

type pgxAuthorWithBook struct {
	Id        int64  `db:"id"`
	Name      string `db:"name"`
	Surname   string `db:"surname"`
	BookId    int64  `db:"book_id"`
	BookTitle string `db:"book_title"`
	GenreId   int64  `db:"genre_id"`
	GenreName string `db:"genre_name"`
}

func (a *pgxAuthor) intoCommon() types.Author {
	return types.Author{
		Id:      a.Id,
		Name:    a.Name,
		Surname: a.Surname,
	}
}

func (p *pgxRepo) GetById(ctx context.Context, conn storage.Conn, id int64) (*types.Author, error) {
	sql, params, err := p.g.From("author").
		Select("id", "name", "surname").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxAuthor

	err = pgxscan.Get(ctx, conn, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	author := row.intoCommon()
	return &author, nil
}

// GetAll needs two queries: the join only yields authors having at least one book.
func (p *pgxRepo) GetAll(ctx context.Context, conn storage.Conn) ([]types.Author, error) {
	sql, params, err := p.g.From(goqu.T("author").As("a")).
		Select(
			goqu.I("a.id"), goqu.I("a.name"), goqu.I("a.surname"),
			goqu.I("b.id").As("book_id"),
			goqu.I("b.title").As("book_title"),
			goqu.I("g.id").As("genre_id"),
			goqu.I("g.name").As("genre_name"),
		).
		InnerJoin(goqu.T("authors_books").As("ab"), goqu.On(goqu.I("ab.author_id").Eq(goqu.I("a.id")))).
		InnerJoin(goqu.T("book").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("ab.book_id")))).
		InnerJoin(goqu.T("genre").As("g"), goqu.On(goqu.I("g.id").Eq(goqu.I("b.genre_id")))).
		Order(goqu.I("a.id").Asc(), goqu.I("b.id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var linked []pgxAuthorWithBook

	err = pgxscan.Select(ctx, conn, &linked, sql, params...)
	if err != nil {
		return nil, err
	}

	sql, params, err = p.g.From("author").
		Select("id", "name", "surname").
		Where(goqu.C("id").NotIn(goqu.From("authors_books").Select("author_id"))).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var lonely []pgxAuthor

	err = pgxscan.Select(ctx, conn, &lonely, sql, params...)
	if err != nil {
		return nil, err
	}

	p.l.DebugContext(ctx, "Loaded authors", slog.Int("linked_rows", len(linked)), slog.Int("unlinked", len(lonely)))

	ret := make([]types.Author, 0, len(lonely)+len(linked))
	byId := make(map[int64]int, len(linked))
	for _, row := range linked {
		ix, ok := byId[row.Id]
		if !ok {
			ix = len(ret)
			byId[row.Id] = ix
			ret = append(ret, types.Author{Id: row.Id, Name: row.Name, Surname: row.Surname})
		}

		ret[ix].Books = append(ret[ix].Books, types.Book{
			Id:    row.BookId,
			Title: row.BookTitle,
			Genre: types.Genre{Id: row.GenreId, Name: row.GenreName},
		})
	}

	for _, row := range lonely {
		if _, ok := byId[row.Id]; ok {
			continue
		}
		ret = append(ret, row.intoCommon())
	}

	slices.SortFunc(ret, func(a, b types.Author) int {
		return cmp.Compare(a.Id, b.Id)
	})

	return ret, nil
}

func (p *pgxRepo) GetByBook(ctx context.Context, conn storage.Conn, bookId int64) ([]types.Author, error) {
	sql, params, err := p.g.From(goqu.T("author").As("a")).
		Select(goqu.I("a.id"), goqu.I("a.name"), goqu.I("a.surname")).
		InnerJoin(goqu.T("authors_books").As("ab"), goqu.On(goqu.I("ab.author_id").Eq(goqu.I("a.id")))).
		Where(goqu.I("ab.book_id").Eq(bookId)).
		Order(goqu.I("a.id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxAuthor

	err = pgxscan.Select(ctx, conn, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]types.Author, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) GetIdByName(ctx context.Context, conn storage.Conn, name, surname string) (int64, error) {
	sql, params, err := p.g.From("author").
		Select("id").
		Where(goqu.C("name").Eq(name), goqu.C("surname").Eq(surname)).
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

func (p *pgxRepo) Save(ctx context.Context, conn storage.Conn, author *types.Author) (int64, error) {
	sql, params, err := p.g.Insert("author").
		Rows(goqu.Record{
			"name":    author.Name,
			"surname": author.Surname,
		}).
		Returning("id").
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	var id int64
	err = conn.QueryRow(ctx, sql, params...).Scan(&id)
	return id, err
}

func (p *pgxRepo) Update(ctx context.Context, conn storage.Conn, author *types.Author) (int64, error) {
	sql, params, err := p.g.Update("author").
		Set(goqu.Record{
			"name":    author.Name,
			"surname": author.Surname,
		}).
		Where(goqu.C("id").Eq(author.Id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	return p.exec(ctx, conn, sql, params)
}

func (p *pgxRepo) DeleteById(ctx context.Context, conn storage.Conn, id int64) (int64, error) {
	sql, params, err := p.g.Delete("author").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	return p.exec(ctx, conn, sql, params)
}

func (p *pgxRepo) CountByName(ctx context.Context, conn storage.Conn, name, surname string) (int64, error) {
	return p.count(ctx, conn, goqu.C("name").Eq(name), goqu.C("surname").Eq(surname))
}

func (p *pgxRepo) CountByNameExcept(ctx context.Context, conn storage.Conn, name, surname string, id int64) (int64, error) {
	return p.count(ctx, conn, goqu.C("name").Eq(name), goqu.C("surname").Eq(surname), goqu.C("id").Neq(id))
}

func (p *pgxRepo) AddRelation(ctx context.Context, conn storage.Conn, authorId, bookId int64) error {
	sql, params, err := p.g.Insert("authors_books").
		Rows(goqu.Record{
			"author_id": authorId,
			"book_id":   bookId,
		}).
		OnConflict(goqu.DoNothing()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = conn.Exec(ctx, sql, params...)
	return err
}

func (p *pgxRepo) RemoveRelation(ctx context.Context, conn storage.Conn, authorId, bookId int64) (int64, error) {
	sql, params, err := p.g.Delete("authors_books").
		Where(goqu.C("author_id").Eq(authorId), goqu.C("book_id").Eq(bookId)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	return p.exec(ctx, conn, sql, params)
}

func (p *pgxRepo) count(ctx context.Context, conn storage.Conn, where ...exp.Expression) (int64, error) {
	sql, params, err := p.g.From("author").
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

func (p *pgxRepo) exec(ctx context.Context, conn storage.Conn, sql string, params []any) (int64, error) {
	tag, err := conn.Exec(ctx, sql, params...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
