package books

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

type pgxBook struct {
	Id        int64  `db:"id"`
	Title     string `db:"title"`
	GenreId   int64  `db:"genre_id"`
	GenreName string `db:"genre_name"`
}

type pgxBookWithAuthor struct {
	Id            int64  `db:"id"`
	Title         string `db:"title"`
	GenreId       int64  `db:"genre_id"`
	GenreName     string `db:"genre_name"`
	AuthorId      int64  `db:"author_id"`
	AuthorName    string `db:"author_name"`
	AuthorSurname string `db:"author_surname"`
}

func (b *pgxBook) intoCommon() types.Book {
	return types.Book{
		Id:    b.Id,
		Title: b.Title,
		Genre: types.Genre{Id: b.GenreId, Name: b.GenreName},
	}
}

// withGenre selects book columns together with the genre name.
func (p *pgxRepo) withGenre() *goqu.SelectDataset {
	return p.g.From(goqu.T("book").As("b")).
		Select(
			goqu.I("b.id"), goqu.I("b.title"), goqu.I("b.genre_id"),
			goqu.I("g.name").As("genre_name"),
		).
		InnerJoin(goqu.T("genre").As("g"), goqu.On(goqu.I("g.id").Eq(goqu.I("b.genre_id"))))
}

func (p *pgxRepo) GetById(ctx context.Context, conn storage.Conn, id int64) (*types.Book, error) {
	sql, params, err := p.withGenre().
		Where(goqu.I("b.id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxBook

	err = pgxscan.Get(ctx, conn, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	book := row.intoCommon()
	return &book, nil
}

// GetAll needs two queries: the join only yields books having at least one author.
func (p *pgxRepo) GetAll(ctx context.Context, conn storage.Conn) ([]types.Book, error) {
	sql, params, err := p.withGenre().
		SelectAppend(
			goqu.I("a.id").As("author_id"),
			goqu.I("a.name").As("author_name"),
			goqu.I("a.surname").As("author_surname"),
		).
		InnerJoin(goqu.T("authors_books").As("ab"), goqu.On(goqu.I("ab.book_id").Eq(goqu.I("b.id")))).
		InnerJoin(goqu.T("author").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("ab.author_id")))).
		Order(goqu.I("b.id").Asc(), goqu.I("a.id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var linked []pgxBookWithAuthor

	err = pgxscan.Select(ctx, conn, &linked, sql, params...)
	if err != nil {
		return nil, err
	}

	sql, params, err = p.withGenre().
		Where(goqu.I("b.id").NotIn(goqu.From("authors_books").Select("book_id"))).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var lonely []pgxBook

	err = pgxscan.Select(ctx, conn, &lonely, sql, params...)
	if err != nil {
		return nil, err
	}

	p.l.DebugContext(ctx, "Loaded books", slog.Int("linked_rows", len(linked)), slog.Int("unlinked", len(lonely)))

	ret := make([]types.Book, 0, len(lonely)+len(linked))
	byId := make(map[int64]int, len(linked))
	for _, row := range linked {
		ix, ok := byId[row.Id]
		if !ok {
			ix = len(ret)
			byId[row.Id] = ix
			ret = append(ret, types.Book{
				Id:    row.Id,
				Title: row.Title,
				Genre: types.Genre{Id: row.GenreId, Name: row.GenreName},
			})
		}

		ret[ix].Authors = append(ret[ix].Authors, types.Author{
			Id:      row.AuthorId,
			Name:    row.AuthorName,
			Surname: row.AuthorSurname,
		})
	}

	for _, row := range lonely {
		if _, ok := byId[row.Id]; ok {
			continue
		}
		ret = append(ret, row.intoCommon())
	}

	slices.SortFunc(ret, func(a, b types.Book) int {
		return cmp.Compare(a.Id, b.Id)
	})

	return ret, nil
}

func (p *pgxRepo) GetByAuthor(ctx context.Context, conn storage.Conn, authorId int64) ([]types.Book, error) {
	sql, params, err := p.withGenre().
		InnerJoin(goqu.T("authors_books").As("ab"), goqu.On(goqu.I("ab.book_id").Eq(goqu.I("b.id")))).
		Where(goqu.I("ab.author_id").Eq(authorId)).
		Order(goqu.I("b.id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxBook

	err = pgxscan.Select(ctx, conn, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]types.Book, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) GetIdByTitle(ctx context.Context, conn storage.Conn, title, genreName string) (int64, error) {
	sql, params, err := p.g.From(goqu.T("book").As("b")).
		Select(goqu.I("b.id")).
		InnerJoin(goqu.T("genre").As("g"), goqu.On(goqu.I("g.id").Eq(goqu.I("b.genre_id")))).
		Where(goqu.I("b.title").Eq(title), goqu.I("g.name").Eq(genreName)).
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

func (p *pgxRepo) Save(ctx context.Context, conn storage.Conn, book *types.Book) (int64, error) {
	sql, params, err := p.g.Insert("book").
		Rows(goqu.Record{
			"title":    book.Title,
			"genre_id": book.Genre.Id,
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

func (p *pgxRepo) Update(ctx context.Context, conn storage.Conn, book *types.Book) (int64, error) {
	sql, params, err := p.g.Update("book").
		Set(goqu.Record{
			"title":    book.Title,
			"genre_id": book.Genre.Id,
		}).
		Where(goqu.C("id").Eq(book.Id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	return p.exec(ctx, conn, sql, params)
}

func (p *pgxRepo) DeleteById(ctx context.Context, conn storage.Conn, id int64) (int64, error) {
	sql, params, err := p.g.Delete("book").
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, err
	}

	return p.exec(ctx, conn, sql, params)
}

func (p *pgxRepo) CountByTitle(ctx context.Context, conn storage.Conn, title string, genreId int64) (int64, error) {
	return p.count(ctx, conn, goqu.C("title").Eq(title), goqu.C("genre_id").Eq(genreId))
}

func (p *pgxRepo) CountByTitleExcept(ctx context.Context, conn storage.Conn, title string, genreId, id int64) (int64, error) {
	return p.count(ctx, conn, goqu.C("title").Eq(title), goqu.C("genre_id").Eq(genreId), goqu.C("id").Neq(id))
}

func (p *pgxRepo) count(ctx context.Context, conn storage.Conn, where ...exp.Expression) (int64, error) {
	sql, params, err := p.g.From("book").
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
