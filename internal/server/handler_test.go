package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library/internal/response"
	"library/internal/service"
)

type fakeService[D any] struct {
	rows    []D
	byId    map[int64]D
	saved   []D
	updated map[int64]D
	deleted []int64
	err     error
}

func (f *fakeService[D]) FindById(_ context.Context, id int64) (*D, error) {
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.byId[id]
	if !ok {
		return nil, &service.Error{Kind: service.KindNotFound, Entity: "author", Id: id}
	}
	return &d, nil
}

func (f *fakeService[D]) FindAll(context.Context) ([]D, error) {
	return f.rows, f.err
}

func (f *fakeService[D]) Save(_ context.Context, d D) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, d)
	return int64(len(f.saved)), nil
}

func (f *fakeService[D]) Update(_ context.Context, id int64, d D) error {
	if f.err != nil {
		return f.err
	}
	if f.updated == nil {
		f.updated = make(map[int64]D)
	}
	f.updated[id] = d
	return nil
}

func (f *fakeService[D]) DeleteById(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fixture struct {
	authors *fakeService[service.AuthorDTO]
	books   *fakeService[service.BookDTO]
	genres  *fakeService[service.GenreDTO]
	h       http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		authors: &fakeService[service.AuthorDTO]{},
		books:   &fakeService[service.BookDTO]{},
		genres:  &fakeService[service.GenreDTO]{},
	}
	f.h = Handler(Services{Authors: f.authors, Books: f.books, Genres: f.genres}, &response.Responder{})
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, req)
	return w
}

func TestGetAll(t *testing.T) {
	f := newFixture()
	f.genres.rows = []service.GenreDTO{{Id: 1, Name: "poetry"}}

	w := f.do(http.MethodGet, "/genre/", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"id":1,"name":"poetry"}]`, w.Body.String())
}

func TestGetById(t *testing.T) {
	f := newFixture()
	f.authors.byId = map[int64]service.AuthorDTO{
		2: {Id: 2, Name: "a", Surname: "b", BookList: []service.BookDTO{}},
	}

	w := f.do(http.MethodGet, "/author/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":2,"name":"a","surname":"b","bookList":[]}`, w.Body.String())

	w = f.do(http.MethodGet, "/author/3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Author 3 not found"}`, w.Body.String())
}

func TestInvalidId(t *testing.T) {
	f := newFixture()

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		w := f.do(method, "/book/abc", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, method)
	}
}

func TestPut(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPut, "/book/", `{"title":"Solaris","genre":{"name":"sci-fi"},"authorList":[{"name":"Stanislaw","surname":"Lem"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, "Book 1 added", w.Body.String())
	require.Len(t, f.books.saved, 1)
	assert.Equal(t, "sci-fi", f.books.saved[0].Genre.Name)
	assert.Equal(t, "Lem", f.books.saved[0].AuthorList[0].Surname)
}

func TestPutMalformedBody(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPut, "/genre/", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.genres.saved)
}

func TestPost(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/genre/4", `{"name":"drama"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Genre 4 updated", w.Body.String())
	assert.Equal(t, "drama", f.genres.updated[4].Name)
}

func TestDelete(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodDelete, "/author/9", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Author 9 deleted", w.Body.String())
	assert.Equal(t, []int64{9}, f.authors.deleted)
}

func TestBusinessErrorIs404(t *testing.T) {
	f := newFixture()
	f.genres.err = &service.Error{Kind: service.KindNotDeleted, Entity: "genre", Id: 1}

	w := f.do(http.MethodDelete, "/genre/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Genre 1 not deleted")
}

func TestUnexpectedErrorIs500(t *testing.T) {
	f := newFixture()
	f.books.err = errors.New("connection refused")

	w := f.do(http.MethodGet, "/book/", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), "Error ID")
}

func TestOpds(t *testing.T) {
	f := newFixture()
	f.books.rows = []service.BookDTO{{Id: 1, Title: "Solaris", Genre: service.GenreDTO{Name: "sci-fi"}}}

	w := f.do(http.MethodGet, "/opds/", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/atom+xml")
	assert.Contains(t, w.Body.String(), "<id>tag:book:1</id>")
	assert.Contains(t, w.Body.String(), "Solaris")
}
