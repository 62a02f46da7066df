package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library/internal/service"
)

const page1 = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Books</title>
  <link rel="next" type="application/atom+xml;profile=opds-catalog" href="/feed?page=2"/>
  <entry>
    <id>tag:book:1</id>
    <title>Solaris</title>
    <author><name>Stanislaw  Lem</name><uri>/a/1</uri></author>
    <category term="sci-fi"/>
    <category term="classic"/>
  </entry>
  <entry>
    <id>tag:book:2</id>
    <title>Solaris</title>
    <category term="sci-fi"/>
  </entry>
  <entry>
    <id>tag:book:3</id>
    <title> </title>
  </entry>
</feed>`

const page2 = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Books</title>
  <entry>
    <id>tag:book:4</id>
    <title>Beowulf` + "\x0b" + `</title>
    <author><name>Anonymous</name></author>
  </entry>
</feed>`

type recordingConsumer struct {
	pages [][]service.BookDTO
	err   error
}

func (r *recordingConsumer) ConsumeBooks(_ context.Context, books []service.BookDTO) error {
	r.pages = append(r.pages, books)
	return r.err
}

func newFeedServer(t *testing.T) *url.URL {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		switch r.URL.Query().Get("page") {
		case "":
			_, _ = fmt.Fprint(w, page1)
		case "2":
			_, _ = fmt.Fprint(w, page2)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL + "/feed")
	require.NoError(t, err)
	return u
}

func newImporter(client *http.Client) *Importer {
	return &Importer{Client: client, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestImport_FollowsPages(t *testing.T) {
	feed := newFeedServer(t)
	c := &recordingConsumer{}

	err := newImporter(http.DefaultClient).Import(context.Background(), feed, c)
	require.NoError(t, err)

	require.Len(t, c.pages, 2)

	require.Len(t, c.pages[0], 1)
	b := c.pages[0][0]
	assert.Equal(t, "Solaris", b.Title)
	assert.Equal(t, "sci-fi", b.Genre.Name)
	assert.Equal(t, []service.AuthorDTO{{Name: "Stanislaw", Surname: "Lem"}}, b.AuthorList)

	require.Len(t, c.pages[1], 1)
	b = c.pages[1][0]
	assert.Equal(t, "Beowulf", b.Title)
	assert.Equal(t, DefaultGenre, b.Genre.Name)
	assert.Equal(t, []service.AuthorDTO{{Name: "Anonymous"}}, b.AuthorList)
}

func TestImport_MaxPages(t *testing.T) {
	feed := newFeedServer(t)
	c := &recordingConsumer{}

	im := newImporter(http.DefaultClient)
	im.MaxPages = 1
	require.NoError(t, im.Import(context.Background(), feed, c))

	assert.Len(t, c.pages, 1)
}

func TestImport_ConsumerError(t *testing.T) {
	feed := newFeedServer(t)
	boom := errors.New("boom")

	err := newImporter(http.DefaultClient).Import(context.Background(), feed, &recordingConsumer{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestImport_BadStatus(t *testing.T) {
	feed := newFeedServer(t)
	feed.RawQuery = "page=9"

	err := newImporter(http.DefaultClient).Import(context.Background(), feed, &recordingConsumer{})
	assert.ErrorContains(t, err, "unexpected status")
}

func TestRemoveDisallowedCodepoints(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.Equal(t, "ab\tc", string(removeDisallowedCodepoints([]byte("a\x01b\tc"), l)))

	invalid := []byte("a\x01\xffb")
	assert.Equal(t, "a\x01\xffb", string(removeDisallowedCodepoints(invalid, l)))
}

type fakeBooks struct {
	service.Service[service.BookDTO]
	saved []string
	err   map[string]error
}

func (f *fakeBooks) Save(_ context.Context, b service.BookDTO) (int64, error) {
	if err := f.err[b.Title]; err != nil {
		return 0, err
	}
	f.saved = append(f.saved, b.Title)
	return int64(len(f.saved)), nil
}

func TestStoringConsumer_SkipsExisting(t *testing.T) {
	books := &fakeBooks{err: map[string]error{
		"Dup": &service.Error{Kind: service.KindNotAdded, Entity: "book"},
	}}
	c := &StoringConsumer{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Books: books}

	err := c.ConsumeBooks(context.Background(), []service.BookDTO{{Title: "New"}, {Title: "Dup"}, {Title: "Other"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"New", "Other"}, books.saved)
	assert.Equal(t, 2, c.Saved)
	assert.Equal(t, 1, c.Skipped)
}

func TestStoringConsumer_StopsOnFailure(t *testing.T) {
	boom := errors.New("connection refused")
	books := &fakeBooks{err: map[string]error{"Bad": boom}}
	c := &StoringConsumer{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Books: books}

	err := c.ConsumeBooks(context.Background(), []service.BookDTO{{Title: "Bad"}, {Title: "Never"}})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, books.saved)
}

func TestLoggerConsumer(t *testing.T) {
	c := &LoggerConsumer{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	assert.NoError(t, c.ConsumeBooks(context.Background(), []service.BookDTO{{Title: "x"}}))
}
