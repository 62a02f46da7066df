package opds

import (
	"encoding/xml"
	"testing"

	"github.com/opds-community/libopds2-go/opds1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library/internal/service"
)

func TestBuildFeed(t *testing.T) {
	f := BuildFeed("Library", "/opds/", []service.BookDTO{
		{
			Id:    3,
			Title: "Solaris",
			Genre: service.GenreDTO{Id: 1, Name: "sci-fi"},
			AuthorList: []service.AuthorDTO{
				{Id: 7, Name: "Stanislaw", Surname: "Lem"},
			},
		},
		{Id: 4, Title: "Anonymous"},
	})

	bs, err := xml.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(bs), `<feed xmlns="http://www.w3.org/2005/Atom"`)

	var got opds1.Feed
	require.NoError(t, xml.Unmarshal(bs, &got))

	assert.Equal(t, "Library", got.Title)
	require.Len(t, got.Entries, 2)

	e := got.Entries[0]
	assert.Equal(t, "tag:book:3", e.ID)
	assert.Equal(t, "Solaris", e.Title)
	require.Len(t, e.Author, 1)
	assert.Equal(t, "Stanislaw Lem", e.Author[0].Name)
	assert.Equal(t, "/author/7", e.Author[0].URI)
	require.Len(t, e.Category, 1)
	assert.Equal(t, "sci-fi", e.Category[0].Term)
	require.Len(t, e.Links, 1)
	assert.Equal(t, "/book/3", e.Links[0].Href)
	assert.Equal(t, LinkTypeJson, e.Links[0].TypeLink)

	assert.Empty(t, got.Entries[1].Author)
	assert.Empty(t, got.Entries[1].Category)
}
