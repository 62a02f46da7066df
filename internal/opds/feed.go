// Package opds renders the catalog as an OPDS 1 acquisition feed.
package opds

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/opds-community/libopds2-go/opds1"

	"library/internal/service"
)

const (
	ContentType = "application/atom+xml;profile=opds-catalog;kind=acquisition;charset=utf-8"

	LinkTypeCatalog = "application/atom+xml;profile=opds-catalog"
	LinkTypeJson    = "application/json"
	LinkRelSelf     = "self"
	LinkRelNext     = "next"
	LinkRelAlt      = "alternate"

	BookIdTemplate     = "tag:book:%d"
	BookHrefTemplate   = "/book/%d"
	AuthorHrefTemplate = "/author/%d"
)

// Feed puts opds1.Feed under the Atom root element.
type Feed struct {
	XMLName xml.Name `xml:"http://www.w3.org/2005/Atom feed"`
	opds1.Feed
}

// BuildFeed makes one entry per book: authors with links to their resources,
// the genre as the only category and an alternate link to the book as JSON.
func BuildFeed(title, selfHref string, books []service.BookDTO) *Feed {
	f := &Feed{}
	f.Title = title
	f.Links = []opds1.Link{{Rel: LinkRelSelf, TypeLink: LinkTypeCatalog, Href: selfHref}}

	f.Entries = make([]opds1.Entry, 0, len(books))
	for _, b := range books {
		f.Entries = append(f.Entries, bookEntry(b))
	}

	return f
}

func bookEntry(b service.BookDTO) opds1.Entry {
	e := opds1.Entry{
		ID:    fmt.Sprintf(BookIdTemplate, b.Id),
		Title: b.Title,
		Links: []opds1.Link{{Rel: LinkRelAlt, TypeLink: LinkTypeJson, Href: fmt.Sprintf(BookHrefTemplate, b.Id)}},
	}

	for _, a := range b.AuthorList {
		e.Author = append(e.Author, opds1.Author{
			Name: strings.TrimSpace(a.Name + " " + a.Surname),
			URI:  fmt.Sprintf(AuthorHrefTemplate, a.Id),
		})
	}

	if b.Genre.Name != "" {
		e.Category = append(e.Category, opds1.Category{Term: b.Genre.Name})
	}

	return e
}
