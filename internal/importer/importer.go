// Package importer loads books from an OPDS acquisition feed into the catalog.
package importer

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/opds-community/libopds2-go/opds1"

	"library/internal/opds"
	"library/internal/service"
)

// DefaultGenre is given to entries without a category.
const DefaultGenre = "uncategorized"

type Importer struct {
	Client *http.Client
	Logger *slog.Logger
	// MaxPages stops paging after that many pages, 0 means no limit
	MaxPages int
}

// Import walks feed and all its next pages, handing the books of every page to consumer.
func (im *Importer) Import(ctx context.Context, feed *url.URL, consumer Consumer) error {
	for page := 1; feed != nil; page++ {
		if im.MaxPages > 0 && page > im.MaxPages {
			im.Logger.InfoContext(ctx, "Page limit reached", slog.Int("pages", im.MaxPages))
			return nil
		}

		next, err := im.page(ctx, feed, consumer)
		if err != nil {
			return err
		}

		feed = next
	}

	return nil
}

func (im *Importer) page(ctx context.Context, feedUrl *url.URL, consumer Consumer) (*url.URL, error) {
	l := im.Logger.With(slog.String("feed", feedUrl.String()))
	l.DebugContext(ctx, "Begin processing books feed")

	feed, err := im.fetch(ctx, feedUrl, l)
	if err != nil {
		return nil, err
	}

	var bks []service.BookDTO
	seen := make(map[string]struct{}, len(feed.Entries))

	for _, entry := range feed.Entries {
		entry.ID = strings.TrimSpace(entry.ID)
		entry.Title = strings.TrimSpace(entry.Title)

		if entry.Title == "" {
			l.WarnContext(ctx, "Skip entry without title "+entry.ID)
			continue
		}

		b := bookFromEntry(&entry, l)

		key := b.Title + "\x00" + b.Genre.Name
		if _, ok := seen[key]; ok {
			l.WarnContext(ctx, "Found duplicate of book "+entry.ID)
			continue
		}
		seen[key] = struct{}{}

		bks = append(bks, b)
	}

	if len(bks) == 0 {
		l.WarnContext(ctx, "No books parsed from feed")
	} else if err := consumer.ConsumeBooks(ctx, bks); err != nil {
		return nil, fmt.Errorf("consuming books of %s: %w", feedUrl, err)
	}

	linkNext := chooseLink(feed.Links, func(link *opds1.Link) string {
		if link.Rel != opds.LinkRelNext {
			return "unknown rel " + link.Rel
		}

		if !strings.HasPrefix(link.TypeLink, opds.LinkTypeCatalog) {
			return "unknown type: " + link.TypeLink
		}

		return ""
	}, clLogger{logger: l})

	if linkNext == nil {
		return nil, nil
	}

	l.DebugContext(ctx, "Found link to the next page")

	urlNext, err := url.Parse(linkNext.Href)
	if err != nil {
		l.ErrorContext(ctx, "Failed to parse next page link "+linkNext.Href+": "+err.Error())
		return nil, nil
	}

	return feedUrl.ResolveReference(urlNext), nil
}

func (im *Importer) fetch(ctx context.Context, feedUrl *url.URL, l *slog.Logger) (*opds1.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedUrl.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	res, err := im.Client.Do(req)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch books feed: "+err.Error())
		return nil, fmt.Errorf("fetching books feed: %w", err)
	}

	var bs []byte
	func() {
		defer res.Body.Close()
		bs, err = io.ReadAll(res.Body)
	}()

	if err != nil {
		l.ErrorContext(ctx, "Failed to read body of books feed: "+err.Error())
		return nil, fmt.Errorf("fetching books feed (reading response): %w", err)
	}

	if res.StatusCode != http.StatusOK {
		l.ErrorContext(ctx, "Unexpected status of books feed", slog.Int("status", res.StatusCode))
		return nil, fmt.Errorf("fetching books feed: unexpected status %s", res.Status)
	}

	var feed opds1.Feed
	err = xml.Unmarshal(removeDisallowedCodepoints(bs, l), &feed)
	if err != nil {
		l.ErrorContext(ctx, "Failed to unmarshal books feed: "+err.Error())
		return nil, fmt.Errorf("unmarshalling books feed: %w", err)
	}

	return &feed, nil
}

// bookFromEntry takes the first category as the genre and splits author
// display names at the last space into name and surname.
func bookFromEntry(entry *opds1.Entry, l *slog.Logger) service.BookDTO {
	b := service.BookDTO{
		Title: entry.Title,
		Genre: service.GenreDTO{Name: DefaultGenre},
	}

	for _, cat := range entry.Category {
		if term := strings.TrimSpace(cat.Term); term != "" {
			b.Genre.Name = term
			break
		}
	}

	seen := make(map[string]struct{}, len(entry.Author))
	for _, auth := range entry.Author {
		name := strings.Join(strings.Fields(auth.Name), " ")
		if name == "" {
			l.Warn("Skip author without name in book " + entry.ID)
			continue
		}

		if _, ok := seen[name]; ok {
			l.Warn("In the same book found duplicate of author " + name)
			continue
		}
		seen[name] = struct{}{}

		a := service.AuthorDTO{Name: name}
		if ix := strings.LastIndexByte(name, ' '); ix > 0 {
			a.Name, a.Surname = name[:ix], name[ix+1:]
		}

		b.AuthorList = append(b.AuthorList, a)
	}

	return b
}

type clLogger struct {
	logger        *slog.Logger
	levelSkipLink slog.Leveler
}

func chooseLink(links []opds1.Link, matcher func(link *opds1.Link) string, l clLogger) *opds1.Link {
	var ret *opds1.Link

	for _, link := range links {
		link.Rel = strings.TrimSpace(link.Rel)
		link.TypeLink = strings.TrimSpace(link.TypeLink)

		if matcher != nil {
			mismatch := matcher(&link)
			if mismatch != "" {
				if l.levelSkipLink != nil {
					l.logger.Log(context.Background(), l.levelSkipLink.Level(), "Skip non-matching link: "+mismatch)
				}

				continue
			}
		}

		if ret != nil {
			l.logger.Warn("Skip duplicate matching link: " + link.Href)
			continue
		}

		ret = &link
	}

	return ret
}

// removeDisallowedCodepoints drops runes outside the XML character range,
// some feeds include them.
func removeDisallowedCodepoints(bs []byte, l *slog.Logger) []byte {
	ret := make([]byte, 0, len(bs))
	buf := bs

	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size == 1 {
			l.Warn("Going to fail XML parsing because the bytes do not represent valid UTF8")
			return bs
		}

		if isInCharacterRange(r) {
			ret = append(ret, buf[:size]...)
		} else {
			l.Warn("Removed invalid rune from XML")
		}

		buf = buf[size:]
	}

	return ret
}

// isInCharacterRange follows the Char production of XML 1.0, section 2.2.
func isInCharacterRange(r rune) bool {
	return r == 0x09 ||
		r == 0x0A ||
		r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}
