package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"library/internal/service"
)

type Consumer interface {
	ConsumeBooks(ctx context.Context, books []service.BookDTO) error
}

// LoggerConsumer only reports what would be imported.
type LoggerConsumer struct {
	Logger *slog.Logger
}

func (c *LoggerConsumer) ConsumeBooks(ctx context.Context, books []service.BookDTO) error {
	for _, b := range books {
		var authors_ string
		if len(b.AuthorList) > 0 {
			sb := strings.Builder{}
			if len(b.AuthorList) > 1 {
				sb.WriteString("by authors ")
			} else {
				sb.WriteString("by author ")
			}
			for ix, a := range b.AuthorList {
				if ix != 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(strings.TrimSpace(a.Name + " " + a.Surname))
			}
			authors_ = sb.String()
		} else {
			authors_ = "without authors"
		}

		c.Logger.InfoContext(ctx, "Consumed book "+b.Title+" ("+b.Genre.Name+") "+authors_)
	}

	return nil
}

// StoringConsumer saves every book through the book service. Books already in
// the catalog are skipped, their missing authors are not added.
type StoringConsumer struct {
	Logger *slog.Logger
	Books  service.Service[service.BookDTO]

	Saved   int
	Skipped int
}

func (s *StoringConsumer) ConsumeBooks(ctx context.Context, books []service.BookDTO) error {
	for _, b := range books {
		id, err := s.Books.Save(ctx, b)
		if err != nil {
			if errors.Is(err, service.ErrNotAdded) {
				s.Skipped++
				s.Logger.InfoContext(ctx, "Skip book already in catalog: "+b.Title, slog.String("genre", b.Genre.Name))
				continue
			}

			return fmt.Errorf("saving book %q: %w", b.Title, err)
		}

		s.Saved++
		s.Logger.DebugContext(ctx, "Imported book "+b.Title, slog.Int64("id", id))
	}

	return nil
}
