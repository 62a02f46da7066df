package schema

import (
	"context"
	_ "embed"
	"fmt"

	"library/internal/storage"
)

//go:embed schema.sql
var ddl string

// Apply creates the catalog tables when they are missing.
func Apply(ctx context.Context, conn storage.Conn) error {
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	return nil
}

// Truncate removes every row from the catalog tables and resets their ids.
func Truncate(ctx context.Context, conn storage.Conn) error {
	_, err := conn.Exec(ctx, "truncate table authors_books, author, book, genre restart identity")
	if err != nil {
		return fmt.Errorf("truncating catalog: %w", err)
	}

	return nil
}
