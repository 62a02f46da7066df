// Package storagetest provides a storage.Conn which records statements instead of running them.
package storagetest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNoQuery = errors.New("storagetest: queries are not supported")

type Statement struct {
	SQL  string
	Args []any
}

// Conn answers Exec with Tag and QueryRow with Returning. Query always fails.
type Conn struct {
	Tag       string
	Returning []any
	Err       error

	Statements []Statement
}

func (c *Conn) Exec(_ context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	c.Statements = append(c.Statements, Statement{SQL: sql, Args: arguments})
	if c.Err != nil {
		return pgconn.CommandTag{}, c.Err
	}

	return pgconn.NewCommandTag(c.Tag), nil
}

func (c *Conn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.Statements = append(c.Statements, Statement{SQL: sql, Args: args})
	return nil, ErrNoQuery
}

func (c *Conn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	c.Statements = append(c.Statements, Statement{SQL: sql, Args: args})
	return row{vals: c.Returning, err: c.Err}
}

// Last returns the most recent statement.
func (c *Conn) Last() Statement {
	if len(c.Statements) == 0 {
		return Statement{}
	}

	return c.Statements[len(c.Statements)-1]
}

type row struct {
	vals []any
	err  error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("storagetest: scanning %d values into %d destinations", len(r.vals), len(dest))
	}

	for i, d := range dest {
		switch d := d.(type) {
		case *int64:
			v, ok := r.vals[i].(int64)
			if !ok {
				return fmt.Errorf("storagetest: value %d is %T, not int64", i, r.vals[i])
			}
			*d = v
		case *string:
			v, ok := r.vals[i].(string)
			if !ok {
				return fmt.Errorf("storagetest: value %d is %T, not string", i, r.vals[i])
			}
			*d = v
		default:
			return fmt.Errorf("storagetest: unsupported destination %T", d)
		}
	}

	return nil
}
