package service

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound   Kind = "not found"
	KindNotAdded   Kind = "not added"
	KindNotUpdated Kind = "not updated"
	KindNotDeleted Kind = "not deleted"
)

// Error is a business error: the request was valid but the catalog could not
// serve it. Errors match with errors.Is by Kind alone.
type Error struct {
	Kind   Kind
	Entity string
	Id     int64
	cause  error
}

func (e *Error) Error() string {
	msg := e.Entity
	if e.Id != 0 {
		msg = fmt.Sprintf("%s %d", msg, e.Id)
	}
	msg += " " + string(e.Kind)

	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}

	return false
}

var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrNotAdded   = &Error{Kind: KindNotAdded}
	ErrNotUpdated = &Error{Kind: KindNotUpdated}
	ErrNotDeleted = &Error{Kind: KindNotDeleted}
)

func newError(kind Kind, entity string, id int64, cause error) *Error {
	return &Error{Kind: kind, Entity: entity, Id: id, cause: cause}
}

// IsBusiness reports whether err carries a business error of any kind.
func IsBusiness(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
