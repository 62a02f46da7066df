// Package reconcile brings the join table between an owner and its related
// entities in line with a desired list of related entities.
package reconcile

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"library/internal/storage"
)

// Same reports whether two entities are equal by their natural key.
type Same[T any] func(a, b T) bool

// Diff splits desired against persisted by natural key. Desired entries equal to
// an earlier desired entry are dropped so nothing gets linked twice.
func Diff[T any](desired, persisted []T, same Same[T]) (common, toLink, toRemove []T) {
	uniq := make([]T, 0, len(desired))
	for _, d := range desired {
		if !lo.ContainsBy(uniq, func(u T) bool { return same(u, d) }) {
			uniq = append(uniq, d)
		}
	}

	common, toLink = lo.FilterReject(uniq, func(d T, _ int) bool {
		return lo.ContainsBy(persisted, func(p T) bool { return same(d, p) })
	})

	toRemove = lo.Reject(persisted, func(p T, _ int) bool {
		return lo.ContainsBy(uniq, func(d T) bool { return same(d, p) })
	})

	return common, toLink, toRemove
}

// Linker holds the storage operations needed to reconcile one direction of a
// many-to-many relation.
type Linker[T any] struct {
	Same Same[T]
	Id   func(T) int64

	// Persisted lists entities currently linked to the owner
	Persisted func(ctx context.Context, conn storage.Conn, ownerId int64) ([]T, error)
	// Lookup finds a stored entity by natural key, returning 0 when absent
	Lookup func(ctx context.Context, conn storage.Conn, entity T) (int64, error)
	// Insert stores a new entity together with its missing dependencies
	Insert func(ctx context.Context, conn storage.Conn, entity T) (int64, error)

	Link   func(ctx context.Context, conn storage.Conn, ownerId, relatedId int64) error
	Unlink func(ctx context.Context, conn storage.Conn, ownerId, relatedId int64) error
}

// Result describes what Reconcile did.
type Result[T any] struct {
	Kept     []T
	Linked   []T
	Inserted []T // subset of Linked which was not stored before
	Removed  []T
}

// Reconcile links desired entities to owner and unlinks the rest. Missing
// entities are inserted first, removals run last. Any failure aborts and
// leaves the rollback to the caller.
func (l *Linker[T]) Reconcile(ctx context.Context, conn storage.Conn, ownerId int64, desired []T) (*Result[T], error) {
	persisted, err := l.Persisted(ctx, conn, ownerId)
	if err != nil {
		return nil, fmt.Errorf("listing linked entities: %w", err)
	}

	res := &Result[T]{}

	if len(desired) == 0 {
		for _, p := range persisted {
			if err := l.Unlink(ctx, conn, ownerId, l.Id(p)); err != nil {
				return nil, fmt.Errorf("unlinking %d: %w", l.Id(p), err)
			}
		}

		res.Removed = persisted
		return res, nil
	}

	common, toLink, toRemove := Diff(desired, persisted, l.Same)
	res.Kept = common

	for _, entity := range toLink {
		id, err := l.Lookup(ctx, conn, entity)
		if err != nil {
			return nil, fmt.Errorf("looking up entity: %w", err)
		}

		if id == 0 {
			id, err = l.Insert(ctx, conn, entity)
			if err != nil {
				return nil, fmt.Errorf("inserting entity: %w", err)
			}
			res.Inserted = append(res.Inserted, entity)
		}

		if err := l.Link(ctx, conn, ownerId, id); err != nil {
			return nil, fmt.Errorf("linking %d: %w", id, err)
		}

		res.Linked = append(res.Linked, entity)
	}

	for _, p := range toRemove {
		if err := l.Unlink(ctx, conn, ownerId, l.Id(p)); err != nil {
			return nil, fmt.Errorf("unlinking %d: %w", l.Id(p), err)
		}
	}

	res.Removed = toRemove
	return res, nil
}
