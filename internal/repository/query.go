package repository

import (
	"context"

	"github.com/uptrace/bun"
)

// Query is a lazily evaluated select over one entity kind. Clauses only
// accumulate; nothing runs until a terminal method is called.
type Query[T any] struct {
	svc      *Service[T]
	tracking bool
	clauses  []Shape
}

// Where adds a bun WHERE clause. ?TableAlias resolves to the entity's alias.
func (q *Query[T]) Where(query string, args ...any) *Query[T] {
	return q.Apply(func(sq *bun.SelectQuery) *bun.SelectQuery {
		return sq.Where(query, args...)
	})
}

// Apply adds an arbitrary clause on top of the service's default shape.
func (q *Query[T]) Apply(fn Shape) *Query[T] {
	clauses := make([]Shape, 0, len(q.clauses)+1)
	clauses = append(clauses, q.clauses...)
	clauses = append(clauses, fn)
	return &Query[T]{svc: q.svc, tracking: q.tracking, clauses: clauses}
}

func (q *Query[T]) build(db bun.IDB, model any) *bun.SelectQuery {
	sq := db.NewSelect().Model(model)
	for _, fn := range q.svc.shapes {
		sq = fn(sq)
	}
	for _, fn := range q.clauses {
		sq = fn(sq)
	}
	return sq
}

func (q *Query[T]) list(ctx context.Context, limit int) ([]*T, error) {
	db, sess := q.svc.store.conn(ctx)
	if q.tracking && sess == nil {
		return nil, ErrNoSession
	}
	var rows []*T
	sq := q.build(db, &rows)
	if limit > 0 {
		sq = sq.Limit(limit)
	}
	if err := sq.Scan(ctx); err != nil {
		return nil, translate("query "+kindOf(new(T)), err)
	}
	if q.tracking {
		for _, r := range rows {
			sess.trackGraph(r)
		}
	}
	return rows, nil
}

// List returns every matching row.
func (q *Query[T]) List(ctx context.Context) ([]*T, error) {
	return q.list(ctx, 0)
}

// First returns the first matching row or ErrNotFound.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	rows, err := q.list(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Single returns the only matching row, ErrNotFound when there is none
// and ErrMultipleRows when there is more than one.
func (q *Query[T]) Single(ctx context.Context) (*T, error) {
	rows, err := q.list(ctx, 2)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return rows[0], nil
	default:
		return nil, ErrMultipleRows
	}
}

func (q *Query[T]) Exists(ctx context.Context) (bool, error) {
	db, _ := q.svc.store.conn(ctx)
	ok, err := q.build(db, (*T)(nil)).Exists(ctx)
	if err != nil {
		return false, translate("exists "+kindOf(new(T)), err)
	}
	return ok, nil
}

func (q *Query[T]) Count(ctx context.Context) (int, error) {
	db, _ := q.svc.store.conn(ctx)
	n, err := q.build(db, (*T)(nil)).Count(ctx)
	if err != nil {
		return 0, translate("count "+kindOf(new(T)), err)
	}
	return n, nil
}
