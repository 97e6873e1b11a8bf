package client

import (
	"context"

	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
	"github.com/taekwondodev/go-BaaS-Client/internal/repository"
)

// Query is an immutable builder: every modifier returns a new Query.
type Query struct {
	c *Client
	q repository.Query
}

func (q *Query) clone() *Query {
	next := &Query{c: q.c, q: q.q}
	next.q.Filters = append([]repository.Filter(nil), q.q.Filters...)
	next.q.Orders = append([]repository.Order(nil), q.q.Orders...)
	return next
}

func (q *Query) Eq(column string, value any) *Query {
	next := q.clone()
	next.q.Filters = append(next.q.Filters, repository.Filter{Column: column, Value: value})
	return next
}

func (q *Query) Order(column string, ascending bool) *Query {
	next := q.clone()
	next.q.Orders = append(next.q.Orders, repository.Order{Column: column, Ascending: ascending})
	return next
}

func (q *Query) Limit(n int) *Query {
	next := q.clone()
	next.q.Limit = n
	return next
}

// Select reads rows; no columns selects "*".
func (q *Query) Select(ctx context.Context, columns ...string) ([]repository.Row, error) {
	return call(ctx, q.c, "select."+q.q.Table, func(ctx context.Context) ([]repository.Row, error) {
		return q.c.data.Select(ctx, q.q, columns...)
	})
}

// Single is Select for exactly one row; no row fails with the not-found error.
func (q *Query) Single(ctx context.Context, columns ...string) (repository.Row, error) {
	rows, err := q.Limit(1).Select(ctx, columns...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, customerrors.ErrResourceNotFound
	}
	return rows[0], nil
}

func (q *Query) Insert(ctx context.Context, rows ...repository.Row) ([]repository.Row, error) {
	return call(ctx, q.c, "insert."+q.q.Table, func(ctx context.Context) ([]repository.Row, error) {
		return q.c.data.Insert(ctx, q.q.Table, rows...)
	})
}

func (q *Query) Update(ctx context.Context, values repository.Row) ([]repository.Row, error) {
	return call(ctx, q.c, "update."+q.q.Table, func(ctx context.Context) ([]repository.Row, error) {
		return q.c.data.Update(ctx, q.q, values)
	})
}

func (q *Query) Delete(ctx context.Context) ([]repository.Row, error) {
	return call(ctx, q.c, "delete."+q.q.Table, func(ctx context.Context) ([]repository.Row, error) {
		return q.c.data.Delete(ctx, q.q)
	})
}
