package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
)

const (
	DefaultSchema = "public"
	DefaultLimit  = 100
)

// DBTX is the part of *pgxpool.Pool the data API needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type Row = map[string]any

type Filter struct {
	Column string
	Value  any
}

type Order struct {
	Column    string
	Ascending bool
}

// Query describes the rows a Select, Update or Delete applies to.
// A zero Limit means the repository default.
type Query struct {
	Table   string
	Filters []Filter
	Orders  []Order
	Limit   int
}

type DataRepository interface {
	Select(ctx context.Context, q Query, columns ...string) ([]Row, error)
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	Update(ctx context.Context, q Query, values Row) ([]Row, error)
	Delete(ctx context.Context, q Query) ([]Row, error)
	Call(ctx context.Context, fn string, params map[string]any) ([]Row, error)
	Ping(ctx context.Context) error
}

type repository struct {
	db           DBTX
	schema       string
	defaultLimit int
}

func New(db DBTX, schema string, defaultLimit int) DataRepository {
	if schema == "" {
		schema = DefaultSchema
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &repository{
		db:           db,
		schema:       schema,
		defaultLimit: defaultLimit,
	}
}

func (r *repository) Select(ctx context.Context, q Query, columns ...string) ([]Row, error) {
	if q.Table == "" {
		return nil, customerrors.ErrBadRequest
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectList(columns))
	sb.WriteString(" FROM ")
	sb.WriteString(r.table(q.Table))

	args := r.where(&sb, q.Filters, nil)

	if len(q.Orders) > 0 {
		parts := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			parts = append(parts, pgx.Identifier{o.Column}.Sanitize()+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = r.defaultLimit
	}
	fmt.Fprintf(&sb, " LIMIT %d", limit)

	return r.collect(ctx, sb.String(), args...)
}

// Insert writes rows in one statement. Columns are the union of the row keys;
// a row missing a column gets DEFAULT.
func (r *repository) Insert(ctx context.Context, table string, rows ...Row) ([]Row, error) {
	if table == "" || len(rows) == 0 {
		return nil, customerrors.ErrBadRequest
	}

	columns := unionKeys(rows)
	if len(columns) == 0 {
		return nil, customerrors.ErrBadRequest
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(r.table(table))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		values := make([]string, len(columns))
		for j, c := range columns {
			v, ok := row[c]
			if !ok {
				values[j] = "DEFAULT"
				continue
			}
			args = append(args, v)
			values[j] = fmt.Sprintf("$%d", len(args))
		}
		sb.WriteString("(")
		sb.WriteString(strings.Join(values, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(" RETURNING *")

	return r.collect(ctx, sb.String(), args...)
}

func (r *repository) Update(ctx context.Context, q Query, values Row) ([]Row, error) {
	if q.Table == "" || len(values) == 0 {
		return nil, customerrors.ErrBadRequest
	}

	columns := sortedKeys(values)
	args := make([]any, 0, len(columns)+len(q.Filters))
	set := make([]string, len(columns))
	for i, c := range columns {
		args = append(args, values[c])
		set[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{c}.Sanitize(), len(args))
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(r.table(q.Table))
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(set, ", "))

	args = r.where(&sb, q.Filters, args)
	sb.WriteString(" RETURNING *")

	return r.collect(ctx, sb.String(), args...)
}

func (r *repository) Delete(ctx context.Context, q Query) ([]Row, error) {
	if q.Table == "" {
		return nil, customerrors.ErrBadRequest
	}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(r.table(q.Table))

	args := r.where(&sb, q.Filters, nil)
	sb.WriteString(" RETURNING *")

	return r.collect(ctx, sb.String(), args...)
}

func (r *repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *repository) table(name string) string {
	return pgx.Identifier{r.schema, name}.Sanitize()
}

func (r *repository) where(sb *strings.Builder, filters []Filter, args []any) []any {
	if len(filters) == 0 {
		return args
	}
	conds := make([]string, len(filters))
	for i, f := range filters {
		args = append(args, f.Value)
		conds[i] = fmt.Sprintf("%s = $%d", pgx.Identifier{f.Column}.Sanitize(), len(args))
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(conds, " AND "))
	return args
}

func (r *repository) collect(ctx context.Context, sql string, args ...any) ([]Row, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToMap)
}

// selectList accepts either separate column names or one comma separated
// list ("id, title"). An empty list or "*" selects every column.
func selectList(columns []string) string {
	if len(columns) == 1 {
		columns = strings.Split(columns[0], ",")
	}
	quoted := make([]string, 0, len(columns))
	for _, c := range columns {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if c == "*" {
			return "*"
		}
		quoted = append(quoted, pgx.Identifier{c}.Sanitize())
	}
	if len(quoted) == 0 {
		return "*"
	}
	return strings.Join(quoted, ", ")
}

func unionKeys(rows []Row) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
