package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
)

// Call invokes a database function with named arguments, in name order:
//
//	SELECT * FROM "public"."fn"("a" => $1, "b" => $2)
func (r *repository) Call(ctx context.Context, fn string, params map[string]any) ([]Row, error) {
	if fn == "" {
		return nil, customerrors.ErrBadRequest
	}

	names := sortedKeys(params)
	args := make([]any, len(names))
	named := make([]string, len(names))
	for i, name := range names {
		args[i] = params[name]
		named[i] = fmt.Sprintf("%s => $%d", pgx.Identifier{name}.Sanitize(), i+1)
	}

	sql := fmt.Sprintf("SELECT * FROM %s(%s)", r.table(fn), strings.Join(named, ", "))
	return r.collect(ctx, sql, args...)
}
