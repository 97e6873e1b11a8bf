package hooks

import (
	"context"
	"sync/atomic"
)

// Loading is a flag that is set while an operation runs.
type Loading struct {
	loading atomic.Bool
}

func (l *Loading) IsLoading() bool {
	return l.loading.Load()
}

// Track runs op with the flag set and clears it on both paths. op's error is
// returned unchanged.
func Track[T any](ctx context.Context, l *Loading, op func(ctx context.Context) (T, error)) (T, error) {
	l.loading.Store(true)
	defer l.loading.Store(false)

	return op(ctx)
}
