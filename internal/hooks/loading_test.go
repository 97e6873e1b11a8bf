package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack_Success(t *testing.T) {
	var l Loading
	var during bool

	got, err := Track(context.Background(), &l, func(ctx context.Context) (int, error) {
		during = l.IsLoading()
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.True(t, during)
	assert.False(t, l.IsLoading())
}

func TestTrack_FailureResetsFlagAndPropagates(t *testing.T) {
	var l Loading
	errBoom := errors.New("boom")

	_, err := Track(context.Background(), &l, func(ctx context.Context) (string, error) {
		return "", errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.False(t, l.IsLoading())
}

func TestTrack_PanicResetsFlag(t *testing.T) {
	var l Loading

	assert.Panics(t, func() {
		_, _ = Track(context.Background(), &l, func(ctx context.Context) (int, error) {
			panic("boom")
		})
	})
	assert.False(t, l.IsLoading())
}
