package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

func TestFileStateRepositoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileStateRepository(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.ReadState(ctx, "student", "s-1")
	assert.ErrorIs(t, err, appErrors.ErrStateNotFound)

	require.NoError(t, repo.WriteState(ctx, "student", "s-1", []byte(`{"first_name":"Ada"}`)))
	got, err := repo.ReadState(ctx, "student", "s-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"first_name":"Ada"}`, string(got))

	_, err = os.Stat(filepath.Join(dir, "student", "s-1.json"))
	require.NoError(t, err)

	require.NoError(t, repo.ClearState(ctx, "student", "s-1"))
	_, err = repo.ReadState(ctx, "student", "s-1")
	assert.ErrorIs(t, err, appErrors.ErrStateNotFound)
}

func TestFileStateRepositoryEscapesKeys(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileStateRepository(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.WriteState(ctx, "performance", "a/../b", []byte(`{}`)))
	_, err = os.Stat(filepath.Join(dir, "performance", "a%2F..%2Fb.json"))
	require.NoError(t, err)
}

func TestFileStateRepositoryHonoursCancellation(t *testing.T) {
	repo, err := NewFileStateRepository(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.WriteState(ctx, "class", "c", []byte(`{}`)), context.Canceled)
}
