package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-course-api/pkg/database"
	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

func TestSQLStateRepositoryOnSQLite(t *testing.T) {
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLStateRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))

	_, err = repo.ReadState(ctx, "student", "s-1")
	assert.ErrorIs(t, err, appErrors.ErrStateNotFound)

	require.NoError(t, repo.WriteState(ctx, "student", "s-1", []byte(`{"first_name":"Ada"}`)))
	require.NoError(t, repo.WriteState(ctx, "student", "s-1", []byte(`{"first_name":"Grace"}`)))
	require.NoError(t, repo.WriteState(ctx, "class", "c-1", []byte(`{"name":"Algebra"}`)))

	payload, err := repo.ReadState(ctx, "student", "s-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"first_name":"Grace"}`, string(payload))

	counts, err := repo.CountByPartition(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"student": 1, "class": 1}, counts)

	require.NoError(t, repo.ClearState(ctx, "student", "s-1"))
	_, err = repo.ReadState(ctx, "student", "s-1")
	assert.ErrorIs(t, err, appErrors.ErrStateNotFound)
}
