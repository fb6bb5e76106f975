package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-course-api/pkg/errors"
)

func TestUserServiceClassAssignments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := uuid.NewString()
	a := env.class(t, "Algebra", 5)
	b := env.class(t, "Biology", 5)

	user, err := env.users.Set(ctx, id, SetUserRequest{Name: "Instructor", ClassIDs: []string{a.ID.String(), a.ID.String()}})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, user.ClassIDs)

	user, err = env.users.AddClass(ctx, id, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, user.ClassIDs)

	classes, err := env.users.Classes(ctx, id)
	require.NoError(t, err)
	assert.Len(t, classes, 2)

	removed, err := env.users.RemoveClass(ctx, id, a.ID.String())
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = env.users.RemoveClass(ctx, id, a.ID.String())
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = env.users.AddClass(ctx, id, uuid.NewString())
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, err = env.users.Get(ctx, uuid.NewString())
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, err = env.users.Set(ctx, id, SetUserRequest{Name: "X", ClassIDs: []string{"bad"}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestNotificationServiceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := uuid.NewString()

	_, err := env.notifications.Get(ctx, id)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = env.notifications.Set(ctx, id, SetNotificationRequest{Title: "Exam", Message: "Room 4"})
	require.NoError(t, err)
	n, err := env.notifications.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Room 4", n.Message)

	require.NoError(t, env.notifications.Delete(ctx, id))
	require.NoError(t, env.notifications.Delete(ctx, id))
	_, err = env.notifications.Get(ctx, id)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = env.notifications.Set(ctx, id, SetNotificationRequest{Title: "Exam"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
