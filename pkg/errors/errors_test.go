package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("enroll: %w", Clone(ErrCapacityExceeded, "class c1 is full"))
	assert.True(t, Is(err, ErrCapacityExceeded))
	assert.False(t, Is(err, ErrNotFound))
	assert.False(t, Is(nil, ErrNotFound))
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)

	wrapped := Wrap(ErrStateNotFound, ErrPersistence.Code, ErrPersistence.Status, "write student/1")
	assert.Same(t, wrapped, FromError(wrapped))
	assert.ErrorIs(t, wrapped, ErrStateNotFound)
	assert.Equal(t, "write student/1: state not found", wrapped.Error())
}
