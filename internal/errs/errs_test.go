package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorAccumulates(t *testing.T) {
	ve := NewValidationError()
	require.NoError(t, ve.Err())

	ve.Add("email", "already registered")
	ve.Add("username", "already taken")
	ve.Add("username", "letters, digits and underscores only")

	err := ve.Err()
	require.Error(t, err)
	assert.True(t, ve.Has("email"))
	assert.Len(t, ve.Fields["username"], 2)
	assert.Equal(t, "validation failed: email: already registered, username: already taken; letters, digits and underscores only", err.Error())

	got, ok := AsValidation(fmt.Errorf("register: %w", err))
	require.True(t, ok)
	assert.Same(t, ve, got)
}

func TestConflictErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("create user: %w", &ConflictError{Field: "email"})
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "create user: email already exists", err.Error())
}
