package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denteo/clinic-auth/internal/models"
)

func newTestUser(email string) *models.User {
	return &models.User{
		Email:        email,
		PasswordHash: "hashed",
		FirstName:    "Alice",
		LastName:     "Santos",
		Role:         models.RolePatient,
		Status:       models.StatusActive,
	}
}

func TestCreateUserIfNotExists_Conflict(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	u := newTestUser("alice@example.com")
	require.NoError(t, r.CreateUserIfNotExists(ctx, u))
	require.NotEqual(t, uuid.Nil, u.ID)

	dup := newTestUser("alice@example.com")
	err := r.CreateUserIfNotExists(ctx, dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserAlreadyExist)
}

func TestCreateUserIfNotExists_NormalizesEmail(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	u := newTestUser("  Alice@Example.COM ")
	require.NoError(t, r.CreateUserIfNotExists(ctx, u))
	assert.Equal(t, "alice@example.com", u.Email)

	found, err := r.GetUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	dup := newTestUser("ALICE@EXAMPLE.COM")
	assert.ErrorIs(t, r.CreateUserIfNotExists(ctx, dup), ErrUserAlreadyExist)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	_, err := r.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdatePassword(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	u := newTestUser("bob@example.com")
	require.NoError(t, r.CreateUserIfNotExists(ctx, u))

	require.NoError(t, r.UpdatePassword(ctx, u.ID, "rehashed"))

	found, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "rehashed", found.PasswordHash)

	err = r.UpdatePassword(ctx, uuid.New(), "whatever")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
