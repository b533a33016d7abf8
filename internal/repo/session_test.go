package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denteo/clinic-auth/internal/tokens"
)

func TestSessionLedger_CreateAndFind(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	s, err := r.CreateSession(ctx, userID, "access-token", "refresh-token", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, tokens.Sha256Hex("refresh-token"), s.TokenHash)

	found, err := r.FindValidSession(ctx, "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, s.ID, found.ID)
	assert.Equal(t, userID, found.UserID)

	_, err = r.FindValidSession(ctx, "unknown-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionLedger_MultiDevice(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := r.CreateSession(ctx, userID, "a1", "phone-token", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	_, err = r.CreateSession(ctx, userID, "a2", "tablet-token", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	count, err := r.CountSessionsForUser(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestSessionLedger_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		expiresAt time.Time
		valid     bool
	}{
		{name: "future", expiresAt: time.Now().UTC().Add(time.Minute), valid: true},
		{name: "exactly now", expiresAt: time.Now().UTC(), valid: false},
		{name: "past", expiresAt: time.Now().UTC().Add(-time.Minute), valid: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			token := "token-" + tt.name
			_, err := r.CreateSession(ctx, uuid.New(), "", token, tt.expiresAt)
			require.NoError(t, err)

			_, err = r.FindValidSession(ctx, token)
			if tt.valid {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrSessionNotFound)
			}
		})
	}
}

func TestSessionLedger_Rotate(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	userID := uuid.New()

	s, err := r.CreateSession(ctx, userID, "old-access", "old-refresh", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	newExp := time.Now().UTC().Add(2 * time.Hour)
	require.NoError(t, r.RotateSession(ctx, "old-refresh", "new-access", "new-refresh", newExp))

	// The old value died with the rotation.
	_, err = r.FindValidSession(ctx, "old-refresh")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	rotated, err := r.FindValidSession(ctx, "new-refresh")
	require.NoError(t, err)
	assert.Equal(t, s.ID, rotated.ID, "rotation replaces in place, not by insert")
	assert.Equal(t, userID, rotated.UserID)
	assert.WithinDuration(t, newExp, rotated.ExpiresAt, time.Second)
}

func TestSessionLedger_RotateLoserFailsClosed(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.CreateSession(ctx, uuid.New(), "", "shared-refresh", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	// Two callers hold the same pre-rotation token. The first conditional
	// update wins; the second matches nothing.
	require.NoError(t, r.RotateSession(ctx, "shared-refresh", "", "winner-refresh", time.Now().UTC().Add(time.Hour)))

	err = r.RotateSession(ctx, "shared-refresh", "", "loser-refresh", time.Now().UTC().Add(time.Hour))
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = r.FindValidSession(ctx, "loser-refresh")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionLedger_RotateExpiredSessionFails(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.CreateSession(ctx, uuid.New(), "", "stale-refresh", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	err = r.RotateSession(ctx, "stale-refresh", "", "fresh-refresh", time.Now().UTC().Add(time.Hour))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionLedger_RevokeIsIdempotent(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.CreateSession(ctx, uuid.New(), "", "doomed-refresh", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, r.RevokeByRefreshToken(ctx, "doomed-refresh"))
	require.NoError(t, r.RevokeByRefreshToken(ctx, "doomed-refresh"))
	require.NoError(t, r.RevokeByRefreshToken(ctx, "never-existed"))

	_, err = r.FindValidSession(ctx, "doomed-refresh")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionLedger_RevokeAllScopedToUser(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	for _, token := range []string{"alice-1", "alice-2", "alice-3"} {
		_, err := r.CreateSession(ctx, alice, "", token, time.Now().UTC().Add(time.Hour))
		require.NoError(t, err)
	}
	_, err := r.CreateSession(ctx, bob, "", "bob-1", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	revoked, err := r.RevokeAllForUser(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 3, revoked)

	count, err := r.CountSessionsForUser(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = r.FindValidSession(ctx, "bob-1")
	require.NoError(t, err, "another user's sessions must survive")
}

func TestSessionLedger_DeleteExpiredSessions(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.CreateSession(ctx, uuid.New(), "", "live", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	_, err = r.CreateSession(ctx, uuid.New(), "", "dead-1", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	_, err = r.CreateSession(ctx, uuid.New(), "", "dead-2", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	swept, err := r.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, swept)

	_, err = r.FindValidSession(ctx, "live")
	require.NoError(t, err)
}
