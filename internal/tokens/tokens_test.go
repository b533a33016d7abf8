package tokens

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denteo/clinic-auth/internal/models"
)

func newTestIssuer() *Issuer {
	return &Issuer{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
	}
}

func TestIssuer_IssueAccess_RoundTrip(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	userID := uuid.New()

	token, exp, err := iss.IssueAccess(userID, models.RoleDoctor)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(iss.AccessTTL), exp, 2*time.Second)

	claims, err := iss.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, claims.Role)
	assert.Equal(t, userID.String(), claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestIssuer_IssueRefresh_RoundTrip(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	userID := uuid.New()

	token, exp, err := iss.IssueRefresh(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(iss.RefreshTTL), exp, 2*time.Second)

	claims, err := iss.ParseRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestIssuer_SecretsAreIndependent(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	userID := uuid.New()

	access, _, err := iss.IssueAccess(userID, models.RolePatient)
	require.NoError(t, err)
	refresh, _, err := iss.IssueRefresh(userID)
	require.NoError(t, err)

	_, err = iss.ParseRefresh(access)
	assert.Error(t, err, "access token must not verify under the refresh secret")

	other := newTestIssuer()
	other.AccessSecret = []byte("a-different-secret")
	_, err = other.ParseAccess(access)
	assert.Error(t, err)

	_, err = iss.ParseAccess(refresh)
	assert.Error(t, err, "refresh token must not verify under the access secret")
}

func TestIssuer_ParseAccess_Expired(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	iss.AccessTTL = -time.Minute

	token, _, err := iss.IssueAccess(uuid.New(), models.RolePatient)
	require.NoError(t, err)

	_, err = iss.ParseAccess(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestIssuer_ParseAccess_Garbage(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	_, err := iss.ParseAccess("not-a-jwt")
	require.Error(t, err)
	assert.False(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestSha256Hex_Deterministic(t *testing.T) {
	t.Parallel()

	a := Sha256Hex("token-value")
	b := Sha256Hex("token-value")
	c := Sha256Hex("other-value")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
