package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/denteo/clinic-auth/internal/httpx"
	"github.com/denteo/clinic-auth/internal/models"
	"github.com/denteo/clinic-auth/internal/repo"
	"github.com/denteo/clinic-auth/internal/tokens"
)

const userContextKey = "auth_user"

type Authenticator struct {
	Issuer *tokens.Issuer
	Repo   repo.GormRepo
}

func NewAuthenticator(issuer *tokens.Issuer, r repo.GormRepo) *Authenticator {
	return &Authenticator{Issuer: issuer, Repo: r}
}

// RequireAuth validates the bearer access token and attaches the resolved
// user. It never touches the session ledger and never refreshes; refresh is a
// separate client-initiated call.
func (m *Authenticator) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, authErr := m.resolve(c)
		if authErr != nil {
			return authErr
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

// OptionalAuth attaches the user when the token checks out and proceeds
// anonymously on every failure branch.
func (m *Authenticator) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if user, err := m.resolve(c); err == nil {
			c.Set(userContextKey, user)
		}
		return next(c)
	}
}

func (m *Authenticator) resolve(c echo.Context) (*models.User, *echo.HTTPError) {
	raw := bearerToken(c)
	if raw == "" {
		return nil, httpx.Fail(http.StatusUnauthorized, httpx.CodeNoToken, "missing access token")
	}

	claims, err := m.Issuer.ParseAccess(raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, httpx.Fail(http.StatusUnauthorized, httpx.CodeTokenExpired, "access token expired")
		}
		return nil, httpx.Fail(http.StatusUnauthorized, httpx.CodeInvalidToken, "invalid access token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, httpx.Fail(http.StatusUnauthorized, httpx.CodeInvalidToken, "invalid access token")
	}

	user, err := m.Repo.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, httpx.Fail(http.StatusUnauthorized, httpx.CodeInvalidToken, "invalid access token")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if user.Status != models.StatusActive {
		return nil, httpx.Fail(http.StatusUnauthorized, httpx.CodeAccountInactive, "account is not active")
	}

	return user, nil
}

// RequireRoles gates downstream of RequireAuth: pure set membership, no
// re-validation of the token.
func RequireRoles(roles ...models.Role) echo.MiddlewareFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := UserFromContext(c)
			if user == nil {
				return httpx.Fail(http.StatusUnauthorized, httpx.CodeNoToken, "missing access token")
			}
			if _, ok := allowed[user.Role]; !ok {
				return httpx.Fail(http.StatusForbidden, httpx.CodeForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}

func UserFromContext(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if h == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
