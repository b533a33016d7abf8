package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/denteo/clinic-auth/internal/httpx"
	"github.com/denteo/clinic-auth/internal/middleware"
	"github.com/denteo/clinic-auth/internal/service"
	"github.com/denteo/clinic-auth/pkg/logging"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Register(ctx, req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		default:
			return err
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":       true,
		"user":          res.User,
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
		case errors.Is(err, service.ErrAccountInactive):
			return httpx.Fail(http.StatusUnauthorized, httpx.CodeAccountInactive, "account is not active")
		case errors.Is(err, service.ErrInvalidCredentials):
			return httpx.Fail(http.StatusUnauthorized, httpx.CodeInvalidCredentials, "invalid email or password")
		default:
			return err
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"user":          res.User,
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingToken):
			return httpx.Fail(http.StatusUnauthorized, httpx.CodeMissingToken, "refresh token is required")
		case errors.Is(err, service.ErrAccountInactive):
			return httpx.Fail(http.StatusUnauthorized, httpx.CodeAccountInactive, "account is not active")
		case errors.Is(err, service.ErrInvalidOrExpiredToken):
			return httpx.Fail(http.StatusUnauthorized, httpx.CodeInvalidOrExpiredToken, "invalid or expired refresh token")
		default:
			return err
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.Logout(ctx, req.RefreshToken); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "logged out",
	})
}

func (h *AuthHTTP) LogoutAll(c echo.Context) error {
	ctx := c.Request().Context()

	user := middleware.UserFromContext(c)
	if user == nil {
		return httpx.Fail(http.StatusUnauthorized, httpx.CodeNoToken, "missing access token")
	}

	revoked, err := h.Svc.LogoutAll(ctx, user.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"revoked": revoked,
	})
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()

	user := middleware.UserFromContext(c)
	if user == nil {
		return httpx.Fail(http.StatusUnauthorized, httpx.CodeNoToken, "missing access token")
	}

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.ChangePassword(ctx, user.ID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInvalidCredentials):
			return httpx.Fail(http.StatusUnauthorized, httpx.CodeInvalidCredentials, "old password is incorrect")
		default:
			return err
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "password changed, all sessions revoked",
	})
}

// Session reports whether the caller is authenticated; anonymous callers get
// a 200 with authenticated=false rather than a 401.
func (h *AuthHTTP) Session(c echo.Context) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusOK, echo.Map{
			"success":       true,
			"authenticated": false,
		})
	}

	active, err := h.Svc.ActiveSessions(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"authenticated":   true,
		"user":            user,
		"active_sessions": active,
	})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return httpx.Fail(http.StatusUnauthorized, httpx.CodeNoToken, "missing access token")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    user,
	})
}
