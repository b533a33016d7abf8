package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/denteo/clinic-auth/internal/middleware"
	"github.com/denteo/clinic-auth/internal/models"
)

type Deps struct {
	AuthHandler  *AuthHTTP
	AuditHandler *AuditHTTP
	Auth         *middleware.Authenticator
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/auth/register", d.AuthHandler.Register)
	e.POST("/auth/login", d.AuthHandler.Login)
	e.POST("/auth/refresh", d.AuthHandler.Refresh)
	e.POST("/auth/logout", d.AuthHandler.Logout)
	e.GET("/auth/session", d.AuthHandler.Session, d.Auth.OptionalAuth)

	private := e.Group("")
	private.Use(d.Auth.RequireAuth)

	private.POST("/auth/logout-all", d.AuthHandler.LogoutAll)
	private.POST("/auth/change-password", d.AuthHandler.ChangePassword)
	private.GET("/auth/me", d.AuthHandler.Me)

	admin := e.Group("/admin")
	admin.Use(d.Auth.RequireAuth, middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/audit", d.AuditHandler.Search)
}
