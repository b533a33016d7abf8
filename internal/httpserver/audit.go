package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/denteo/clinic-auth/internal/audit"
	"github.com/denteo/clinic-auth/pkg/logging"
)

type AuditHTTP struct {
	Trail *audit.Trail
}

func (h *AuditHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "audit_search")

	query := c.QueryParam("q")
	from := queryInt(c, "from", 0)
	size := queryInt(c, "size", 20)
	if size > 100 {
		size = 100
	}

	total, hits, err := h.Trail.Search(ctx, query, from, size)
	if err != nil {
		l.Error("audit_search_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "audit search failed")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"total":   total,
		"events":  hits,
	})
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
