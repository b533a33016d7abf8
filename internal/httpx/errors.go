package httpx

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/denteo/clinic-auth/pkg/logging"
)

// Machine-readable reason codes returned alongside 401/403 responses.
const (
	CodeNoToken               = "NoToken"
	CodeInvalidToken          = "InvalidToken"
	CodeTokenExpired          = "TokenExpired"
	CodeAccountInactive       = "AccountInactive"
	CodeInvalidOrExpiredToken = "InvalidOrExpiredToken"
	CodeInvalidCredentials    = "InvalidCredentials"
	CodeMissingToken          = "MissingToken"
	CodeForbidden             = "Forbidden"
)

// APIError travels inside echo.HTTPError.Message so the central error handler
// can render the envelope without re-deriving the reason.
type APIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func Fail(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, APIError{Code: code, Message: message})
}

// ErrorHandler renders every rejection as {"success":false,"message":...},
// never a raw stack trace or store error.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	apiErr := APIError{Message: "internal server error"}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch m := he.Message.(type) {
		case APIError:
			apiErr = m
		case string:
			apiErr = APIError{Message: m}
		default:
			apiErr = APIError{Message: http.StatusText(status)}
		}
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("request_failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", status,
			"error", err,
		)
		// Internals stay server-side.
		apiErr = APIError{Message: "internal server error"}
	}

	_ = c.JSON(status, echo.Map{
		"success": false,
		"message": apiErr.Message,
		"code":    apiErr.Code,
	})
}
