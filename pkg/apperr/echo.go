package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

// Body is the JSON shape of every error response.
type Body struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// HTTPErrorHandler renders *Error, *echo.HTTPError and anything else as Body.
// Unknown errors become a generic 500 and are logged with their cause.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := render(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "status", status, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}

func render(err error) (int, Body) {
	if e, ok := As(err); ok {
		return e.Status, Body{Message: e.Message, Code: e.Code}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		case nil:
		default:
			msg = fmt.Sprint(m)
		}
		if he.Code >= http.StatusInternalServerError {
			msg = "Internal server error"
		}
		return he.Code, Body{Message: msg}
	}

	return http.StatusInternalServerError, Body{Message: "Internal server error"}
}
