package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/asistetec/internal/logging"
)

const msgInternal = "Error interno del servidor"

// ErrorHandler renders every error returned by a handler or middleware as
// {"error": "..."}.  *echo.HTTPError keeps its status and message; anything
// else is logged and reported as a 500 without details.
func ErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := msgInternal

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			switch m := he.Message.(type) {
			case string:
				msg = m
			case error:
				msg = m.Error()
			default:
				msg = fmt.Sprint(m)
			}
			if code >= http.StatusInternalServerError && he.Internal != nil {
				log.Error(c.Request().Context(), "request failed", "path", c.Path(), "err", he.Internal)
			}
		} else {
			log.Error(c.Request().Context(), "request failed",
				"method", c.Request().Method, "path", c.Path(), "err", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, echo.Map{"error": msg})
		}
		if err != nil {
			log.Error(c.Request().Context(), "write error response", "err", err)
		}
	}
}
