package server

import (
	"net/http"

	"flotilla/internal/errors"
	"flotilla/internal/logger"

	"github.com/labstack/echo/v4"
)

// ErrorHandler is the custom echo error handler. Structured flotilla errors
// map to their HTTP status; everything else is a 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var body interface{} = ErrorResponse{Error: "Internal server error"}

	switch e := err.(type) {
	case *echo.HTTPError:
		code = e.Code
		if msg, ok := e.Message.(string); ok {
			body = ErrorResponse{Error: msg}
		} else {
			body = e.Message
		}
	case *errors.FlotillaError:
		code = e.GetHTTPStatus()
		body = errors.HTTPErrorResponse{
			Error: errors.ErrorInfo{Code: e.Code, Message: e.Message, Details: e.Details},
		}
	}

	logger.GetLogger(c).WithError(err).WithFields(logger.Fields{
		"method": c.Request().Method,
		"path":   c.Request().URL.Path,
		"status": code,
	}).Warn("Request failed")

	if c.Request().Method == http.MethodHead {
		c.NoContent(code)
		return
	}
	c.JSON(code, body)
}
