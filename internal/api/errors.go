package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gigfinder/gigfinder/internal/catalog"
	"github.com/gigfinder/gigfinder/internal/logger"
	"github.com/gigfinder/gigfinder/internal/storage"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message  string   `json:"message"`
	Problems []string `json:"problems,omitempty"`
}

// ErrorHandler maps errors to status codes. Domain sentinels are checked
// before echo's own errors; anything else is a 500 with a generic message.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	resp := ErrorResponse{Message: http.StatusText(code)}

	var verr *catalog.ValidationError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &verr):
		code = http.StatusUnprocessableEntity
		resp = ErrorResponse{Message: catalog.ErrValidation.Error(), Problems: verr.Problems}
	case errors.Is(err, storage.ErrNotFound):
		code = http.StatusNotFound
		resp.Message = "not found"
	case errors.As(err, &he):
		code = he.Code
		resp.Message = http.StatusText(code)
		if m, ok := he.Message.(string); ok {
			resp.Message = m
		}
	default:
		logger.Error("Request failed", logger.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}, err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, resp)
}
