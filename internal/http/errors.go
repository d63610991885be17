package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

// errorResponse maps an error to a status and a client-safe body.
func errorResponse(err error) (int, api.ErrorResponse) {
	var (
		verr    *api.ValidationError
		httpErr *echo.HTTPError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, api.ErrorResponse{
			Error:   "Invalid request",
			Message: verr.Error(),
			Details: []*api.ValidationError{verr},
		}
	case errors.Is(err, api.ErrInvalidRequest):
		return http.StatusBadRequest, api.ErrorResponse{Error: "Invalid request", Message: err.Error()}
	case errors.Is(err, api.ErrAssessmentNotFound):
		return http.StatusNotFound, api.ErrorResponse{Error: "Assessment not found"}
	case errors.Is(err, api.ErrStandardNotFound):
		return http.StatusNotFound, api.ErrorResponse{Error: "Standard version not found"}
	case errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound, api.ErrorResponse{Error: "Not found"}
	case errors.As(err, &httpErr):
		msg := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok {
			msg = m
		} else if httpErr.Message != nil {
			msg = fmt.Sprint(httpErr.Message)
		}
		return httpErr.Code, api.ErrorResponse{Error: http.StatusText(httpErr.Code), Message: msg}
	default:
		return http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"}
	}
}

// handleError is the echo error handler. Server errors are logged with
// their cause; clients only see the generic body.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, body)
	}
	if werr != nil {
		s.logger.Warn(c.Request().Context(), "failed to write error response", zap.Error(werr))
	}
}
