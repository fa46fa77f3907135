package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/boilagbe-backend/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// serviceError maps a service error onto the HTTP error envelope.
func serviceError(c echo.Context, err error, notFound, failed string) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", ve.Error()))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", notFound))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not allowed"))
	default:
		c.Logger().Errorf("%s: %v", failed, err)
		return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", failed))
	}
}

// actor returns the verified uid set by the auth middleware, or "" when auth is disabled.
func actor(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}
