package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/weedkat/trash-separator/controller"
)

// APIError is the JSON body of every failed request
type APIError struct {
	Status    int    `json:"-"`
	RequestID string `json:"id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

func newNotFoundError(resource, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// fromControllerError maps the result of a controller call to a response
func fromControllerError(err error) *APIError {
	apiErr := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: err.Error(),
	}

	var ctrlErr *controller.Error
	if errors.As(err, &ctrlErr) {
		apiErr.Code = string(ctrlErr.Kind)
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		apiErr.Status = http.StatusGatewayTimeout
		apiErr.Code = "CANCELLED"
	case errors.Is(err, controller.ErrUnknownCategory):
		apiErr.Status = http.StatusNotFound
	case errors.Is(err, controller.ErrBusy):
		apiErr.Status = http.StatusConflict
	case errors.Is(err, controller.ErrFaulted), errors.Is(err, controller.ErrClosed):
		apiErr.Status = http.StatusServiceUnavailable
	}

	return apiErr
}

// errorHandler renders every error returned by a handler as an APIError
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = fromControllerError(err)
	}

	apiErr.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)

	err = c.JSON(apiErr.Status, apiErr)
	if err != nil {
		c.Logger().Error(err)
	}
}
