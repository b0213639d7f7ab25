// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/coastal-clean/siteplanner/internal/catalog"
	"github.com/coastal-clean/siteplanner/internal/export"
	"github.com/coastal-clean/siteplanner/internal/planner"
	"github.com/labstack/echo/v4"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
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

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewPayloadTooLargeError creates a 413 error for oversized uploads
func NewPayloadTooLargeError(message string) *APIError {
	return &APIError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    "PAYLOAD_TOO_LARGE",
		Message: message,
	}
}

// NewExportFailedError creates a 422 error when an export cannot be produced
func NewExportFailedError(cause error) *APIError {
	err := &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "EXPORT_FAILED",
		Message: "export failed, nothing was produced",
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewConfirmationRequiredError creates a 428 error for destructive actions
// sent without explicit confirmation
func NewConfirmationRequiredError(action string) *APIError {
	return &APIError{
		Status:  http.StatusPreconditionRequired,
		Code:    "CONFIRMATION_REQUIRED",
		Message: fmt.Sprintf("%s requires confirmation (confirm=true)", action),
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError

	switch e := err.(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
		// In development, include error details
		if isDevelopment() {
			apiErr.Details = err.Error()
		}
	}

	// Send JSON response
	if !c.Response().Committed {
		c.JSON(apiErr.Status, apiErr)
	}
}

// isDevelopment reports whether error details may be exposed to clients
func isDevelopment() bool {
	return os.Getenv("SITEPLANNER_ENV") != "production"
}

// fromDomainError maps planner, catalog and export errors to API errors.
// subject names the entity the request addressed, e.g. a unit id.
func fromDomainError(err error, subject string) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, planner.ErrUnitNotFound):
		return NewNotFoundError("unit", subject)
	case errors.Is(err, planner.ErrInvalidWorkspace):
		return NewBadRequestError("invalid workspace id", err)
	case errors.Is(err, planner.ErrInvalidMode):
		return NewValidationError("mode")
	case errors.Is(err, planner.ErrConfirmationRequired):
		return NewConfirmationRequiredError(subject)
	case errors.Is(err, catalog.ErrUnknownArchetype):
		return NewBadRequestError("unknown archetype", err)
	case errors.Is(err, export.ErrImageDecode), errors.Is(err, export.ErrCanvasUnavailable):
		return NewExportFailedError(err)
	default:
		return NewInternalError("unexpected error", err)
	}
}
