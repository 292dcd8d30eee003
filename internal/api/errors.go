package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error categories.
const (
	CategoryValidationError = "VALIDATION_ERROR"
	CategoryObjectNotFound  = "OBJECT_NOT_FOUND"
	CategoryConflict        = "CONFLICT"
	CategoryBusy            = "BUSY"
	CategoryUpstream        = "UPSTREAM_ERROR"
	CategoryInternal        = "INTERNAL_ERROR"
)

// Error is the JSON error envelope returned by every endpoint.
type Error struct {
	Status        string        `json:"status"`
	Message       string        `json:"message"`
	CorrelationID string        `json:"correlationId"`
	Category      string        `json:"category"`
	SubCategory   string        `json:"subCategory,omitempty"`
	Errors        []ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail represents a single error within an Error.
type ErrorDetail struct {
	Message     string              `json:"message"`
	Code        string              `json:"code,omitempty"`
	In          string              `json:"in,omitempty"`
	Context     map[string][]string `json:"context,omitempty"`
	SubCategory string              `json:"subCategory,omitempty"`
}

func newError(category, message, correlationID string) *Error {
	return &Error{
		Status:        "error",
		Message:       message,
		CorrelationID: correlationID,
		Category:      category,
	}
}

// NewNotFoundError creates a 404 error with the OBJECT_NOT_FOUND category.
func NewNotFoundError(message, correlationID string) *Error {
	return newError(CategoryObjectNotFound, message, correlationID)
}

// NewValidationError creates a 400 error with the VALIDATION_ERROR category.
func NewValidationError(message, correlationID string, details []ErrorDetail) *Error {
	e := newError(CategoryValidationError, message, correlationID)
	e.Errors = details
	return e
}

// NewConflictError creates a 409 error with the CONFLICT category.
func NewConflictError(message, correlationID string) *Error {
	return newError(CategoryConflict, message, correlationID)
}

// NewBusyError creates a 409 error for nodes whose children are loading.
func NewBusyError(message, correlationID string) *Error {
	return newError(CategoryBusy, message, correlationID)
}

// NewUpstreamError creates a 502 error for failed fetches from the entity
// source.
func NewUpstreamError(message, correlationID string) *Error {
	return newError(CategoryUpstream, message, correlationID)
}

// NewInternalError creates a 500 error with the INTERNAL_ERROR category.
func NewInternalError(correlationID string) *Error {
	return newError(CategoryInternal, "Internal Server Error", correlationID)
}

// WriteError writes an Error as a JSON response with the given HTTP status code.
func WriteError(w http.ResponseWriter, statusCode int, apiErr *Error) {
	WriteJSON(w, statusCode, apiErr)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks v's struct tags and converts failures to error details.
// It returns nil when v is valid.
func Validate(v any) []ErrorDetail {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ErrorDetail{{Message: err.Error(), Code: "INVALID"}}
	}
	details := make([]ErrorDetail, len(verrs))
	for i, fe := range verrs {
		details[i] = ErrorDetail{
			Message: fmt.Sprintf("%s failed the %q constraint", fe.Field(), fe.Tag()),
			Code:    "INVALID_" + strings.ToUpper(fe.Tag()),
			In:      fe.Field(),
		}
	}
	return details
}
