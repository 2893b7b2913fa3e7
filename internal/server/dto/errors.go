// Package dto defines the JSON shapes of the HTTP API.
//
// Failures are reported as an APIError, which carries the HTTP status, a
// stable ErrorCode and optional details, and is rendered as an ErrorResponse.
package dto

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable kind of an API failure.
type ErrorCode string

const (
	// ErrorCodeValidationFailed is a request that fails validation.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrorCodeMissingField is a request missing a required field.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrorCodeInvalidFormat is a field or parameter that does not parse.
	ErrorCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	// ErrorCodeNotFound is an unknown row.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeNoData is an export requested with no rows.
	ErrorCodeNoData ErrorCode = "NO_DATA"
	// ErrorCodeExtractionFailed is a failed or timed out extraction.
	ErrorCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	// ErrorCodeStorageError is a mutation that could not be persisted.
	ErrorCodeStorageError ErrorCode = "STORAGE_ERROR"
	// ErrorCodeNotImplemented is a feature disabled by configuration.
	ErrorCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	// ErrorCodeInternal is anything else.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorDetails is the "error" object of an ErrorResponse.
type ErrorDetails struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// APIError is an error with the HTTP status and code it is reported with.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError returns an APIError.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{statusCode: statusCode, code: code, message: message}
}

// WithDetail sets one entry of the response details.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = map[string]any{}
	}
	e.details[key] = value
	return e
}

// Wrap records the underlying cause.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// StatusCode returns the HTTP status.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns the response details. It may be nil.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Response renders e as a response body.
func (e *APIError) Response() ErrorResponse {
	return ErrorResponse{Error: ErrorDetails{Code: e.code, Message: e.Error()}, Details: e.details}
}

// AsAPIError returns the APIError in err's chain, or a 500 INTERNAL_ERROR
// that does not leak err's text.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, "internal error")
}

// NotFound is a 404 for resource.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrorCodeNotFound, resource+" not found")
}

// MissingField is a 400 for an absent required field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeMissingField, "Missing required field: "+fieldName)
}

// InvalidField is a 400 for a field that does not parse.
func InvalidField(fieldName, reason string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeInvalidFormat, "Invalid "+fieldName+": "+reason).
		WithDetail("field", fieldName)
}

// NoData is a 409 for an export of an empty store.
func NoData() *APIError {
	return NewAPIError(http.StatusConflict, ErrorCodeNoData, "No data to export")
}

// ExtractionFailed is a 502 wrapping the extractor's error.
func ExtractionFailed(err error) *APIError {
	return NewAPIError(http.StatusBadGateway, ErrorCodeExtractionFailed, "Extraction failed").Wrap(err)
}

// NotImplemented is a 501 for a disabled feature.
func NotImplemented(feature string) *APIError {
	return NewAPIError(http.StatusNotImplemented, ErrorCodeNotImplemented, feature+" is not enabled")
}

// InternalWithError is a 500 wrapping err.
func InternalWithError(message string, err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, message).Wrap(err)
}
