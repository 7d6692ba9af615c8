package dto

import (
	"errors"
	"net/http"

	"github.com/finanzas/backend/internal/domain/shared"
)

// Domain error codes travel unchanged to clients. The codes below exist
// only at the HTTP boundary.
const (
	ErrCodeValidation      = shared.CodeValidation
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeNotFound        = "ROUTE_NOT_FOUND"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// malformed payloads are unprocessable; unparseable ones are bad requests
	shared.CodeValidation: http.StatusUnprocessableEntity,
	ErrCodeBadRequest:     http.StatusBadRequest,
	ErrCodeInvalidJSON:    http.StatusBadRequest,

	shared.CodeNotFound: http.StatusNotFound,
	ErrCodeNotFound:     http.StatusNotFound,

	shared.CodeAlreadyExists:       http.StatusConflict,
	shared.CodeConflict:            http.StatusConflict,
	shared.CodeIdempotencyConflict: http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeInvalidState:        http.StatusConflict,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	shared.CodeTransient: http.StatusServiceUnavailable,
	ErrCodeInternal:      http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError renders err as a status and error envelope. Errors that are not
// DomainErrors, and transient failures, never expose their text.
func FromError(err error, requestID string) (int, Response) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError,
			NewErrorResponseWithRequestID(ErrCodeInternal, "An unexpected error occurred", requestID)
	}
	message := de.Message
	if de.Code == shared.CodeTransient {
		message = "Storage temporarily unavailable, retry the request"
	}
	resp := NewErrorResponseWithRequestID(de.Code, message, requestID)
	if len(de.Details) > 0 {
		resp.Error.Details = de.Details
	}
	return GetHTTPStatus(de.Code), resp
}
