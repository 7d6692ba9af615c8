package handler

import "github.com/finanzas/backend/internal/interfaces/http/dto"

// Documentation shapes of dto.Response. Handlers write dto.Response; these
// only give the generated OpenAPI document typed payloads.

// APIResponse is a successful envelope carrying T
// @Description Success envelope; meta is present on paginated lists
type APIResponse[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    T         `json:"data"`
	Meta    *dto.Meta `json:"meta,omitempty"`
}

// ErrorResponse is a failed envelope
// @Description Failure envelope; error.code is a domain code such as IDEMPOTENCY_CONFLICT or a transport code such as INVALID_JSON
type ErrorResponse struct {
	Success bool          `json:"success" example:"false"`
	Error   dto.ErrorInfo `json:"error"`
}
