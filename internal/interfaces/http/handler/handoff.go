package handler

import (
	"strings"

	handoffapp "github.com/finanzas/backend/internal/application/handoff"
	"github.com/finanzas/backend/internal/domain/project"
	"github.com/finanzas/backend/internal/domain/shared/valueobject"
	"github.com/finanzas/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// HeaderReplayed marks a response answered from an idempotency record
const HeaderReplayed = "Idempotent-Replayed"

// HandoffHandler handles baseline handoff endpoints
type HandoffHandler struct {
	BaseHandler
	service *handoffapp.Service
}

// NewHandoffHandler creates a new HandoffHandler
func NewHandoffHandler(service *handoffapp.Service) *HandoffHandler {
	return &HandoffHandler{service: service}
}

// HandoffRequest is the body of a baseline handoff
// @Description Hands a signed baseline off to a project
type HandoffRequest struct {
	BaselineID     string           `json:"baseline_id" binding:"required,max=64" example:"base_8f2c51d0a4e9b7c3d1f0"`
	IdempotencyKey string           `json:"idempotency_key" binding:"max=200" example:"K1"`
	ModTotal       *decimal.Decimal `json:"mod_total" swaggertype:"string" example:"12000"`
	PctIngenieros  *decimal.Decimal `json:"pct_ingenieros" swaggertype:"string" example:"80"`
	PctSDM         *decimal.Decimal `json:"pct_sdm" swaggertype:"string" example:"20"`
	ProjectName    string           `json:"project_name" binding:"max=200" example:"Mesa de servicio Bancolombia"`
	ClientName     string           `json:"client_name" binding:"max=200" example:"Bancolombia"`
	Code           string           `json:"code" binding:"max=50" example:"PRJ-2025-014"`
	OwnerName      string           `json:"owner_name" binding:"max=200" example:"Ana Gomez"`
	Currency       string           `json:"currency" binding:"omitempty,currency" example:"USD"`
}

// HandoffResponse is the committed handoff tuple
// @Description Identifiers of the committed handoff
type HandoffResponse struct {
	HandoffID  string `json:"handoff_id" example:"ho_6b1f0c2d9e8a7f6b5c4d3e2f1a0b9c8d"`
	ProjectID  string `json:"project_id" example:"P-5F3A9C0B12D4E6F7"`
	BaselineID string `json:"baseline_id" example:"base_8f2c51d0a4e9b7c3d1f0"`
	Replayed   bool   `json:"replayed" example:"false"`
}

func (r HandoffRequest) terms() project.HandoffTerms {
	t := project.HandoffTerms{
		PctIngenieros: r.PctIngenieros,
		PctSDM:        r.PctSDM,
		ProjectName:   strings.TrimSpace(r.ProjectName),
		ClientName:    strings.TrimSpace(r.ClientName),
		Code:          strings.TrimSpace(r.Code),
		OwnerName:     strings.TrimSpace(r.OwnerName),
	}
	if r.ModTotal != nil {
		t.ModTotal = *r.ModTotal
	}
	if r.Currency != "" {
		// binding already rejected unknown codes
		t.Currency, _ = valueobject.ParseCurrency(r.Currency)
	}
	return t
}

// idempotencyKey prefers the header. A body key that disagrees with the
// header is a client bug.
func idempotencyKey(c *gin.Context, body string) (string, bool) {
	header := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	body = strings.TrimSpace(body)
	if header != "" && body != "" && header != body {
		return "", false
	}
	if header != "" {
		return header, true
	}
	return body, true
}

// Handoff godoc
// @ID           handoffBaseline
// @Summary      Hand a baseline off to a project
// @Description  Resolves the project for the baseline, creating it when needed, and records the handoff. Retries with the same idempotency key replay the first answer.
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        id               path    string          true   "Project ID"
// @Param        Idempotency-Key  header  string          false  "Idempotency key"
// @Param        X-Actor          header  string          true   "Caller identity"
// @Param        request          body    HandoffRequest  true   "Handoff request"
// @Success      201  {object}  APIResponse[HandoffResponse]
// @Success      200  {object}  APIResponse[HandoffResponse]
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /projects/{id}/handoff [post]
func (h *HandoffHandler) Handoff(c *gin.Context) {
	var req HandoffRequest
	if !h.BindJSON(c, &req) {
		return
	}
	key, ok := idempotencyKey(c, req.IdempotencyKey)
	if !ok {
		h.BadRequest(c, "Idempotency-Key header and idempotency_key differ")
		return
	}

	out, err := h.service.CreateOrUpdateHandoff(c.Request.Context(), handoffapp.Request{
		BaselineID:     req.BaselineID,
		ProjectID:      c.Param("id"),
		Terms:          req.terms(),
		IdempotencyKey: key,
		Actor:          getActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := HandoffResponse{
		HandoffID:  out.HandoffID,
		ProjectID:  out.ProjectID,
		BaselineID: out.BaselineID,
		Replayed:   out.Replayed,
	}
	if out.Replayed {
		c.Header(HeaderReplayed, "true")
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}
