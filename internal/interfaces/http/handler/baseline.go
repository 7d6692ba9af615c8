package handler

import (
	baselineapp "github.com/finanzas/backend/internal/application/baseline"
	"github.com/gin-gonic/gin"
)

// BaselineHandler handles baseline endpoints
type BaselineHandler struct {
	BaseHandler
	service *baselineapp.Service
}

// NewBaselineHandler creates a new BaselineHandler
func NewBaselineHandler(service *baselineapp.Service) *BaselineHandler {
	return &BaselineHandler{service: service}
}

// Create godoc
// @ID           createBaseline
// @Summary      Store a signed estimate as an immutable baseline
// @Description  The same Idempotency-Key with the same payload replays the stored baseline; a different payload is a conflict.
// @Tags         baselines
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                 false  "Idempotency key"
// @Param        X-Actor          header  string                 true   "Caller identity"
// @Param        request          body    CreateBaselineRequest  true   "Estimator payload"
// @Success      201  {object}  APIResponse[BaselineResponse]
// @Success      200  {object}  APIResponse[BaselineResponse]
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /baselines [post]
func (h *BaselineHandler) Create(c *gin.Context) {
	var req CreateBaselineRequest
	if !h.BindJSON(c, &req) {
		return
	}
	key, ok := idempotencyKey(c, req.IdempotencyKey)
	if !ok {
		h.BadRequest(c, "Idempotency-Key header and idempotency_key differ")
		return
	}

	res, err := h.service.Create(c.Request.Context(), baselineapp.CreateInput{
		Draft:          req.draft(),
		Actor:          getActor(c),
		IdempotencyKey: key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := toBaselineResponse(res.Baseline)
	resp.Replayed = res.Replayed
	if res.Replayed {
		c.Header(HeaderReplayed, "true")
		h.Success(c, resp)
		return
	}
	h.Created(c, resp)
}

// Get godoc
// @ID           getBaseline
// @Summary      Get a baseline
// @Tags         baselines
// @Produce      json
// @Param        id  path  string  true  "Baseline ID"
// @Success      200  {object}  APIResponse[BaselineResponse]
// @Failure      404  {object}  ErrorResponse
// @Router       /baselines/{id} [get]
func (h *BaselineHandler) Get(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBaselineResponse(b))
}

// History godoc
// @ID           listBaselineAudit
// @Summary      Audit trail of a baseline
// @Tags         baselines
// @Produce      json
// @Param        id  path  string  true  "Baseline ID"
// @Success      200  {object}  APIResponse[[]AuditEntryResponse]
// @Failure      404  {object}  ErrorResponse
// @Router       /baselines/{id}/audit [get]
func (h *BaselineHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAuditResponses(entries))
}
