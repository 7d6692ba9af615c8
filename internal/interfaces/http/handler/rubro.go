package handler

import (
	"strings"
	"time"

	projectapp "github.com/finanzas/backend/internal/application/project"
	rubroapp "github.com/finanzas/backend/internal/application/rubro"
	"github.com/finanzas/backend/internal/domain/rubro"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// RubroHandler handles rubro materialization and read endpoints
type RubroHandler struct {
	BaseHandler
	materializer *rubroapp.Materializer
	queries      *rubroapp.QueryService
	projects     *projectapp.Service
}

// NewRubroHandler creates a new RubroHandler
func NewRubroHandler(m *rubroapp.Materializer, q *rubroapp.QueryService, projects *projectapp.Service) *RubroHandler {
	return &RubroHandler{materializer: m, queries: q, projects: projects}
}

// MaterializeRequest selects the baseline to expand. An empty id means the
// project's current baseline.
type MaterializeRequest struct {
	BaselineID string `json:"baseline_id" binding:"max=64" example:"base_8f2c51d0a4e9b7c3d1f0"`
}

// RubroMetadata ties a rubro to the baseline it came from
type RubroMetadata struct {
	BaselineID     string    `json:"baselineId"`
	MaterializedAt time.Time `json:"materializedAt"`
}

// RubroResponse is one materialized budget row
// @Description Budget line item mapped to the rubro taxonomy
type RubroResponse struct {
	LineItemID  string        `json:"line_item_id"`
	RubroID     string        `json:"rubro_id" example:"MOD-ING"`
	LineType    string        `json:"line_type" example:"labor"`
	Category    string        `json:"category"`
	Description string        `json:"description,omitempty"`
	Quantity    string        `json:"quantity" example:"1"`
	UnitCost    string        `json:"unit_cost" example:"1000"`
	Currency    string        `json:"currency" example:"USD"`
	Recurring   bool          `json:"recurring"`
	StartPeriod int           `json:"start_period" example:"1"`
	EndPeriod   int           `json:"end_period" example:"12"`
	TotalCost   string        `json:"total_cost" example:"12000"`
	Metadata    RubroMetadata `json:"metadata"`
	ProjectID   string        `json:"project_id"`
	Unmapped    bool          `json:"unmapped,omitempty"`
}

func toRubroResponses(rows []rubro.Rubro) []RubroResponse {
	out := make([]RubroResponse, len(rows))
	for i, r := range rows {
		out[i] = RubroResponse{
			LineItemID:  r.LineItemID,
			RubroID:     r.TaxonomyCode,
			LineType:    string(r.LineKind),
			Category:    r.Category,
			Description: r.Description,
			Quantity:    r.Quantity.String(),
			UnitCost:    r.UnitCost.String(),
			Currency:    string(r.Currency),
			Recurring:   r.Recurring,
			StartPeriod: r.StartPeriod,
			EndPeriod:   r.EndPeriod,
			TotalCost:   r.TotalCost.StringFixed(2),
			Metadata:    RubroMetadata{BaselineID: r.BaselineID, MaterializedAt: r.MaterializedAt},
			ProjectID:   r.ProjectID,
			Unmapped:    !r.IsMapped(),
		}
	}
	return out
}

// Materialize godoc
// @ID           materializeProjectRubros
// @Summary      Expand a baseline into the project's rubros
// @Description  Keyed upserts; running it again rewrites the same rows. Lines without a taxonomy match are written as UNMAPPED and reported as warnings.
// @Tags         rubros
// @Accept       json
// @Produce      json
// @Param        id       path    string              true   "Project ID"
// @Param        request  body    MaterializeRequest  false  "Baseline selection"
// @Success      200  {object}  APIResponse[rubroapp.Result]
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /projects/{id}/materialize-rubros [post]
func (h *RubroHandler) Materialize(c *gin.Context) {
	var req MaterializeRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	projectID := c.Param("id")
	baselineID := strings.TrimSpace(req.BaselineID)
	if baselineID == "" {
		p, err := h.projects.Get(c.Request.Context(), projectID)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		if !p.HasBaseline() {
			h.HandleError(c, shared.NewInvalidStateError("project %s has no baseline to materialize", p.ID))
			return
		}
		baselineID = p.BaselineID
	}

	res, err := h.materializer.MaterializeFromBaseline(c.Request.Context(), projectID, baselineID, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// List godoc
// @ID           listProjectRubros
// @Summary      List the project's rubros
// @Tags         rubros
// @Produce      json
// @Param        id           path   string  true   "Project ID"
// @Param        baseline_id  query  string  false  "Only rows from this baseline"
// @Success      200  {object}  APIResponse[[]RubroResponse]
// @Failure      404  {object}  ErrorResponse
// @Router       /projects/{id}/rubros [get]
func (h *RubroHandler) List(c *gin.Context) {
	rows, err := h.queries.List(c.Request.Context(), c.Param("id"), c.Query("baseline_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toRubroResponses(rows))
}

// Summary godoc
// @ID           summarizeProjectRubros
// @Summary      Totals per rubro code and currency
// @Tags         rubros
// @Produce      json
// @Param        id           path   string  true   "Project ID"
// @Param        baseline_id  query  string  false  "Only rows from this baseline"
// @Success      200  {object}  APIResponse[rubroapp.Summary]
// @Failure      404  {object}  ErrorResponse
// @Router       /projects/{id}/rubros/summary [get]
func (h *RubroHandler) Summary(c *gin.Context) {
	s, err := h.queries.Summarize(c.Request.Context(), c.Param("id"), c.Query("baseline_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}
