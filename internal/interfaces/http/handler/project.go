package handler

import (
	"context"

	projectapp "github.com/finanzas/backend/internal/application/project"
	"github.com/finanzas/backend/internal/domain/project"
	"github.com/finanzas/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ProjectHandler handles project endpoints
type ProjectHandler struct {
	BaseHandler
	service *projectapp.Service
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(service *projectapp.Service) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// Create godoc
// @ID           createProject
// @Summary      Create a pending project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        X-Actor  header  string                true  "Caller identity"
// @Param        request  body    CreateProjectRequest  true  "Project creation request"
// @Success      201  {object}  APIResponse[ProjectResponse]
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var req CreateProjectRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := h.service.Create(c.Request.Context(), projectapp.CreateInput{
		ProjectID: req.ProjectID,
		Name:      req.Name,
		Code:      req.Code,
		Client:    req.Client,
		OwnerName: req.OwnerName,
		Actor:     getActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toProjectResponse(p))
}

// List godoc
// @ID           listProjects
// @Summary      List projects
// @Tags         projects
// @Produce      json
// @Param        page       query  int  false  "Page number"  default(1)
// @Param        page_size  query  int  false  "Page size"    default(20)
// @Success      200  {object}  APIResponse[[]ProjectResponse]
// @Router       /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}
	req.Normalize()

	projects, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	start, end := req.Bounds(len(projects))
	h.SuccessWithMeta(c, toProjectResponses(projects[start:end]), int64(len(projects)), req.Page, req.PageSize)
}

// Get godoc
// @ID           getProject
// @Summary      Get a project
// @Tags         projects
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  APIResponse[ProjectResponse]
// @Failure      404  {object}  ErrorResponse
// @Router       /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProjectResponse(p))
}

// Handoffs godoc
// @ID           listProjectHandoffs
// @Summary      List the handoffs recorded for a project
// @Tags         projects
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  APIResponse[[]HandoffRecordResponse]
// @Failure      404  {object}  ErrorResponse
// @Router       /projects/{id}/handoffs [get]
func (h *ProjectHandler) Handoffs(c *gin.Context) {
	hs, err := h.service.Handoffs(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toHandoffRecords(hs))
}

// History godoc
// @ID           listProjectAudit
// @Summary      Audit trail of a project
// @Tags         projects
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  APIResponse[[]AuditEntryResponse]
// @Failure      404  {object}  ErrorResponse
// @Router       /projects/{id}/audit [get]
func (h *ProjectHandler) History(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toAuditResponses(entries))
}

// AcceptBaseline godoc
// @ID           acceptProjectBaseline
// @Summary      Accept the project's handed-off baseline
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        id       path    string                   true  "Project ID"
// @Param        X-Actor  header  string                   true  "Caller identity"
// @Param        request  body    BaselineDecisionRequest  true  "Decision"
// @Success      200  {object}  APIResponse[ProjectResponse]
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /projects/{id}/accept-baseline [patch]
func (h *ProjectHandler) AcceptBaseline(c *gin.Context) {
	h.decide(c, h.service.AcceptBaseline)
}

// RejectBaseline godoc
// @ID           rejectProjectBaseline
// @Summary      Reject the project's handed-off baseline
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        id       path    string                   true  "Project ID"
// @Param        X-Actor  header  string                   true  "Caller identity"
// @Param        request  body    BaselineDecisionRequest  true  "Decision"
// @Success      200  {object}  APIResponse[ProjectResponse]
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /projects/{id}/reject-baseline [patch]
func (h *ProjectHandler) RejectBaseline(c *gin.Context) {
	h.decide(c, h.service.RejectBaseline)
}

func (h *ProjectHandler) decide(c *gin.Context, apply func(ctx context.Context, in projectapp.DecisionInput) (*project.Project, error)) {
	var req BaselineDecisionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p, err := apply(c.Request.Context(), projectapp.DecisionInput{
		ProjectID:  c.Param("id"),
		BaselineID: req.BaselineID,
		Comment:    req.Comment,
		Actor:      getActor(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toProjectResponse(p))
}
