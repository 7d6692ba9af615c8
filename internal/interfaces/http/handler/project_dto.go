package handler

import (
	"time"

	"github.com/finanzas/backend/internal/domain/audit"
	"github.com/finanzas/backend/internal/domain/project"
)

// CreateProjectRequest represents a request to create a pending project
// @Description Request body for creating a project before any handoff
type CreateProjectRequest struct {
	ProjectID string `json:"project_id" binding:"max=64" example:"P-5F3A9C0B12D4E6F7"`
	Name      string `json:"name" binding:"required,min=1,max=200" example:"Mesa de servicio Bancolombia"`
	Code      string `json:"code" binding:"max=50" example:"PRJ-2025-014"`
	Client    string `json:"client" binding:"max=200" example:"Bancolombia"`
	OwnerName string `json:"owner_name" binding:"max=200" example:"Ana Gomez"`
}

// BaselineDecisionRequest accepts or rejects the project's current baseline
// @Description Human decision on a handed-off baseline
type BaselineDecisionRequest struct {
	BaselineID string `json:"baseline_id" binding:"required,max=64" example:"base_8f2c51d0a4e9b7c3d1f0"`
	Comment    string `json:"comment" binding:"max=1000" example:"Aprobado por SDM"`
}

// DecisionResponse is the recorded accept/reject action
type DecisionResponse struct {
	Status     string    `json:"status" example:"accepted"`
	BaselineID string    `json:"baseline_id"`
	By         string    `json:"by"`
	At         time.Time `json:"at"`
	Comment    string    `json:"comment,omitempty"`
}

// ProjectResponse represents a project in API responses
// @Description Project with its baseline handoff state
type ProjectResponse struct {
	ID             string            `json:"project_id" example:"P-5F3A9C0B12D4E6F7"`
	Name           string            `json:"name"`
	Code           string            `json:"code,omitempty"`
	Client         string            `json:"client,omitempty"`
	BaselineID     string            `json:"baseline_id,omitempty"`
	BaselineStatus string            `json:"baseline_status" example:"handed_off"`
	CreatedBy      string            `json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
	OwnerName      string            `json:"owner_name,omitempty"`
	HandedOffBy    string            `json:"handed_off_by,omitempty"`
	HandedOffAt    *time.Time        `json:"handed_off_at,omitempty"`
	Decision       *DecisionResponse `json:"decision,omitempty"`
	Version        int               `json:"version"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// HandoffRecordResponse is one entry of a project's handoff history
type HandoffRecordResponse struct {
	HandoffID  string               `json:"handoff_id"`
	BaselineID string               `json:"baseline_id"`
	Terms      project.HandoffTerms `json:"terms"`
	Actor      string               `json:"actor"`
	CreatedAt  time.Time            `json:"created_at"`
}

// AuditEntryResponse is one audit trail entry
type AuditEntryResponse struct {
	ID         string         `json:"audit_id"`
	EntityType string         `json:"entity_type" example:"project"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action" example:"handoff"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	Actor      string         `json:"actor"`
	Timestamp  time.Time      `json:"timestamp"`
}

func toProjectResponse(p *project.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:             p.ID,
		Name:           p.Name,
		Code:           p.Code,
		Client:         p.Client,
		BaselineID:     p.BaselineID,
		BaselineStatus: string(p.BaselineStatus),
		CreatedBy:      p.CreatedBy,
		CreatedAt:      p.CreatedAt,
		OwnerName:      p.OwnerName,
		HandedOffBy:    p.HandedOffBy,
		HandedOffAt:    p.HandedOffAt,
		Version:        p.Version,
		UpdatedAt:      p.UpdatedAt,
	}
	if d := p.Decision; d != nil {
		resp.Decision = &DecisionResponse{
			Status:     string(d.Status),
			BaselineID: d.BaselineID,
			By:         d.By,
			At:         d.At,
			Comment:    d.Comment,
		}
	}
	return resp
}

func toProjectResponses(ps []*project.Project) []ProjectResponse {
	out := make([]ProjectResponse, len(ps))
	for i, p := range ps {
		out[i] = toProjectResponse(p)
	}
	return out
}

func toHandoffRecords(hs []project.Handoff) []HandoffRecordResponse {
	out := make([]HandoffRecordResponse, len(hs))
	for i, h := range hs {
		out[i] = HandoffRecordResponse{
			HandoffID:  h.ID,
			BaselineID: h.BaselineID,
			Terms:      h.Terms,
			Actor:      h.Actor,
			CreatedAt:  h.CreatedAt,
		}
	}
	return out
}

func toAuditResponses(entries []audit.Entry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryResponse{
			ID:         e.ID,
			EntityType: string(e.EntityType),
			EntityID:   e.EntityID,
			Action:     string(e.Action),
			Before:     e.Before,
			After:      e.After,
			Actor:      e.Actor,
			Timestamp:  e.Timestamp,
		}
	}
	return out
}
