package persistence

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/finanzas/backend/internal/domain/project"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/store"
)

type projectDoc struct {
	ProjectID      string            `json:"project_id"`
	BaselineID     string            `json:"baseline_id,omitempty"`
	BaselineStatus string            `json:"baseline_status"`
	CreatedBy      string            `json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
	OwnerName      string            `json:"owner_name,omitempty"`
	Name           string            `json:"name,omitempty"`
	Code           string            `json:"code,omitempty"`
	Client         string            `json:"client,omitempty"`
	HandedOffBy    string            `json:"handed_off_by,omitempty"`
	HandedOffAt    *time.Time        `json:"handed_off_at,omitempty"`
	Decision       *project.Decision `json:"decision,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type baselineIndexDoc struct {
	BaselineID string    `json:"baseline_id"`
	ProjectID  string    `json:"project_id"`
	IndexedAt  time.Time `json:"indexed_at"`
}

type projectLinkDoc struct {
	ProjectID  string    `json:"project_id"`
	BaselineID string    `json:"baseline_id"`
	LinkedAt   time.Time `json:"linked_at"`
}

// StoreProjectRepository implements project.Repository on the entity store
type StoreProjectRepository struct {
	store store.EntityStore
}

// NewStoreProjectRepository creates a project repository
func NewStoreProjectRepository(s store.EntityStore) *StoreProjectRepository {
	return &StoreProjectRepository{store: s}
}

var _ project.Repository = (*StoreProjectRepository)(nil)

func (r *StoreProjectRepository) FindByID(ctx context.Context, id string) (*project.Project, error) {
	item, err := r.store.Get(ctx, store.ProjectPK(id), store.SKMetadata)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("project", id)
		}
		return nil, err
	}
	return decodeProject(*item)
}

func (r *StoreProjectRepository) FindByBaseline(ctx context.Context, baselineID string) (*project.Project, error) {
	item, err := r.store.Get(ctx, store.BaselinePK(baselineID), store.SKBaselineIndex)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("baseline index", baselineID)
		}
		return nil, err
	}
	var idx baselineIndexDoc
	if err := item.Decode(&idx); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, idx.ProjectID)
}

func (r *StoreProjectRepository) Create(ctx context.Context, p *project.Project) error {
	if p.Version == 0 {
		p.Version = 1
	}
	metadata, err := projectItem(p)
	if err != nil {
		return err
	}
	puts := []store.Put{{Item: metadata, Condition: store.IfNotExists()}}
	if p.HasBaseline() {
		links, err := baselineLinkPuts(p)
		if err != nil {
			return err
		}
		puts = append(puts, links...)
	}
	err = r.store.TransactPut(ctx, puts...)
	if err == nil || !p.HasBaseline() || !errors.Is(err, store.ErrConditionFailed) {
		return err
	}
	// the index insert loses the same way on every retry
	if owner, oerr := r.indexOwner(ctx, p.BaselineID); oerr == nil && owner != "" && owner != p.ID {
		return baselineClaimed(owner, p.BaselineID)
	}
	return err
}

func (r *StoreProjectRepository) Update(ctx context.Context, p *project.Project, expectedVersion int) error {
	next := p.Clone()
	next.Version = expectedVersion + 1
	metadata, err := projectItem(next)
	if err != nil {
		return err
	}
	puts := []store.Put{{Item: metadata, Condition: store.IfVersion(expectedVersion)}}

	if p.HasBaseline() {
		claimed, err := r.indexOwner(ctx, p.BaselineID)
		if err != nil {
			return err
		}
		switch claimed {
		case "":
			links, err := baselineLinkPuts(next)
			if err != nil {
				return err
			}
			puts = append(puts, links...)
		case p.ID:
		default:
			return baselineClaimed(claimed, p.BaselineID)
		}
	}

	if err := r.store.TransactPut(ctx, puts...); err != nil {
		return err
	}
	p.Version = next.Version
	return nil
}

func (r *StoreProjectRepository) List(ctx context.Context) ([]*project.Project, error) {
	var out []*project.Project
	err := r.store.Scan(ctx, store.KindProject, func(item store.Item) error {
		p, err := decodeProject(item)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// indexOwner returns the project currently indexed for baselineID, or ""
func (r *StoreProjectRepository) indexOwner(ctx context.Context, baselineID string) (string, error) {
	item, err := r.store.Get(ctx, store.BaselinePK(baselineID), store.SKBaselineIndex)
	if err != nil {
		if shared.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	var idx baselineIndexDoc
	if err := item.Decode(&idx); err != nil {
		return "", err
	}
	return idx.ProjectID, nil
}

// baselineClaimed is the conflict for a baseline indexed to holderID
func baselineClaimed(holderID, baselineID string) error {
	return shared.NewConflictError("baseline is already handed off to another project", project.HandoffResult{
		ProjectID:  holderID,
		BaselineID: baselineID,
	})
}

// baselineLinkPuts builds the baseline index (insert-if-absent) and the
// project→baseline link record for p.
func baselineLinkPuts(p *project.Project) ([]store.Put, error) {
	at := p.UpdatedAt
	index, err := store.NewItem(store.BaselinePK(p.BaselineID), store.SKBaselineIndex, store.KindBaselineIndex,
		baselineIndexDoc{BaselineID: p.BaselineID, ProjectID: p.ID, IndexedAt: at})
	if err != nil {
		return nil, err
	}
	index.ProjectID, index.BaselineID = p.ID, p.BaselineID

	link, err := store.NewItem(store.ProjectPK(p.ID), store.LinkSK(p.BaselineID), store.KindProjectLink,
		projectLinkDoc{ProjectID: p.ID, BaselineID: p.BaselineID, LinkedAt: at})
	if err != nil {
		return nil, err
	}
	link.ProjectID, link.BaselineID = p.ID, p.BaselineID

	return []store.Put{
		{Item: index, Condition: store.IfNotExists()},
		{Item: link},
	}, nil
}

func projectItem(p *project.Project) (store.Item, error) {
	item, err := store.NewItem(store.ProjectPK(p.ID), store.SKMetadata, store.KindProject, projectDoc{
		ProjectID:      p.ID,
		BaselineID:     p.BaselineID,
		BaselineStatus: string(p.BaselineStatus),
		CreatedBy:      p.CreatedBy,
		CreatedAt:      p.CreatedAt,
		OwnerName:      p.OwnerName,
		Name:           p.Name,
		Code:           p.Code,
		Client:         p.Client,
		HandedOffBy:    p.HandedOffBy,
		HandedOffAt:    p.HandedOffAt,
		Decision:       p.Decision,
		UpdatedAt:      p.UpdatedAt,
	})
	if err != nil {
		return store.Item{}, err
	}
	item.ProjectID = p.ID
	item.BaselineID = p.BaselineID
	item.Version = p.Version
	return item, nil
}

func decodeProject(item store.Item) (*project.Project, error) {
	var doc projectDoc
	if err := item.Decode(&doc); err != nil {
		return nil, err
	}
	return &project.Project{
		Versioned:      shared.Versioned{Version: item.Version},
		ID:             doc.ProjectID,
		BaselineID:     doc.BaselineID,
		BaselineStatus: project.BaselineStatus(doc.BaselineStatus),
		Ownership: project.Ownership{
			CreatedBy: doc.CreatedBy,
			CreatedAt: doc.CreatedAt,
			OwnerName: doc.OwnerName,
		},
		Name:        doc.Name,
		Code:        doc.Code,
		Client:      doc.Client,
		HandedOffBy: doc.HandedOffBy,
		HandedOffAt: doc.HandedOffAt,
		Decision:    doc.Decision,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}
