package rubro

import (
	"context"
	"sort"

	"github.com/finanzas/backend/internal/domain/project"
	"github.com/finanzas/backend/internal/domain/rubro"
	"github.com/finanzas/backend/internal/domain/shared/valueobject"
)

// QueryService reads materialized rubros of a project
type QueryService struct {
	projects project.Repository
	rubros   rubro.Repository
}

// NewQueryService creates a QueryService
func NewQueryService(projects project.Repository, rubros rubro.Repository) *QueryService {
	return &QueryService{projects: projects, rubros: rubros}
}

// List returns the project's rubros. A non-empty baselineID keeps only the
// rows materialized from that baseline.
func (q *QueryService) List(ctx context.Context, projectID, baselineID string) ([]rubro.Rubro, error) {
	if _, err := q.projects.FindByID(ctx, projectID); err != nil {
		return nil, err
	}
	all, err := q.rubros.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if baselineID == "" {
		return all, nil
	}
	out := all[:0]
	for _, r := range all {
		if r.BaselineID == baselineID {
			out = append(out, r)
		}
	}
	return out, nil
}

// CodeTotal is the budget of one taxonomy code in one currency
type CodeTotal struct {
	TaxonomyCode string            `json:"rubro_id"`
	Total        valueobject.Money `json:"total"`
	Lines        int               `json:"lines"`
}

// Summary aggregates totals per taxonomy code and per currency
type Summary struct {
	ProjectID string                                     `json:"project_id"`
	ByCode    []CodeTotal                                `json:"by_code"`
	Totals    map[valueobject.Currency]valueobject.Money `json:"totals"`
	Unmapped  int                                        `json:"unmapped"`
}

// Summarize totals the rows List returns
func (q *QueryService) Summarize(ctx context.Context, projectID, baselineID string) (*Summary, error) {
	rows, err := q.List(ctx, projectID, baselineID)
	if err != nil {
		return nil, err
	}
	type bucket struct {
		code     string
		currency valueobject.Currency
	}
	byCode := map[bucket]*CodeTotal{}
	s := &Summary{ProjectID: projectID, Totals: map[valueobject.Currency]valueobject.Money{}}
	for _, r := range rows {
		if !r.IsMapped() {
			s.Unmapped++
		}
		amount := r.TotalMoney()
		key := bucket{r.TaxonomyCode, r.Currency}
		ct, ok := byCode[key]
		if !ok {
			ct = &CodeTotal{TaxonomyCode: r.TaxonomyCode, Total: valueobject.Zero(r.Currency)}
			byCode[key] = ct
		}
		// same currency by construction of the bucket
		ct.Total, _ = ct.Total.Add(amount)
		ct.Lines++

		total, ok := s.Totals[r.Currency]
		if !ok {
			total = valueobject.Zero(r.Currency)
		}
		s.Totals[r.Currency], _ = total.Add(amount)
	}
	for _, ct := range byCode {
		s.ByCode = append(s.ByCode, *ct)
	}
	sort.Slice(s.ByCode, func(i, j int) bool {
		if s.ByCode[i].TaxonomyCode != s.ByCode[j].TaxonomyCode {
			return s.ByCode[i].TaxonomyCode < s.ByCode[j].TaxonomyCode
		}
		return s.ByCode[i].Total.Currency() < s.ByCode[j].Total.Currency()
	})
	return s, nil
}
