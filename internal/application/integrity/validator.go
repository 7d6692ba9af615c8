// Package integrity cross-checks the key layout of the entity store: project
// metadata, the baseline index and the project→baseline link records must all
// agree on which project owns which baseline.
package integrity

import (
	"context"
	"fmt"
	"sort"

	"github.com/finanzas/backend/internal/infrastructure/store"
	"go.uber.org/zap"
)

// Check names
const (
	CheckProjectKey      = "project_key"      // METADATA doc disagrees with its PK
	CheckBaselineClaimed = "baseline_claimed" // two projects point at one baseline
	CheckIndexDangling   = "index_dangling"   // index names a project that does not exist
	CheckIndexMismatch   = "index_mismatch"   // index project carries another baseline
	CheckLinkMismatch    = "link_mismatch"    // link record disagrees with its keys
	CheckHandoffOrphaned = "handoff_orphaned" // handoff under a project without METADATA
	CheckBaselineMissing = "baseline_missing" // project points at a baseline never stored
)

// Finding is one inconsistency
type Finding struct {
	Check   string `json:"check"`
	PK      string `json:"pk"`
	SK      string `json:"sk"`
	Message string `json:"message"`
}

// Report summarizes a validation run
type Report struct {
	Projects  int       `json:"projects"`
	Baselines int       `json:"baselines"`
	Indexes   int       `json:"indexes"`
	Links     int       `json:"links"`
	Handoffs  int       `json:"handoffs"`
	Findings  []Finding `json:"findings"`
}

// OK reports whether no inconsistency was found
func (r *Report) OK() bool { return len(r.Findings) == 0 }

func (r *Report) add(check string, item store.Item, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Check:   check,
		PK:      item.PK,
		SK:      item.SK,
		Message: fmt.Sprintf(format, args...),
	})
}

// keyDoc holds the identity fields every project-side document carries
type keyDoc struct {
	ProjectID  string `json:"project_id"`
	BaselineID string `json:"baseline_id"`
}

// Validator scans an entity store for key inconsistencies
type Validator struct {
	store  store.EntityStore
	logger *zap.Logger
}

// NewValidator creates a Validator
func NewValidator(s store.EntityStore, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{store: s, logger: logger}
}

// Run scans every project, baseline, index, link and handoff item once
func (v *Validator) Run(ctx context.Context) (*Report, error) {
	r := &Report{}

	projects := map[string]store.Item{} // project id → METADATA
	claims := map[string][]string{}     // baseline id → project ids
	err := v.store.Scan(ctx, store.KindProject, func(item store.Item) error {
		r.Projects++
		id := store.ProjectIDFromPK(item.PK)
		var doc keyDoc
		if err := item.Decode(&doc); err != nil {
			r.add(CheckProjectKey, item, "undecodable project document: %v", err)
			return nil
		}
		if item.SK != store.SKMetadata {
			r.add(CheckProjectKey, item, "project item stored under sk %q", item.SK)
		}
		if doc.ProjectID != id {
			r.add(CheckProjectKey, item, "document project_id %q differs from key %q", doc.ProjectID, id)
		}
		projects[id] = item
		if doc.BaselineID != "" {
			claims[doc.BaselineID] = append(claims[doc.BaselineID], id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	baselines := map[string]bool{}
	err = v.store.Scan(ctx, store.KindBaseline, func(item store.Item) error {
		r.Baselines++
		baselines[store.BaselineIDFromPK(item.PK)] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(claims))
	for id := range claims {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, baselineID := range ids {
		owners := claims[baselineID]
		if len(owners) > 1 {
			sort.Strings(owners)
			r.add(CheckBaselineClaimed, store.Item{PK: store.BaselinePK(baselineID), SK: store.SKBaselineIndex},
				"baseline %s is the current baseline of projects %v", baselineID, owners)
		}
		if !baselines[baselineID] {
			for _, owner := range owners {
				r.add(CheckBaselineMissing, projects[owner], "baseline %s is not stored", baselineID)
			}
		}
	}

	err = v.store.Scan(ctx, store.KindBaselineIndex, func(item store.Item) error {
		r.Indexes++
		baselineID := store.BaselineIDFromPK(item.PK)
		var doc keyDoc
		if err := item.Decode(&doc); err != nil {
			r.add(CheckIndexMismatch, item, "undecodable index document: %v", err)
			return nil
		}
		owner, ok := projects[doc.ProjectID]
		if !ok {
			r.add(CheckIndexDangling, item, "index points at missing project %q", doc.ProjectID)
			return nil
		}
		var pdoc keyDoc
		if err := owner.Decode(&pdoc); err == nil && pdoc.BaselineID != baselineID {
			r.add(CheckIndexMismatch, item, "index points at project %s whose baseline is %q", doc.ProjectID, pdoc.BaselineID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = v.store.Scan(ctx, store.KindProjectLink, func(item store.Item) error {
		r.Links++
		var doc keyDoc
		if err := item.Decode(&doc); err != nil {
			r.add(CheckLinkMismatch, item, "undecodable link document: %v", err)
			return nil
		}
		if id := store.ProjectIDFromPK(item.PK); doc.ProjectID != id {
			r.add(CheckLinkMismatch, item, "link references project %q instead of %q", doc.ProjectID, id)
		}
		if sk := store.LinkSK(doc.BaselineID); sk != item.SK {
			r.add(CheckLinkMismatch, item, "link references baseline %q under sk %q", doc.BaselineID, item.SK)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = v.store.Scan(ctx, store.KindHandoff, func(item store.Item) error {
		r.Handoffs++
		if _, ok := projects[store.ProjectIDFromPK(item.PK)]; !ok {
			r.add(CheckHandoffOrphaned, item, "handoff stored under a project without metadata")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.logger.Info("Key validation finished",
		zap.Int("projects", r.Projects),
		zap.Int("baselines", r.Baselines),
		zap.Int("indexes", r.Indexes),
		zap.Int("links", r.Links),
		zap.Int("handoffs", r.Handoffs),
		zap.Int("findings", len(r.Findings)),
	)
	return r, nil
}
