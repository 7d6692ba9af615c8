package project

import "context"

// Repository persists projects with optimistic concurrency.
type Repository interface {
	// FindByID returns the project or an error matching ErrNotFound
	FindByID(ctx context.Context, id string) (*Project, error)

	// FindByBaseline resolves the baseline index, returning ErrNotFound when
	// no project carries baselineID.
	FindByBaseline(ctx context.Context, baselineID string) (*Project, error)

	// Create inserts p if its ID is free. When p carries a baseline the
	// baseline index and link records are written in the same conditional
	// batch; a taken ID or index entry fails the whole batch with a
	// concurrency conflict.
	Create(ctx context.Context, p *Project) error

	// Update writes p if the stored version still equals expectedVersion,
	// claiming the baseline index when p gained its first baseline. p's
	// version is bumped on success.
	Update(ctx context.Context, p *Project, expectedVersion int) error

	// List returns every project ordered by ID
	List(ctx context.Context) ([]*Project, error)
}

// HandoffRepository persists the append-only handoff history.
type HandoffRepository interface {
	// Create inserts h; an existing record with the same ID is left
	// untouched and reported as ErrAlreadyExists.
	Create(ctx context.Context, h *Handoff) error
	FindByID(ctx context.Context, projectID, handoffID string) (*Handoff, error)
	ListByProject(ctx context.Context, projectID string) ([]Handoff, error)
}
