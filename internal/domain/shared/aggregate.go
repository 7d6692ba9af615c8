package shared

import "time"

// Versioned carries the optimistic-concurrency counter of a persisted
// entity. A freshly created entity has version 1.
type Versioned struct {
	Version int `json:"version"`
}

// GetVersion returns the current version
func (v *Versioned) GetVersion() int {
	return v.Version
}

// IncrementVersion bumps the version after a successful mutation
func (v *Versioned) IncrementVersion() {
	v.Version++
}

// Timestamps tracks creation and last modification times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch sets UpdatedAt, and CreatedAt when unset
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}
