package models

import (
	"time"

	"gorm.io/datatypes"
)

// EntityItemModel is the single table behind the entity store. Every
// aggregate, index and log record is one row keyed by (pk, sk).
type EntityItemModel struct {
	PK         string         `gorm:"column:pk;type:varchar(255);primaryKey"`
	SK         string         `gorm:"column:sk;type:varchar(512);primaryKey"`
	Kind       string         `gorm:"column:kind;type:varchar(32);not null;index:idx_entity_items_kind"`
	ProjectID  string         `gorm:"column:project_id;type:varchar(100);index:idx_entity_items_project"`
	BaselineID string         `gorm:"column:baseline_id;type:varchar(100);index:idx_entity_items_baseline"`
	Version    int            `gorm:"column:version;not null;default:1"`
	Data       datatypes.JSON `gorm:"column:data;not null"`
	ExpiresAt  *time.Time     `gorm:"column:expires_at;index:idx_entity_items_expires_at"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for GORM
func (EntityItemModel) TableName() string {
	return "entity_items"
}

// MutableColumns are rewritten by upserts and version-guarded updates
var MutableColumns = []string{"kind", "project_id", "baseline_id", "version", "data", "expires_at", "updated_at"}
