package store

import (
	"context"
	"strings"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/persistence/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const scanBatchSize = 500

// GormStore implements EntityStore on the entity_items table. It runs on
// postgres in production and sqlite in development and tests.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a store over db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

var (
	_ EntityStore = (*GormStore)(nil)
	_ Purger      = (*GormStore)(nil)
)

func (s *GormStore) Get(ctx context.Context, pk, sk string) (*Item, error) {
	var m models.EntityItemModel
	err := s.db.WithContext(ctx).
		Where("pk = ? AND sk = ?", pk, sk).
		Take(&m).Error
	if err != nil {
		return nil, classify("get item", err)
	}
	item := toItem(m)
	if item.Expired(s.now()) {
		return nil, shared.ErrNotFound
	}
	return &item, nil
}

func (s *GormStore) Put(ctx context.Context, put Put) error {
	return classify("put item", s.apply(s.db.WithContext(ctx), put, s.now().UTC()))
}

func (s *GormStore) TransactPut(ctx context.Context, puts ...Put) error {
	if len(puts) == 1 {
		return s.Put(ctx, puts[0])
	}
	now := s.now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range puts {
			if err := s.apply(tx, p, now); err != nil {
				return err
			}
		}
		return nil
	})
	return classify("transact put", err)
}

func (s *GormStore) apply(tx *gorm.DB, put Put, now time.Time) error {
	m := toModel(put.Item, now)

	switch put.Condition.Kind {
	case CondNotExists:
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		// an expired TTL item may be reclaimed
		values := mutableValues(m)
		values["created_at"] = m.CreatedAt
		res = tx.Model(&models.EntityItemModel{}).
			Where("pk = ? AND sk = ? AND expires_at IS NOT NULL AND expires_at <= ?", m.PK, m.SK, now).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConditionFailed
		}
		return nil

	case CondVersion:
		res := tx.Model(&models.EntityItemModel{}).
			Where("pk = ? AND sk = ? AND version = ?", m.PK, m.SK, put.Condition.Version).
			Updates(mutableValues(m))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConditionFailed
		}
		return nil

	default:
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pk"}, {Name: "sk"}},
			DoUpdates: clause.AssignmentColumns(models.MutableColumns),
		}).Create(&m).Error
	}
}

func (s *GormStore) Query(ctx context.Context, pk, skPrefix string) ([]Item, error) {
	var rows []models.EntityItemModel
	err := s.db.WithContext(ctx).
		Where(`pk = ? AND sk LIKE ? ESCAPE '\'`, pk, escapeLike(skPrefix)+"%").
		Order("sk ASC").
		Find(&rows).Error
	if err != nil {
		return nil, classify("query items", err)
	}

	now := s.now()
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		item := toItem(r)
		if strings.HasPrefix(item.SK, skPrefix) && !item.Expired(now) {
			items = append(items, item)
		}
	}
	return items, nil
}

// Scan pages through the table in (pk, sk) order.
func (s *GormStore) Scan(ctx context.Context, kind string, fn func(Item) error) error {
	now := s.now()
	var lastPK, lastSK string
	for {
		query := s.db.WithContext(ctx).Model(&models.EntityItemModel{})
		if kind != "" {
			query = query.Where("kind = ?", kind)
		}
		if lastPK != "" {
			query = query.Where("(pk > ? OR (pk = ? AND sk > ?))", lastPK, lastPK, lastSK)
		}

		var rows []models.EntityItemModel
		if err := query.Order("pk ASC, sk ASC").Limit(scanBatchSize).Find(&rows).Error; err != nil {
			return classify("scan items", err)
		}
		for _, r := range rows {
			item := toItem(r)
			if item.Expired(now) {
				continue
			}
			if err := fn(item); err != nil {
				return err
			}
		}
		if len(rows) < scanBatchSize {
			return nil
		}
		lastPK, lastSK = rows[len(rows)-1].PK, rows[len(rows)-1].SK
	}
}

// PurgeExpired deletes every row whose expires_at has passed
func (s *GormStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&models.EntityItemModel{})
	if res.Error != nil {
		return 0, classify("purge expired items", res.Error)
	}
	return res.RowsAffected, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func toModel(i Item, now time.Time) models.EntityItemModel {
	created, updated := i.CreatedAt, i.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}
	version := i.Version
	if version == 0 {
		version = 1
	}
	var expires *time.Time
	if i.ExpiresAt != nil {
		t := i.ExpiresAt.UTC()
		expires = &t
	}
	return models.EntityItemModel{
		PK:         i.PK,
		SK:         i.SK,
		Kind:       i.Kind,
		ProjectID:  i.ProjectID,
		BaselineID: i.BaselineID,
		Version:    version,
		Data:       datatypes.JSON(i.Data),
		ExpiresAt:  expires,
		CreatedAt:  created.UTC(),
		UpdatedAt:  updated.UTC(),
	}
}

func toItem(m models.EntityItemModel) Item {
	return Item{
		PK:         m.PK,
		SK:         m.SK,
		Kind:       m.Kind,
		ProjectID:  m.ProjectID,
		BaselineID: m.BaselineID,
		Version:    m.Version,
		Data:       []byte(m.Data),
		ExpiresAt:  m.ExpiresAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func mutableValues(m models.EntityItemModel) map[string]any {
	return map[string]any{
		"kind":        m.Kind,
		"project_id":  m.ProjectID,
		"baseline_id": m.BaselineID,
		"version":     m.Version,
		"data":        m.Data,
		"expires_at":  m.ExpiresAt,
		"updated_at":  m.UpdatedAt,
	}
}
