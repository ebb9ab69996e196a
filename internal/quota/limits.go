package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/OrgQuotaService/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LimitStore resolves effective limits and applies administrative overrides.
// Lookups read through the cache; every successful write invalidates the
// cached value for its key before returning.
type LimitStore struct {
	db      *gorm.DB
	catalog *Catalog
	cache   LimitCache
}

// NewLimitStore builds a limit store. A nil cache disables caching.
func NewLimitStore(conn *gorm.DB, catalog *Catalog, cache LimitCache) *LimitStore {
	if cache == nil {
		cache = NoopLimitCache{}
	}
	return &LimitStore{db: conn, catalog: catalog, cache: cache}
}

// GetEffectiveLimit returns the org override if present, else the catalog
// default. Unknown quota type names fail with ErrUnknownQuotaType.
func (s *LimitStore) GetEffectiveLimit(ctx context.Context, orgID uint64, quotaType string) (Limit, error) {
	if s == nil || s.db == nil {
		return Limit{}, errors.New("quota: limit store not initialized")
	}
	quotaType = strings.TrimSpace(quotaType)
	def, ok := s.catalog.Definition(quotaType)
	if !ok {
		return Limit{}, fmt.Errorf("%w: %s", ErrUnknownQuotaType, quotaType)
	}

	if cached, hit := s.cache.Get(ctx, orgID, quotaType); hit {
		return cached, nil
	}

	var row models.QuotaLimit
	errFind := s.db.WithContext(ctx).
		Where("org_id = ? AND quota_type_name = ?", orgID, quotaType).
		First(&row).Error
	var limit Limit
	switch {
	case errFind == nil:
		limit = Limit{Value: row.LimitValue, Unbounded: row.Unbounded}
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		limit = def.Default
	default:
		return Limit{}, storeFailure("load quota limit", errFind)
	}

	s.cache.Set(ctx, orgID, quotaType, limit)
	return limit, nil
}

// SetLimit upserts the org override. Negative values fail with ErrInvalidLimit;
// unbounded is the explicit sentinel, never a negative number.
func (s *LimitStore) SetLimit(ctx context.Context, orgID uint64, quotaType string, limit Limit) error {
	if s == nil || s.db == nil {
		return errors.New("quota: limit store not initialized")
	}
	quotaType = strings.TrimSpace(quotaType)
	if _, ok := s.catalog.Definition(quotaType); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuotaType, quotaType)
	}
	if !limit.Unbounded && limit.Value < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, limit.Value)
	}
	if limit.Unbounded {
		limit.Value = 0
	}

	row := models.QuotaLimit{
		OrgID:         orgID,
		QuotaTypeName: quotaType,
		LimitValue:    limit.Value,
		Unbounded:     limit.Unbounded,
	}
	errSave := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "org_id"}, {Name: "quota_type_name"}},
			DoUpdates: clause.Assignments(map[string]any{
				"limit_value": limit.Value,
				"unbounded":   limit.Unbounded,
				"updated_at":  time.Now().UTC(),
			}),
		}).
		Create(&row).Error
	if errSave != nil {
		return storeFailure("save quota limit", errSave)
	}

	return s.cache.Invalidate(ctx, orgID, quotaType)
}

// ClearLimit removes the org override so the catalog default applies again.
func (s *LimitStore) ClearLimit(ctx context.Context, orgID uint64, quotaType string) error {
	if s == nil || s.db == nil {
		return errors.New("quota: limit store not initialized")
	}
	quotaType = strings.TrimSpace(quotaType)
	if _, ok := s.catalog.Definition(quotaType); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuotaType, quotaType)
	}

	errDelete := s.db.WithContext(ctx).
		Where("org_id = ? AND quota_type_name = ?", orgID, quotaType).
		Delete(&models.QuotaLimit{}).Error
	if errDelete != nil {
		return storeFailure("delete quota limit", errDelete)
	}

	return s.cache.Invalidate(ctx, orgID, quotaType)
}
