package models

import "time"

// UsageRecord tracks current consumption for one (organization, quota type) pair.
// Rows are created lazily on first increment and are only ever written by the
// ledger's increment protocol; a window reset overwrites the row in place.
type UsageRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OrgID         uint64 `gorm:"not null;uniqueIndex:idx_usage_records_org_type,priority:1"`           // Owning organization ID.
	QuotaTypeName string `gorm:"type:text;not null;uniqueIndex:idx_usage_records_org_type,priority:2"` // Quota type key.

	CurrentUsage int64 `gorm:"not null;default:0"` // Consumption inside the active window.

	PeriodStart *time.Time `gorm:"type:timestamptz"` // Window start; nil for non-windowed types.
	PeriodEnd   *time.Time `gorm:"type:timestamptz"` // Last valid instant of the window; nil for non-windowed types.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (UsageRecord) TableName() string {
	return "usage_records"
}
