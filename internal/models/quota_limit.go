package models

import "time"

// QuotaLimit stores an organization-specific override of a quota type's limit.
// Absence of a row means the quota type default applies.
type QuotaLimit struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OrgID         uint64 `gorm:"not null;uniqueIndex:idx_quota_limits_org_type,priority:1"`           // Owning organization ID.
	QuotaTypeName string `gorm:"type:text;not null;uniqueIndex:idx_quota_limits_org_type,priority:2"` // Quota type key.

	LimitValue int64 `gorm:"not null;default:0"`     // Override ceiling; meaningless when Unbounded.
	Unbounded  bool  `gorm:"not null;default:false"` // True when the override lifts the ceiling entirely.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (QuotaLimit) TableName() string {
	return "quota_limits"
}
