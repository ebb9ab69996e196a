package models

import "time"

// Organization represents a tenant whose resource consumption is tracked.
type Organization struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name   string `gorm:"type:text;not null;uniqueIndex"` // Unique display name.
	APIKey string `gorm:"type:text;not null;uniqueIndex"` // Bearer credential for the org-facing API.

	Active bool `gorm:"not null;default:true"` // Whether the organization may consume quota.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (Organization) TableName() string {
	return "organizations"
}
