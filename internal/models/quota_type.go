package models

import "time"

// QuotaType describes one kind of limited resource and its system-wide default.
type QuotaType struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string `gorm:"type:text;not null;uniqueIndex"` // Stable quota type key, e.g. max_messages_per_day.
	Description string `gorm:"type:text;not null;default:''"`  // Human readable description.

	DefaultLimit     int64 `gorm:"not null;default:0"`     // System-wide default ceiling.
	DefaultUnbounded bool  `gorm:"not null;default:false"` // True when the default has no ceiling.

	TimeWindowed  bool  `gorm:"not null;default:false"` // Whether usage resets on a fixed period.
	WindowSeconds int64 `gorm:"not null;default:0"`     // Period length in seconds for windowed types.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (QuotaType) TableName() string {
	return "quota_types"
}
