package models

import (
	"time"

	"gorm.io/datatypes"
)

// Quota event actions recorded in the journal.
const (
	// QuotaEventLimitUpdated marks an administrative limit change.
	QuotaEventLimitUpdated = "limit_updated"
	// QuotaEventReservationRejected marks a reservation refused by the guard.
	QuotaEventReservationRejected = "reservation_rejected"
	// QuotaEventUsageReleased marks a compensating decrement.
	QuotaEventUsageReleased = "usage_released"
)

// QuotaEvent is an append-only journal row describing a quota decision.
type QuotaEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OrgID         uint64         `gorm:"not null;index"`                   // Affected organization ID.
	QuotaTypeName string         `gorm:"type:text;not null;index"`         // Quota type key.
	Action        string         `gorm:"type:varchar(64);not null;index"`  // One of the QuotaEvent* actions.
	Detail        datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"` // Action payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp, scanned by retention.
}

// TableName overrides the default table name.
func (QuotaEvent) TableName() string {
	return "quota_events"
}
