// Package events persists the quota decision journal and prunes it on a
// retention schedule.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/router-for-me/OrgQuotaService/internal/models"
	"github.com/router-for-me/OrgQuotaService/internal/quota"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// recordTimeout bounds one journal insert. Writes run on a detached context
// so a cancelled request cannot lose the event.
const recordTimeout = 5 * time.Second

// Recorder appends quota events. It satisfies quota.Journal; journal writes
// never fail the caller, failures are logged and dropped.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder backed by GORM.
func NewRecorder(db *gorm.DB) *Recorder {
	if db == nil {
		return nil
	}
	return &Recorder{db: db}
}

// ReservationRejected records a reservation refused by the guard.
func (r *Recorder) ReservationRejected(_ context.Context, orgID uint64, quotaType string, limit quota.Limit, usage, amount int64) {
	r.record(orgID, quotaType, models.QuotaEventReservationRejected, map[string]any{
		"limit":            limit,
		"usage":            usage,
		"requested_amount": amount,
	})
}

// UsageReleased records a compensating decrement.
func (r *Recorder) UsageReleased(_ context.Context, orgID uint64, quotaType string, amount, newUsage int64) {
	r.record(orgID, quotaType, models.QuotaEventUsageReleased, map[string]any{
		"amount":    amount,
		"new_usage": newUsage,
	})
}

// LimitUpdated records an administrative limit change or clear.
func (r *Recorder) LimitUpdated(_ context.Context, orgID uint64, quotaType string, limit quota.Limit, cleared bool, actor string) {
	detail := map[string]any{"actor": actor}
	if cleared {
		detail["cleared"] = true
	} else {
		detail["limit"] = limit
	}
	r.record(orgID, quotaType, models.QuotaEventLimitUpdated, detail)
}

func (r *Recorder) record(orgID uint64, quotaType, action string, detail map[string]any) {
	if r == nil || r.db == nil {
		return
	}

	payload, errMarshal := json.Marshal(detail)
	if errMarshal != nil {
		log.WithError(errMarshal).Warn("quota event detail marshal failed")
		payload = []byte("{}")
	}

	dbCtx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	row := models.QuotaEvent{
		OrgID:         orgID,
		QuotaTypeName: quotaType,
		Action:        action,
		Detail:        datatypes.JSON(payload),
	}
	if errCreate := r.db.WithContext(dbCtx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).Warn("quota event write failed")
	}
}
