package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	dbutil "github.com/router-for-me/OrgQuotaService/internal/db"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger default operation bounds.
const (
	// defaultLockTimeout bounds acquisition of the per-key lock.
	defaultLockTimeout = 5 * time.Second
	// defaultStoreTimeout bounds the storage transaction while the lock is held.
	defaultStoreTimeout = 10 * time.Second
)

// LedgerOptions tunes the ledger's operation bounds. Zero values pick the
// package defaults.
type LedgerOptions struct {
	LockTimeout  time.Duration
	StoreTimeout time.Duration
}

// Ledger owns the usage counters and the increment protocol. All writes to
// one (org, quota type) key are serialized by a per-key lock; under PostgreSQL
// the row is additionally locked FOR UPDATE inside the transaction so multiple
// service processes stay correct.
type Ledger struct {
	db           *gorm.DB
	catalog      *Catalog
	lockTimeout  time.Duration
	storeTimeout time.Duration
	locks        *keyLocks
}

// NewLedger builds a ledger over the shared store.
func NewLedger(conn *gorm.DB, catalog *Catalog, opts LedgerOptions) *Ledger {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	return &Ledger{
		db:           conn,
		catalog:      catalog,
		lockTimeout:  opts.LockTimeout,
		storeTimeout: opts.StoreTimeout,
		locks:        newKeyLocks(),
	}
}

// ReadUsage returns the current consumption for the key, treating absent and
// expired records as zero. Pure read; never mutates storage.
func (l *Ledger) ReadUsage(ctx context.Context, orgID uint64, quotaType string) (int64, error) {
	if l == nil || l.db == nil {
		return 0, errors.New("quota: ledger not initialized")
	}
	quotaType = strings.TrimSpace(quotaType)
	def, ok := l.catalog.Definition(quotaType)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownQuotaType, quotaType)
	}

	var record models.UsageRecord
	errFind := l.db.WithContext(ctx).
		Where("org_id = ? AND quota_type_name = ?", orgID, quotaType).
		First(&record).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if errFind != nil {
		return 0, storeFailure("load usage record", errFind)
	}

	if def.TimeWindowed && windowExpired(record.PeriodEnd, time.Now().UTC()) {
		return 0, nil
	}
	return record.CurrentUsage, nil
}

// TryIncrement applies amount to the key's counter unless that would pass the
// effective limit. It is the one mutating entry point: lock the key, load (or
// synthesize) the record, roll an expired window forward, check the projected
// usage, persist. The returned outcome is meaningful only when err is nil; on
// Rejected newUsage is the unchanged stored usage.
func (l *Ledger) TryIncrement(ctx context.Context, orgID uint64, quotaType string, amount int64, effectiveLimit Limit, now time.Time) (int64, Outcome, error) {
	if l == nil || l.db == nil {
		return 0, Rejected, errors.New("quota: ledger not initialized")
	}
	quotaType = strings.TrimSpace(quotaType)
	if amount <= 0 {
		return 0, Rejected, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	def, ok := l.catalog.Definition(quotaType)
	if !ok {
		return 0, Rejected, fmt.Errorf("%w: %s", ErrUnknownQuotaType, quotaType)
	}

	release, errLock := l.locks.acquire(ctx, usageKey(orgID, quotaType), l.lockTimeout)
	if errLock != nil {
		return 0, Rejected, errLock
	}
	defer release()

	dbCtx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	var newUsage int64
	var outcome Outcome
	errTx := l.db.WithContext(dbCtx).Transaction(func(tx *gorm.DB) error {
		usage, result, errInc := l.incrementTx(tx, def, orgID, amount, effectiveLimit, now)
		if errInc != nil {
			return errInc
		}
		newUsage, outcome = usage, result
		return nil
	})
	if errTx != nil {
		return 0, Rejected, storeFailure("increment usage", errTx)
	}
	return newUsage, outcome, nil
}

// Release applies a compensating decrement after a failed business operation.
// It clamps at zero, never creates a record, and leaves expired windows alone.
func (l *Ledger) Release(ctx context.Context, orgID uint64, quotaType string, amount int64) (int64, error) {
	if l == nil || l.db == nil {
		return 0, errors.New("quota: ledger not initialized")
	}
	quotaType = strings.TrimSpace(quotaType)
	if amount <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	def, ok := l.catalog.Definition(quotaType)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownQuotaType, quotaType)
	}

	release, errLock := l.locks.acquire(ctx, usageKey(orgID, quotaType), l.lockTimeout)
	if errLock != nil {
		return 0, errLock
	}
	defer release()

	dbCtx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	now := time.Now().UTC()
	var newUsage int64
	errTx := l.db.WithContext(dbCtx).Transaction(func(tx *gorm.DB) error {
		record, found, errLoad := lockUsageRow(tx, orgID, quotaType)
		if errLoad != nil {
			return errLoad
		}
		if !found {
			return nil
		}
		if def.TimeWindowed && windowExpired(record.PeriodEnd, now) {
			return nil
		}
		newUsage = record.CurrentUsage - amount
		if newUsage < 0 {
			newUsage = 0
		}
		return tx.Model(&models.UsageRecord{}).
			Where("id = ?", record.ID).
			Updates(map[string]any{
				"current_usage": newUsage,
				"updated_at":    now,
			}).Error
	})
	if errTx != nil {
		return 0, storeFailure("release usage", errTx)
	}
	return newUsage, nil
}

// incrementTx runs steps 2-5 of the increment protocol inside a transaction,
// with the per-key lock already held.
func (l *Ledger) incrementTx(tx *gorm.DB, def Definition, orgID uint64, amount int64, limit Limit, now time.Time) (int64, Outcome, error) {
	// Two passes at most: a second one only when a concurrent process creates
	// the row between our read and insert.
	for attempt := 0; attempt < 2; attempt++ {
		record, found, errLoad := lockUsageRow(tx, orgID, def.Name)
		if errLoad != nil {
			return 0, Rejected, errLoad
		}

		if !found {
			if limit.WouldExceed(0, amount) {
				return 0, Rejected, nil
			}
			fresh := models.UsageRecord{
				OrgID:         orgID,
				QuotaTypeName: def.Name,
				CurrentUsage:  amount,
			}
			if def.TimeWindowed {
				start, end := windowFor(now, def.Window)
				fresh.PeriodStart, fresh.PeriodEnd = &start, &end
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "org_id"}, {Name: "quota_type_name"}},
				DoNothing: true,
			}).Create(&fresh)
			if res.Error != nil {
				return 0, Rejected, res.Error
			}
			if res.RowsAffected == 0 {
				// Lost the create race to another process; reload under lock.
				continue
			}
			return amount, Applied, nil
		}

		usage := record.CurrentUsage
		periodStart, periodEnd := record.PeriodStart, record.PeriodEnd
		if def.TimeWindowed && windowExpired(periodEnd, now) {
			start, end := windowFor(now, def.Window)
			periodStart, periodEnd = &start, &end
			usage = 0
		}

		projected := usage + amount
		if limit.WouldExceed(usage, amount) {
			return usage, Rejected, nil
		}

		updates := map[string]any{
			"current_usage": projected,
			"updated_at":    now.UTC(),
		}
		if def.TimeWindowed {
			updates["period_start"] = periodStart
			updates["period_end"] = periodEnd
		}
		if errSave := tx.Model(&models.UsageRecord{}).
			Where("id = ?", record.ID).
			Updates(updates).Error; errSave != nil {
			return 0, Rejected, errSave
		}
		return projected, Applied, nil
	}
	return 0, Rejected, errors.New("usage record create conflict not resolved")
}

// lockUsageRow loads the record for the key, taking a row-level write lock on
// dialects that support it.
func lockUsageRow(tx *gorm.DB, orgID uint64, quotaType string) (models.UsageRecord, bool, error) {
	var record models.UsageRecord
	errFind := tx.Clauses(dbutil.RowLockClauses(tx)...).
		Where("org_id = ? AND quota_type_name = ?", orgID, quotaType).
		First(&record).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return models.UsageRecord{}, false, nil
	}
	if errFind != nil {
		return models.UsageRecord{}, false, errFind
	}
	return record, true, nil
}

// usageKey names the per-key lock for one (org, quota type) pair.
func usageKey(orgID uint64, quotaType string) string {
	return fmt.Sprintf("%d/%s", orgID, quotaType)
}

// keyLocks is a lazily grown table of single-slot semaphores. Entries are
// never removed; the key space is bounded by organizations times quota types.
type keyLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyLocks() *keyLocks {
	return &keyLocks{slots: make(map[string]chan struct{})}
}

// slot returns the semaphore for a key, creating it on first use.
func (k *keyLocks) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.slots[key] = ch
	}
	return ch
}

// acquire takes the key's lock, failing with ErrLockTimeout when it cannot be
// had within timeout. Cancelling ctx aborts the wait; once acquired, the lock
// is held until release is called.
func (k *keyLocks) acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	ch := k.slot(key)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("quota: acquire usage lock: %w", ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}
}
