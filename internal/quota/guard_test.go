package quota

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"
)

type journalEntry struct {
	action    string
	orgID     uint64
	quotaType string
	limit     Limit
	usage     int64
	amount    int64
}

// captureJournal records guard decisions for assertions.
type captureJournal struct {
	entries []journalEntry
}

func (j *captureJournal) ReservationRejected(_ context.Context, orgID uint64, quotaType string, limit Limit, usage, amount int64) {
	j.entries = append(j.entries, journalEntry{action: "rejected", orgID: orgID, quotaType: quotaType, limit: limit, usage: usage, amount: amount})
}

func (j *captureJournal) UsageReleased(_ context.Context, orgID uint64, quotaType string, amount, newUsage int64) {
	j.entries = append(j.entries, journalEntry{action: "released", orgID: orgID, quotaType: quotaType, usage: newUsage, amount: amount})
}

func newTestGuard(t *testing.T, journal Journal) (*Guard, *LimitStore, *gorm.DB) {
	t.Helper()
	conn := openQuotaTestDB(t)
	catalog := newTestCatalog(t, conn)
	limits := NewLimitStore(conn, catalog, nil)
	ledger := NewLedger(conn, catalog, LedgerOptions{})
	return NewGuard(catalog, limits, ledger, journal), limits, conn
}

func TestCheckAndReserve(t *testing.T) {
	journal := &captureJournal{}
	guard, limits, _ := newTestGuard(t, journal)
	ctx := context.Background()

	if errSet := limits.SetLimit(ctx, 1, "max_users", Bounded(5)); errSet != nil {
		t.Fatalf("set limit: %v", errSet)
	}

	usage, errReserve := guard.CheckAndReserve(ctx, 1, "max_users", 2)
	if errReserve != nil || usage != 2 {
		t.Fatalf("first reserve: usage=%d err=%v", usage, errReserve)
	}
	usage, errReserve = guard.CheckAndReserve(ctx, 1, "max_users", 2)
	if errReserve != nil || usage != 4 {
		t.Fatalf("second reserve: usage=%d err=%v", usage, errReserve)
	}

	_, errReserve = guard.CheckAndReserve(ctx, 1, "max_users", 2)
	if !errors.Is(errReserve, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", errReserve)
	}
	var exceeded *QuotaExceededError
	if !errors.As(errReserve, &exceeded) {
		t.Fatalf("expected a QuotaExceededError, got %T", errReserve)
	}
	if exceeded.QuotaType != "max_users" || exceeded.Limit.Value != 5 || exceeded.Usage != 4 {
		t.Fatalf("unexpected rejection detail: %+v", exceeded)
	}
	if strings.ContainsAny(errReserve.Error(), "0123456789") {
		t.Fatalf("rejection message must not leak numbers: %q", errReserve.Error())
	}
	if IsRetryable(errReserve) {
		t.Fatal("a quota rejection is not retryable")
	}

	if len(journal.entries) != 1 {
		t.Fatalf("expected one journal entry, got %d", len(journal.entries))
	}
	entry := journal.entries[0]
	if entry.action != "rejected" || entry.orgID != 1 || entry.quotaType != "max_users" || entry.usage != 4 || entry.amount != 2 {
		t.Fatalf("unexpected journal entry: %+v", entry)
	}
}

func TestCheckAndReserveInvalidAmount(t *testing.T) {
	guard, _, _ := newTestGuard(t, nil)
	if _, errReserve := guard.CheckAndReserve(context.Background(), 1, "max_users", 0); !errors.Is(errReserve, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", errReserve)
	}
}

func TestCheckAndReserveUnknownType(t *testing.T) {
	guard, _, _ := newTestGuard(t, nil)
	if _, errReserve := guard.CheckAndReserve(context.Background(), 1, "max_widgets", 1); !errors.Is(errReserve, ErrUnknownQuotaType) {
		t.Fatalf("expected ErrUnknownQuotaType, got %v", errReserve)
	}
}

func TestIsLimitReached(t *testing.T) {
	guard, limits, _ := newTestGuard(t, nil)
	ctx := context.Background()

	if errSet := limits.SetLimit(ctx, 1, "max_users", Bounded(2)); errSet != nil {
		t.Fatalf("set limit: %v", errSet)
	}

	reached, errCheck := guard.IsLimitReached(ctx, 1, "max_users")
	if errCheck != nil || reached {
		t.Fatalf("fresh org: reached=%v err=%v", reached, errCheck)
	}

	if _, errReserve := guard.CheckAndReserve(ctx, 1, "max_users", 2); errReserve != nil {
		t.Fatalf("reserve: %v", errReserve)
	}
	reached, errCheck = guard.IsLimitReached(ctx, 1, "max_users")
	if errCheck != nil || !reached {
		t.Fatalf("at limit: reached=%v err=%v", reached, errCheck)
	}

	// Unbounded types never report reached.
	reached, errCheck = guard.IsLimitReached(ctx, 1, "max_storage_bytes")
	if errCheck != nil || reached {
		t.Fatalf("unbounded: reached=%v err=%v", reached, errCheck)
	}
}

func TestWouldExceed(t *testing.T) {
	guard, limits, _ := newTestGuard(t, nil)
	ctx := context.Background()

	if errSet := limits.SetLimit(ctx, 1, "max_users", Bounded(5)); errSet != nil {
		t.Fatalf("set limit: %v", errSet)
	}
	if _, errReserve := guard.CheckAndReserve(ctx, 1, "max_users", 4); errReserve != nil {
		t.Fatalf("reserve: %v", errReserve)
	}

	would, errCheck := guard.WouldExceed(ctx, 1, "max_users", 1)
	if errCheck != nil || would {
		t.Fatalf("amount fitting exactly: would=%v err=%v", would, errCheck)
	}
	would, errCheck = guard.WouldExceed(ctx, 1, "max_users", 2)
	if errCheck != nil || !would {
		t.Fatalf("amount past the limit: would=%v err=%v", would, errCheck)
	}
	if _, errCheck = guard.WouldExceed(ctx, 1, "max_users", -1); !errors.Is(errCheck, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", errCheck)
	}
	would, errCheck = guard.WouldExceed(ctx, 1, "max_storage_bytes", 1<<40)
	if errCheck != nil || would {
		t.Fatalf("unbounded: would=%v err=%v", would, errCheck)
	}
}

func TestGuardRelease(t *testing.T) {
	journal := &captureJournal{}
	guard, _, _ := newTestGuard(t, journal)
	ctx := context.Background()

	if _, errReserve := guard.CheckAndReserve(ctx, 1, "max_users", 3); errReserve != nil {
		t.Fatalf("reserve: %v", errReserve)
	}
	usage, errRelease := guard.Release(ctx, 1, "max_users", 2)
	if errRelease != nil || usage != 1 {
		t.Fatalf("release: usage=%d err=%v", usage, errRelease)
	}

	if len(journal.entries) != 1 {
		t.Fatalf("expected one journal entry, got %d", len(journal.entries))
	}
	entry := journal.entries[0]
	if entry.action != "released" || entry.amount != 2 || entry.usage != 1 {
		t.Fatalf("unexpected journal entry: %+v", entry)
	}
}

func TestOverview(t *testing.T) {
	guard, limits, _ := newTestGuard(t, nil)
	ctx := context.Background()

	if errSet := limits.SetLimit(ctx, 1, "max_users", Bounded(2)); errSet != nil {
		t.Fatalf("set limit: %v", errSet)
	}
	if _, errReserve := guard.CheckAndReserve(ctx, 1, "max_users", 2); errReserve != nil {
		t.Fatalf("reserve: %v", errReserve)
	}

	statuses, errOverview := guard.Overview(ctx, 1)
	if errOverview != nil {
		t.Fatalf("overview: %v", errOverview)
	}
	if len(statuses) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(statuses))
	}

	byName := map[string]QuotaStatus{}
	for i, status := range statuses {
		byName[status.Name] = status
		if want := []string{"max_users", "max_messages_per_day", "max_storage_bytes"}[i]; status.Name != want {
			t.Fatalf("row %d: expected %s, got %s", i, want, status.Name)
		}
	}

	users := byName["max_users"]
	if users.EffectiveLimit.Value != 2 || users.CurrentUsage != 2 || !users.Reached {
		t.Fatalf("unexpected max_users status: %+v", users)
	}
	storage := byName["max_storage_bytes"]
	if !storage.EffectiveLimit.Unbounded || storage.Reached {
		t.Fatalf("unexpected max_storage_bytes status: %+v", storage)
	}
	messages := byName["max_messages_per_day"]
	if messages.EffectiveLimit.Value != 10000 || messages.CurrentUsage != 0 {
		t.Fatalf("unexpected max_messages_per_day status: %+v", messages)
	}
}
