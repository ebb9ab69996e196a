package quota

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Journal receives quota decisions worth auditing. Implementations must not
// block the request path; failures are theirs to log.
type Journal interface {
	ReservationRejected(ctx context.Context, orgID uint64, quotaType string, limit Limit, usage, amount int64)
	UsageReleased(ctx context.Context, orgID uint64, quotaType string, amount, newUsage int64)
}

// noopJournal drops all entries.
type noopJournal struct{}

func (noopJournal) ReservationRejected(context.Context, uint64, string, Limit, int64, int64) {}
func (noopJournal) UsageReleased(context.Context, uint64, string, int64, int64)              {}

// Guard is the stateless decision layer business operations call before
// committing their own side effects. CheckAndReserve is the only
// enforcement-grade path; IsLimitReached and WouldExceed race with concurrent
// increments and are for display and pre-checks only.
type Guard struct {
	catalog *Catalog
	limits  *LimitStore
	ledger  *Ledger
	journal Journal
	now     func() time.Time
}

// NewGuard composes the catalog, limit store and ledger. A nil journal
// disables auditing.
func NewGuard(catalog *Catalog, limits *LimitStore, ledger *Ledger, journal Journal) *Guard {
	if journal == nil {
		journal = noopJournal{}
	}
	return &Guard{
		catalog: catalog,
		limits:  limits,
		ledger:  ledger,
		journal: journal,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// IsLimitReached reports whether usage has reached the effective limit.
// An unbounded limit is never reached.
func (g *Guard) IsLimitReached(ctx context.Context, orgID uint64, quotaType string) (bool, error) {
	if g == nil || g.limits == nil || g.ledger == nil {
		return false, errors.New("quota: guard not initialized")
	}
	limit, errLimit := g.limits.GetEffectiveLimit(ctx, orgID, quotaType)
	if errLimit != nil {
		return false, errLimit
	}
	if limit.Unbounded {
		return false, nil
	}
	usage, errUsage := g.ledger.ReadUsage(ctx, orgID, quotaType)
	if errUsage != nil {
		return false, errUsage
	}
	return limit.Reached(usage), nil
}

// WouldExceed reports whether applying amount would pass the effective limit.
// Advisory only: it takes no lock, so the answer can be stale by the time the
// caller acts on it.
func (g *Guard) WouldExceed(ctx context.Context, orgID uint64, quotaType string, amount int64) (bool, error) {
	if g == nil || g.limits == nil || g.ledger == nil {
		return false, errors.New("quota: guard not initialized")
	}
	if amount <= 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	limit, errLimit := g.limits.GetEffectiveLimit(ctx, orgID, quotaType)
	if errLimit != nil {
		return false, errLimit
	}
	if limit.Unbounded {
		return false, nil
	}
	usage, errUsage := g.ledger.ReadUsage(ctx, orgID, quotaType)
	if errUsage != nil {
		return false, errUsage
	}
	return limit.WouldExceed(usage, amount), nil
}

// CheckAndReserve atomically checks the effective limit and records the
// consumption. On rejection it fails with a QuotaExceededError; on success the
// increment is already durable and the new usage is returned. Callers that
// subsequently fail their own operation roll back with Release.
func (g *Guard) CheckAndReserve(ctx context.Context, orgID uint64, quotaType string, amount int64) (int64, error) {
	if g == nil || g.limits == nil || g.ledger == nil {
		return 0, errors.New("quota: guard not initialized")
	}
	limit, errLimit := g.limits.GetEffectiveLimit(ctx, orgID, quotaType)
	if errLimit != nil {
		return 0, errLimit
	}
	usage, outcome, errInc := g.ledger.TryIncrement(ctx, orgID, quotaType, amount, limit, g.now())
	if errInc != nil {
		return 0, errInc
	}
	if outcome == Rejected {
		g.journal.ReservationRejected(ctx, orgID, quotaType, limit, usage, amount)
		return 0, &QuotaExceededError{QuotaType: quotaType, Limit: limit, Usage: usage}
	}
	return usage, nil
}

// Release undoes a prior reservation after the surrounding business operation
// failed.
func (g *Guard) Release(ctx context.Context, orgID uint64, quotaType string, amount int64) (int64, error) {
	if g == nil || g.ledger == nil {
		return 0, errors.New("quota: guard not initialized")
	}
	newUsage, errRelease := g.ledger.Release(ctx, orgID, quotaType, amount)
	if errRelease != nil {
		return 0, errRelease
	}
	g.journal.UsageReleased(ctx, orgID, quotaType, amount, newUsage)
	return newUsage, nil
}

// Status returns the quota status tuple for one (organization, quota type)
// pair. Unknown quota type names fail with ErrUnknownQuotaType.
func (g *Guard) Status(ctx context.Context, orgID uint64, quotaType string) (QuotaStatus, error) {
	if g == nil || g.catalog == nil || g.limits == nil || g.ledger == nil {
		return QuotaStatus{}, errors.New("quota: guard not initialized")
	}
	def, ok := g.catalog.Definition(quotaType)
	if !ok {
		return QuotaStatus{}, fmt.Errorf("%w: %s", ErrUnknownQuotaType, quotaType)
	}
	limit, errLimit := g.limits.GetEffectiveLimit(ctx, orgID, def.Name)
	if errLimit != nil {
		return QuotaStatus{}, errLimit
	}
	usage, errUsage := g.ledger.ReadUsage(ctx, orgID, def.Name)
	if errUsage != nil {
		return QuotaStatus{}, errUsage
	}
	return QuotaStatus{
		Name:           def.Name,
		Description:    def.Description,
		EffectiveLimit: limit,
		CurrentUsage:   usage,
		Reached:        limit.Reached(usage),
	}, nil
}

// Overview returns the quota status tuples for one organization, in catalog
// order.
func (g *Guard) Overview(ctx context.Context, orgID uint64) ([]QuotaStatus, error) {
	if g == nil || g.catalog == nil || g.limits == nil || g.ledger == nil {
		return nil, errors.New("quota: guard not initialized")
	}
	defs := g.catalog.Definitions()
	out := make([]QuotaStatus, 0, len(defs))
	for _, def := range defs {
		limit, errLimit := g.limits.GetEffectiveLimit(ctx, orgID, def.Name)
		if errLimit != nil {
			return nil, errLimit
		}
		usage, errUsage := g.ledger.ReadUsage(ctx, orgID, def.Name)
		if errUsage != nil {
			return nil, errUsage
		}
		out = append(out, QuotaStatus{
			Name:           def.Name,
			Description:    def.Description,
			EffectiveLimit: limit,
			CurrentUsage:   usage,
			Reached:        limit.Reached(usage),
		})
	}
	return out, nil
}
