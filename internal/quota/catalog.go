package quota

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/router-for-me/OrgQuotaService/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// catalogRefreshInterval is the cadence of the background snapshot reload.
const catalogRefreshInterval = 5 * time.Minute

// catalogSnapshot is an immutable view of the quota_types table.
type catalogSnapshot struct {
	list   []Definition
	byName map[string]Definition
}

// Catalog serves quota type definitions from an in-memory snapshot. The
// snapshot is replaced atomically on Refresh; reads never touch the database.
type Catalog struct {
	db       *gorm.DB
	snapshot atomic.Value // stores catalogSnapshot
}

// NewCatalog builds a catalog with an empty snapshot. Call Refresh before
// serving traffic.
func NewCatalog(conn *gorm.DB) *Catalog {
	c := &Catalog{db: conn}
	c.snapshot.Store(catalogSnapshot{byName: map[string]Definition{}})
	return c
}

// Refresh reloads all quota type definitions from the database.
func (c *Catalog) Refresh(ctx context.Context) error {
	if c == nil || c.db == nil {
		return errors.New("quota: catalog not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.QuotaType
	if errFind := c.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; errFind != nil {
		return storeFailure("load quota types", errFind)
	}

	list := make([]Definition, 0, len(rows))
	byName := make(map[string]Definition, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		def := Definition{
			Name:         name,
			Description:  row.Description,
			Default:      Limit{Value: row.DefaultLimit, Unbounded: row.DefaultUnbounded},
			TimeWindowed: row.TimeWindowed,
			Window:       time.Duration(row.WindowSeconds) * time.Second,
		}
		if def.TimeWindowed && def.Window <= 0 {
			// Misconfigured windowed type; fall back to daily.
			def.Window = 24 * time.Hour
		}
		list = append(list, def)
		byName[name] = def
	}

	c.snapshot.Store(catalogSnapshot{list: list, byName: byName})
	return nil
}

// GetDefault returns the system-wide default limit for a quota type. Unknown
// names report found == false and must be treated as a caller error, never as
// a zero limit.
func (c *Catalog) GetDefault(name string) (Limit, bool) {
	def, ok := c.Definition(name)
	if !ok {
		return Limit{}, false
	}
	return def.Default, true
}

// Definition returns the full definition for a quota type.
func (c *Catalog) Definition(name string) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	snap := c.load()
	def, ok := snap.byName[strings.TrimSpace(name)]
	return def, ok
}

// Definitions returns all definitions in catalog order.
func (c *Catalog) Definitions() []Definition {
	if c == nil {
		return nil
	}
	snap := c.load()
	out := make([]Definition, len(snap.list))
	copy(out, snap.list)
	return out
}

// StartRefresher reloads the snapshot periodically until ctx is done, so
// out-of-band database edits converge without a restart.
func (c *Catalog) StartRefresher(ctx context.Context) {
	if c == nil || c.db == nil || ctx == nil {
		return
	}
	go func() {
		for {
			timer := time.NewTimer(catalogRefreshInterval)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return
			case <-timer.C:
			}
			if errRefresh := c.Refresh(ctx); errRefresh != nil {
				log.WithError(errRefresh).Warn("quota catalog refresh failed")
			}
		}
	}()
}

// load returns the current snapshot with safe defaults.
func (c *Catalog) load() catalogSnapshot {
	v := c.snapshot.Load()
	snap, ok := v.(catalogSnapshot)
	if !ok || snap.byName == nil {
		return catalogSnapshot{byName: map[string]Definition{}}
	}
	return snap
}
