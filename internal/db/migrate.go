package db

import (
	"fmt"

	"github.com/router-for-me/OrgQuotaService/internal/models"
	"gorm.io/gorm"
)

// quotaTypeSeed describes one catalog entry created at first migration.
type quotaTypeSeed struct {
	name        string
	description string
	limit       int64
	unbounded   bool
	windowed    bool
	windowSecs  int64
}

// seededQuotaTypes is the built-in quota catalog. Existing rows are never
// overwritten so administrative edits survive restarts.
var seededQuotaTypes = []quotaTypeSeed{
	{name: "max_users", description: "Maximum number of user accounts in the organization.", limit: 100},
	{name: "max_user_groups", description: "Maximum number of user groups in the organization.", limit: 50},
	{name: "max_messages_per_day", description: "Messages the organization may send per day.", limit: 10000, windowed: true, windowSecs: 86400},
	{name: "max_storage_bytes", description: "Total attachment storage in bytes.", limit: 10 * 1024 * 1024 * 1024},
	{name: "max_file_size_bytes", description: "Largest accepted single file upload in bytes.", limit: 25 * 1024 * 1024},
}

// Migrate creates or updates the schema and seeds the quota catalog.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errMigrate := conn.AutoMigrate(
		&models.Organization{},
		&models.QuotaType{},
		&models.QuotaLimit{},
		&models.UsageRecord{},
		&models.QuotaEvent{},
		&models.Admin{},
		&models.Setting{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}

	return seedQuotaTypes(conn)
}

// seedQuotaTypes inserts missing catalog rows.
func seedQuotaTypes(conn *gorm.DB) error {
	for _, seed := range seededQuotaTypes {
		row := models.QuotaType{
			Name:             seed.name,
			Description:      seed.description,
			DefaultLimit:     seed.limit,
			DefaultUnbounded: seed.unbounded,
			TimeWindowed:     seed.windowed,
			WindowSeconds:    seed.windowSecs,
		}
		if errSeed := conn.Where(models.QuotaType{Name: seed.name}).FirstOrCreate(&row).Error; errSeed != nil {
			return fmt.Errorf("db: seed quota type %s: %w", seed.name, errSeed)
		}
	}
	return nil
}
