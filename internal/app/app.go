// Package app boots the quota service: configuration, storage, the quota
// engine and the HTTP surfaces.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/router-for-me/OrgQuotaService/internal/config"
	"github.com/router-for-me/OrgQuotaService/internal/db"
	"github.com/router-for-me/OrgQuotaService/internal/events"
	internalhttp "github.com/router-for-me/OrgQuotaService/internal/http"
	"github.com/router-for-me/OrgQuotaService/internal/http/api/admin"
	"github.com/router-for-me/OrgQuotaService/internal/http/api/org"
	"github.com/router-for-me/OrgQuotaService/internal/logging"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"github.com/router-for-me/OrgQuotaService/internal/quota"
	"github.com/router-for-me/OrgQuotaService/internal/security"
	"github.com/router-for-me/OrgQuotaService/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// CreateAdminParams holds inputs for admin account creation.
type CreateAdminParams struct {
	Username     string
	Password     string
	IsSuperAdmin bool
}

// CreateAdmin provisions an admin account from the command line. It is the
// bootstrap path for a fresh deployment where no admin can log in yet.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, params CreateAdminParams) error {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return fmt.Errorf("app: username is required")
	}
	password := strings.TrimSpace(params.Password)
	if password == "" {
		return fmt.Errorf("app: password is required")
	}

	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	var existing int64
	if errCount := conn.WithContext(ctx).Model(&models.Admin{}).
		Where("username = ?", username).
		Count(&existing).Error; errCount != nil {
		return errCount
	}
	if existing > 0 {
		return fmt.Errorf("app: admin %s already exists", username)
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return errHash
	}
	now := time.Now().UTC()
	account := models.Admin{
		Username:     username,
		Password:     hash,
		Active:       true,
		IsSuperAdmin: params.IsSuperAdmin,
		Permissions:  datatypes.JSON("[]"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return conn.WithContext(ctx).Create(&account).Error
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the quota service and blocks until ctx is cancelled or the
// server fails.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	appCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(appCfg.Logging)

	conn, err := db.Open(appCfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	if errSnapshot := settings.RefreshDBConfigSnapshot(ctx, conn); errSnapshot != nil {
		log.WithError(errSnapshot).Warn("settings snapshot load failed")
	}

	jwtCfg, err := config.LoadJWTConfig(configPath)
	if err != nil {
		return err
	}

	catalog := quota.NewCatalog(conn)
	if errRefresh := catalog.Refresh(ctx); errRefresh != nil {
		return errRefresh
	}
	catalog.StartRefresher(ctx)

	var redisClient *redis.Client
	var cache quota.LimitCache = quota.NoopLimitCache{}
	if appCfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     appCfg.Redis.Addr,
			Password: appCfg.Redis.Password,
			DB:       appCfg.Redis.DB,
		})
		if errPing := redisClient.Ping(ctx).Err(); errPing != nil {
			log.WithError(errPing).Warn("redis unreachable at startup, limit cache will retry")
		}
		cache = quota.NewRedisLimitCache(redisClient, appCfg.Quota.LimitCacheTTL())
	}

	limits := quota.NewLimitStore(conn, catalog, cache)
	ledger := quota.NewLedger(conn, catalog, quota.LedgerOptions{LockTimeout: appCfg.Quota.LockTimeout()})
	recorder := events.NewRecorder(conn)
	guard := quota.NewGuard(catalog, limits, ledger, recorder)

	if cleaner := events.NewRetentionCleaner(conn); cleaner != nil {
		cleaner.Start(ctx)
	}

	engine := internalhttp.NewEngine(conn, redisClient)
	admin.RegisterAdminRoutes(engine, conn, jwtCfg, guard, limits, catalog, recorder)
	org.RegisterOrgRoutes(engine, conn, guard)

	log.Infof("starting server with config=%s", configPath)
	return internalhttp.Serve(ctx, appCfg.Server, engine)
}
