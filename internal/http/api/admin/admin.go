// Package admin wires the administrative HTTP API: authentication, MFA,
// organization and quota management, and operational listings.
package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/OrgQuotaService/internal/config"
	"github.com/router-for-me/OrgQuotaService/internal/events"
	"github.com/router-for-me/OrgQuotaService/internal/http/api/admin/handlers"
	"github.com/router-for-me/OrgQuotaService/internal/quota"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers public and authenticated admin routes.
// Routes behind the permission middleware must stay in sync with the
// permission definitions.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, guard *quota.Guard, limits *quota.LimitStore, catalog *quota.Catalog, recorder *events.Recorder) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	group.POST("/login", authHandler.Login)
	group.POST("/login/prepare", authHandler.LoginPrepare)
	group.POST("/login/totp", authHandler.LoginTOTP)
	group.POST("/login/passkey/options", authHandler.LoginPasskeyOptions)
	group.POST("/login/passkey/verify", authHandler.LoginPasskeyVerify)

	authed := group.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))

	mfaHandler := handlers.NewMFAHandler(db)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)
	authed.POST("/mfa/passkey/options", mfaHandler.BeginPasskeyRegistration)
	authed.POST("/mfa/passkey/verify", mfaHandler.FinishPasskeyRegistration)
	authed.POST("/mfa/passkey/disable", mfaHandler.DisablePasskey)

	permissionHandler := handlers.NewPermissionHandler()
	authed.GET("/permissions", permissionHandler.List)

	versionHandler := handlers.NewVersionHandler()
	authed.GET("/version", versionHandler.GetVersion)

	gated := authed.Group("")
	gated.Use(adminPermissionMiddleware(db))

	orgHandler := handlers.NewOrganizationHandler(db)
	gated.GET("/orgs", orgHandler.List)
	gated.POST("/orgs", orgHandler.Create)
	gated.GET("/orgs/:id", orgHandler.Get)
	gated.PUT("/orgs/:id", orgHandler.Update)
	gated.POST("/orgs/:id/regenerate-key", orgHandler.RegenerateKey)

	orgQuotaHandler := handlers.NewOrgQuotaHandler(db, guard, limits, recorder)
	gated.GET("/orgs/:id/quotas", orgQuotaHandler.Overview)
	gated.PUT("/orgs/:id/quotas/:name", orgQuotaHandler.SetLimit)

	quotaTypeHandler := handlers.NewQuotaTypeHandler(db, catalog)
	gated.GET("/quota-types", quotaTypeHandler.List)
	gated.PUT("/quota-types/:name", quotaTypeHandler.Update)

	usageHandler := handlers.NewUsageHandler(db)
	gated.GET("/usage", usageHandler.List)

	eventHandler := handlers.NewEventHandler(db)
	gated.GET("/events", eventHandler.List)

	settingHandler := handlers.NewSettingHandler(db)
	gated.GET("/settings", settingHandler.List)
	gated.PUT("/settings", settingHandler.Update)

	adminHandler := handlers.NewAdminHandler(db)
	gated.GET("/admins", adminHandler.List)
	gated.POST("/admins", adminHandler.Create)
	gated.GET("/admins/:id", adminHandler.Get)
	gated.PUT("/admins/:id", adminHandler.Update)
	gated.DELETE("/admins/:id", adminHandler.Delete)
	gated.PUT("/admins/:id/password", adminHandler.ChangePassword)
}
