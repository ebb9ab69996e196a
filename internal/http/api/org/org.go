// Package org serves the organization-facing quota API. Callers authenticate
// with their organization API key and can only act on their own quotas.
package org

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/OrgQuotaService/internal/http/api/org/handlers"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"github.com/router-for-me/OrgQuotaService/internal/quota"
	"gorm.io/gorm"
)

// RegisterOrgRoutes registers the organization-facing quota routes.
func RegisterOrgRoutes(r *gin.Engine, db *gorm.DB, guard *quota.Guard) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0/org")
	group.Use(orgAuthMiddleware(db))

	quotaHandler := handlers.NewQuotaHandler(guard)
	group.GET("/quotas", quotaHandler.Overview)
	group.GET("/quotas/:name", quotaHandler.Get)
	group.GET("/quotas/:name/check", quotaHandler.Check)
	group.POST("/quotas/:name/consume", quotaHandler.Consume)
	group.POST("/quotas/:name/release", quotaHandler.Release)
}

// orgAuthMiddleware authenticates by API key and loads the organization into
// context.
func orgAuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		apiKey := strings.TrimPrefix(authHeader, "Bearer ")
		if apiKey == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		apiKey = strings.TrimSpace(apiKey)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		var org models.Organization
		if errFind := db.WithContext(c.Request.Context()).Where("api_key = ?", apiKey).First(&org).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		if !org.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "organization is disabled"})
			return
		}

		c.Set("orgID", org.ID)
		c.Set("orgName", org.Name)
		c.Next()
	}
}
