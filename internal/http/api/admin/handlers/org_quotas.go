package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/OrgQuotaService/internal/events"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"github.com/router-for-me/OrgQuotaService/internal/quota"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OrgQuotaHandler serves the admin view of per-organization limits and usage.
// Unlike the org-facing surface, responses here carry full numeric detail.
type OrgQuotaHandler struct {
	db       *gorm.DB
	guard    *quota.Guard
	limits   *quota.LimitStore
	recorder *events.Recorder
}

// NewOrgQuotaHandler constructs an OrgQuotaHandler.
func NewOrgQuotaHandler(db *gorm.DB, guard *quota.Guard, limits *quota.LimitStore, recorder *events.Recorder) *OrgQuotaHandler {
	return &OrgQuotaHandler{db: db, guard: guard, limits: limits, recorder: recorder}
}

// findOrganization loads an organization or writes the error response.
func (h *OrgQuotaHandler) findOrganization(c *gin.Context) (models.Organization, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return models.Organization{}, false
	}
	var org models.Organization
	if errFind := h.db.WithContext(c.Request.Context()).First(&org, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
			return models.Organization{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return models.Organization{}, false
	}
	return org, true
}

// Overview returns every quota type with the org's effective limit and usage.
func (h *OrgQuotaHandler) Overview(c *gin.Context) {
	org, ok := h.findOrganization(c)
	if !ok {
		return
	}

	statuses, errOverview := h.guard.Overview(c.Request.Context(), org.ID)
	if errOverview != nil {
		if quota.IsRetryable(errOverview) {
			c.Header("Retry-After", "1")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "quota store unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota overview failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"org_id": org.ID,
		"name":   org.Name,
		"quotas": statuses,
	})
}

// setLimitRequest defines the request body for limit writes. Exactly one of
// clear, unbounded or limit decides the action; clear wins over the others.
type setLimitRequest struct {
	Limit     *int64 `json:"limit"`
	Unbounded *bool  `json:"unbounded"`
	Clear     *bool  `json:"clear"`
}

// SetLimit writes or clears an organization's limit override for one quota
// type and journals the change.
func (h *OrgQuotaHandler) SetLimit(c *gin.Context) {
	org, ok := h.findOrganization(c)
	if !ok {
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing quota type"})
		return
	}

	var body setLimitRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	actor := readAdminUsernameFromContext(c)
	ctx := c.Request.Context()

	var (
		errWrite error
		cleared  bool
		applied  quota.Limit
	)
	switch {
	case body.Clear != nil && *body.Clear:
		cleared = true
		errWrite = h.limits.ClearLimit(ctx, org.ID, name)
	case body.Unbounded != nil && *body.Unbounded:
		applied = quota.Unlimited()
		errWrite = h.limits.SetLimit(ctx, org.ID, name, applied)
	case body.Limit != nil:
		applied = quota.Bounded(*body.Limit)
		errWrite = h.limits.SetLimit(ctx, org.ID, name, applied)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing limit"})
		return
	}

	if errWrite != nil {
		switch {
		case errors.Is(errWrite, quota.ErrUnknownQuotaType):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown quota type"})
		case errors.Is(errWrite, quota.ErrInvalidLimit):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		case quota.IsRetryable(errWrite):
			c.Header("Retry-After", "1")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "quota store unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "set limit failed"})
		}
		return
	}

	h.recorder.LimitUpdated(ctx, org.ID, name, applied, cleared, actor)
	log.Infof("quota limit updated org=%d type=%s cleared=%t by=%s", org.ID, name, cleared, actor)

	effective, errEffective := h.limits.GetEffectiveLimit(ctx, org.ID, name)
	if errEffective != nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"quota_type":      name,
		"effective_limit": effective,
	})
}

// readAdminUsernameFromContext returns the acting admin's username for audit
// entries, empty when unauthenticated paths reach here in tests.
func readAdminUsernameFromContext(c *gin.Context) string {
	value, ok := c.Get("adminUsername")
	if !ok {
		return ""
	}
	username, _ := value.(string)
	return username
}
