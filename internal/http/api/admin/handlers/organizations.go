package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/router-for-me/OrgQuotaService/internal/db"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"github.com/router-for-me/OrgQuotaService/internal/security"
	"github.com/router-for-me/OrgQuotaService/internal/util"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OrganizationHandler manages organization endpoints.
type OrganizationHandler struct {
	db *gorm.DB
}

// NewOrganizationHandler constructs an OrganizationHandler.
func NewOrganizationHandler(db *gorm.DB) *OrganizationHandler {
	return &OrganizationHandler{db: db}
}

// organizationResponse renders an organization without exposing the full API
// key; the key is shown in full only on create and regenerate.
func organizationResponse(org models.Organization) gin.H {
	return gin.H{
		"id":             org.ID,
		"name":           org.Name,
		"api_key_masked": util.HideAPIKey(org.APIKey),
		"active":         org.Active,
		"created_at":     org.CreatedAt,
		"updated_at":     org.UpdatedAt,
	}
}

// organizationListQuery defines filters for the organization list.
type organizationListQuery struct {
	Page   int    `form:"page,default=1"`   // Page number.
	Limit  int    `form:"limit,default=20"` // Page size.
	Q      string `form:"q"`                // Name search.
	Active string `form:"active"`           // Optional "true"/"false" filter.
}

// List returns organizations with optional filters, paged.
func (h *OrganizationHandler) List(c *gin.Context) {
	var q organizationListQuery
	if errBind := c.ShouldBindQuery(&q); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	query := h.db.WithContext(c.Request.Context()).Model(&models.Organization{})
	if search := strings.TrimSpace(q.Q); search != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+search+"%")
		query = query.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "name"), pattern)
	}
	if active := strings.TrimSpace(q.Active); active != "" {
		if parsed, errParse := strconv.ParseBool(active); errParse == nil {
			query = query.Where("active = ?", parsed)
		}
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count organizations failed"})
		return
	}

	var rows []models.Organization
	if errFind := query.Order("created_at DESC").
		Offset((q.Page - 1) * q.Limit).Limit(q.Limit).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list organizations failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, organizationResponse(row))
	}
	c.JSON(http.StatusOK, gin.H{
		"orgs":  out,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}

// createOrganizationRequest defines the request body for organization creation.
type createOrganizationRequest struct {
	Name string `json:"name"`
}

// Create registers a new organization and returns its API key once.
func (h *OrganizationHandler) Create(c *gin.Context) {
	var body createOrganizationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}

	var count int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Organization{}).
		Where("name = ?", name).Count(&count).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "name already exists"})
		return
	}

	apiKey, errKey := security.GenerateAPIKey()
	if errKey != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate api key failed"})
		return
	}

	now := time.Now().UTC()
	org := models.Organization{
		Name:      name,
		APIKey:    apiKey,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&org).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create organization failed"})
		return
	}

	log.Infof("organization created id=%d name=%s key=%s", org.ID, org.Name, util.HideAPIKey(org.APIKey))
	c.JSON(http.StatusCreated, gin.H{
		"id":         org.ID,
		"name":       org.Name,
		"api_key":    org.APIKey,
		"active":     org.Active,
		"created_at": org.CreatedAt,
	})
}

// Get returns a single organization by ID.
func (h *OrganizationHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var org models.Organization
	if errFind := h.db.WithContext(c.Request.Context()).First(&org, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, organizationResponse(org))
}

// updateOrganizationRequest defines the request body for organization updates.
type updateOrganizationRequest struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

// Update modifies organization fields.
func (h *OrganizationHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updateOrganizationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = name
	}
	if body.Active != nil {
		updates["active"] = *body.Active
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Organization{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RegenerateKey rotates the organization API key and returns the new key once.
// The old key stops working immediately.
func (h *OrganizationHandler) RegenerateKey(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	apiKey, errKey := security.GenerateAPIKey()
	if errKey != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate api key failed"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Organization{}).
		Where("id = ?", id).
		Updates(map[string]any{"api_key": apiKey, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "regenerate key failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	log.Infof("organization api key rotated id=%d key=%s", id, util.HideAPIKey(apiKey))
	c.JSON(http.StatusOK, gin.H{"id": id, "api_key": apiKey})
}
