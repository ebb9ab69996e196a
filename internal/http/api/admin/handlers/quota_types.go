package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"github.com/router-for-me/OrgQuotaService/internal/quota"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// QuotaTypeHandler manages the quota type catalog. Types are seeded by
// migration; the API edits descriptions and defaults but never the window
// shape, which consumers depend on.
type QuotaTypeHandler struct {
	db      *gorm.DB
	catalog *quota.Catalog
}

// NewQuotaTypeHandler constructs a QuotaTypeHandler.
func NewQuotaTypeHandler(db *gorm.DB, catalog *quota.Catalog) *QuotaTypeHandler {
	return &QuotaTypeHandler{db: db, catalog: catalog}
}

func quotaTypeResponse(qt models.QuotaType) gin.H {
	return gin.H{
		"id":                qt.ID,
		"name":              qt.Name,
		"description":       qt.Description,
		"default_limit":     qt.DefaultLimit,
		"default_unbounded": qt.DefaultUnbounded,
		"time_windowed":     qt.TimeWindowed,
		"window_seconds":    qt.WindowSeconds,
		"updated_at":        qt.UpdatedAt,
	}
}

// List returns every known quota type.
func (h *QuotaTypeHandler) List(c *gin.Context) {
	var types []models.QuotaType
	if errFind := h.db.WithContext(c.Request.Context()).Order("id ASC").Find(&types).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	rows := make([]gin.H, 0, len(types))
	for _, qt := range types {
		rows = append(rows, quotaTypeResponse(qt))
	}
	c.JSON(http.StatusOK, gin.H{"quota_types": rows})
}

// updateQuotaTypeRequest carries the editable quota type fields. Window shape
// is deliberately absent.
type updateQuotaTypeRequest struct {
	Description      *string `json:"description"`
	DefaultLimit     *int64  `json:"default_limit"`
	DefaultUnbounded *bool   `json:"default_unbounded"`
}

// Update edits a quota type's description or default and refreshes the
// in-memory catalog so new defaults apply without restart.
func (h *QuotaTypeHandler) Update(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing quota type"})
		return
	}

	var body updateQuotaTypeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Description != nil {
		updates["description"] = strings.TrimSpace(*body.Description)
	}
	if body.DefaultLimit != nil {
		if *body.DefaultLimit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		updates["default_limit"] = *body.DefaultLimit
	}
	if body.DefaultUnbounded != nil {
		updates["default_unbounded"] = *body.DefaultUnbounded
	}
	if len(updates) == 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.QuotaType{}).
		Where("name = ?", name).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown quota type"})
		return
	}

	if errRefresh := h.catalog.Refresh(c.Request.Context()); errRefresh != nil {
		log.WithError(errRefresh).Warn("quota catalog refresh after type update failed")
	}

	var qt models.QuotaType
	if errFind := h.db.WithContext(c.Request.Context()).Where("name = ?", name).First(&qt).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown quota type"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, quotaTypeResponse(qt))
}
