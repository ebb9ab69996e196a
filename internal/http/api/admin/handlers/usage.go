package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"gorm.io/gorm"
)

// UsageHandler handles admin usage listing endpoints.
type UsageHandler struct {
	db *gorm.DB
}

// NewUsageHandler constructs a UsageHandler.
func NewUsageHandler(db *gorm.DB) *UsageHandler {
	return &UsageHandler{db: db}
}

type usageListQuery struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	OrgID     string `form:"org_id"`
	QuotaType string `form:"quota_type"`
}

// List returns usage records with optional org and quota type filters,
// most recently updated first.
func (h *UsageHandler) List(c *gin.Context) {
	var q usageListQuery
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

	tx := h.db.WithContext(c.Request.Context()).Model(&models.UsageRecord{})
	if orgIDStr := strings.TrimSpace(q.OrgID); orgIDStr != "" {
		orgID, errParse := strconv.ParseUint(orgIDStr, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid org_id"})
			return
		}
		tx = tx.Where("org_id = ?", orgID)
	}
	if quotaType := strings.TrimSpace(q.QuotaType); quotaType != "" {
		tx = tx.Where("quota_type_name = ?", quotaType)
	}

	var total int64
	if errCount := tx.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	offset := (q.Page - 1) * q.Limit
	var rows []models.UsageRecord
	if errFind := tx.Order("updated_at DESC").Limit(q.Limit).Offset(offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":            row.ID,
			"org_id":        row.OrgID,
			"quota_type":    row.QuotaTypeName,
			"current_usage": row.CurrentUsage,
			"period_start":  row.PeriodStart,
			"period_end":    row.PeriodEnd,
			"updated_at":    row.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"usage": out,
		"total": total,
		"page":  q.Page,
		"limit": q.Limit,
	})
}
