package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"gorm.io/gorm"
)

// EventHandler handles admin quota event journal listing.
type EventHandler struct {
	db *gorm.DB
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(db *gorm.DB) *EventHandler {
	return &EventHandler{db: db}
}

type eventListQuery struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	OrgID     string `form:"org_id"`
	QuotaType string `form:"quota_type"`
	Action    string `form:"action"`
}

// List returns journal entries newest first with optional filters on
// organization, quota type and action.
func (h *EventHandler) List(c *gin.Context) {
	var q eventListQuery
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

	tx := h.db.WithContext(c.Request.Context()).Model(&models.QuotaEvent{})
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
	if action := strings.TrimSpace(q.Action); action != "" {
		tx = tx.Where("action = ?", action)
	}

	var total int64
	if errCount := tx.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	offset := (q.Page - 1) * q.Limit
	var rows []models.QuotaEvent
	if errFind := tx.Order("created_at DESC, id DESC").Limit(q.Limit).Offset(offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":         row.ID,
			"org_id":     row.OrgID,
			"quota_type": row.QuotaTypeName,
			"action":     row.Action,
			"detail":     row.Detail,
			"created_at": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"events": out,
		"total":  total,
		"page":   q.Page,
		"limit":  q.Limit,
	})
}
