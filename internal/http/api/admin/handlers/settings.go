package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"github.com/router-for-me/OrgQuotaService/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingHandler manages runtime-tunable settings stored in the database.
// Writes refresh the process-wide snapshot so changes apply without restart.
type SettingHandler struct {
	db *gorm.DB
}

// NewSettingHandler constructs a SettingHandler.
func NewSettingHandler(db *gorm.DB) *SettingHandler {
	return &SettingHandler{db: db}
}

// List returns all settings as a key to JSON value map.
func (h *SettingHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Order("key ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	values := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	c.JSON(http.StatusOK, gin.H{"settings": values})
}

// Update upserts the provided settings and reloads the snapshot.
func (h *SettingHandler) Update(c *gin.Context) {
	var body map[string]json.RawMessage
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings to update"})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	for key, value := range body {
		key = strings.TrimSpace(key)
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty setting key"})
			return
		}
		row := models.Setting{Key: key, Value: value, UpdatedAt: now}
		errUpsert := h.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"value":      value,
				"updated_at": now,
			}),
		}).Create(&row).Error
		if errUpsert != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, h.db); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings snapshot refresh failed")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
