package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewHealthHandler constructs a HealthHandler. The redis client may be nil
// when no limit cache is configured.
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// Healthz checks database connectivity and returns status. A down limit
// cache is reported but does not fail the check because the limit store
// falls back to database reads.
func (h *HealthHandler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	if errPing := sqlDB.PingContext(c.Request.Context()); errPing != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	resp := gin.H{"ok": true}
	if h.redis != nil {
		if errPing := h.redis.Ping(c.Request.Context()).Err(); errPing != nil {
			resp["cache"] = "down"
		} else {
			resp["cache"] = "ok"
		}
	}
	c.JSON(http.StatusOK, resp)
}
