// Package http assembles the gin engine and runs the HTTP server.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/router-for-me/OrgQuotaService/internal/config"
	adminhandlers "github.com/router-for-me/OrgQuotaService/internal/http/api/admin/handlers"
	"github.com/router-for-me/OrgQuotaService/internal/metrics"
	"github.com/router-for-me/OrgQuotaService/internal/util"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewEngine builds the gin engine with request logging, panic recovery and
// metrics middleware plus the unauthenticated operational endpoints. API
// routes are registered by the callers that own their dependencies.
func NewEngine(db *gorm.DB, redisClient *redis.Client) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(requestLogMiddleware(), gin.Recovery(), metrics.GinMiddleware())

	healthHandler := adminhandlers.NewHealthHandler(db, redisClient)
	engine.GET("/healthz", healthHandler.Healthz)
	engine.GET("/metrics", metrics.Handler())
	return engine
}

// Serve runs the server until ctx is cancelled, then drains in-flight
// requests within the configured shutdown timeout.
func Serve(ctx context.Context, cfg config.ServerConfig, engine *gin.Engine) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	errChan := make(chan error, 1)
	go func() {
		if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
			errChan <- errListen
		}
	}()
	log.Infof("listening on %s", cfg.Addr())

	select {
	case <-ctx.Done():
	case errServe := <-errChan:
		return errServe
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
		return errShutdown
	}
	log.Info("server stopped")
	return nil
}

// requestLogMiddleware tags each request with an ID and logs its outcome.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set("requestID", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		fields := log.Fields{
			"request_id":  requestID,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if rawQuery := c.Request.URL.RawQuery; rawQuery != "" {
			fields["query"] = util.MaskSensitiveQuery(rawQuery)
		}
		log.WithFields(fields).Info("request completed")
	}
}
