package org

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"gorm.io/gorm"
)

func setupOrgAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:org_auth_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.Organization{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func newOrgAuthTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/v0/org")
	group.Use(orgAuthMiddleware(db))
	group.GET("/whoami", func(c *gin.Context) {
		orgID, _ := c.Get("orgID")
		c.JSON(http.StatusOK, gin.H{"org_id": orgID})
	})
	return router
}

func TestOrgAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	db := setupOrgAuthTestDB(t)
	router := newOrgAuthTestRouter(t, db)

	req := httptest.NewRequest(http.MethodGet, "/v0/org/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestOrgAuthMiddlewareRejectsNonBearerHeader(t *testing.T) {
	db := setupOrgAuthTestDB(t)
	router := newOrgAuthTestRouter(t, db)

	req := httptest.NewRequest(http.MethodGet, "/v0/org/whoami", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestOrgAuthMiddlewareRejectsUnknownKey(t *testing.T) {
	db := setupOrgAuthTestDB(t)
	router := newOrgAuthTestRouter(t, db)

	req := httptest.NewRequest(http.MethodGet, "/v0/org/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestOrgAuthMiddlewareRejectsDisabledOrg(t *testing.T) {
	db := setupOrgAuthTestDB(t)
	org := models.Organization{Name: "acme", APIKey: "sk-disabled", Active: false}
	if errCreate := db.Create(&org).Error; errCreate != nil {
		t.Fatalf("create org: %v", errCreate)
	}
	router := newOrgAuthTestRouter(t, db)

	req := httptest.NewRequest(http.MethodGet, "/v0/org/whoami", nil)
	req.Header.Set("Authorization", "Bearer sk-disabled")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", w.Code)
	}
}

func TestOrgAuthMiddlewareLoadsOrgIntoContext(t *testing.T) {
	db := setupOrgAuthTestDB(t)
	org := models.Organization{Name: "acme", APIKey: "sk-live-key", Active: true}
	if errCreate := db.Create(&org).Error; errCreate != nil {
		t.Fatalf("create org: %v", errCreate)
	}
	router := newOrgAuthTestRouter(t, db)

	req := httptest.NewRequest(http.MethodGet, "/v0/org/whoami", nil)
	req.Header.Set("Authorization", "Bearer sk-live-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	want := fmt.Sprintf(`{"org_id":%d}`, org.ID)
	if w.Body.String() != want {
		t.Fatalf("expected body %s, got %s", want, w.Body.String())
	}
}
