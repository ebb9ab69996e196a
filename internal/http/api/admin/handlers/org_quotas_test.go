package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/router-for-me/OrgQuotaService/internal/events"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"github.com/router-for-me/OrgQuotaService/internal/quota"
	"gorm.io/gorm"
)

func setupOrgQuotaAdminTestDB(t *testing.T) (*gorm.DB, models.Organization) {
	t.Helper()
	dsn := fmt.Sprintf("file:admin_org_quota_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(
		&models.Organization{},
		&models.QuotaType{},
		&models.QuotaLimit{},
		&models.UsageRecord{},
		&models.QuotaEvent{},
	); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	seed := []models.QuotaType{
		{Name: "max_users", Description: "Maximum user accounts.", DefaultLimit: 100},
		{Name: "max_storage_bytes", Description: "Attachment storage.", DefaultLimit: 1024},
	}
	if errSeed := db.Create(&seed).Error; errSeed != nil {
		t.Fatalf("seed quota types: %v", errSeed)
	}
	org := models.Organization{Name: "acme", APIKey: "sk-acme", Active: true}
	if errCreate := db.Create(&org).Error; errCreate != nil {
		t.Fatalf("create org: %v", errCreate)
	}
	return db, org
}

func newOrgQuotaAdminTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog := quota.NewCatalog(db)
	if errRefresh := catalog.Refresh(context.Background()); errRefresh != nil {
		t.Fatalf("refresh catalog: %v", errRefresh)
	}
	limits := quota.NewLimitStore(db, catalog, quota.NoopLimitCache{})
	ledger := quota.NewLedger(db, catalog, quota.LedgerOptions{})
	recorder := events.NewRecorder(db)
	guard := quota.NewGuard(catalog, limits, ledger, recorder)
	handler := NewOrgQuotaHandler(db, guard, limits, recorder)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("adminUsername", "root")
		c.Next()
	})
	router.GET("/v0/admin/orgs/:id/quotas", handler.Overview)
	router.PUT("/v0/admin/orgs/:id/quotas/:name", handler.SetLimit)
	return router
}

func putJSON(router *gin.Engine, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetLimitWritesOverrideAndJournals(t *testing.T) {
	db, org := setupOrgQuotaAdminTestDB(t)
	router := newOrgQuotaAdminTestRouter(t, db)

	target := fmt.Sprintf("/v0/admin/orgs/%d/quotas/max_users", org.ID)
	w := putJSON(router, target, `{"limit":25}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		EffectiveLimit struct {
			Value     int64 `json:"value"`
			Unbounded bool  `json:"unbounded"`
		} `json:"effective_limit"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.EffectiveLimit.Value != 25 || resp.EffectiveLimit.Unbounded {
		t.Fatalf("unexpected effective limit: %+v", resp.EffectiveLimit)
	}

	var override models.QuotaLimit
	if errFind := db.Where("org_id = ? AND quota_type_name = ?", org.ID, "max_users").First(&override).Error; errFind != nil {
		t.Fatalf("load override: %v", errFind)
	}
	if override.LimitValue != 25 || override.Unbounded {
		t.Fatalf("unexpected stored override: %+v", override)
	}

	var event models.QuotaEvent
	if errFind := db.Where("org_id = ? AND action = ?", org.ID, models.QuotaEventLimitUpdated).First(&event).Error; errFind != nil {
		t.Fatalf("load limit event: %v", errFind)
	}
	var detail struct {
		Actor string `json:"actor"`
	}
	if errDecode := json.Unmarshal(event.Detail, &detail); errDecode != nil {
		t.Fatalf("decode event detail: %v", errDecode)
	}
	if detail.Actor != "root" {
		t.Fatalf("expected actor root, got %q", detail.Actor)
	}
}

func TestSetLimitUnbounded(t *testing.T) {
	db, org := setupOrgQuotaAdminTestDB(t)
	router := newOrgQuotaAdminTestRouter(t, db)

	target := fmt.Sprintf("/v0/admin/orgs/%d/quotas/max_users", org.ID)
	w := putJSON(router, target, `{"unbounded":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		EffectiveLimit struct {
			Unbounded bool `json:"unbounded"`
		} `json:"effective_limit"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if !resp.EffectiveLimit.Unbounded {
		t.Fatalf("expected unbounded effective limit")
	}
}

func TestSetLimitClearFallsBackToDefault(t *testing.T) {
	db, org := setupOrgQuotaAdminTestDB(t)
	router := newOrgQuotaAdminTestRouter(t, db)

	target := fmt.Sprintf("/v0/admin/orgs/%d/quotas/max_users", org.ID)
	if w := putJSON(router, target, `{"limit":10}`); w.Code != http.StatusOK {
		t.Fatalf("expected status 200 writing override, got %d", w.Code)
	}

	w := putJSON(router, target, `{"clear":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 clearing, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		EffectiveLimit struct {
			Value int64 `json:"value"`
		} `json:"effective_limit"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.EffectiveLimit.Value != 100 {
		t.Fatalf("expected default 100 after clear, got %d", resp.EffectiveLimit.Value)
	}

	var count int64
	if errCount := db.Model(&models.QuotaLimit{}).Where("org_id = ?", org.ID).Count(&count).Error; errCount != nil {
		t.Fatalf("count overrides: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected override row deleted, found %d", count)
	}
}

func TestSetLimitValidation(t *testing.T) {
	db, org := setupOrgQuotaAdminTestDB(t)
	router := newOrgQuotaAdminTestRouter(t, db)

	target := fmt.Sprintf("/v0/admin/orgs/%d/quotas/max_users", org.ID)
	if w := putJSON(router, target, `{"limit":-5}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for negative limit, got %d", w.Code)
	}
	if w := putJSON(router, target, `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for empty body, got %d", w.Code)
	}

	unknownType := fmt.Sprintf("/v0/admin/orgs/%d/quotas/no_such_type", org.ID)
	if w := putJSON(router, unknownType, `{"limit":5}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown type, got %d", w.Code)
	}

	if w := putJSON(router, "/v0/admin/orgs/9999/quotas/max_users", `{"limit":5}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown org, got %d", w.Code)
	}
	if w := putJSON(router, "/v0/admin/orgs/abc/quotas/max_users", `{"limit":5}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad org id, got %d", w.Code)
	}
}

func TestAdminOverviewCarriesNumbers(t *testing.T) {
	db, org := setupOrgQuotaAdminTestDB(t)
	router := newOrgQuotaAdminTestRouter(t, db)

	target := fmt.Sprintf("/v0/admin/orgs/%d/quotas/max_users", org.ID)
	if w := putJSON(router, target, `{"limit":50}`); w.Code != http.StatusOK {
		t.Fatalf("expected status 200 writing override, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v0/admin/orgs/%d/quotas", org.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		OrgID  uint64 `json:"org_id"`
		Quotas []struct {
			Name           string `json:"name"`
			EffectiveLimit struct {
				Value int64 `json:"value"`
			} `json:"effective_limit"`
			CurrentUsage int64 `json:"current_usage"`
		} `json:"quotas"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.OrgID != org.ID {
		t.Fatalf("expected org_id %d, got %d", org.ID, resp.OrgID)
	}
	if len(resp.Quotas) != 2 {
		t.Fatalf("expected 2 quota rows, got %d", len(resp.Quotas))
	}
	if resp.Quotas[0].Name != "max_users" || resp.Quotas[0].EffectiveLimit.Value != 50 {
		t.Fatalf("expected override reflected in overview: %+v", resp.Quotas[0])
	}
}
