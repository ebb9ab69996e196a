package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/router-for-me/OrgQuotaService/internal/events"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"github.com/router-for-me/OrgQuotaService/internal/quota"
	"gorm.io/gorm"
)

func setupOrgQuotaTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:org_quota_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(
		&models.QuotaType{},
		&models.QuotaLimit{},
		&models.UsageRecord{},
		&models.QuotaEvent{},
	); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	seed := []models.QuotaType{
		{Name: "max_users", Description: "Maximum user accounts.", DefaultLimit: 5},
		{Name: "max_messages_per_day", Description: "Daily message budget.", DefaultLimit: 100, TimeWindowed: true, WindowSeconds: 86400},
	}
	if errSeed := db.Create(&seed).Error; errSeed != nil {
		t.Fatalf("seed quota types: %v", errSeed)
	}
	return db
}

func newOrgQuotaTestGuard(t *testing.T, db *gorm.DB) *quota.Guard {
	t.Helper()
	catalog := quota.NewCatalog(db)
	if errRefresh := catalog.Refresh(context.Background()); errRefresh != nil {
		t.Fatalf("refresh catalog: %v", errRefresh)
	}
	limits := quota.NewLimitStore(db, catalog, quota.NoopLimitCache{})
	ledger := quota.NewLedger(db, catalog, quota.LedgerOptions{})
	return quota.NewGuard(catalog, limits, ledger, events.NewRecorder(db))
}

func newOrgQuotaTestRouter(t *testing.T, db *gorm.DB, orgID uint64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewQuotaHandler(newOrgQuotaTestGuard(t, db))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("orgID", orgID)
		c.Next()
	})
	router.GET("/v0/org/quotas", handler.Overview)
	router.GET("/v0/org/quotas/:name", handler.Get)
	router.GET("/v0/org/quotas/:name/check", handler.Check)
	router.POST("/v0/org/quotas/:name/consume", handler.Consume)
	router.POST("/v0/org/quotas/:name/release", handler.Release)
	return router
}

func postJSON(router *gin.Engine, target, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(http.MethodPost, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestConsumeAppliesAndReturnsUsage(t *testing.T) {
	db := setupOrgQuotaTestDB(t)
	router := newOrgQuotaTestRouter(t, db, 7)

	w := postJSON(router, "/v0/org/quotas/max_users/consume", `{"amount":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		QuotaType string `json:"quota_type"`
		Usage     int64  `json:"usage"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.QuotaType != "max_users" {
		t.Fatalf("expected quota_type max_users, got %s", resp.QuotaType)
	}
	if resp.Usage != 3 {
		t.Fatalf("expected usage 3, got %d", resp.Usage)
	}

	var record models.UsageRecord
	if errFind := db.Where("org_id = ? AND quota_type_name = ?", 7, "max_users").First(&record).Error; errFind != nil {
		t.Fatalf("load usage record: %v", errFind)
	}
	if record.CurrentUsage != 3 {
		t.Fatalf("expected stored usage 3, got %d", record.CurrentUsage)
	}
}

func TestConsumeDefaultsToOneUnit(t *testing.T) {
	db := setupOrgQuotaTestDB(t)
	router := newOrgQuotaTestRouter(t, db, 7)

	w := postJSON(router, "/v0/org/quotas/max_users/consume", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Usage int64 `json:"usage"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Usage != 1 {
		t.Fatalf("expected usage 1, got %d", resp.Usage)
	}
}

func TestConsumeRejectionHidesNumbers(t *testing.T) {
	db := setupOrgQuotaTestDB(t)
	router := newOrgQuotaTestRouter(t, db, 7)

	if w := postJSON(router, "/v0/org/quotas/max_users/consume", `{"amount":5}`); w.Code != http.StatusOK {
		t.Fatalf("expected status 200 filling the limit, got %d", w.Code)
	}

	w := postJSON(router, "/v0/org/quotas/max_users/consume", `{"amount":1}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Error string `json:"error"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if !strings.Contains(resp.Error, "quota limit reached for max_users") {
		t.Fatalf("unexpected error message: %q", resp.Error)
	}
	if regexp.MustCompile(`[0-9]`).MatchString(resp.Error) {
		t.Fatalf("rejection message must not leak numbers: %q", resp.Error)
	}

	var rejections int64
	if errCount := db.Model(&models.QuotaEvent{}).
		Where("org_id = ? AND action = ?", 7, models.QuotaEventReservationRejected).
		Count(&rejections).Error; errCount != nil {
		t.Fatalf("count events: %v", errCount)
	}
	if rejections != 1 {
		t.Fatalf("expected 1 rejection event, got %d", rejections)
	}

	var record models.UsageRecord
	if errFind := db.Where("org_id = ? AND quota_type_name = ?", 7, "max_users").First(&record).Error; errFind != nil {
		t.Fatalf("load usage record: %v", errFind)
	}
	if record.CurrentUsage != 5 {
		t.Fatalf("rejected consume must not change usage, got %d", record.CurrentUsage)
	}
}

func TestConsumeUnknownTypeReturns404(t *testing.T) {
	db := setupOrgQuotaTestDB(t)
	router := newOrgQuotaTestRouter(t, db, 7)

	w := postJSON(router, "/v0/org/quotas/no_such_type/consume", `{"amount":1}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestConsumeNonPositiveAmountReturns400(t *testing.T) {
	db := setupOrgQuotaTestDB(t)
	router := newOrgQuotaTestRouter(t, db, 7)

	for _, body := range []string{`{"amount":0}`, `{"amount":-3}`} {
		w := postJSON(router, "/v0/org/quotas/max_users/consume", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 for body %s, got %d", body, w.Code)
		}
	}
}

func TestReleaseReturnsNewUsageAndJournals(t *testing.T) {
	db := setupOrgQuotaTestDB(t)
	router := newOrgQuotaTestRouter(t, db, 7)

	if w := postJSON(router, "/v0/org/quotas/max_users/consume", `{"amount":4}`); w.Code != http.StatusOK {
		t.Fatalf("expected status 200 on consume, got %d", w.Code)
	}

	w := postJSON(router, "/v0/org/quotas/max_users/release", `{"amount":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 on release, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Usage int64 `json:"usage"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Usage != 1 {
		t.Fatalf("expected usage 1 after release, got %d", resp.Usage)
	}

	var released int64
	if errCount := db.Model(&models.QuotaEvent{}).
		Where("org_id = ? AND action = ?", 7, models.QuotaEventUsageReleased).
		Count(&released).Error; errCount != nil {
		t.Fatalf("count events: %v", errCount)
	}
	if released != 1 {
		t.Fatalf("expected 1 release event, got %d", released)
	}
}

func TestReleaseClampsAtZero(t *testing.T) {
	db := setupOrgQuotaTestDB(t)
	router := newOrgQuotaTestRouter(t, db, 7)

	w := postJSON(router, "/v0/org/quotas/max_users/release", `{"amount":10}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Usage int64 `json:"usage"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Usage != 0 {
		t.Fatalf("expected usage clamped to 0, got %d", resp.Usage)
	}
}

func TestCheckReportsAllowedWithoutConsuming(t *testing.T) {
	db := setupOrgQuotaTestDB(t)
	router := newOrgQuotaTestRouter(t, db, 7)

	req := httptest.NewRequest(http.MethodGet, "/v0/org/quotas/max_users/check?amount=5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Allowed bool  `json:"allowed"`
		Amount  int64 `json:"amount"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if !resp.Allowed {
		t.Fatalf("expected amount 5 to be allowed")
	}
	if resp.Amount != 5 {
		t.Fatalf("expected amount 5, got %d", resp.Amount)
	}

	req = httptest.NewRequest(http.MethodGet, "/v0/org/quotas/max_users/check?amount=6", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Allowed {
		t.Fatalf("expected amount 6 to exceed the default limit")
	}

	var count int64
	if errCount := db.Model(&models.UsageRecord{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count usage records: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("check must not create usage records, found %d", count)
	}
}

func TestOverviewListsCatalogInOrder(t *testing.T) {
	db := setupOrgQuotaTestDB(t)
	router := newOrgQuotaTestRouter(t, db, 7)

	if w := postJSON(router, "/v0/org/quotas/max_users/consume", `{"amount":2}`); w.Code != http.StatusOK {
		t.Fatalf("expected status 200 on consume, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v0/org/quotas", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Quotas []struct {
			Name         string `json:"name"`
			CurrentUsage int64  `json:"current_usage"`
			Reached      bool   `json:"reached"`
		} `json:"quotas"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if len(resp.Quotas) != 2 {
		t.Fatalf("expected 2 quota rows, got %d", len(resp.Quotas))
	}
	if resp.Quotas[0].Name != "max_users" || resp.Quotas[0].CurrentUsage != 2 {
		t.Fatalf("unexpected first row: %+v", resp.Quotas[0])
	}
	if resp.Quotas[1].Name != "max_messages_per_day" || resp.Quotas[1].CurrentUsage != 0 {
		t.Fatalf("unexpected second row: %+v", resp.Quotas[1])
	}
}

func TestGetSingleQuotaStatus(t *testing.T) {
	db := setupOrgQuotaTestDB(t)
	router := newOrgQuotaTestRouter(t, db, 7)

	req := httptest.NewRequest(http.MethodGet, "/v0/org/quotas/max_messages_per_day", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Name           string `json:"name"`
		EffectiveLimit struct {
			Value     int64 `json:"value"`
			Unbounded bool  `json:"unbounded"`
		} `json:"effective_limit"`
		CurrentUsage int64 `json:"current_usage"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Name != "max_messages_per_day" {
		t.Fatalf("unexpected name: %s", resp.Name)
	}
	if resp.EffectiveLimit.Value != 100 || resp.EffectiveLimit.Unbounded {
		t.Fatalf("unexpected effective limit: %+v", resp.EffectiveLimit)
	}

	req = httptest.NewRequest(http.MethodGet, "/v0/org/quotas/no_such_type", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown type, got %d", w.Code)
	}
}
