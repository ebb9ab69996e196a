package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/router-for-me/OrgQuotaService/internal/models"
	"gorm.io/gorm"
)

func openSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:settings_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestStoreAndReadDBConfig(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	StoreDBConfig(now, map[string]json.RawMessage{
		"  PADDED_KEY ": json.RawMessage(`"v"`),
		"":              json.RawMessage(`"dropped"`),
		"NULLED":        nil,
	})

	if got := DBConfigUpdatedAt(); !got.Equal(now) {
		t.Fatalf("expected updatedAt %s, got %s", now, got)
	}
	val, ok := DBConfigValue("PADDED_KEY")
	if !ok || string(val) != `"v"` {
		t.Fatalf("expected trimmed key to resolve, ok=%v val=%s", ok, val)
	}
	if _, ok = DBConfigValue(""); ok {
		t.Fatal("empty keys must not resolve")
	}
	val, ok = DBConfigValue("NULLED")
	if !ok || val != nil {
		t.Fatalf("nil values must round-trip, ok=%v val=%v", ok, val)
	}

	// Returned values are copies; mutating them must not poison the snapshot.
	val, _ = DBConfigValue("PADDED_KEY")
	val[0] = 'X'
	val, _ = DBConfigValue("PADDED_KEY")
	if string(val) != `"v"` {
		t.Fatalf("snapshot mutated through a returned copy: %s", val)
	}
}

func TestIntValue(t *testing.T) {
	StoreDBConfig(time.Now(), map[string]json.RawMessage{
		"NUMBER":   json.RawMessage(`42`),
		"FLOAT":    json.RawMessage(`7.0`),
		"FRACTION": json.RawMessage(`7.5`),
		"STRING":   json.RawMessage(`" 15 "`),
		"WRAPPED":  json.RawMessage(`{"value": 30}`),
		"GARBAGE":  json.RawMessage(`[1]`),
	})

	cases := []struct {
		key  string
		want int
	}{
		{"NUMBER", 42},
		{"FLOAT", 7},
		{"FRACTION", 99},
		{"STRING", 15},
		{"WRAPPED", 30},
		{"GARBAGE", 99},
		{"MISSING", 99},
	}
	for _, tc := range cases {
		if got := IntValue(tc.key, 99); got != tc.want {
			t.Fatalf("IntValue(%s): expected %d, got %d", tc.key, tc.want, got)
		}
	}
}

func TestRefreshDBConfigSnapshot(t *testing.T) {
	conn := openSettingsTestDB(t)

	rows := []models.Setting{
		{Key: QuotaEventsRetentionDaysKey, Value: json.RawMessage(`30`)},
		{Key: LimitCacheTTLSecondsKey, Value: json.RawMessage(`"60"`)},
	}
	for i := range rows {
		if errCreate := conn.Create(&rows[i]).Error; errCreate != nil {
			t.Fatalf("seed setting %s: %v", rows[i].Key, errCreate)
		}
	}

	if errRefresh := RefreshDBConfigSnapshot(context.Background(), conn); errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}

	if got := IntValue(QuotaEventsRetentionDaysKey, 90); got != 30 {
		t.Fatalf("expected retention 30, got %d", got)
	}
	if got := IntValue(LimitCacheTTLSecondsKey, 300); got != 60 {
		t.Fatalf("expected TTL 60, got %d", got)
	}
	if RefreshDBConfigSnapshot(context.Background(), nil) == nil {
		t.Fatal("nil db must fail")
	}
}
