package redirect

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/urls"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/visits"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *urls.Store, *gorm.DB) {
	db := setupTestDB(t)
	logger := testLogger()
	store := urls.NewStore(db, logger)
	recorder := visits.NewRecorder(db, logger)
	resolver := NewResolver(store, recorder, logger)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(resolver).RegisterRoutes(r)
	return r, store, db
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func awaitVisitCount(t *testing.T, db *gorm.DB, urlID uint, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var count int64
		db.Model(&models.Visit{}).Where("url_id = ?", urlID).Count(&count)
		if count == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Visit count for url %d never reached %d", urlID, want)
}

func TestRedirectUnblocked(t *testing.T) {
	router, store, db := setupTestRouter(t)
	record := models.URL{LongName: "https://example.com", ShortCode: "go00000"}
	if err := store.Create(&record); err != nil {
		t.Fatalf("Failed to create url: %v", err)
	}

	resp := get(router, "/go00000")

	if resp.Code != http.StatusFound {
		t.Errorf("Expected status 302, got %d", resp.Code)
	}
	if location := resp.Header().Get("Location"); location != "https://example.com" {
		t.Errorf("Expected Location 'https://example.com', got %s", location)
	}

	awaitVisitCount(t, db, record.ID, 1)
}

func TestRedirectNotFound(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	resp := get(router, "/nonexistent")

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestRedirectBlocked(t *testing.T) {
	router, store, db := setupTestRouter(t)
	expiry := time.Now().Add(24 * time.Hour)
	record := models.URL{LongName: "https://example.com", ShortCode: "stop000", IsBlocked: true, BlockExpiresAt: &expiry}
	if err := store.Create(&record); err != nil {
		t.Fatalf("Failed to create url: %v", err)
	}

	resp := get(router, "/stop000")

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
	if location := resp.Header().Get("Location"); location != "" {
		t.Errorf("Blocked response must not redirect, got Location %s", location)
	}

	var count int64
	db.Model(&models.Visit{}).Where("url_id = ?", record.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected no visits for blocked link, got %d", count)
	}
}

func TestRedirectExpiredBlock(t *testing.T) {
	router, store, db := setupTestRouter(t)
	expiry := time.Now().Add(-time.Minute)
	record := models.URL{LongName: "https://example.com", ShortCode: "late000", IsBlocked: true, BlockExpiresAt: &expiry}
	if err := store.Create(&record); err != nil {
		t.Fatalf("Failed to create url: %v", err)
	}

	resp := get(router, "/late000")

	if resp.Code != http.StatusFound {
		t.Errorf("Expected status 302 after expiry, got %d", resp.Code)
	}

	reloaded, err := store.FindByID(record.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if reloaded.IsBlocked || reloaded.BlockExpiresAt != nil {
		t.Error("Expired block must be cleared by the redirect")
	}

	awaitVisitCount(t, db, record.ID, 1)
}
