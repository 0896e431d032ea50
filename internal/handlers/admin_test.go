package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sofia-padel/api/internal/services"
)

func newAdminRouter(catalog services.CatalogService) chi.Router {
	r := chi.NewRouter()
	NewAdminHandlers(catalog).Routes(r)
	return r
}

func TestBackfillProducts(t *testing.T) {
	catalog := &stubCatalogService{backfill: services.BackfillReport{Scanned: 12, Updated: 3}}

	rec := httptest.NewRecorder()
	newAdminRouter(catalog).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products/backfill", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp backfillResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Scanned != 12 || resp.Updated != 3 {
		t.Fatalf("unexpected report: %+v", resp)
	}
}

func TestBackfillProductsFailure(t *testing.T) {
	catalog := &stubCatalogService{backfillErr: errors.New("firestore down")}

	rec := httptest.NewRecorder()
	newAdminRouter(catalog).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products/backfill", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
