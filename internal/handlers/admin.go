package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sofia-padel/api/internal/platform/httpx"
	"github.com/sofia-padel/api/internal/services"
)

// AdminHandlers exposes catalog maintenance endpoints behind the API key.
type AdminHandlers struct {
	catalog services.CatalogService
}

// NewAdminHandlers constructs a new AdminHandlers instance.
func NewAdminHandlers(catalog services.CatalogService) *AdminHandlers {
	return &AdminHandlers{catalog: catalog}
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/products/backfill", h.backfillProducts)
}

type backfillResponse struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

func (h *AdminHandlers) backfillProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	report, err := h.catalog.BackfillDefaults(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, backfillResponse{
		Scanned: report.Scanned,
		Updated: report.Updated,
	})
}
