package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sofia-padel/api/internal/platform/httpx"
	"github.com/sofia-padel/api/internal/shipping"
)

// ShippingHandlers proxies the courier location API for address autocomplete.
type ShippingHandlers struct {
	locations shipping.LocationClient
}

// NewShippingHandlers constructs a new ShippingHandlers instance.
func NewShippingHandlers(locations shipping.LocationClient) *ShippingHandlers {
	return &ShippingHandlers{locations: locations}
}

// Routes registers the /shipping endpoints.
func (h *ShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/sites", h.searchSites)
	r.Get("/streets", h.searchStreets)
}

func (h *ShippingHandlers) searchSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.locations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "courier lookup unavailable", http.StatusServiceUnavailable))
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if term == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "term is required", http.StatusBadRequest))
		return
	}

	sites, err := h.locations.SearchSites(ctx, term)
	if err != nil {
		writeShippingError(r, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, sites)
}

func (h *ShippingHandlers) searchStreets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.locations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "courier lookup unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	term := strings.TrimSpace(query.Get("term"))
	siteIDRaw := strings.TrimSpace(query.Get("siteId"))
	if term == "" || siteIDRaw == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "siteId and term are required", http.StatusBadRequest))
		return
	}

	siteID, err := strconv.ParseInt(siteIDRaw, 10, 64)
	if err != nil || siteID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "siteId must be a positive integer", http.StatusBadRequest))
		return
	}

	streets, err := h.locations.SearchStreets(ctx, siteID, term)
	if err != nil {
		writeShippingError(r, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, streets)
}

func writeShippingError(r *http.Request, w http.ResponseWriter, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, shipping.ErrSpeedyInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, shipping.ErrSpeedyUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("courier_unavailable", "courier api unavailable", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "courier lookup failed", http.StatusInternalServerError))
	}
}
