package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sofia-padel/api/internal/platform/httpx"
	"github.com/sofia-padel/api/internal/services"
)

// ProductHandlers exposes the public catalog endpoints.
type ProductHandlers struct {
	catalog services.CatalogService
}

// NewProductHandlers constructs a new ProductHandlers instance.
func NewProductHandlers(catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes registers the /products endpoints.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)
}

type productPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Brand    string `json:"brand,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Currency string `json:"currency"`

	PriceNet   string `json:"price_net"`
	PriceGross string `json:"price_gross"`
	VATRate    string `json:"vat_rate"`
	VATAmount  string `json:"vat_amount"`

	Discounted           bool   `json:"discounted"`
	DiscountPercent      string `json:"discount_percent,omitempty"`
	DiscountedPriceNet   string `json:"discounted_price_net,omitempty"`
	DiscountedPriceGross string `json:"discounted_price_gross,omitempty"`
	DiscountedVATAmount  string `json:"vat_amount_discounted,omitempty"`
}

type productListResponse struct {
	Items []productPayload `json:"items"`
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	entries, err := h.catalog.ListProducts(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(entries))
	for _, entry := range entries {
		items = append(items, buildProductPayload(entry))
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{Items: items})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	entry, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(entry))
}

func buildProductPayload(entry services.CatalogEntry) productPayload {
	product := entry.Product
	pricing := entry.Pricing

	payload := productPayload{
		ID:         product.ID,
		Name:       product.Name,
		Brand:      product.Brand,
		ImageURL:   product.ImageURL,
		Currency:   pricing.Currency,
		PriceNet:   money(pricing.NetPrice),
		PriceGross: money(pricing.GrossPrice),
		VATRate:    pricing.VATRate.String(),
		VATAmount:  money(pricing.VATAmount),
	}

	if pricing.Discount != nil {
		payload.Discounted = true
		payload.DiscountPercent = pricing.Discount.Percent.String()
		payload.DiscountedPriceNet = money(pricing.Discount.NetPrice)
		payload.DiscountedPriceGross = money(pricing.Discount.GrossPrice)
		payload.DiscountedVATAmount = money(pricing.Discount.VATAmount)
	}
	return payload
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "catalog lookup failed", http.StatusInternalServerError))
	}
}
