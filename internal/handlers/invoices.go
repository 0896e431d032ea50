package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/sofia-padel/api/internal/domain"
	"github.com/sofia-padel/api/internal/platform/httpx"
	"github.com/sofia-padel/api/internal/services"
)

const maxInvoiceBodySize = 8 * 1024

// InvoiceHandlers exposes the invoice issuance endpoint. Issuing is
// idempotent per order; repeat calls resend the stored invoice.
type InvoiceHandlers struct {
	invoices services.InvoiceService
}

// NewInvoiceHandlers constructs a new InvoiceHandlers instance.
func NewInvoiceHandlers(invoices services.InvoiceService) *InvoiceHandlers {
	return &InvoiceHandlers{invoices: invoices}
}

// Routes registers the /invoices endpoints.
func (h *InvoiceHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.issueInvoice)
}

type issueInvoiceRequest struct {
	OrderID        string `json:"order_id"`
	RecipientEmail string `json:"recipient_email"`
}

type invoicePayload struct {
	InvoiceNumber  string `json:"invoice_number"`
	OrderID        string `json:"order_id"`
	OrderReference string `json:"order_reference"`
	IssueDate      string `json:"issue_date"`
	CustomerEmail  string `json:"customer_email"`
	SubtotalNet    string `json:"subtotal_net"`
	SubtotalGross  string `json:"subtotal_gross"`
	VATTotal       string `json:"vat_total"`
	ShippingGross  string `json:"shipping_cost_gross"`
	TotalGross     string `json:"total_gross"`
	Currency       string `json:"currency"`
	Reused         bool   `json:"reused"`
}

func (h *InvoiceHandlers) issueInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.invoices == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invoice_service_unavailable", "invoice service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxInvoiceBodySize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body unreadable or too large", http.StatusBadRequest))
		return
	}

	var req issueInvoiceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed json body", http.StatusBadRequest))
		return
	}

	result, err := h.invoices.Issue(ctx, services.IssueInvoiceCommand{
		OrderID:        strings.TrimSpace(req.OrderID),
		RecipientEmail: strings.TrimSpace(req.RecipientEmail),
	})
	if err != nil && !errors.Is(err, services.ErrInvoiceEmailFailed) {
		writeInvoiceError(ctx, w, err)
		return
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}

	payload := buildInvoicePayload(result.Invoice, result.Reused)
	if errors.Is(err, services.ErrInvoiceEmailFailed) {
		// The invoice is stored even when delivery fails; report both facts.
		writeJSONResponse(w, status, map[string]any{
			"invoice": payload,
			"warning": "invoice issued but email delivery failed",
		})
		return
	}
	writeJSONResponse(w, status, payload)
}

func buildInvoicePayload(invoice domain.Invoice, reused bool) invoicePayload {
	return invoicePayload{
		InvoiceNumber:  invoice.InvoiceNumber,
		OrderID:        invoice.OrderID,
		OrderReference: invoice.OrderReference,
		IssueDate:      invoice.IssueDate.UTC().Format(time.RFC3339),
		CustomerEmail:  invoice.CustomerEmail,
		SubtotalNet:    money(invoice.SubtotalNet),
		SubtotalGross:  money(invoice.SubtotalGross),
		VATTotal:       money(invoice.VATTotal),
		ShippingGross:  money(invoice.ShippingGross),
		TotalGross:     money(invoice.TotalGross),
		Currency:       invoice.Currency,
		Reused:         reused,
	}
}

func writeInvoiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvoiceInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInvoiceOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrInvoiceConflict):
		httpx.WriteError(ctx, w, httpx.NewError("allocation_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInvoiceRenderFailed):
		httpx.WriteError(ctx, w, httpx.NewError("render_failed", "invoice document could not be rendered", http.StatusInternalServerError))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "invoice issuance failed", http.StatusInternalServerError))
	}
}
