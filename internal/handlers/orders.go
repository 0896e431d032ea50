package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/sofia-padel/api/internal/domain"
	"github.com/sofia-padel/api/internal/platform/httpx"
	"github.com/sofia-padel/api/internal/services"
)

const (
	maxCheckoutBodySize = 64 * 1024

	checkoutRateLimit  = 30
	checkoutRateWindow = time.Minute
)

// OrderHandlers exposes checkout and order management endpoints. Creation is
// public (storefront checkout); reads and resends sit behind the API key.
type OrderHandlers struct {
	orders        services.OrderService
	notifications services.NotificationService
	limiter       rateLimiter
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService, notifications services.NotificationService) *OrderHandlers {
	return &OrderHandlers{
		orders:        orders,
		notifications: notifications,
		limiter:       newSimpleRateLimiter(checkoutRateLimit, checkoutRateWindow, nil),
	}
}

// PublicRoutes registers the unauthenticated checkout endpoint.
func (h *OrderHandlers) PublicRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
}

// ManagementRoutes registers the API-key protected order endpoints.
func (h *OrderHandlers) ManagementRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/confirmation", h.sendConfirmation)
}

type createOrderRequest struct {
	UserEmail      string                   `json:"user_email"`
	UserUID        string                   `json:"user_uid"`
	FirstName      string                   `json:"first_name"`
	LastName       string                   `json:"last_name"`
	Phone          string                   `json:"phone"`
	DeliveryOption string                   `json:"delivery_option"`
	Address        string                   `json:"address"`
	City           string                   `json:"city"`
	PostalCode     string                   `json:"postal_code"`
	PaymentMethod  string                   `json:"payment_method"`
	Items          []createOrderItemRequest `json:"items"`
	ShippingCost   json.Number              `json:"shipping_cost"`
	Language       string                   `json:"language"`
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderResponse struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	SubtotalNet   string `json:"subtotal_net"`
	SubtotalGross string `json:"subtotal_gross"`
	VATTotal      string `json:"total_vat_amount"`
	TotalNet      string `json:"total_net"`
	TotalGross    string `json:"total_gross"`
	Currency      string `json:"currency"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(r.RemoteAddr) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many checkout attempts", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body unreadable or too large", http.StatusBadRequest))
		return
	}

	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed json body", http.StatusBadRequest))
		return
	}

	shippingNet := decimal.Zero
	if raw := strings.TrimSpace(req.ShippingCost.String()); raw != "" {
		shippingNet, err = decimal.NewFromString(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shipping_cost must be a number", http.StatusBadRequest))
			return
		}
	}

	items := make([]services.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.orders.Create(ctx, services.CreateOrderCommand{
		Customer: domain.Customer{
			Email:      req.UserEmail,
			UserID:     req.UserUID,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Phone:      req.Phone,
			Address:    req.Address,
			City:       req.City,
			PostalCode: req.PostalCode,
		},
		Items:          items,
		DeliveryOption: req.DeliveryOption,
		PaymentMethod:  req.PaymentMethod,
		ShippingNet:    shippingNet,
		Language:       req.Language,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, createOrderResponse{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		SubtotalNet:   money(order.Totals.SubtotalNet),
		SubtotalGross: money(order.Totals.SubtotalGross),
		VATTotal:      money(order.Totals.TotalVAT),
		TotalNet:      money(order.Totals.TotalNet),
		TotalGross:    money(order.Totals.TotalGross),
		Currency:      order.Currency,
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

type sendConfirmationRequest struct {
	RecipientEmail string `json:"recipient_email"`
}

func (h *OrderHandlers) sendConfirmation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		httpx.WriteError(ctx, w, httpx.NewError("notifications_unavailable", "notification service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req sendConfirmationRequest
	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body unreadable or too large", http.StatusBadRequest))
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed json body", http.StatusBadRequest))
			return
		}
	}

	err = h.notifications.SendOrderConfirmation(ctx, services.OrderConfirmationCommand{
		OrderID:        orderID,
		RecipientEmail: strings.TrimSpace(req.RecipientEmail),
	})
	if err != nil {
		writeNotificationError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"status": "sent", "order_id": orderID})
}

type orderPayload struct {
	ID             string             `json:"id"`
	OrderNumber    string             `json:"order_number"`
	Status         string             `json:"status"`
	Customer       customerPayload    `json:"customer"`
	DeliveryOption string             `json:"delivery_option"`
	PaymentMethod  string             `json:"payment_method"`
	Items          []orderItemPayload `json:"items"`
	Totals         orderTotalsPayload `json:"totals"`
	Currency       string             `json:"currency"`
	Language       string             `json:"language,omitempty"`
	CreatedAt      string             `json:"created_at"`
}

type customerPayload struct {
	Email      string `json:"email"`
	UserID     string `json:"user_id,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
}

type orderItemPayload struct {
	ProductID       string `json:"product_id"`
	Name            string `json:"name"`
	Quantity        int    `json:"quantity"`
	UnitPriceNet    string `json:"unit_price_net"`
	UnitPriceGross  string `json:"unit_price_gross"`
	UnitVATAmount   string `json:"unit_vat_amount"`
	VATRate         string `json:"vat_rate"`
	LineTotalNet    string `json:"line_total_net"`
	LineTotalGross  string `json:"line_total_gross"`
	LineVATAmount   string `json:"line_vat_amount"`
	Discounted      bool   `json:"discounted"`
	DiscountPercent string `json:"discount_percent,omitempty"`
}

type orderTotalsPayload struct {
	SubtotalNet     string `json:"subtotal_net"`
	SubtotalGross   string `json:"subtotal_gross"`
	SubtotalVAT     string `json:"subtotal_vat_amount"`
	ShippingNet     string `json:"shipping_cost_net"`
	ShippingGross   string `json:"shipping_cost_gross"`
	ShippingVAT     string `json:"shipping_vat_amount"`
	ShippingVATRate string `json:"shipping_vat_rate"`
	TotalNet        string `json:"total_net"`
	TotalGross      string `json:"total_gross"`
	VATTotal        string `json:"vat_total"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, line := range order.Items {
		item := orderItemPayload{
			ProductID:      line.ProductID,
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPriceNet:   money(line.UnitNet),
			UnitPriceGross: money(line.UnitGross),
			UnitVATAmount:  money(line.UnitVAT),
			VATRate:        line.VATRate.String(),
			LineTotalNet:   money(line.LineNet),
			LineTotalGross: money(line.LineGross),
			LineVATAmount:  money(line.LineVAT),
			Discounted:     line.Discounted,
		}
		if line.Discounted {
			item.DiscountPercent = line.DiscountPercent.String()
		}
		items = append(items, item)
	}

	return orderPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Customer: customerPayload{
			Email:      order.Customer.Email,
			UserID:     order.Customer.UserID,
			FirstName:  order.Customer.FirstName,
			LastName:   order.Customer.LastName,
			Phone:      order.Customer.Phone,
			Address:    order.Customer.Address,
			City:       order.Customer.City,
			PostalCode: order.Customer.PostalCode,
		},
		DeliveryOption: order.DeliveryOption,
		PaymentMethod:  order.PaymentMethod,
		Items:          items,
		Totals: orderTotalsPayload{
			SubtotalNet:     money(order.Totals.SubtotalNet),
			SubtotalGross:   money(order.Totals.SubtotalGross),
			SubtotalVAT:     money(order.Totals.SubtotalVAT),
			ShippingNet:     money(order.Totals.ShippingNet),
			ShippingGross:   money(order.Totals.ShippingGross),
			ShippingVAT:     money(order.Totals.ShippingVAT),
			ShippingVATRate: order.Totals.ShippingVATRate.String(),
			TotalNet:        money(order.Totals.TotalNet),
			TotalGross:      money(order.Totals.TotalGross),
			VATTotal:        money(order.Totals.TotalVAT),
		},
		Currency:  order.Currency,
		Language:  order.Language,
		CreatedAt: order.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrOrderUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("user_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "order operation failed", http.StatusInternalServerError))
	}
}

func writeNotificationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotificationInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrNotificationOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrNotificationSendFailed):
		httpx.WriteError(ctx, w, httpx.NewError("email_failed", "confirmation email could not be sent", http.StatusBadGateway))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "notification failed", http.StatusInternalServerError))
	}
}
