package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates the lifecycle states an order can be in.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

const (
	// DefaultCurrency applies when a product carries no explicit currency.
	DefaultCurrency = "BGN"
)

// DefaultVATRate applies when a product carries no explicit VAT rate.
var DefaultVATRate = decimal.New(20, -2)

// Discount describes a product's discount window. The discount is only in
// effect when Active is set, Percent is positive, Start has passed, and End
// (when present) has not.
type Discount struct {
	Active  bool
	Percent decimal.Decimal
	Start   *time.Time
	End     *time.Time
}

// InEffect reports whether the discount applies at the given instant.
func (d *Discount) InEffect(at time.Time) bool {
	if d == nil || !d.Active {
		return false
	}
	if !d.Percent.IsPositive() {
		return false
	}
	if d.Start == nil || d.Start.After(at) {
		return false
	}
	if d.End != nil && d.End.Before(at) {
		return false
	}
	return true
}

// Product is a catalog entry. Monetary values are net of VAT.
type Product struct {
	ID       string
	Name     string
	Brand    string
	ImageURL string
	PriceNet decimal.Decimal
	VATRate  decimal.Decimal
	Currency string
	Discount *Discount
}

// EffectiveVATRate returns the product's VAT rate, falling back to the
// default when the stored rate is absent or non-positive.
func (p Product) EffectiveVATRate() decimal.Decimal {
	if p.VATRate.IsPositive() {
		return p.VATRate
	}
	return DefaultVATRate
}

// EffectiveCurrency returns the product's currency code or the default.
func (p Product) EffectiveCurrency() string {
	if trimmed := strings.TrimSpace(p.Currency); trimmed != "" {
		return trimmed
	}
	return DefaultCurrency
}

// DisplayName combines brand and model name the way invoices and emails
// present catalog items.
func (p Product) DisplayName() string {
	name := strings.TrimSpace(p.Name)
	brand := strings.TrimSpace(p.Brand)
	if brand == "" {
		return name
	}
	if name == "" {
		return brand
	}
	return brand + " " + name
}

// Customer captures the contact and delivery fields collected at checkout.
type Customer struct {
	Email      string
	UserID     string
	FirstName  string
	LastName   string
	Phone      string
	Address    string
	City       string
	PostalCode string
}

// FullName renders the customer's display name.
func (c Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// Company holds the seller identity printed on issued invoices.
type Company struct {
	Name      string
	Address   string
	City      string
	VATNumber string
}

// Order is the persisted result of a checkout. It is created once and never
// mutated afterwards; invoices read it as the pricing source of truth.
type Order struct {
	ID             string
	OrderNumber    string
	Customer       Customer
	DeliveryOption string
	PaymentMethod  string
	Items          []PricedLineItem
	Totals         OrderTotals
	Currency       string
	Language       string
	Status         OrderStatus
	CreatedAt      time.Time
}

// InvoiceLine is the denormalised per-item snapshot stored on an invoice.
type InvoiceLine struct {
	Name           string
	Quantity       int
	LineTotalGross decimal.Decimal
}

// Invoice is the immutable issuance record for an order. Exactly one invoice
// exists per order; the stored document is keyed by the order ID.
type Invoice struct {
	OrderID        string
	OrderReference string
	InvoiceNumber  string
	IssueDate      time.Time
	Company        Company
	Customer       Customer
	CustomerEmail  string
	Items          []InvoiceLine
	SubtotalNet    decimal.Decimal
	SubtotalGross  decimal.Decimal
	VATTotal       decimal.Decimal
	ShippingGross  decimal.Decimal
	TotalGross     decimal.Decimal
	PaymentMethod  string
	Currency       string
	Language       string
	PDF            []byte
	CreatedAt      time.Time
}

// UserProfile mirrors the customer record kept alongside orders; checkout
// refreshes it with the most recent contact details.
type UserProfile struct {
	ID               string
	Email            string
	FirstName        string
	LastName         string
	Phone            string
	Address          string
	City             string
	PostalCode       string
	PreferredPayment string
	UpdatedAt        time.Time
}
