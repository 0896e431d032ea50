package services

import (
	"context"

	"github.com/shopspring/decimal"

	domain "github.com/sofia-padel/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	Order              = domain.Order
	Invoice            = domain.Invoice
	Customer           = domain.Customer
	UserProfile        = domain.UserProfile
	SystemHealthReport = domain.SystemHealthReport
)

// CounterService allocates formatted sequence numbers backed by atomic counters.
type CounterService interface {
	Next(ctx context.Context, sequence string, start int64, width int) (CounterValue, error)
	NextOrderNumber(ctx context.Context) (string, error)
	NextInvoiceNumber(ctx context.Context) (string, error)
}

// CounterValue carries a raw counter value alongside its padded presentation.
type CounterValue struct {
	Value     int64
	Formatted string
}

// CatalogService serves the product catalog through a TTL cache and applies
// current pricing on every read.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]CatalogEntry, error)
	GetProduct(ctx context.Context, productID string) (CatalogEntry, error)
	BackfillDefaults(ctx context.Context) (BackfillReport, error)
	Invalidate()
}

// CatalogEntry pairs a stored product with its pricing evaluated at read time.
type CatalogEntry struct {
	Product Product
	Pricing domain.PricedUnit
}

// BackfillReport summarises an admin catalog maintenance run.
type BackfillReport struct {
	Scanned int
	Updated int
}

// OrderService validates checkout input, prices it, and persists the order.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	Get(ctx context.Context, orderID string) (Order, error)
}

// CreateOrderCommand is the checkout payload accepted by OrderService.Create.
type CreateOrderCommand struct {
	Customer       Customer
	Items          []OrderItemInput
	DeliveryOption string
	PaymentMethod  string
	ShippingNet    decimal.Decimal
	Language       string
}

// OrderItemInput references a catalog product and the requested quantity.
type OrderItemInput struct {
	ProductID string
	Quantity  int
}

// InvoiceService issues at most one invoice per order and can resend it.
type InvoiceService interface {
	Issue(ctx context.Context, cmd IssueInvoiceCommand) (InvoiceIssueResult, error)
}

// IssueInvoiceCommand identifies the order to invoice and an optional
// override recipient for the invoice email.
type IssueInvoiceCommand struct {
	OrderID        string
	RecipientEmail string
}

// InvoiceIssueResult reports the issued (or reused) invoice.
type InvoiceIssueResult struct {
	Invoice Invoice
	Reused  bool
}

// NotificationService sends customer-facing emails for existing orders.
type NotificationService interface {
	SendOrderConfirmation(ctx context.Context, cmd OrderConfirmationCommand) error
}

// OrderConfirmationCommand identifies the order whose confirmation email to send.
type OrderConfirmationCommand struct {
	OrderID        string
	RecipientEmail string
}

// SystemService aggregates utility surfaces (health checks, readiness).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// InvoiceRenderer produces the printable invoice document.
type InvoiceRenderer interface {
	Render(invoice Invoice) ([]byte, error)
}

// Mailer delivers templated emails. Implementations own transport, templating,
// and language selection.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, msg OrderConfirmationEmail) error
	SendInvoice(ctx context.Context, msg InvoiceEmail) error
}

// EmailLineItem is one row of an order summary rendered into an email body.
type EmailLineItem struct {
	DisplayName string
	ImageURL    string
	Quantity    int
	LineGross   decimal.Decimal
}

// OrderConfirmationEmail carries everything the mailer needs to render and
// send an order confirmation.
type OrderConfirmationEmail struct {
	Recipient string
	Language  string
	Order     Order
	Items     []EmailLineItem
}

// InvoiceEmail carries the issued invoice; the PDF attachment travels inside
// Invoice.PDF.
type InvoiceEmail struct {
	Recipient string
	Language  string
	Invoice   Invoice
}
