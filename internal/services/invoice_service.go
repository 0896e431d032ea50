package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/sofia-padel/api/internal/domain"
	"github.com/sofia-padel/api/internal/repositories"
)

var (
	// ErrInvoiceInvalidInput signals the caller provided invalid data.
	ErrInvoiceInvalidInput = errors.New("invoice: invalid input")
	// ErrInvoiceOrderNotFound indicates the referenced order does not exist.
	ErrInvoiceOrderNotFound = errors.New("invoice: order not found")
	// ErrInvoiceRenderFailed indicates the document could not be rendered.
	ErrInvoiceRenderFailed = errors.New("invoice: render failed")
	// ErrInvoiceConflict indicates a concurrent update aborted the
	// allocation transaction; the request is safe to retry.
	ErrInvoiceConflict = errors.New("invoice: allocation conflict")
	// ErrInvoiceEmailFailed indicates the invoice email could not be delivered.
	// The invoice itself is persisted; retries take the reuse path.
	ErrInvoiceEmailFailed = errors.New("invoice: email failed")
)

// InvoiceServiceDeps bundles collaborators required to construct the invoice service.
type InvoiceServiceDeps struct {
	Invoices repositories.InvoiceRepository
	Orders   repositories.OrderRepository
	Products repositories.ProductRepository
	Counters CounterService
	Renderer InvoiceRenderer
	Mailer   Mailer
	Company  domain.Company
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type invoiceService struct {
	invoices repositories.InvoiceRepository
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	counters CounterService
	renderer InvoiceRenderer
	mailer   Mailer
	company  domain.Company
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewInvoiceService wires dependencies into a concrete InvoiceService implementation.
func NewInvoiceService(deps InvoiceServiceDeps) (InvoiceService, error) {
	if deps.Invoices == nil {
		return nil, errors.New("invoice service: invoice repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("invoice service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("invoice service: counter service is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("invoice service: renderer is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &invoiceService{
		invoices: deps.Invoices,
		orders:   deps.Orders,
		products: deps.Products,
		counters: deps.Counters,
		renderer: deps.Renderer,
		mailer:   deps.Mailer,
		company:  deps.Company,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Issue returns the order's invoice, creating it on first call. Amounts come
// from the persisted order snapshot, never from the live catalog. A second
// call, concurrent or later, observes the stored invoice and resends the
// email instead of issuing again.
func (s *invoiceService) Issue(ctx context.Context, cmd IssueInvoiceCommand) (InvoiceIssueResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return InvoiceIssueResult{}, fmt.Errorf("%w: order id is required", ErrInvoiceInvalidInput)
	}

	existing, err := s.invoices.FindByOrderID(ctx, orderID)
	switch {
	case err == nil:
		return s.deliver(ctx, existing, cmd.RecipientEmail, true)
	case !isNotFound(err):
		return InvoiceIssueResult{}, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return InvoiceIssueResult{}, fmt.Errorf("%w: %s", ErrInvoiceOrderNotFound, orderID)
		}
		return InvoiceIssueResult{}, err
	}

	number, err := s.counters.NextInvoiceNumber(ctx)
	if err != nil {
		if isConflict(err) {
			return InvoiceIssueResult{}, fmt.Errorf("%w: %v", ErrInvoiceConflict, err)
		}
		return InvoiceIssueResult{}, fmt.Errorf("invoice: allocate number: %w", err)
	}

	now := s.clock()
	invoice := s.buildInvoice(ctx, order, number, now)

	pdf, err := s.renderer.Render(invoice)
	if err != nil {
		return InvoiceIssueResult{}, fmt.Errorf("%w: %v", ErrInvoiceRenderFailed, err)
	}
	invoice.PDF = pdf

	stored, created, err := s.invoices.CreateIfAbsent(ctx, invoice)
	if err != nil {
		return InvoiceIssueResult{}, err
	}

	if created {
		s.logger(ctx, "invoice.issued", map[string]any{
			"order_id":       orderID,
			"invoice_number": stored.InvoiceNumber,
		})
	}

	return s.deliver(ctx, stored, cmd.RecipientEmail, !created)
}

// buildInvoice snapshots the order into invoice shape. Item display names
// resolve best-effort against the catalog; a failed lookup falls back to the
// name frozen on the order line.
func (s *invoiceService) buildInvoice(ctx context.Context, order domain.Order, number string, now time.Time) domain.Invoice {
	items := make([]domain.InvoiceLine, 0, len(order.Items))
	for _, line := range order.Items {
		items = append(items, domain.InvoiceLine{
			Name:           s.displayName(ctx, line),
			Quantity:       line.Quantity,
			LineTotalGross: line.LineGross,
		})
	}

	return domain.Invoice{
		OrderID:        order.ID,
		OrderReference: order.OrderNumber,
		InvoiceNumber:  number,
		IssueDate:      now,
		Company:        s.company,
		Customer:       order.Customer,
		CustomerEmail:  order.Customer.Email,
		Items:          items,
		SubtotalNet:    order.Totals.SubtotalNet,
		SubtotalGross:  order.Totals.SubtotalGross,
		VATTotal:       order.Totals.TotalVAT,
		ShippingGross:  order.Totals.ShippingGross,
		TotalGross:     order.Totals.TotalGross,
		PaymentMethod:  order.PaymentMethod,
		Currency:       order.Currency,
		Language:       order.Language,
		CreatedAt:      now,
	}
}

func (s *invoiceService) displayName(ctx context.Context, line domain.PricedLineItem) string {
	if s.products == nil {
		return line.Name
	}
	product, err := s.products.FindByID(ctx, line.ProductID)
	if err != nil {
		return line.Name
	}
	if name := product.DisplayName(); name != "" {
		return name
	}
	return line.Name
}

func (s *invoiceService) deliver(ctx context.Context, invoice domain.Invoice, override string, reused bool) (InvoiceIssueResult, error) {
	result := InvoiceIssueResult{Invoice: invoice, Reused: reused}

	if s.mailer == nil {
		return result, nil
	}

	recipient := strings.TrimSpace(override)
	if recipient == "" {
		recipient = invoice.CustomerEmail
	}
	if recipient == "" {
		return result, nil
	}

	err := s.mailer.SendInvoice(ctx, InvoiceEmail{
		Recipient: recipient,
		Language:  invoice.Language,
		Invoice:   invoice,
	})
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrInvoiceEmailFailed, err)
	}

	s.logger(ctx, "invoice.email.sent", map[string]any{
		"order_id":       invoice.OrderID,
		"invoice_number": invoice.InvoiceNumber,
		"reused":         reused,
	})
	return result, nil
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
