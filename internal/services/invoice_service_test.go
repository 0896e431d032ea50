package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/sofia-padel/api/internal/domain"
)

type stubInvoiceRepository struct {
	mu       sync.Mutex
	invoices map[string]domain.Invoice
	findErr  error
	creates  int
}

func newStubInvoiceRepository() *stubInvoiceRepository {
	return &stubInvoiceRepository{invoices: make(map[string]domain.Invoice)}
}

func (s *stubInvoiceRepository) FindByOrderID(_ context.Context, orderID string) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return domain.Invoice{}, s.findErr
	}
	invoice, ok := s.invoices[orderID]
	if !ok {
		return domain.Invoice{}, stubRepositoryError{notFound: true}
	}
	return invoice, nil
}

func (s *stubInvoiceRepository) CreateIfAbsent(_ context.Context, invoice domain.Invoice) (domain.Invoice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if existing, ok := s.invoices[invoice.OrderID]; ok {
		return existing, false, nil
	}
	s.invoices[invoice.OrderID] = invoice
	return invoice, true, nil
}

type stubRenderer struct {
	err   error
	calls int
}

func (s *stubRenderer) Render(domain.Invoice) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.4 stub"), nil
}

type stubMailer struct {
	mu              sync.Mutex
	invoiceErr      error
	confirmationErr error
	invoices        []InvoiceEmail
	confirmations   []OrderConfirmationEmail
}

func (s *stubMailer) SendInvoice(_ context.Context, msg InvoiceEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invoiceErr != nil {
		return s.invoiceErr
	}
	s.invoices = append(s.invoices, msg)
	return nil
}

func (s *stubMailer) SendOrderConfirmation(_ context.Context, msg OrderConfirmationEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmationErr != nil {
		return s.confirmationErr
	}
	s.confirmations = append(s.confirmations, msg)
	return nil
}

func storedOrder() domain.Order {
	return domain.Order{
		ID:          "ord-1",
		OrderNumber: "0000042",
		Customer: domain.Customer{
			Email:     "ana.petrova@example.com",
			FirstName: "Ana",
			LastName:  "Petrova",
			Address:   "12 ul. Vitosha",
			City:      "Sofia",
		},
		PaymentMethod: "cod",
		Items: []domain.PricedLineItem{
			{
				ProductID: "rk-1",
				Name:      "Vertex 04",
				Quantity:  2,
				LineGross: decimal.RequireFromString("240.00"),
			},
		},
		Totals: domain.OrderTotals{
			SubtotalNet:   decimal.RequireFromString("200.00"),
			SubtotalGross: decimal.RequireFromString("240.00"),
			ShippingGross: decimal.RequireFromString("6.00"),
			TotalGross:    decimal.RequireFromString("246.00"),
			TotalVAT:      decimal.RequireFromString("41.00"),
		},
		Currency:  "BGN",
		Language:  "bg",
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newTestInvoiceService(t *testing.T, deps InvoiceServiceDeps) InvoiceService {
	t.Helper()
	if deps.Company == (domain.Company{}) {
		deps.Company = domain.Company{
			Name:      "Sofia Padel",
			Address:   "123 Avenue Padel",
			City:      "Sofia",
			VATNumber: "BG123456789",
		}
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC) }
	}
	svc, err := NewInvoiceService(deps)
	if err != nil {
		t.Fatalf("new invoice service: %v", err)
	}
	return svc
}

func TestInvoiceServiceIssueCreatesInvoice(t *testing.T) {
	orders := newStubOrderRepository()
	orders.orders["ord-1"] = storedOrder()
	invoices := newStubInvoiceRepository()
	renderer := &stubRenderer{}
	mailer := &stubMailer{}

	svc := newTestInvoiceService(t, InvoiceServiceDeps{
		Invoices: invoices,
		Orders:   orders,
		Products: newStubProductRepository(testRacket("rk-1")),
		Counters: &stubCounterService{invoiceNumbers: []string{"0100000007"}},
		Renderer: renderer,
		Mailer:   mailer,
	})

	result, err := svc.Issue(context.Background(), IssueInvoiceCommand{OrderID: "ord-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if result.Reused {
		t.Fatalf("expected fresh issuance")
	}

	invoice := result.Invoice
	if invoice.InvoiceNumber != "0100000007" {
		t.Fatalf("expected invoice number 0100000007, got %s", invoice.InvoiceNumber)
	}
	if invoice.OrderReference != "0000042" {
		t.Fatalf("expected order reference 0000042, got %s", invoice.OrderReference)
	}
	if invoice.Company.VATNumber != "BG123456789" {
		t.Fatalf("expected company identity on invoice")
	}
	if len(invoice.PDF) == 0 {
		t.Fatalf("expected rendered document bytes")
	}
	if got := invoice.TotalGross.StringFixed(2); got != "246.00" {
		t.Fatalf("expected totals from order snapshot, got %s", got)
	}

	// Catalog lookup succeeded, so the line carries the brand-qualified name.
	if len(invoice.Items) != 1 || invoice.Items[0].Name != "Bullpadel Vertex 04" {
		t.Fatalf("unexpected invoice items: %+v", invoice.Items)
	}

	if len(mailer.invoices) != 1 {
		t.Fatalf("expected one invoice email, got %d", len(mailer.invoices))
	}
	if mailer.invoices[0].Recipient != "ana.petrova@example.com" {
		t.Fatalf("unexpected recipient %s", mailer.invoices[0].Recipient)
	}
	if mailer.invoices[0].Language != "bg" {
		t.Fatalf("unexpected language %s", mailer.invoices[0].Language)
	}
}

func TestInvoiceServiceIssueIsIdempotent(t *testing.T) {
	orders := newStubOrderRepository()
	orders.orders["ord-1"] = storedOrder()
	invoices := newStubInvoiceRepository()
	renderer := &stubRenderer{}
	mailer := &stubMailer{}
	counters := &stubCounterService{invoiceNumbers: []string{"0100000007", "0100000008"}}

	svc := newTestInvoiceService(t, InvoiceServiceDeps{
		Invoices: invoices,
		Orders:   orders,
		Counters: counters,
		Renderer: renderer,
		Mailer:   mailer,
	})

	first, err := svc.Issue(context.Background(), IssueInvoiceCommand{OrderID: "ord-1"})
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := svc.Issue(context.Background(), IssueInvoiceCommand{OrderID: "ord-1"})
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}

	if first.Reused || !second.Reused {
		t.Fatalf("expected first fresh, second reused; got %v / %v", first.Reused, second.Reused)
	}
	if second.Invoice.InvoiceNumber != "0100000007" {
		t.Fatalf("expected stored invoice number on reuse, got %s", second.Invoice.InvoiceNumber)
	}
	if renderer.calls != 1 {
		t.Fatalf("expected a single render, got %d", renderer.calls)
	}
	if len(mailer.invoices) != 2 {
		t.Fatalf("expected resend on reuse, got %d emails", len(mailer.invoices))
	}
}

func TestInvoiceServiceIssueAllocationConflict(t *testing.T) {
	orders := newStubOrderRepository()
	orders.orders["ord-1"] = storedOrder()
	invoices := newStubInvoiceRepository()
	invoices.findErr = stubRepositoryError{notFound: true}

	svc := newTestInvoiceService(t, InvoiceServiceDeps{
		Invoices: invoices,
		Orders:   orders,
		Counters: &stubCounterService{err: stubRepositoryError{conflict: true}},
		Renderer: &stubRenderer{},
	})

	if _, err := svc.Issue(context.Background(), IssueInvoiceCommand{OrderID: "ord-1"}); !errors.Is(err, ErrInvoiceConflict) {
		t.Fatalf("expected allocation conflict error, got %v", err)
	}
	if len(invoices.invoices) != 0 {
		t.Fatalf("expected no invoice stored after aborted allocation")
	}
}

func TestInvoiceServiceIssueReusesConcurrentWinner(t *testing.T) {
	// A competing issuer stored its invoice between our existence check and
	// CreateIfAbsent; the stored document must win.
	orders := newStubOrderRepository()
	orders.orders["ord-1"] = storedOrder()

	winner := domain.Invoice{OrderID: "ord-1", InvoiceNumber: "0100000001", CustomerEmail: "ana.petrova@example.com"}
	invoices := newStubInvoiceRepository()
	invoices.findErr = stubRepositoryError{notFound: true}
	invoices.invoices["ord-1"] = winner

	svc := newTestInvoiceService(t, InvoiceServiceDeps{
		Invoices: invoices,
		Orders:   orders,
		Counters: &stubCounterService{invoiceNumbers: []string{"0100000002"}},
		Renderer: &stubRenderer{},
	})

	result, err := svc.Issue(context.Background(), IssueInvoiceCommand{OrderID: "ord-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !result.Reused {
		t.Fatalf("expected reuse of the concurrent winner")
	}
	if result.Invoice.InvoiceNumber != "0100000001" {
		t.Fatalf("expected winner's invoice number, got %s", result.Invoice.InvoiceNumber)
	}
}

func TestInvoiceServiceIssueOrderNotFound(t *testing.T) {
	svc := newTestInvoiceService(t, InvoiceServiceDeps{
		Invoices: newStubInvoiceRepository(),
		Orders:   newStubOrderRepository(),
		Counters: &stubCounterService{},
		Renderer: &stubRenderer{},
	})

	if _, err := svc.Issue(context.Background(), IssueInvoiceCommand{OrderID: "missing"}); !errors.Is(err, ErrInvoiceOrderNotFound) {
		t.Fatalf("expected order not found, got %v", err)
	}
}

func TestInvoiceServiceIssueRenderFailure(t *testing.T) {
	orders := newStubOrderRepository()
	orders.orders["ord-1"] = storedOrder()
	invoices := newStubInvoiceRepository()

	svc := newTestInvoiceService(t, InvoiceServiceDeps{
		Invoices: invoices,
		Orders:   orders,
		Counters: &stubCounterService{},
		Renderer: &stubRenderer{err: errors.New("font missing")},
	})

	if _, err := svc.Issue(context.Background(), IssueInvoiceCommand{OrderID: "ord-1"}); !errors.Is(err, ErrInvoiceRenderFailed) {
		t.Fatalf("expected render failure, got %v", err)
	}
	if invoices.creates != 0 {
		t.Fatalf("expected no invoice persisted after render failure")
	}
}

func TestInvoiceServiceIssueEmailFailureKeepsInvoice(t *testing.T) {
	orders := newStubOrderRepository()
	orders.orders["ord-1"] = storedOrder()
	invoices := newStubInvoiceRepository()

	svc := newTestInvoiceService(t, InvoiceServiceDeps{
		Invoices: invoices,
		Orders:   orders,
		Counters: &stubCounterService{},
		Renderer: &stubRenderer{},
		Mailer:   &stubMailer{invoiceErr: errors.New("smtp down")},
	})

	_, err := svc.Issue(context.Background(), IssueInvoiceCommand{OrderID: "ord-1"})
	if !errors.Is(err, ErrInvoiceEmailFailed) {
		t.Fatalf("expected email failure, got %v", err)
	}

	// The invoice survived; a retry takes the reuse path.
	if _, ok := invoices.invoices["ord-1"]; !ok {
		t.Fatalf("expected invoice persisted despite email failure")
	}
}

func TestInvoiceServiceIssueOverrideRecipient(t *testing.T) {
	orders := newStubOrderRepository()
	orders.orders["ord-1"] = storedOrder()
	mailer := &stubMailer{}

	svc := newTestInvoiceService(t, InvoiceServiceDeps{
		Invoices: newStubInvoiceRepository(),
		Orders:   orders,
		Counters: &stubCounterService{},
		Renderer: &stubRenderer{},
		Mailer:   mailer,
	})

	if _, err := svc.Issue(context.Background(), IssueInvoiceCommand{OrderID: "ord-1", RecipientEmail: "accounting@example.com"}); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if mailer.invoices[0].Recipient != "accounting@example.com" {
		t.Fatalf("expected override recipient, got %s", mailer.invoices[0].Recipient)
	}
}

func TestInvoiceServiceIssueValidatesOrderID(t *testing.T) {
	svc := newTestInvoiceService(t, InvoiceServiceDeps{
		Invoices: newStubInvoiceRepository(),
		Orders:   newStubOrderRepository(),
		Counters: &stubCounterService{},
		Renderer: &stubRenderer{},
	})

	if _, err := svc.Issue(context.Background(), IssueInvoiceCommand{OrderID: "  "}); !errors.Is(err, ErrInvoiceInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestInvoiceServiceItemNameFallsBack(t *testing.T) {
	orders := newStubOrderRepository()
	orders.orders["ord-1"] = storedOrder()
	mailer := &stubMailer{}

	// Product catalog has no entry for rk-1, so the stored line name is kept.
	svc := newTestInvoiceService(t, InvoiceServiceDeps{
		Invoices: newStubInvoiceRepository(),
		Orders:   orders,
		Products: newStubProductRepository(),
		Counters: &stubCounterService{},
		Renderer: &stubRenderer{},
		Mailer:   mailer,
	})

	result, err := svc.Issue(context.Background(), IssueInvoiceCommand{OrderID: "ord-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if result.Invoice.Items[0].Name != "Vertex 04" {
		t.Fatalf("expected stored line name fallback, got %s", result.Invoice.Items[0].Name)
	}
}
