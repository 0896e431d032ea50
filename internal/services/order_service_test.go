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

type stubOrderRepository struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	insertErr error
	findErr   error
}

func newStubOrderRepository() *stubOrderRepository {
	return &stubOrderRepository{orders: make(map[string]domain.Order)}
}

func (s *stubOrderRepository) Insert(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, exists := s.orders[order.ID]; exists {
		return stubRepositoryError{conflict: true}
	}
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrderRepository) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return domain.Order{}, s.findErr
	}
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, stubRepositoryError{notFound: true}
	}
	return order, nil
}

type stubUserRepository struct {
	mu       sync.Mutex
	profiles map[string]domain.UserProfile
	upserts  []domain.UserProfile
}

func newStubUserRepository(profiles ...domain.UserProfile) *stubUserRepository {
	repo := &stubUserRepository{profiles: make(map[string]domain.UserProfile)}
	for _, profile := range profiles {
		repo.profiles[profile.ID] = profile
	}
	return repo
}

func (s *stubUserRepository) FindByID(_ context.Context, userID string) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return domain.UserProfile{}, stubRepositoryError{notFound: true}
	}
	return profile, nil
}

func (s *stubUserRepository) Upsert(_ context.Context, profile domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, profile)
	s.profiles[profile.ID] = profile
	return nil
}

type stubCounterService struct {
	orderNumbers   []string
	invoiceNumbers []string
	err            error
}

func (s *stubCounterService) Next(context.Context, string, int64, int) (CounterValue, error) {
	return CounterValue{}, errors.New("not used")
}

func (s *stubCounterService) NextOrderNumber(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if len(s.orderNumbers) == 0 {
		return "0000001", nil
	}
	number := s.orderNumbers[0]
	s.orderNumbers = s.orderNumbers[1:]
	return number, nil
}

func (s *stubCounterService) NextInvoiceNumber(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if len(s.invoiceNumbers) == 0 {
		return "0100000001", nil
	}
	number := s.invoiceNumbers[0]
	s.invoiceNumbers = s.invoiceNumbers[1:]
	return number, nil
}

func validOrderCommand() CreateOrderCommand {
	return CreateOrderCommand{
		Customer: Customer{
			Email:      "Ana.Petrova@Example.COM",
			FirstName:  "Ana",
			LastName:   "Petrova",
			Phone:      "+359888123456",
			Address:    "12 ul. Vitosha",
			City:       "Sofia",
			PostalCode: "1000",
		},
		Items:          []OrderItemInput{{ProductID: "rk-1", Quantity: 2}},
		DeliveryOption: "speedy_office",
		PaymentMethod:  "cod",
		ShippingNet:    decimal.RequireFromString("5.00"),
		Language:       "bg",
	}
}

func newTestOrderService(t *testing.T, deps OrderServiceDeps) OrderService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC) }
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "01JTEST0000000000000000000" }
	}
	svc, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	return svc
}

func TestOrderServiceCreatePricesAndPersists(t *testing.T) {
	orders := newStubOrderRepository()
	products := newStubProductRepository(testRacket("rk-1"))
	counters := &stubCounterService{orderNumbers: []string{"0000042"}}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   orders,
		Products: products,
		Counters: counters,
	})

	order, err := svc.Create(context.Background(), validOrderCommand())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.OrderNumber != "0000042" {
		t.Fatalf("expected order number 0000042, got %s", order.OrderNumber)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected status pending, got %s", order.Status)
	}
	if order.Customer.Email != "ana.petrova@example.com" {
		t.Fatalf("expected lowercased email, got %s", order.Customer.Email)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(order.Items))
	}

	line := order.Items[0]
	if got := line.UnitGross.StringFixed(2); got != "120.00" {
		t.Fatalf("expected unit gross 120.00, got %s", got)
	}
	if got := line.LineGross.StringFixed(2); got != "240.00" {
		t.Fatalf("expected line gross 240.00, got %s", got)
	}

	// Shipping net 5.00 at the first item's 20% rate.
	if got := order.Totals.ShippingGross.StringFixed(2); got != "6.00" {
		t.Fatalf("expected shipping gross 6.00, got %s", got)
	}
	if got := order.Totals.TotalGross.StringFixed(2); got != "246.00" {
		t.Fatalf("expected total gross 246.00, got %s", got)
	}
	if order.Currency != "BGN" {
		t.Fatalf("expected currency BGN, got %s", order.Currency)
	}

	stored, err := orders.FindByID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("stored order lookup: %v", err)
	}
	if stored.OrderNumber != order.OrderNumber {
		t.Fatalf("stored order diverges from returned order")
	}
}

func TestOrderServiceCreateValidation(t *testing.T) {
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   newStubOrderRepository(),
		Products: newStubProductRepository(testRacket("rk-1")),
		Counters: &stubCounterService{},
	})

	cases := []struct {
		name   string
		mutate func(*CreateOrderCommand)
	}{
		{name: "missing email", mutate: func(cmd *CreateOrderCommand) { cmd.Customer.Email = "" }},
		{name: "malformed email", mutate: func(cmd *CreateOrderCommand) { cmd.Customer.Email = "not-an-email" }},
		{name: "missing first name", mutate: func(cmd *CreateOrderCommand) { cmd.Customer.FirstName = " " }},
		{name: "missing address", mutate: func(cmd *CreateOrderCommand) { cmd.Customer.Address = "" }},
		{name: "missing city", mutate: func(cmd *CreateOrderCommand) { cmd.Customer.City = "" }},
		{name: "no items", mutate: func(cmd *CreateOrderCommand) { cmd.Items = nil }},
		{name: "zero quantity", mutate: func(cmd *CreateOrderCommand) { cmd.Items[0].Quantity = 0 }},
		{name: "negative quantity", mutate: func(cmd *CreateOrderCommand) { cmd.Items[0].Quantity = -3 }},
		{name: "blank product id", mutate: func(cmd *CreateOrderCommand) { cmd.Items[0].ProductID = " " }},
		{name: "negative shipping", mutate: func(cmd *CreateOrderCommand) { cmd.ShippingNet = decimal.RequireFromString("-1") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := validOrderCommand()
			tc.mutate(&cmd)
			if _, err := svc.Create(context.Background(), cmd); !errors.Is(err, ErrOrderInvalidInput) {
				t.Fatalf("expected invalid input error, got %v", err)
			}
		})
	}
}

func TestOrderServiceCreateUnknownProduct(t *testing.T) {
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   newStubOrderRepository(),
		Products: newStubProductRepository(),
		Counters: &stubCounterService{},
	})

	if _, err := svc.Create(context.Background(), validOrderCommand()); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestOrderServiceCreateCounterFailureAbortsPersist(t *testing.T) {
	orders := newStubOrderRepository()
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   orders,
		Products: newStubProductRepository(testRacket("rk-1")),
		Counters: &stubCounterService{err: errors.New("transaction aborted")},
	})

	if _, err := svc.Create(context.Background(), validOrderCommand()); err == nil {
		t.Fatalf("expected counter failure to propagate")
	}
	if len(orders.orders) != 0 {
		t.Fatalf("expected no order persisted after counter failure")
	}
}

func TestOrderServiceCreateCounterConflictSurfacesAsConflict(t *testing.T) {
	orders := newStubOrderRepository()
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   orders,
		Products: newStubProductRepository(testRacket("rk-1")),
		Counters: &stubCounterService{err: stubRepositoryError{conflict: true}},
	})

	if _, err := svc.Create(context.Background(), validOrderCommand()); !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(orders.orders) != 0 {
		t.Fatalf("expected no order persisted after aborted allocation")
	}
}

func TestOrderServiceCreateRefreshesProfile(t *testing.T) {
	users := newStubUserRepository(domain.UserProfile{ID: "user-7", Email: "old@example.com"})
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   newStubOrderRepository(),
		Products: newStubProductRepository(testRacket("rk-1")),
		Users:    users,
		Counters: &stubCounterService{},
	})

	cmd := validOrderCommand()
	cmd.Customer.UserID = "user-7"
	if _, err := svc.Create(context.Background(), cmd); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if len(users.upserts) != 1 {
		t.Fatalf("expected one profile upsert, got %d", len(users.upserts))
	}
	updated := users.upserts[0]
	if updated.Email != "ana.petrova@example.com" {
		t.Fatalf("expected refreshed email, got %s", updated.Email)
	}
	if updated.City != "Sofia" || updated.PreferredPayment != "cod" {
		t.Fatalf("expected refreshed contact fields, got %+v", updated)
	}
	if updated.UpdatedAt.IsZero() {
		t.Fatalf("expected updated timestamp")
	}
}

func TestOrderServiceCreateUnknownUser(t *testing.T) {
	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   newStubOrderRepository(),
		Products: newStubProductRepository(testRacket("rk-1")),
		Users:    newStubUserRepository(),
		Counters: &stubCounterService{},
	})

	cmd := validOrderCommand()
	cmd.Customer.UserID = "ghost"
	if _, err := svc.Create(context.Background(), cmd); !errors.Is(err, ErrOrderUserNotFound) {
		t.Fatalf("expected user not found error, got %v", err)
	}
}

func TestOrderServiceGet(t *testing.T) {
	orders := newStubOrderRepository()
	orders.orders["ord-1"] = domain.Order{ID: "ord-1", OrderNumber: "0000001"}

	svc := newTestOrderService(t, OrderServiceDeps{
		Orders:   orders,
		Products: newStubProductRepository(),
		Counters: &stubCounterService{},
	})

	order, err := svc.Get(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.OrderNumber != "0000001" {
		t.Fatalf("unexpected order: %+v", order)
	}

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Get(context.Background(), " "); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
