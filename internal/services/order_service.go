package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/sofia-padel/api/internal/domain"
	"github.com/sofia-padel/api/internal/pricing"
	"github.com/sofia-padel/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderConflict indicates a duplicate order document or counter clash.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderUserNotFound indicates the referenced customer account does not exist.
	ErrOrderUserNotFound = errors.New("order: user not found")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Users       repositories.UserRepository
	Counters    CounterService
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	users    repositories.UserRepository
	counters CounterService
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:   deps.Orders,
		products: deps.Products,
		users:    deps.Users,
		counters: deps.Counters,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Create validates the checkout payload, prices every line against the
// current catalog, allocates an order number, and persists the order with
// status pending. The customer's stored profile is refreshed afterwards when
// the payload references an account.
func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if err := validateOrderCommand(cmd); err != nil {
		return Order{}, err
	}

	now := s.clock()

	items := make([]domain.PricedLineItem, 0, len(cmd.Items))
	for _, input := range cmd.Items {
		product, err := s.products.FindByID(ctx, input.ProductID)
		if err != nil {
			return Order{}, s.mapRepositoryError(err)
		}
		items = append(items, pricing.PriceLine(product, input.Quantity, now))
	}

	totals := pricing.Aggregate(items, cmd.ShippingNet, decimal.Decimal{})

	number, err := s.counters.NextOrderNumber(ctx)
	if err != nil {
		return Order{}, s.mapRepositoryError(fmt.Errorf("order: allocate number: %w", err))
	}

	order := Order{
		ID:             s.newID(),
		OrderNumber:    number,
		Customer:       normaliseCustomer(cmd.Customer),
		DeliveryOption: strings.TrimSpace(cmd.DeliveryOption),
		PaymentMethod:  strings.TrimSpace(cmd.PaymentMethod),
		Items:          items,
		Totals:         totals,
		Currency:       orderCurrency(items),
		Language:       strings.TrimSpace(cmd.Language),
		Status:         domain.OrderStatusPending,
		CreatedAt:      now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if err := s.refreshProfile(ctx, order, now); err != nil {
		return Order{}, err
	}

	s.logger(ctx, "order.created", map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"items":        len(order.Items),
		"total_gross":  order.Totals.TotalGross.StringFixed(2),
	})

	return order, nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

// refreshProfile rewrites the customer's stored profile with the contact
// details collected at checkout. Orders placed without an account skip this.
func (s *orderService) refreshProfile(ctx context.Context, order Order, now time.Time) error {
	userID := strings.TrimSpace(order.Customer.UserID)
	if userID == "" || s.users == nil {
		return nil
	}

	existing, err := s.users.FindByID(ctx, userID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return fmt.Errorf("%w: %s", ErrOrderUserNotFound, userID)
		}
		return s.mapRepositoryError(err)
	}

	existing.ID = userID
	existing.Email = order.Customer.Email
	existing.FirstName = order.Customer.FirstName
	existing.LastName = order.Customer.LastName
	existing.Phone = order.Customer.Phone
	existing.Address = order.Customer.Address
	existing.City = order.Customer.City
	existing.PostalCode = order.Customer.PostalCode
	existing.PreferredPayment = order.PaymentMethod
	existing.UpdatedAt = now

	if err := s.users.Upsert(ctx, existing); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func validateOrderCommand(cmd CreateOrderCommand) error {
	var missing []string
	if strings.TrimSpace(cmd.Customer.Email) == "" {
		missing = append(missing, "customer.email")
	} else if _, err := mail.ParseAddress(strings.TrimSpace(cmd.Customer.Email)); err != nil {
		return fmt.Errorf("%w: customer.email is malformed", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(cmd.Customer.FirstName) == "" {
		missing = append(missing, "customer.first_name")
	}
	if strings.TrimSpace(cmd.Customer.LastName) == "" {
		missing = append(missing, "customer.last_name")
	}
	if strings.TrimSpace(cmd.Customer.Address) == "" {
		missing = append(missing, "customer.address")
	}
	if strings.TrimSpace(cmd.Customer.City) == "" {
		missing = append(missing, "customer.city")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrOrderInvalidInput, strings.Join(missing, ", "))
	}

	if len(cmd.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrOrderInvalidInput)
	}
	for i, item := range cmd.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("%w: items[%d] product id is required", ErrOrderInvalidInput, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: items[%d] quantity must be positive", ErrOrderInvalidInput, i)
		}
	}

	if cmd.ShippingNet.IsNegative() {
		return fmt.Errorf("%w: shipping cost must not be negative", ErrOrderInvalidInput)
	}

	return nil
}

func normaliseCustomer(customer Customer) Customer {
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	customer.UserID = strings.TrimSpace(customer.UserID)
	customer.FirstName = strings.TrimSpace(customer.FirstName)
	customer.LastName = strings.TrimSpace(customer.LastName)
	customer.Phone = strings.TrimSpace(customer.Phone)
	customer.Address = strings.TrimSpace(customer.Address)
	customer.City = strings.TrimSpace(customer.City)
	customer.PostalCode = strings.TrimSpace(customer.PostalCode)
	return customer
}

func orderCurrency(items []domain.PricedLineItem) string {
	if len(items) > 0 && strings.TrimSpace(items[0].Currency) != "" {
		return items[0].Currency
	}
	return domain.DefaultCurrency
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}
