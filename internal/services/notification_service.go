package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/sofia-padel/api/internal/domain"
	"github.com/sofia-padel/api/internal/repositories"
)

var (
	// ErrNotificationInvalidInput signals the caller provided invalid data.
	ErrNotificationInvalidInput = errors.New("notification: invalid input")
	// ErrNotificationOrderNotFound indicates the referenced order does not exist.
	ErrNotificationOrderNotFound = errors.New("notification: order not found")
	// ErrNotificationSendFailed indicates the email could not be delivered.
	ErrNotificationSendFailed = errors.New("notification: send failed")
)

// NotificationServiceDeps bundles collaborators required to construct the notification service.
type NotificationServiceDeps struct {
	Orders   repositories.OrderRepository
	Products repositories.ProductRepository
	Mailer   Mailer
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type notificationService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	mailer   Mailer
	logger   func(context.Context, string, map[string]any)
}

// NewNotificationService wires dependencies into a concrete NotificationService implementation.
func NewNotificationService(deps NotificationServiceDeps) (NotificationService, error) {
	if deps.Orders == nil {
		return nil, errors.New("notification service: order repository is required")
	}
	if deps.Mailer == nil {
		return nil, errors.New("notification service: mailer is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &notificationService{
		orders:   deps.Orders,
		products: deps.Products,
		mailer:   deps.Mailer,
		logger:   logger,
	}, nil
}

// SendOrderConfirmation emails the order summary to the customer, or to the
// override recipient when one is given.
func (s *notificationService) SendOrderConfirmation(ctx context.Context, cmd OrderConfirmationCommand) error {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrNotificationInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotificationOrderNotFound, orderID)
		}
		return err
	}

	recipient := strings.TrimSpace(cmd.RecipientEmail)
	if recipient == "" {
		recipient = order.Customer.Email
	}
	if recipient == "" {
		return fmt.Errorf("%w: order has no customer email", ErrNotificationInvalidInput)
	}

	msg := OrderConfirmationEmail{
		Recipient: recipient,
		Language:  order.Language,
		Order:     order,
		Items:     s.emailItems(ctx, order),
	}

	if err := s.mailer.SendOrderConfirmation(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}

	s.logger(ctx, "order.confirmation.sent", map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	return nil
}

// emailItems enriches order lines with catalog display names and images.
// Lookup failures fall back to the name frozen on the line.
func (s *notificationService) emailItems(ctx context.Context, order domain.Order) []EmailLineItem {
	items := make([]EmailLineItem, 0, len(order.Items))
	for _, line := range order.Items {
		item := EmailLineItem{
			DisplayName: line.Name,
			Quantity:    line.Quantity,
			LineGross:   line.LineGross,
		}
		if s.products != nil {
			if product, err := s.products.FindByID(ctx, line.ProductID); err == nil {
				if name := product.DisplayName(); name != "" {
					item.DisplayName = name
				}
				item.ImageURL = product.ImageURL
			}
		}
		items = append(items, item)
	}
	return items
}
