package repositories

import (
	"context"

	domain "github.com/sofia-padel/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository exposes the product catalog.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) error
}

// OrderRepository persists finished orders. Orders are written once at
// checkout and read back verbatim when invoices are issued.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
}

// InvoiceRepository owns the one-invoice-per-order guarantee. CreateIfAbsent
// stores the candidate invoice under its order ID unless one already exists,
// in which case the stored invoice is returned untouched.
type InvoiceRepository interface {
	FindByOrderID(ctx context.Context, orderID string) (domain.Invoice, error)
	CreateIfAbsent(ctx context.Context, invoice domain.Invoice) (domain.Invoice, bool, error)
}

// UserRepository keeps the customer profile refreshed at checkout.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.UserProfile, error)
	Upsert(ctx context.Context, profile domain.UserProfile) error
}

// CounterRepository allocates strictly increasing sequence values. The first
// call for an unknown counter returns start; later calls increment by one.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, start int64) (int64, error)
}

// HealthRepository aggregates dependency probes for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
