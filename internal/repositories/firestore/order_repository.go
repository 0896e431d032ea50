package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/sofia-padel/api/internal/domain"
	pfirestore "github.com/sofia-padel/api/internal/platform/firestore"
)

const ordersCollection = "orders"

type orderDocument struct {
	OrderNumber    string              `firestore:"order_number"`
	Customer       customerDocument    `firestore:"customer"`
	DeliveryOption string              `firestore:"delivery_option"`
	PaymentMethod  string              `firestore:"payment_method"`
	Items          []orderItemDocument `firestore:"items"`

	SubtotalNet     float64 `firestore:"subtotal_net"`
	SubtotalGross   float64 `firestore:"subtotal_gross"`
	SubtotalVAT     float64 `firestore:"subtotal_vat_amount"`
	ShippingCostNet float64 `firestore:"shipping_cost_net"`
	ShippingCost    float64 `firestore:"shipping_cost_gross"`
	ShippingVAT     float64 `firestore:"shipping_vat_amount"`
	ShippingVATRate float64 `firestore:"shipping_vat_rate"`
	TotalNet        float64 `firestore:"total_net"`
	TotalGross      float64 `firestore:"total_gross"`
	VATTotal        float64 `firestore:"vat_total"`

	Currency  string    `firestore:"currency"`
	Language  string    `firestore:"language"`
	Status    string    `firestore:"status"`
	CreatedAt time.Time `firestore:"created_at"`
}

type customerDocument struct {
	Email      string `firestore:"email"`
	UserID     string `firestore:"user_id,omitempty"`
	FirstName  string `firestore:"first_name"`
	LastName   string `firestore:"last_name"`
	Phone      string `firestore:"phone"`
	Address    string `firestore:"address"`
	City       string `firestore:"city"`
	PostalCode string `firestore:"postal_code"`
}

type orderItemDocument struct {
	ProductID string  `firestore:"product_id"`
	Name      string  `firestore:"name"`
	Quantity  int     `firestore:"quantity"`
	UnitNet   float64 `firestore:"unit_price_net"`
	UnitGross float64 `firestore:"unit_price_gross"`
	UnitVAT   float64 `firestore:"unit_vat_amount"`
	VATRate   float64 `firestore:"vat_rate"`
	LineNet   float64 `firestore:"line_total_net"`
	LineGross float64 `firestore:"line_total_gross"`
	LineVAT   float64 `firestore:"line_vat_amount"`
	Currency  string  `firestore:"currency"`

	Discounted        bool    `firestore:"discounted"`
	DiscountPercent   float64 `firestore:"discount_percent,omitempty"`
	OriginalUnitNet   float64 `firestore:"original_unit_price_net,omitempty"`
	OriginalUnitGross float64 `firestore:"original_unit_price_gross,omitempty"`
}

// OrderRepository persists orders in Firestore. Documents are written once at
// checkout; later reads return the stored amounts untouched.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{base: base}, nil
}

// Insert stores the order under its ID. Existing documents are never overwritten.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order id is required")
	}

	_, err := r.base.Create(ctx, order.ID, fromDomainOrder(order))
	return err
}

// FindByID loads the order by its document ID.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, errors.New("order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	order := toDomainOrder(doc.Data)
	order.ID = doc.ID
	if order.CreatedAt.IsZero() {
		order.CreatedAt = doc.CreateTime
	}
	return order, nil
}

func fromDomainOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:    order.OrderNumber,
		Customer:       fromDomainCustomer(order.Customer),
		DeliveryOption: strings.TrimSpace(order.DeliveryOption),
		PaymentMethod:  strings.TrimSpace(order.PaymentMethod),
		Items:          make([]orderItemDocument, 0, len(order.Items)),

		SubtotalNet:     order.Totals.SubtotalNet.InexactFloat64(),
		SubtotalGross:   order.Totals.SubtotalGross.InexactFloat64(),
		SubtotalVAT:     order.Totals.SubtotalVAT.InexactFloat64(),
		ShippingCostNet: order.Totals.ShippingNet.InexactFloat64(),
		ShippingCost:    order.Totals.ShippingGross.InexactFloat64(),
		ShippingVAT:     order.Totals.ShippingVAT.InexactFloat64(),
		ShippingVATRate: order.Totals.ShippingVATRate.InexactFloat64(),
		TotalNet:        order.Totals.TotalNet.InexactFloat64(),
		TotalGross:      order.Totals.TotalGross.InexactFloat64(),
		VATTotal:        order.Totals.TotalVAT.InexactFloat64(),

		Currency:  order.Currency,
		Language:  order.Language,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ProductID:         item.ProductID,
			Name:              item.Name,
			Quantity:          item.Quantity,
			UnitNet:           item.UnitNet.InexactFloat64(),
			UnitGross:         item.UnitGross.InexactFloat64(),
			UnitVAT:           item.UnitVAT.InexactFloat64(),
			VATRate:           item.VATRate.InexactFloat64(),
			LineNet:           item.LineNet.InexactFloat64(),
			LineGross:         item.LineGross.InexactFloat64(),
			LineVAT:           item.LineVAT.InexactFloat64(),
			Currency:          item.Currency,
			Discounted:        item.Discounted,
			DiscountPercent:   item.DiscountPercent.InexactFloat64(),
			OriginalUnitNet:   item.OriginalUnitNet.InexactFloat64(),
			OriginalUnitGross: item.OriginalUnitGross.InexactFloat64(),
		})
	}
	return doc
}

func toDomainOrder(doc orderDocument) domain.Order {
	order := domain.Order{
		OrderNumber:    doc.OrderNumber,
		Customer:       toDomainCustomer(doc.Customer),
		DeliveryOption: doc.DeliveryOption,
		PaymentMethod:  doc.PaymentMethod,
		Items:          make([]domain.PricedLineItem, 0, len(doc.Items)),
		Totals: domain.OrderTotals{
			SubtotalNet:     decimal.NewFromFloat(doc.SubtotalNet),
			SubtotalGross:   decimal.NewFromFloat(doc.SubtotalGross),
			SubtotalVAT:     decimal.NewFromFloat(doc.SubtotalVAT),
			ShippingNet:     decimal.NewFromFloat(doc.ShippingCostNet),
			ShippingGross:   decimal.NewFromFloat(doc.ShippingCost),
			ShippingVAT:     decimal.NewFromFloat(doc.ShippingVAT),
			ShippingVATRate: decimal.NewFromFloat(doc.ShippingVATRate),
			TotalNet:        decimal.NewFromFloat(doc.TotalNet),
			TotalGross:      decimal.NewFromFloat(doc.TotalGross),
			TotalVAT:        decimal.NewFromFloat(doc.VATTotal),
		},
		Currency:  doc.Currency,
		Language:  doc.Language,
		Status:    domain.OrderStatus(doc.Status),
		CreatedAt: doc.CreatedAt,
	}
	for _, item := range doc.Items {
		order.Items = append(order.Items, domain.PricedLineItem{
			ProductID:         item.ProductID,
			Name:              item.Name,
			Quantity:          item.Quantity,
			UnitNet:           decimal.NewFromFloat(item.UnitNet),
			UnitGross:         decimal.NewFromFloat(item.UnitGross),
			UnitVAT:           decimal.NewFromFloat(item.UnitVAT),
			VATRate:           decimal.NewFromFloat(item.VATRate),
			LineNet:           decimal.NewFromFloat(item.LineNet),
			LineGross:         decimal.NewFromFloat(item.LineGross),
			LineVAT:           decimal.NewFromFloat(item.LineVAT),
			Currency:          item.Currency,
			Discounted:        item.Discounted,
			DiscountPercent:   decimal.NewFromFloat(item.DiscountPercent),
			OriginalUnitNet:   decimal.NewFromFloat(item.OriginalUnitNet),
			OriginalUnitGross: decimal.NewFromFloat(item.OriginalUnitGross),
		})
	}
	return order
}

func fromDomainCustomer(customer domain.Customer) customerDocument {
	return customerDocument{
		Email:      strings.ToLower(strings.TrimSpace(customer.Email)),
		UserID:     strings.TrimSpace(customer.UserID),
		FirstName:  strings.TrimSpace(customer.FirstName),
		LastName:   strings.TrimSpace(customer.LastName),
		Phone:      strings.TrimSpace(customer.Phone),
		Address:    strings.TrimSpace(customer.Address),
		City:       strings.TrimSpace(customer.City),
		PostalCode: strings.TrimSpace(customer.PostalCode),
	}
}

func toDomainCustomer(doc customerDocument) domain.Customer {
	return domain.Customer{
		Email:      doc.Email,
		UserID:     doc.UserID,
		FirstName:  doc.FirstName,
		LastName:   doc.LastName,
		Phone:      doc.Phone,
		Address:    doc.Address,
		City:       doc.City,
		PostalCode: doc.PostalCode,
	}
}
