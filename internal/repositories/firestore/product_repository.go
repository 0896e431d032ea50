package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	domain "github.com/sofia-padel/api/internal/domain"
	pfirestore "github.com/sofia-padel/api/internal/platform/firestore"
)

const productsCollection = "products"

// productDocument mirrors the catalog schema as written by the storefront
// tooling. Monetary fields are plain numbers; discount windows are nested.
type productDocument struct {
	Name     string            `firestore:"name"`
	Brand    string            `firestore:"brand"`
	ImageURL string            `firestore:"image"`
	Price    float64           `firestore:"price"`
	VATRate  float64           `firestore:"vat_rate"`
	Currency string            `firestore:"currency"`
	Discount *discountDocument `firestore:"discount,omitempty"`
}

type discountDocument struct {
	Active  bool       `firestore:"active"`
	Percent float64    `firestore:"percent"`
	Start   *time.Time `firestore:"discount_start,omitempty"`
	End     *time.Time `firestore:"discount_end,omitempty"`
}

// ProductRepository reads and writes catalog entries in Firestore.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil)
	return &ProductRepository{base: base}, nil
}

// FindByID loads a single product by its document ID.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	if strings.TrimSpace(productID) == "" {
		return domain.Product{}, errors.New("product id is required")
	}

	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return toDomainProduct(doc.ID, doc.Data), nil
}

// List returns the full catalog ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, toDomainProduct(doc.ID, doc.Data))
	}
	return products, nil
}

// Upsert writes the product under its ID, replacing any existing document.
func (r *ProductRepository) Upsert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	if strings.TrimSpace(product.ID) == "" {
		return errors.New("product id is required")
	}

	_, err := r.base.Set(ctx, product.ID, fromDomainProduct(product))
	return err
}

func toDomainProduct(id string, doc productDocument) domain.Product {
	product := domain.Product{
		ID:       id,
		Name:     strings.TrimSpace(doc.Name),
		Brand:    strings.TrimSpace(doc.Brand),
		ImageURL: strings.TrimSpace(doc.ImageURL),
		PriceNet: decimal.NewFromFloat(doc.Price),
		VATRate:  decimal.NewFromFloat(doc.VATRate),
		Currency: strings.TrimSpace(doc.Currency),
	}
	if doc.Discount != nil {
		product.Discount = &domain.Discount{
			Active:  doc.Discount.Active,
			Percent: decimal.NewFromFloat(doc.Discount.Percent),
			Start:   doc.Discount.Start,
			End:     doc.Discount.End,
		}
	}
	return product
}

func fromDomainProduct(product domain.Product) productDocument {
	doc := productDocument{
		Name:     strings.TrimSpace(product.Name),
		Brand:    strings.TrimSpace(product.Brand),
		ImageURL: strings.TrimSpace(product.ImageURL),
		Price:    product.PriceNet.InexactFloat64(),
		VATRate:  product.VATRate.InexactFloat64(),
		Currency: strings.TrimSpace(product.Currency),
	}
	if product.Discount != nil {
		doc.Discount = &discountDocument{
			Active:  product.Discount.Active,
			Percent: product.Discount.Percent.InexactFloat64(),
			Start:   product.Discount.Start,
			End:     product.Discount.End,
		}
	}
	return doc
}
