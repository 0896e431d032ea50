package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/sofia-padel/api/internal/domain"
	"github.com/sofia-padel/api/internal/pricing"
	"github.com/sofia-padel/api/internal/repositories"
)

const defaultCatalogTTL = 5 * time.Minute

var (
	// ErrCatalogInvalidInput signals the caller provided invalid data.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrProductNotFound indicates the product could not be located.
	ErrProductNotFound = errors.New("catalog: product not found")
)

// CatalogServiceDeps bundles collaborators required to construct the catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
	TTL      time.Duration
	Clock    func() time.Time
}

type catalogService struct {
	products repositories.ProductRepository
	ttl      time.Duration
	clock    func() time.Time

	mu          sync.Mutex
	list        []domain.Product
	listExpires time.Time
	entries     map[string]catalogCacheEntry
}

type catalogCacheEntry struct {
	product domain.Product
	expires time.Time
}

// NewCatalogService wires dependencies into a concrete CatalogService implementation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}

	ttl := deps.TTL
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &catalogService{
		products: deps.Products,
		ttl:      ttl,
		clock: func() time.Time {
			return clock().UTC()
		},
		entries: make(map[string]catalogCacheEntry),
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]CatalogEntry, error) {
	now := s.clock()

	products, ok := s.cachedList(now)
	if !ok {
		fetched, err := s.products.List(ctx)
		if err != nil {
			return nil, s.mapRepositoryError(err)
		}
		products = fetched
		s.storeList(fetched, now.Add(s.ttl))
	}

	entries := make([]CatalogEntry, 0, len(products))
	for _, product := range products {
		entries = append(entries, CatalogEntry{
			Product: product,
			Pricing: pricing.Price(product, now),
		})
	}
	return entries, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (CatalogEntry, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return CatalogEntry{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	now := s.clock()

	product, ok := s.cachedProduct(productID, now)
	if !ok {
		fetched, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return CatalogEntry{}, s.mapRepositoryError(err)
		}
		product = fetched
		s.storeProduct(fetched, now.Add(s.ttl))
	}

	return CatalogEntry{
		Product: product,
		Pricing: pricing.Price(product, now),
	}, nil
}

// BackfillDefaults stamps the standard VAT rate and currency onto catalog
// entries missing them, then drops every cached read.
func (s *catalogService) BackfillDefaults(ctx context.Context) (BackfillReport, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return BackfillReport{}, s.mapRepositoryError(err)
	}

	report := BackfillReport{Scanned: len(products)}
	for _, product := range products {
		changed := false
		if !product.VATRate.IsPositive() {
			product.VATRate = domain.DefaultVATRate
			changed = true
		}
		if strings.TrimSpace(product.Currency) == "" {
			product.Currency = domain.DefaultCurrency
			changed = true
		}
		if !changed {
			continue
		}
		if err := s.products.Upsert(ctx, product); err != nil {
			return report, s.mapRepositoryError(err)
		}
		report.Updated++
	}

	s.Invalidate()
	return report, nil
}

// Invalidate drops the cached list and every cached product entry.
func (s *catalogService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = nil
	s.listExpires = time.Time{}
	s.entries = make(map[string]catalogCacheEntry)
}

func (s *catalogService) cachedList(now time.Time) ([]domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.list == nil || now.After(s.listExpires) {
		return nil, false
	}
	return s.list, true
}

func (s *catalogService) storeList(products []domain.Product, expires time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = products
	s.listExpires = expires
	for _, product := range products {
		s.entries[product.ID] = catalogCacheEntry{product: product, expires: expires}
	}
}

func (s *catalogService) cachedProduct(productID string, now time.Time) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[productID]
	if !ok || now.After(entry.expires) {
		return domain.Product{}, false
	}
	return entry.product, true
}

func (s *catalogService) storeProduct(product domain.Product, expires time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[product.ID] = catalogCacheEntry{product: product, expires: expires}
}

func (s *catalogService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrProductNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("catalog: repository unavailable: %w", err)
		}
	}

	return err
}
