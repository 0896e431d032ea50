package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/sofia-padel/api/internal/domain"
	pfirestore "github.com/sofia-padel/api/internal/platform/firestore"
)

const invoicesCollection = "invoices"

type invoiceDocument struct {
	OrderID        string                `firestore:"order_id"`
	OrderReference string                `firestore:"order_reference"`
	InvoiceNumber  string                `firestore:"invoice_number"`
	IssueDate      time.Time             `firestore:"issue_date"`
	Company        companyDocument       `firestore:"company"`
	Customer       customerDocument      `firestore:"customer"`
	CustomerEmail  string                `firestore:"customer_email"`
	Items          []invoiceItemDocument `firestore:"items"`
	SubtotalNet    float64               `firestore:"subtotal_net"`
	SubtotalGross  float64               `firestore:"subtotal_gross"`
	VATTotal       float64               `firestore:"vat_total"`
	ShippingGross  float64               `firestore:"shipping_gross"`
	TotalGross     float64               `firestore:"total_gross"`
	PaymentMethod  string                `firestore:"payment_method"`
	Currency       string                `firestore:"currency"`
	Language       string                `firestore:"language"`
	PDFBase64      string                `firestore:"pdf_base64,omitempty"`
	CreatedAt      time.Time             `firestore:"created_at"`
}

type companyDocument struct {
	Name      string `firestore:"name"`
	Address   string `firestore:"address"`
	City      string `firestore:"city"`
	VATNumber string `firestore:"vat_number"`
}

type invoiceItemDocument struct {
	Name           string  `firestore:"name"`
	Quantity       int     `firestore:"quantity"`
	LineTotalGross float64 `firestore:"line_total_gross"`
}

// InvoiceRepository persists invoices keyed by order ID. Keying by order ID is
// what makes issuance idempotent: two concurrent issuers race on the same
// document, and the transaction in CreateIfAbsent lets exactly one of them win.
type InvoiceRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[invoiceDocument]
}

// NewInvoiceRepository constructs a Firestore-backed invoice repository.
func NewInvoiceRepository(provider *pfirestore.Provider) (*InvoiceRepository, error) {
	if provider == nil {
		return nil, errors.New("invoice repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[invoiceDocument](provider, invoicesCollection, nil, nil)
	return &InvoiceRepository{provider: provider, base: base}, nil
}

// FindByOrderID loads the invoice issued for the given order.
func (r *InvoiceRepository) FindByOrderID(ctx context.Context, orderID string) (domain.Invoice, error) {
	if r == nil || r.base == nil {
		return domain.Invoice{}, errors.New("invoice repository not initialised")
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.Invoice{}, errors.New("order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Invoice{}, err
	}
	return toDomainInvoice(doc.Data)
}

// CreateIfAbsent stores the candidate invoice unless one already exists for
// its order. The get and the create run in one transaction, so of any number
// of concurrent callers exactly one stores its candidate; all others receive
// the stored invoice with created=false.
func (r *InvoiceRepository) CreateIfAbsent(ctx context.Context, invoice domain.Invoice) (domain.Invoice, bool, error) {
	if r == nil || r.provider == nil {
		return domain.Invoice{}, false, errors.New("invoice repository not initialised")
	}
	orderID := strings.TrimSpace(invoice.OrderID)
	if orderID == "" {
		return domain.Invoice{}, false, errors.New("invoice order id is required")
	}

	var (
		stored  invoiceDocument
		created bool
	)

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}

		snapshot, err := tx.Get(ref)
		switch status.Code(err) {
		case codes.NotFound:
			doc := fromDomainInvoice(invoice)
			if err := tx.Create(ref, doc); err != nil {
				return err
			}
			stored = doc
			created = true
			return nil
		case codes.OK:
			created = false
			return snapshot.DataTo(&stored)
		default:
			return err
		}
	})
	if err != nil {
		return domain.Invoice{}, false, pfirestore.WrapError("invoices.create_if_absent", err)
	}

	result, err := toDomainInvoice(stored)
	if err != nil {
		return domain.Invoice{}, false, err
	}
	return result, created, nil
}

func fromDomainInvoice(invoice domain.Invoice) invoiceDocument {
	doc := invoiceDocument{
		OrderID:        strings.TrimSpace(invoice.OrderID),
		OrderReference: invoice.OrderReference,
		InvoiceNumber:  invoice.InvoiceNumber,
		IssueDate:      invoice.IssueDate,
		Company: companyDocument{
			Name:      invoice.Company.Name,
			Address:   invoice.Company.Address,
			City:      invoice.Company.City,
			VATNumber: invoice.Company.VATNumber,
		},
		Customer:      fromDomainCustomer(invoice.Customer),
		CustomerEmail: strings.ToLower(strings.TrimSpace(invoice.CustomerEmail)),
		Items:         make([]invoiceItemDocument, 0, len(invoice.Items)),
		SubtotalNet:   invoice.SubtotalNet.InexactFloat64(),
		SubtotalGross: invoice.SubtotalGross.InexactFloat64(),
		VATTotal:      invoice.VATTotal.InexactFloat64(),
		ShippingGross: invoice.ShippingGross.InexactFloat64(),
		TotalGross:    invoice.TotalGross.InexactFloat64(),
		PaymentMethod: invoice.PaymentMethod,
		Currency:      invoice.Currency,
		Language:      invoice.Language,
		CreatedAt:     invoice.CreatedAt,
	}
	if len(invoice.PDF) > 0 {
		doc.PDFBase64 = base64.StdEncoding.EncodeToString(invoice.PDF)
	}
	for _, item := range invoice.Items {
		doc.Items = append(doc.Items, invoiceItemDocument{
			Name:           item.Name,
			Quantity:       item.Quantity,
			LineTotalGross: item.LineTotalGross.InexactFloat64(),
		})
	}
	return doc
}

func toDomainInvoice(doc invoiceDocument) (domain.Invoice, error) {
	invoice := domain.Invoice{
		OrderID:        doc.OrderID,
		OrderReference: doc.OrderReference,
		InvoiceNumber:  doc.InvoiceNumber,
		IssueDate:      doc.IssueDate,
		Company: domain.Company{
			Name:      doc.Company.Name,
			Address:   doc.Company.Address,
			City:      doc.Company.City,
			VATNumber: doc.Company.VATNumber,
		},
		Customer:      toDomainCustomer(doc.Customer),
		CustomerEmail: doc.CustomerEmail,
		Items:         make([]domain.InvoiceLine, 0, len(doc.Items)),
		SubtotalNet:   decimal.NewFromFloat(doc.SubtotalNet),
		SubtotalGross: decimal.NewFromFloat(doc.SubtotalGross),
		VATTotal:      decimal.NewFromFloat(doc.VATTotal),
		ShippingGross: decimal.NewFromFloat(doc.ShippingGross),
		TotalGross:    decimal.NewFromFloat(doc.TotalGross),
		PaymentMethod: doc.PaymentMethod,
		Currency:      doc.Currency,
		Language:      doc.Language,
		CreatedAt:     doc.CreatedAt,
	}
	if doc.PDFBase64 != "" {
		pdf, err := base64.StdEncoding.DecodeString(doc.PDFBase64)
		if err != nil {
			return domain.Invoice{}, fmt.Errorf("firestore invoices decode pdf for %s: %w", doc.OrderID, err)
		}
		invoice.PDF = pdf
	}
	for _, item := range doc.Items {
		invoice.Items = append(invoice.Items, domain.InvoiceLine{
			Name:           item.Name,
			Quantity:       item.Quantity,
			LineTotalGross: decimal.NewFromFloat(item.LineTotalGross),
		})
	}
	return invoice, nil
}
