// Package pdf renders issued invoices as A4 documents.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	domain "github.com/sofia-padel/api/internal/domain"
)

// Renderer draws invoices into PDF bytes. The zero value is not usable;
// construct with NewRenderer.
type Renderer struct {
	footer string
}

// Option customises the renderer.
type Option func(*Renderer)

// WithFooter overrides the footer line printed at the bottom of each invoice.
func WithFooter(footer string) Option {
	return func(r *Renderer) {
		r.footer = footer
	}
}

// NewRenderer constructs an invoice renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Render draws the invoice and returns the document bytes.
func (r *Renderer) Render(invoice domain.Invoice) ([]byte, error) {
	if strings.TrimSpace(invoice.InvoiceNumber) == "" {
		return nil, errors.New("pdf: invoice number is required")
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(16, 16, 16)
	doc.AddPage()

	r.drawHeader(doc, invoice)
	r.drawCustomer(doc, invoice)
	r.drawItems(doc, invoice)
	r.drawTotals(doc, invoice)
	r.drawPaymentTerms(doc, invoice)
	r.drawFooter(doc, invoice)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render invoice %s: %w", invoice.InvoiceNumber, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawHeader(doc *fpdf.Fpdf, invoice domain.Invoice) {
	top := doc.GetY()

	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(100, 6, invoice.Company.Name, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(100, 5, "VAT: "+invoice.Company.VATNumber, "", 1, "L", false, 0, "")
	doc.CellFormat(100, 5, invoice.Company.Address+", "+invoice.Company.City, "", 1, "L", false, 0, "")
	left := doc.GetY()

	doc.SetY(top)
	doc.SetX(120)
	doc.SetFont("Helvetica", "B", 22)
	doc.CellFormat(74, 10, "INVOICE", "", 2, "R", false, 0, "")
	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(74, 5, "Invoice #: "+invoice.InvoiceNumber, "", 2, "R", false, 0, "")
	doc.CellFormat(74, 5, "Issue Date: "+invoice.IssueDate.Format("02.01.2006"), "", 2, "R", false, 0, "")
	if invoice.OrderReference != "" {
		doc.CellFormat(74, 5, "Order #: "+invoice.OrderReference, "", 2, "R", false, 0, "")
	}
	right := doc.GetY()

	if left > right {
		doc.SetY(left)
	} else {
		doc.SetY(right)
	}
	doc.Ln(8)
}

func (r *Renderer) drawCustomer(doc *fpdf.Fpdf, invoice domain.Invoice) {
	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(60, 60, 60)
	doc.CellFormat(0, 5, "Billed To:", "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(0, 6, invoice.Customer.FullName(), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	address := invoice.Customer.Address + ", " + invoice.Customer.City
	if invoice.Customer.PostalCode != "" {
		address += " " + invoice.Customer.PostalCode
	}
	doc.CellFormat(0, 5, address, "", 1, "L", false, 0, "")
	if invoice.Customer.Phone != "" {
		doc.CellFormat(0, 5, "Phone: "+invoice.Customer.Phone, "", 1, "L", false, 0, "")
	}
	doc.Ln(6)
}

func (r *Renderer) drawItems(doc *fpdf.Fpdf, invoice domain.Invoice) {
	const (
		productWidth = 82
		qtyWidth     = 24
		priceWidth   = 36
		totalWidth   = 36
	)

	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(240, 253, 251)
	doc.CellFormat(productWidth, 8, "Product", "B", 0, "L", true, 0, "")
	doc.CellFormat(qtyWidth, 8, "Qty", "B", 0, "C", true, 0, "")
	doc.CellFormat(priceWidth, 8, "Unit Price", "B", 0, "R", true, 0, "")
	doc.CellFormat(totalWidth, 8, "Total", "B", 1, "R", true, 0, "")

	doc.SetFont("Helvetica", "", 10)
	doc.SetFillColor(250, 250, 250)
	for i, item := range invoice.Items {
		fill := i%2 == 1
		unit := unitPrice(item)
		doc.CellFormat(productWidth, 8, item.Name, "B", 0, "L", fill, 0, "")
		doc.CellFormat(qtyWidth, 8, fmt.Sprintf("%d", item.Quantity), "B", 0, "C", fill, 0, "")
		doc.CellFormat(priceWidth, 8, money(unit, invoice.Currency), "B", 0, "R", fill, 0, "")
		doc.CellFormat(totalWidth, 8, money(item.LineTotalGross, invoice.Currency), "B", 1, "R", fill, 0, "")
	}
	doc.Ln(4)
}

func (r *Renderer) drawTotals(doc *fpdf.Fpdf, invoice domain.Invoice) {
	shipping := money(invoice.ShippingGross, invoice.Currency)
	if !invoice.ShippingGross.IsPositive() {
		shipping = "FREE"
	}

	r.totalsRow(doc, "Subtotal:", money(invoice.SubtotalGross, invoice.Currency), false)
	r.totalsRow(doc, "Shipping & Handling:", shipping, false)
	r.totalsRow(doc, "VAT:", money(invoice.VATTotal, invoice.Currency), false)
	r.totalsRow(doc, "Total:", money(invoice.TotalGross, invoice.Currency), true)
}

func (r *Renderer) totalsRow(doc *fpdf.Fpdf, label, value string, grand bool) {
	if grand {
		doc.SetFont("Helvetica", "B", 13)
	} else {
		doc.SetFont("Helvetica", "", 10)
	}
	border := ""
	if grand {
		border = "T"
	}
	doc.SetX(110)
	doc.CellFormat(50, 7, label, border, 0, "R", false, 0, "")
	doc.CellFormat(34, 7, value, border, 1, "R", false, 0, "")
}

func (r *Renderer) drawPaymentTerms(doc *fpdf.Fpdf, invoice domain.Invoice) {
	doc.Ln(8)
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 5, "Payment Method: "+invoice.PaymentMethod, "", 1, "C", false, 0, "")
	doc.CellFormat(0, 5, "Payment due within 7 days of invoice date.", "", 1, "C", false, 0, "")
}

func (r *Renderer) drawFooter(doc *fpdf.Fpdf, invoice domain.Invoice) {
	footer := r.footer
	if footer == "" {
		footer = fmt.Sprintf("Thank you for your business! | %s | %s, %s",
			invoice.Company.Name, invoice.Company.Address, invoice.Company.City)
	}
	doc.Ln(10)
	doc.SetFont("Helvetica", "", 8)
	doc.SetTextColor(85, 85, 85)
	doc.CellFormat(0, 5, footer, "", 1, "C", false, 0, "")
	doc.SetTextColor(0, 0, 0)
}

func unitPrice(item domain.InvoiceLine) decimal.Decimal {
	if item.Quantity <= 0 {
		return item.LineTotalGross
	}
	return item.LineTotalGross.Div(decimal.NewFromInt(int64(item.Quantity))).Round(2)
}

func money(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return amount.StringFixed(2) + " " + currency
}
