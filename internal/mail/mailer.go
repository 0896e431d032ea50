// Package mail delivers the store's transactional emails over SMTP with
// localised subjects and HTML bodies.
package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"github.com/sofia-padel/api/internal/platform/config"
	"github.com/sofia-padel/api/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

// SendFunc dispatches a prepared message. The default implementation dials
// the configured SMTP relay.
type SendFunc func(ctx context.Context, msg *gomail.Msg) error

// Mailer renders and sends order confirmation and invoice emails.
type Mailer struct {
	fromAddress string
	fromName    string
	send        SendFunc
	templates   *template.Template
}

var _ services.Mailer = (*Mailer)(nil)

// Option customises the mailer.
type Option func(*Mailer)

// WithSendFunc replaces the SMTP dialer, primarily for tests.
func WithSendFunc(send SendFunc) Option {
	return func(m *Mailer) {
		if send != nil {
			m.send = send
		}
	}
}

// NewMailer builds a mailer from the SMTP section of the configuration.
func NewMailer(cfg config.SMTPConfig, opts ...Option) (*Mailer, error) {
	if !cfg.Enabled() {
		return nil, errors.New("mail: smtp is not configured")
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("mail: parse templates: %w", err)
	}

	m := &Mailer{
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		templates:   templates,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.send == nil {
		client, err := gomail.NewClient(cfg.Host,
			gomail.WithPort(cfg.Port),
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
			gomail.WithTLSPortPolicy(gomail.TLSMandatory),
		)
		if err != nil {
			return nil, fmt.Errorf("mail: smtp client: %w", err)
		}
		m.send = func(ctx context.Context, msg *gomail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		}
	}

	return m, nil
}

// SendOrderConfirmation renders and sends the order summary email.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, msg services.OrderConfirmationEmail) error {
	if strings.TrimSpace(msg.Recipient) == "" {
		return errors.New("mail: recipient is required")
	}

	loc := localize(msg.Language)

	shipping := msg.Order.Totals.ShippingGross.StringFixed(2) + " " + msg.Order.Currency
	if !msg.Order.Totals.ShippingGross.IsPositive() {
		shipping = loc.FreeShipping
	}

	body, err := m.renderTemplate("order_confirmation.html", orderConfirmationData{
		Labels:       loc,
		CustomerName: msg.Order.Customer.FullName(),
		OrderNumber:  msg.Order.OrderNumber,
		Items:        msg.Items,
		Currency:     msg.Order.Currency,
		Subtotal:     msg.Order.Totals.SubtotalGross.StringFixed(2),
		Shipping:     shipping,
		Total:        msg.Order.Totals.TotalGross.StringFixed(2),
		Address:      msg.Order.Customer.Address,
		City:         msg.Order.Customer.City,
		PostalCode:   msg.Order.Customer.PostalCode,
		Phone:        msg.Order.Customer.Phone,
		Delivery:     msg.Order.DeliveryOption,
		Payment:      msg.Order.PaymentMethod,
	})
	if err != nil {
		return err
	}

	out, err := m.newMessage(msg.Recipient, loc.ConfirmationSubject, body)
	if err != nil {
		return err
	}
	return m.send(ctx, out)
}

// SendInvoice renders and sends the shipment email with the invoice attached.
func (m *Mailer) SendInvoice(ctx context.Context, msg services.InvoiceEmail) error {
	if strings.TrimSpace(msg.Recipient) == "" {
		return errors.New("mail: recipient is required")
	}

	loc := localize(msg.Language)

	body, err := m.renderTemplate("invoice.html", invoiceData{
		Labels:         loc,
		CustomerName:   msg.Invoice.Customer.FullName(),
		InvoiceNumber:  msg.Invoice.InvoiceNumber,
		OrderReference: msg.Invoice.OrderReference,
		Currency:       msg.Invoice.Currency,
		Subtotal:       msg.Invoice.SubtotalGross.StringFixed(2),
		Shipping:       msg.Invoice.ShippingGross.StringFixed(2),
		Total:          msg.Invoice.TotalGross.StringFixed(2),
		Address:        msg.Invoice.Customer.Address,
		City:           msg.Invoice.Customer.City,
		Payment:        msg.Invoice.PaymentMethod,
	})
	if err != nil {
		return err
	}

	out, err := m.newMessage(msg.Recipient, loc.InvoiceSubject, body)
	if err != nil {
		return err
	}
	if len(msg.Invoice.PDF) > 0 {
		if err := out.AttachReader(msg.Invoice.InvoiceNumber+".pdf", bytes.NewReader(msg.Invoice.PDF)); err != nil {
			return fmt.Errorf("mail: attach invoice pdf: %w", err)
		}
	}
	return m.send(ctx, out)
}

func (m *Mailer) newMessage(recipient, subject, body string) (*gomail.Msg, error) {
	out := gomail.NewMsg()
	if err := out.FromFormat(m.fromName, m.fromAddress); err != nil {
		return nil, fmt.Errorf("mail: from address: %w", err)
	}
	if err := out.To(recipient); err != nil {
		return nil, fmt.Errorf("mail: recipient: %w", err)
	}
	out.Subject(subject)
	out.SetBodyString(gomail.TypeTextHTML, body)
	return out, nil
}

func (m *Mailer) renderTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("mail: render %s: %w", name, err)
	}
	return buf.String(), nil
}

type orderConfirmationData struct {
	Labels       labels
	CustomerName string
	OrderNumber  string
	Items        []services.EmailLineItem
	Currency     string
	Subtotal     string
	Shipping     string
	Total        string
	Address      string
	City         string
	PostalCode   string
	Phone        string
	Delivery     string
	Payment      string
}

type invoiceData struct {
	Labels         labels
	CustomerName   string
	InvoiceNumber  string
	OrderReference string
	Currency       string
	Subtotal       string
	Shipping       string
	Total          string
	Address        string
	City           string
	Payment        string
}
