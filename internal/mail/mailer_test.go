package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	gomail "github.com/wneessen/go-mail"

	domain "github.com/sofia-padel/api/internal/domain"
	"github.com/sofia-padel/api/internal/platform/config"
	"github.com/sofia-padel/api/internal/services"
)

func testSMTPConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Host:        "smtp.example.com",
		Port:        587,
		Username:    "mailer",
		Password:    "secret",
		FromAddress: "store@sofiapadel.example",
		FromName:    "Sofia Padel",
	}
}

type capturedMessage struct {
	msg *gomail.Msg
}

func newCapturingMailer(t *testing.T) (*Mailer, *capturedMessage) {
	t.Helper()
	captured := &capturedMessage{}
	mailer, err := NewMailer(testSMTPConfig(), WithSendFunc(func(_ context.Context, msg *gomail.Msg) error {
		captured.msg = msg
		return nil
	}))
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	return mailer, captured
}

func renderedMessage(t *testing.T, captured *capturedMessage) string {
	t.Helper()
	if captured.msg == nil {
		t.Fatalf("no message captured")
	}
	var sb strings.Builder
	if _, err := captured.msg.WriteTo(&sb); err != nil {
		t.Fatalf("write message: %v", err)
	}
	return sb.String()
}

func confirmationEmail(language string) services.OrderConfirmationEmail {
	return services.OrderConfirmationEmail{
		Recipient: "ana.petrova@example.com",
		Language:  language,
		Order: domain.Order{
			OrderNumber: "0000042",
			Customer: domain.Customer{
				FirstName:  "Ana",
				LastName:   "Petrova",
				Address:    "12 ul. Vitosha",
				City:       "Sofia",
				PostalCode: "1000",
				Phone:      "+359888123456",
			},
			DeliveryOption: "speedy_office",
			PaymentMethod:  "cod",
			Currency:       "BGN",
			Totals: domain.OrderTotals{
				SubtotalGross: decimal.RequireFromString("240.00"),
				ShippingGross: decimal.RequireFromString("6.00"),
				TotalGross:    decimal.RequireFromString("246.00"),
			},
		},
		Items: []services.EmailLineItem{
			{DisplayName: "Bullpadel Vertex 04", Quantity: 2, LineGross: decimal.RequireFromString("240.00")},
		},
	}
}

func invoiceEmail(language string) services.InvoiceEmail {
	return services.InvoiceEmail{
		Recipient: "ana.petrova@example.com",
		Language:  language,
		Invoice: domain.Invoice{
			OrderReference: "0000042",
			InvoiceNumber:  "0100000007",
			IssueDate:      time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC),
			Customer: domain.Customer{
				FirstName: "Ana",
				LastName:  "Petrova",
				Address:   "12 ul. Vitosha",
				City:      "Sofia",
			},
			SubtotalGross: decimal.RequireFromString("240.00"),
			ShippingGross: decimal.RequireFromString("6.00"),
			TotalGross:    decimal.RequireFromString("246.00"),
			PaymentMethod: "cod",
			Currency:      "BGN",
			PDF:           []byte("%PDF-1.4 stub"),
		},
	}
}

func TestMailerRequiresConfiguration(t *testing.T) {
	if _, err := NewMailer(config.SMTPConfig{}); err == nil {
		t.Fatalf("expected error for unconfigured smtp")
	}
}

func TestSendOrderConfirmationEnglish(t *testing.T) {
	mailer, captured := newCapturingMailer(t)

	if err := mailer.SendOrderConfirmation(context.Background(), confirmationEmail("en")); err != nil {
		t.Fatalf("send confirmation: %v", err)
	}

	rendered := renderedMessage(t, captured)
	if !strings.Contains(rendered, "Order Confirmation - Sofia Padel") {
		t.Fatalf("expected english subject in message")
	}
	if !strings.Contains(rendered, "ana.petrova@example.com") {
		t.Fatalf("expected recipient in message")
	}
	if !strings.Contains(rendered, "0000042") {
		t.Fatalf("expected order number in body")
	}
}

func TestSendOrderConfirmationBulgarian(t *testing.T) {
	mailer, captured := newCapturingMailer(t)

	if err := mailer.SendOrderConfirmation(context.Background(), confirmationEmail("bg")); err != nil {
		t.Fatalf("send confirmation: %v", err)
	}

	subjects := captured.msg.GetGenHeader(gomail.HeaderSubject)
	if len(subjects) != 1 || !strings.Contains(subjects[0], "Sofia Padel") {
		t.Fatalf("expected localized subject, got %v", subjects)
	}
}

func TestSendOrderConfirmationUnknownLanguageFallsBack(t *testing.T) {
	mailer, captured := newCapturingMailer(t)

	if err := mailer.SendOrderConfirmation(context.Background(), confirmationEmail("de")); err != nil {
		t.Fatalf("send confirmation: %v", err)
	}

	rendered := renderedMessage(t, captured)
	if !strings.Contains(rendered, "Order Confirmation - Sofia Padel") {
		t.Fatalf("expected english fallback subject")
	}
}

func TestSendOrderConfirmationRequiresRecipient(t *testing.T) {
	mailer, _ := newCapturingMailer(t)

	msg := confirmationEmail("en")
	msg.Recipient = " "
	if err := mailer.SendOrderConfirmation(context.Background(), msg); err == nil {
		t.Fatalf("expected error for missing recipient")
	}
}

func TestSendInvoiceAttachesPDF(t *testing.T) {
	mailer, captured := newCapturingMailer(t)

	if err := mailer.SendInvoice(context.Background(), invoiceEmail("en")); err != nil {
		t.Fatalf("send invoice: %v", err)
	}

	rendered := renderedMessage(t, captured)
	if !strings.Contains(rendered, "0100000007.pdf") {
		t.Fatalf("expected pdf attachment name in message")
	}
	if !strings.Contains(rendered, "Your Sofia Padel order has been shipped") {
		t.Fatalf("expected invoice subject in message")
	}
	if !strings.Contains(rendered, "0000042") {
		t.Fatalf("expected order reference in body")
	}
}

func TestSendInvoiceWithoutPDFSkipsAttachment(t *testing.T) {
	mailer, captured := newCapturingMailer(t)

	msg := invoiceEmail("en")
	msg.Invoice.PDF = nil
	if err := mailer.SendInvoice(context.Background(), msg); err != nil {
		t.Fatalf("send invoice: %v", err)
	}

	rendered := renderedMessage(t, captured)
	if strings.Contains(rendered, ".pdf") {
		t.Fatalf("expected no attachment for empty pdf")
	}
}
