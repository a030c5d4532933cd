package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"

	"github.com/vighneshparab/SkyWings-sub000/internal/models"
)

//go:embed templates/invoice.html
var templateFS embed.FS

var invoiceTmpl = template.Must(template.ParseFS(templateFS, "templates/invoice.html"))

type invoiceView struct {
	models.Invoice
	Issued     string
	CourseFee  string
	Amount     string
	Waitlisted bool
}

// FormatAmount renders cents as "USD 50.00".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s %s%d.%02d", strings.ToUpper(currency), sign, cents/100, cents%100)
}

// InvoiceSubject returns the email subject for an invoice.
func InvoiceSubject(inv models.Invoice) string {
	return fmt.Sprintf("Enrollment confirmed: %s (%s)", inv.CourseName, inv.InvoiceNumber)
}

// RenderInvoice renders the invoice HTML document.
func RenderInvoice(inv models.Invoice) ([]byte, error) {
	view := invoiceView{
		Invoice:    inv,
		Issued:     inv.IssuedAt.UTC().Format("2006-01-02 15:04 MST"),
		CourseFee:  FormatAmount(inv.CourseFeeCents, inv.Currency),
		Amount:     FormatAmount(inv.AmountCents, inv.Currency),
		Waitlisted: inv.EnrollmentStatus == models.EnrollmentStatusWaitlisted,
	}
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

func invoiceText(inv models.Invoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", inv.StudentName)
	if inv.EnrollmentStatus == models.EnrollmentStatusWaitlisted {
		fmt.Fprintf(&b, "We received your payment for %s. The course is full, so you are on the waitlist.\n\n", inv.CourseName)
	} else {
		fmt.Fprintf(&b, "You are enrolled in %s.\n\n", inv.CourseName)
	}
	fmt.Fprintf(&b, "Invoice: %s\nAmount paid: %s\nTransaction: %s\n",
		inv.InvoiceNumber, FormatAmount(inv.AmountCents, inv.Currency), inv.TransactionID)
	return b.String()
}

// Sender renders invoices and hands them to a Mailer.
type Sender struct {
	mailer Mailer
	logger *zap.Logger
}

// NewSender creates an invoice email sender.
func NewSender(mailer Mailer, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{mailer: mailer, logger: logger}
}

// SendInvoiceEmail renders the invoice and delivers it to recipient. It returns the
// rendered HTML so callers can archive it.
func (s *Sender) SendInvoiceEmail(ctx context.Context, recipient string, inv models.Invoice) ([]byte, error) {
	html, err := RenderInvoice(inv)
	if err != nil {
		return nil, err
	}
	msg := Message{
		To:      recipient,
		ToName:  inv.StudentName,
		Subject: InvoiceSubject(inv),
		HTML:    string(html),
		Text:    invoiceText(inv),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return html, err
	}
	s.logger.Info("invoice email sent", zap.String("to", recipient), zap.String("invoice", inv.InvoiceNumber))
	return html, nil
}
