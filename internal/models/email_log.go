package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailTypeInvoice is the enrollment confirmation email carrying the invoice.
const EmailTypeInvoice = "enrollment_invoice"

// EmailLogStatus for delivery.
const (
	EmailLogStatusPending = "pending"
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
)

// EmailLog records sent notification emails.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	PaymentID      *uuid.UUID `json:"payment_id,omitempty"`
	EnrollmentID   *uuid.UUID `json:"enrollment_id,omitempty"`
	EmailType      string     `json:"email_type"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
