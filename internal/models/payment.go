package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentProviderStripe is the hosted checkout provider.
const PaymentProviderStripe = "stripe"

// PaymentStatus for payments.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is one checkout attempt for an enrollment.
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	EnrollmentID  uuid.UUID       `json:"enrollment_id"`
	CourseID      uuid.UUID       `json:"course_id"`
	Provider      string          `json:"provider"`
	AmountCents   int64           `json:"amount_cents"`
	Currency      string          `json:"currency"`
	TransactionID string          `json:"transaction_id"`
	Status        PaymentStatus   `json:"status"`
	Invoice       json.RawMessage `json:"invoice,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsCompleted reports whether the payment reached its terminal success state.
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}
