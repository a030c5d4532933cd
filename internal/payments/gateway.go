package payments

import "context"

// CheckoutRequest describes a hosted checkout for a single line item.
type CheckoutRequest struct {
	AmountCents    int64
	Currency       string
	Description    string
	SuccessURL     string
	CancelURL      string
	CustomerEmail  string
	IdempotencyKey string
	Metadata       map[string]string
}

// CheckoutSession is the provider's handle for a checkout: ID is stored as the payment's
// transaction id and URL is where the client is redirected.
type CheckoutSession struct {
	ID  string
	URL string
}

// Verification is the provider's view of a checkout session.
type Verification struct {
	Paid          bool
	Status        string // open, complete, expired
	PaymentStatus string // paid, unpaid, no_payment_required
	AmountTotal   int64
	Currency      string
}

// Expired reports whether the session can no longer be paid.
func (v Verification) Expired() bool {
	return v.Status == "expired"
}

// Gateway opens and verifies hosted checkout sessions.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	VerifySession(ctx context.Context, sessionID string) (*Verification, error)
}
