package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// StripeGateway implements Gateway with Stripe Checkout.
type StripeGateway struct {
	api    *client.API
	logger *zap.Logger
}

// NewStripeGateway creates a gateway using the secret key against the live Stripe API.
func NewStripeGateway(secretKey string, logger *zap.Logger) *StripeGateway {
	return NewStripeGatewayWithBackend(secretKey, "", logger)
}

// NewStripeGatewayWithBackend points the client at baseURL (empty for the Stripe default).
// The client does not retry; callers decide what to do with ErrGatewayUnavailable.
func NewStripeGatewayWithBackend(secretKey, baseURL string, logger *zap.Logger) *StripeGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if baseURL != "" {
		cfg.URL = stripe.String(baseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)
	api := client.New(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &StripeGateway{api: api, logger: logger}
}

// CreateCheckoutSession opens a one-off payment session for req.AmountCents.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.Warn("stripe create checkout session failed", zap.Error(err))
		return nil, classifyStripeError("create checkout session", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// VerifySession fetches the session. Only payment_status "paid" counts as paid.
func (g *StripeGateway) VerifySession(ctx context.Context, sessionID string) (*Verification, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		g.logger.Warn("stripe get checkout session failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, classifyStripeError("get checkout session", err)
	}
	return &Verification{
		Paid:          sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
	}, nil
}

// classifyStripeError maps transport failures, 5xx and 429 to ErrGatewayUnavailable
// and every other API error to ErrGatewayRejected.
func classifyStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError ||
			stripeErr.HTTPStatusCode == http.StatusTooManyRequests ||
			stripeErr.Type == stripe.ErrorTypeAPI {
			return fmt.Errorf("%s: %w: %s", op, ErrGatewayUnavailable, stripeErr.Msg)
		}
		return fmt.Errorf("%s: %w: %s", op, ErrGatewayRejected, stripeErr.Msg)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrGatewayUnavailable, err)
}
