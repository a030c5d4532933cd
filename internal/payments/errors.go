package payments

import "errors"

var (
	// ErrGatewayUnavailable is a transient provider failure: network, 5xx or rate limiting.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected is a provider error that will not succeed on retry.
	ErrGatewayRejected = errors.New("payment gateway rejected the request")
	// ErrPaymentNotFound is returned when no payment matches the lookup.
	ErrPaymentNotFound = errors.New("payment not found")
)
