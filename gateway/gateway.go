package gateway

import (
	"context"
	"fmt"
)

// RequestResult is the outcome of opening a payment session with a provider.
type RequestResult struct {
	Authority string
	Code      int
}

// VerifyResult is the outcome of verifying a payment after callback.
type VerifyResult struct {
	RefID string
	Code  int
}

// PaymentGateway wraps one external payment provider. Implementations are
// selected once at startup from configuration and injected where needed.
//
// Price arguments are in Tomans; each adapter converts to its provider's
// minor unit internally. VerifyPayment must always be called with the amount
// stored on the invoice that owns the authority, never a client-supplied one.
type PaymentGateway interface {
	RequestPayment(ctx context.Context, price float64, description, callbackURL string) (*RequestResult, error)
	VerifyPayment(ctx context.Context, authority string, price float64) (*VerifyResult, error)

	// PaymentURL computes the hosted redirect URL for an authority. Pure, no I/O.
	PaymentURL(authority string) string

	// IsSuccess treats both first-success and already-verified provider codes
	// as success, so a duplicated callback delivery verifies cleanly.
	IsSuccess(code int) bool

	// CallbackApproved reports whether the provider's callback status means
	// the buyer completed the hosted flow (as opposed to cancelling it).
	CallbackApproved(status string) bool
}

// Error is a provider failure with a mapped, provider-agnostic description.
// Raw provider payloads never leave the adapter.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("payment gateway error %d: %s", e.Code, e.Message)
}
