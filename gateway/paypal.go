package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Internal codes for the PayPal adapter. PayPal reports order state as
// strings; they are normalized here so IsSuccess has one numeric vocabulary
// across providers.
const (
	paypalCodeCompleted = 100
	paypalCodeCaptured  = 101 // order was already captured
	paypalCodeDeclined  = -51
	paypalCodeNotFound  = -54
)

var paypalCodes = map[int]string{
	paypalCodeCompleted: "payment succeeded",
	paypalCodeCaptured:  "payment already verified",
	paypalCodeDeclined:  "payment was unsuccessful",
	paypalCodeNotFound:  "invalid authority",
}

// PayPalGateway is the Euro-denominated international provider. The PayPal
// order id doubles as the authority token: creating an order is the payment
// request and capturing it is the verification.
type PayPalGateway struct {
	client        *resty.Client
	clientID      string
	secret        string
	sandbox       bool
	tomanEuroRate float64
}

func NewPayPal(clientID, secret string, sandbox bool, tomanEuroRate float64) *PayPalGateway {
	return &PayPalGateway{
		client:        resty.New().SetTimeout(30 * time.Second),
		clientID:      clientID,
		secret:        secret,
		sandbox:       sandbox,
		tomanEuroRate: tomanEuroRate,
	}
}

// WithBaseURL points the adapter at a non-default API host. Used by tests.
func (g *PayPalGateway) WithBaseURL(apiBase string) *PayPalGateway {
	g.client.SetBaseURL(apiBase)
	return g
}

func (g *PayPalGateway) apiPath(path string) string {
	if g.client.BaseURL != "" {
		return path
	}
	if g.sandbox {
		return "https://api-m.sandbox.paypal.com" + path
	}
	return "https://api-m.paypal.com" + path
}

// cancelURL marks the callback so an abandoned checkout is distinguishable
// from a completed one.
func cancelURL(callbackURL string) string {
	sep := "?"
	if strings.Contains(callbackURL, "?") {
		sep = "&"
	}
	return callbackURL + sep + "Status=cancel"
}

// euros converts a Toman price to a two-decimal EUR value string.
func (g *PayPalGateway) euros(price float64) string {
	return fmt.Sprintf("%.2f", price/g.tomanEuroRate)
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	Description string       `json:"description,omitempty"`
	Amount      paypalAmount `json:"amount"`
}

type paypalOrderRequest struct {
	Intent             string               `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit `json:"purchase_units"`
	ApplicationContext map[string]string    `json:"application_context,omitempty"`
}

type paypalOrderResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Details []struct {
		Issue string `json:"issue"`
	} `json:"details"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (g *PayPalGateway) RequestPayment(ctx context.Context, price float64, description, callbackURL string) (*RequestResult, error) {
	var result paypalOrderResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBasicAuth(g.clientID, g.secret).
		SetHeader("Content-Type", "application/json").
		SetBody(paypalOrderRequest{
			Intent: "CAPTURE",
			PurchaseUnits: []paypalPurchaseUnit{{
				Description: description,
				Amount:      paypalAmount{CurrencyCode: "EUR", Value: g.euros(price)},
			}},
			ApplicationContext: map[string]string{
				"return_url": callbackURL,
				"cancel_url": cancelURL(callbackURL),
			},
		}).
		SetResult(&result).
		Post(g.apiPath("/v2/checkout/orders"))
	if err != nil {
		return nil, fmt.Errorf("paypal request failed: %w", err)
	}
	if resp.IsError() || result.ID == "" {
		return nil, &Error{Code: paypalCodeDeclined, Message: paypalCodes[paypalCodeDeclined]}
	}

	return &RequestResult{Authority: result.ID, Code: paypalCodeCompleted}, nil
}

func (g *PayPalGateway) VerifyPayment(ctx context.Context, authority string, price float64) (*VerifyResult, error) {
	var result paypalOrderResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBasicAuth(g.clientID, g.secret).
		SetHeader("Content-Type", "application/json").
		SetResult(&result).
		SetError(&result).
		Post(g.apiPath("/v2/checkout/orders/" + authority + "/capture"))
	if err != nil {
		return nil, fmt.Errorf("paypal verification failed: %w", err)
	}

	if resp.IsError() {
		for _, d := range result.Details {
			if d.Issue == "ORDER_ALREADY_CAPTURED" {
				return &VerifyResult{RefID: authority, Code: paypalCodeCaptured}, nil
			}
		}
		if resp.StatusCode() == 404 {
			return nil, &Error{Code: paypalCodeNotFound, Message: paypalCodes[paypalCodeNotFound]}
		}
		return nil, &Error{Code: paypalCodeDeclined, Message: paypalCodes[paypalCodeDeclined]}
	}

	refID := authority
	for _, u := range result.PurchaseUnits {
		for _, cap := range u.Payments.Captures {
			if cap.ID != "" {
				refID = cap.ID
			}
		}
	}
	if result.Status != "COMPLETED" {
		return nil, &Error{Code: paypalCodeDeclined, Message: paypalCodes[paypalCodeDeclined]}
	}

	return &VerifyResult{RefID: refID, Code: paypalCodeCompleted}, nil
}

func (g *PayPalGateway) PaymentURL(authority string) string {
	if g.sandbox {
		return "https://www.sandbox.paypal.com/checkoutnow?token=" + authority
	}
	return "https://www.paypal.com/checkoutnow?token=" + authority
}

func (g *PayPalGateway) IsSuccess(code int) bool {
	return code == paypalCodeCompleted || code == paypalCodeCaptured
}

func (g *PayPalGateway) CallbackApproved(status string) bool {
	return status != "cancel"
}
