package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	zarinpalCodeSuccess  = 100
	zarinpalCodeVerified = 101 // already verified on a previous call
)

// Static lookup of Zarinpal status codes. Unknown codes fall back to a
// generic description so raw provider diagnostics never reach callers.
var zarinpalCodes = map[int]string{
	-9:  "validation error in the payment request",
	-10: "invalid merchant id or terminal ip",
	-11: "merchant id is not active",
	-12: "too many attempts, try again later",
	-15: "merchant access has been suspended",
	-50: "paid amount differs from the requested amount",
	-51: "payment was unsuccessful",
	-53: "payment does not belong to this merchant",
	-54: "invalid authority",
	-55: "payment session not found",
	100: "payment succeeded",
	101: "payment already verified",
}

func zarinpalDescription(code int) string {
	if desc, ok := zarinpalCodes[code]; ok {
		return desc
	}
	return fmt.Sprintf("unrecognized gateway status %d", code)
}

// ZarinpalGateway is the Rial-denominated domestic provider, speaking the
// Zarinpal v4 JSON API.
type ZarinpalGateway struct {
	client     *resty.Client
	merchantID string
	sandbox    bool
}

func NewZarinpal(merchantID string, sandbox bool) *ZarinpalGateway {
	return &ZarinpalGateway{
		client:     resty.New().SetTimeout(30 * time.Second),
		merchantID: merchantID,
		sandbox:    sandbox,
	}
}

// WithBaseURL points the adapter at a non-default API host. Used by tests.
func (g *ZarinpalGateway) WithBaseURL(apiBase string) *ZarinpalGateway {
	g.client.SetBaseURL(apiBase)
	return g
}

func (g *ZarinpalGateway) apiPath(endpoint string) string {
	if g.client.BaseURL != "" {
		return "/pg/v4/payment/" + endpoint
	}
	if g.sandbox {
		return "https://sandbox.zarinpal.com/pg/v4/payment/" + endpoint
	}
	return "https://api.zarinpal.com/pg/v4/payment/" + endpoint
}

type zarinpalRequestBody struct {
	MerchantID  string `json:"merchant_id"`
	Amount      int64  `json:"amount"`
	CallbackURL string `json:"callback_url"`
	Description string `json:"description"`
}

type zarinpalVerifyBody struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

// The v4 API returns "data" as an object on success and an empty array on
// failure (with the real code inside "errors"), so both are kept raw.
type zarinpalEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type zarinpalRequestData struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Authority string `json:"authority"`
}

type zarinpalVerifyData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	RefID   int64  `json:"ref_id"`
	CardPan string `json:"card_pan"`
}

type zarinpalErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rials converts a Toman price to the integer Rial amount Zarinpal expects.
func rials(price float64) int64 {
	return int64(math.Round(price * 10))
}

func (g *ZarinpalGateway) post(ctx context.Context, path string, body interface{}) (*zarinpalEnvelope, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	if err != nil {
		// Timeouts and transport failures are an unknown outcome, not a
		// payment failure; callers retry via verification.
		return nil, fmt.Errorf("zarinpal request failed: %w", err)
	}

	var envelope zarinpalEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode zarinpal response: %w", err)
	}
	return &envelope, nil
}

// envelopeError extracts the failure code from the "errors" member.
func envelopeError(envelope *zarinpalEnvelope) *Error {
	var errData zarinpalErrorData
	if len(envelope.Errors) > 0 {
		_ = json.Unmarshal(envelope.Errors, &errData)
	}
	return &Error{Code: errData.Code, Message: zarinpalDescription(errData.Code)}
}

func (g *ZarinpalGateway) RequestPayment(ctx context.Context, price float64, description, callbackURL string) (*RequestResult, error) {
	envelope, err := g.post(ctx, g.apiPath("request.json"), zarinpalRequestBody{
		MerchantID:  g.merchantID,
		Amount:      rials(price),
		CallbackURL: callbackURL,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	var data zarinpalRequestData
	if err := json.Unmarshal(envelope.Data, &data); err != nil || data.Code != zarinpalCodeSuccess {
		if data.Code != 0 {
			return nil, &Error{Code: data.Code, Message: zarinpalDescription(data.Code)}
		}
		return nil, envelopeError(envelope)
	}

	return &RequestResult{Authority: data.Authority, Code: data.Code}, nil
}

func (g *ZarinpalGateway) VerifyPayment(ctx context.Context, authority string, price float64) (*VerifyResult, error) {
	envelope, err := g.post(ctx, g.apiPath("verify.json"), zarinpalVerifyBody{
		MerchantID: g.merchantID,
		Amount:     rials(price),
		Authority:  authority,
	})
	if err != nil {
		return nil, err
	}

	var data zarinpalVerifyData
	if err := json.Unmarshal(envelope.Data, &data); err != nil || data.Code == 0 {
		return nil, envelopeError(envelope)
	}
	if !g.IsSuccess(data.Code) {
		return nil, &Error{Code: data.Code, Message: zarinpalDescription(data.Code)}
	}

	return &VerifyResult{RefID: strconv.FormatInt(data.RefID, 10), Code: data.Code}, nil
}

func (g *ZarinpalGateway) PaymentURL(authority string) string {
	if g.sandbox {
		return "https://sandbox.zarinpal.com/pg/StartPay/" + authority
	}
	return "https://www.zarinpal.com/pg/StartPay/" + authority
}

func (g *ZarinpalGateway) IsSuccess(code int) bool {
	return code == zarinpalCodeSuccess || code == zarinpalCodeVerified
}

func (g *ZarinpalGateway) CallbackApproved(status string) bool {
	return status == "OK"
}
