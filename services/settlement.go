package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/shop-license/gateway"
	"github.com/yourusername/shop-license/models"
	"github.com/yourusername/shop-license/store"
	"gorm.io/gorm"
)

// SettlementService drives electronic settlement: it opens a payment session
// with the configured gateway and, on the provider's callback, verifies the
// payment and applies the same entitlement grant as a manual approval.
type SettlementService struct {
	invoices    *store.InvoiceStore
	workflow    *InvoiceService
	gateway     gateway.PaymentGateway
	callbackURL string
}

func NewSettlementService(invoices *store.InvoiceStore, workflow *InvoiceService, gw gateway.PaymentGateway, callbackURL string) *SettlementService {
	return &SettlementService{
		invoices:    invoices,
		workflow:    workflow,
		gateway:     gw,
		callbackURL: callbackURL,
	}
}

// PaymentSession is what the buyer needs to continue on the hosted page.
type PaymentSession struct {
	InvoiceID  uint   `json:"invoice_id"`
	Authority  string `json:"authority"`
	PaymentURL string `json:"payment_url"`
}

// Initiate opens a gateway payment for an unsettled invoice owned by shopID.
// The amount sent to the provider is the invoice's own final price; the
// callback URL carries nothing secret since correlation happens via the
// provider's authority.
func (s *SettlementService) Initiate(ctx context.Context, invoiceID, shopID uint) (*PaymentSession, error) {
	invoice, err := s.workflow.Get(invoiceID)
	if err != nil {
		return nil, err
	}
	// another tenant's invoice is indistinguishable from a missing one
	if invoice.ShopID != shopID {
		return nil, ErrInvoiceNotFound
	}
	if invoice.Settled() {
		return nil, ErrInvoiceConflict
	}

	description := fmt.Sprintf("License purchase, invoice %d", invoice.ID)
	result, err := s.gateway.RequestPayment(ctx, invoice.FinalPrice, description, s.callbackURL)
	if err != nil {
		return nil, err
	}

	if err := s.invoices.AssignAuthority(invoice.ID, result.Authority); err != nil {
		if errors.Is(err, store.ErrNoRowsMatched) {
			return nil, ErrInvoiceConflict
		}
		return nil, err
	}

	return &PaymentSession{
		InvoiceID:  invoice.ID,
		Authority:  result.Authority,
		PaymentURL: s.gateway.PaymentURL(result.Authority),
	}, nil
}

// HandleCallback settles the invoice that owns the authority. The amount
// verified is re-derived from that invoice, so a forged or replayed callback
// can neither settle a different invoice nor change the verified amount.
// A duplicated success callback finds the invoice already approved and
// reports success without touching anything.
func (s *SettlementService) HandleCallback(ctx context.Context, authority, status string) (*models.PreInvoice, error) {
	if authority == "" {
		return nil, validationf("authority is required")
	}

	invoice, err := s.invoices.FindByAuthority(authority)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	if !s.gateway.CallbackApproved(status) {
		// Buyer abandoned the hosted page. The invoice keeps its prior state
		// so manual settlement stays possible.
		return invoice, ErrPaymentCancelled
	}

	if invoice.Status == models.InvoiceStatusApproved {
		return invoice, nil
	}

	result, err := s.gateway.VerifyPayment(ctx, authority, invoice.FinalPrice)
	if err != nil {
		return invoice, err
	}
	if !s.gateway.IsSuccess(result.Code) {
		return invoice, &gateway.Error{Code: result.Code, Message: "payment was not verified"}
	}

	return s.workflow.Settle(invoice, result.RefID)
}
