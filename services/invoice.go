package services

import (
	"errors"
	"math"
	"time"

	"github.com/yourusername/shop-license/models"
	"github.com/yourusername/shop-license/store"
	"gorm.io/gorm"
)

// priceTolerance absorbs client-side rounding when checking the claimed
// final price against the computed discount.
const priceTolerance = 0.01

// InvoiceService owns the pre-invoice state machine:
// pending -> paid -> approved, with rejected terminal from pending or paid.
type InvoiceService struct {
	shops    *store.ShopStore
	invoices *store.InvoiceStore
}

func NewInvoiceService(shops *store.ShopStore, invoices *store.InvoiceStore) *InvoiceService {
	return &InvoiceService{shops: shops, invoices: invoices}
}

type CreateInvoiceParams struct {
	ShopID             uint
	BasePrice          float64
	DiscountPercentage float64
	FinalPrice         float64
	CreditCount        int64
	DurationMonths     int
}

// Create validates pricing and opens a pending invoice for an existing shop.
// The final price is validated once here and never recomputed afterwards.
func (s *InvoiceService) Create(params CreateInvoiceParams) (*models.PreInvoice, error) {
	if params.BasePrice <= 0 {
		return nil, validationf("base price must be positive")
	}
	if params.DiscountPercentage < 0 || params.DiscountPercentage > 100 {
		return nil, validationf("discount percentage must be between 0 and 100")
	}
	if params.CreditCount < 0 {
		return nil, validationf("credit count must not be negative")
	}
	if params.DurationMonths < 1 {
		return nil, validationf("duration must be at least one month")
	}

	expected := params.BasePrice * (1 - params.DiscountPercentage/100)
	if math.Abs(expected-params.FinalPrice) > priceTolerance {
		return nil, validationf("final price %.2f does not match base price with %.1f%% discount",
			params.FinalPrice, params.DiscountPercentage)
	}

	if _, err := s.shops.Get(params.ShopID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}

	invoice := &models.PreInvoice{
		ShopID:             params.ShopID,
		BasePrice:          params.BasePrice,
		DiscountPercentage: params.DiscountPercentage,
		FinalPrice:         params.FinalPrice,
		CreditCount:        params.CreditCount,
		DurationMonths:     params.DurationMonths,
		Status:             models.InvoiceStatusPending,
	}
	if err := s.invoices.Create(invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *InvoiceService) Get(id uint) (*models.PreInvoice, error) {
	invoice, err := s.invoices.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return invoice, nil
}

// UploadReceipt records a manual payment receipt and moves the invoice to
// paid. Re-uploading a replacement receipt from paid is allowed.
func (s *InvoiceService) UploadReceipt(id uint, imageURL string) (*models.PreInvoice, error) {
	if imageURL == "" {
		return nil, validationf("receipt image url is required")
	}
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	if err := s.invoices.SetReceipt(id, imageURL); err != nil {
		if errors.Is(err, store.ErrNoRowsMatched) {
			return nil, ErrInvoiceConflict
		}
		return nil, err
	}
	return s.Get(id)
}

// Approve settles the invoice and grants the shop its entitlement. Approving
// an already-approved invoice is a no-op returning the existing result, so
// double-clicked approvals and replayed gateway callbacks are safe.
func (s *InvoiceService) Approve(id uint) (*models.PreInvoice, error) {
	invoice, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.Settle(invoice, "")
}

// Settle is the entitlement-granting transition shared by manual approval
// and verified gateway payments; refID is set only on the electronic path.
//
// The shop write comes first and sets final values outright, so if the
// invoice write below is lost the next attempt re-applies the same state and
// still cannot double-grant credit.
func (s *InvoiceService) Settle(invoice *models.PreInvoice, refID string) (*models.PreInvoice, error) {
	if invoice.Status == models.InvoiceStatusApproved {
		return invoice, nil
	}
	if invoice.Status == models.InvoiceStatusRejected {
		return nil, ErrInvoiceConflict
	}

	if _, err := s.shops.Get(invoice.ShopID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}

	now := time.Now()
	if err := s.shops.GrantEntitlement(invoice.ShopID, invoice.CreditCount, invoice.DurationMonths, now); err != nil {
		return nil, err
	}

	if err := s.invoices.MarkApproved(invoice.ID, refID, now); err != nil {
		if !errors.Is(err, store.ErrNoRowsMatched) {
			return nil, err
		}
		// Lost the settlement race or the invoice moved under us. Approved
		// by the winner is still success; anything else is a conflict.
		current, getErr := s.Get(invoice.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status != models.InvoiceStatusApproved {
			return nil, ErrInvoiceConflict
		}
		return current, nil
	}

	return s.Get(invoice.ID)
}

// Reject terminally closes an unsettled invoice.
func (s *InvoiceService) Reject(id uint) (*models.PreInvoice, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	if err := s.invoices.MarkRejected(id); err != nil {
		if errors.Is(err, store.ErrNoRowsMatched) {
			return nil, ErrInvoiceConflict
		}
		return nil, err
	}
	return s.Get(id)
}
