package store

import (
	"time"

	"github.com/yourusername/shop-license/models"
	"gorm.io/gorm"
)

type InvoiceStore struct {
	db *gorm.DB
}

func NewInvoiceStore(db *gorm.DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

func (s *InvoiceStore) Create(invoice *models.PreInvoice) error {
	return s.db.Create(invoice).Error
}

func (s *InvoiceStore) Get(id uint) (*models.PreInvoice, error) {
	var invoice models.PreInvoice
	if err := s.db.First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *InvoiceStore) ListByShop(shopID uint) ([]models.PreInvoice, error) {
	var invoices []models.PreInvoice
	if err := s.db.Where("shop_id = ?", shopID).Order("id desc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *InvoiceStore) FindByAuthority(authority string) (*models.PreInvoice, error) {
	var invoice models.PreInvoice
	if err := s.db.Where("gateway_authority = ?", authority).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// SetReceipt records a receipt upload and moves the invoice to paid.
// Re-uploading from paid is allowed; settled invoices match no row.
func (s *InvoiceStore) SetReceipt(id uint, imageURL string) error {
	res := s.db.Model(&models.PreInvoice{}).
		Where("id = ? AND status IN ?", id, []string{models.InvoiceStatusPending, models.InvoiceStatusPaid}).
		Updates(map[string]interface{}{
			"receipt_image_url": imageURL,
			"status":            models.InvoiceStatusPaid,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsMatched
	}
	return nil
}

// AssignAuthority stores the provider's authority token for callback lookup.
// Re-initiating an unsettled invoice overwrites a previous authority, but
// only while it was never verified (no ref id yet).
func (s *InvoiceStore) AssignAuthority(id uint, authority string) error {
	res := s.db.Model(&models.PreInvoice{}).
		Where("id = ? AND status IN ? AND gateway_ref_id = ?",
			id, []string{models.InvoiceStatusPending, models.InvoiceStatusPaid}, "").
		Update("gateway_authority", authority)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsMatched
	}
	return nil
}

// MarkApproved finalizes settlement. The WHERE clause only matches unsettled
// invoices, so concurrent approvals settle exactly once; the loser observes
// zero rows and re-reads.
func (s *InvoiceStore) MarkApproved(id uint, refID string, now time.Time) error {
	fields := map[string]interface{}{
		"status":      models.InvoiceStatusApproved,
		"approved_at": now,
	}
	if refID != "" {
		fields["gateway_ref_id"] = refID
	}

	res := s.db.Model(&models.PreInvoice{}).
		Where("id = ? AND status IN ?", id, []string{models.InvoiceStatusPending, models.InvoiceStatusPaid}).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsMatched
	}
	return nil
}

// MarkRejected is terminal and only reachable from pending or paid.
func (s *InvoiceStore) MarkRejected(id uint) error {
	res := s.db.Model(&models.PreInvoice{}).
		Where("id = ? AND status IN ?", id, []string{models.InvoiceStatusPending, models.InvoiceStatusPaid}).
		Update("status", models.InvoiceStatusRejected)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsMatched
	}
	return nil
}
