package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	InvoiceStatusPending  = "pending"
	InvoiceStatusPaid     = "paid"
	InvoiceStatusApproved = "approved"
	InvoiceStatusRejected = "rejected"
)

// PreInvoice is a pricing record for a license purchase or renewal awaiting
// settlement. Approving it (manually or via a verified gateway payment) is
// what grants the referenced shop its credit, duration and activation.
type PreInvoice struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	ShopID    uint           `gorm:"not null;index" json:"shop_id"`
	Shop      Shop           `gorm:"foreignKey:ShopID" json:"shop,omitempty"`

	BasePrice          float64 `gorm:"not null" json:"base_price"`
	DiscountPercentage float64 `gorm:"default:0" json:"discount_percentage"`
	FinalPrice         float64 `gorm:"not null" json:"final_price"`
	CreditCount        int64   `gorm:"not null" json:"credit_count"`
	DurationMonths     int     `gorm:"not null" json:"duration_months"`

	Status          string     `gorm:"size:20;default:'pending'" json:"status"`
	ReceiptImageURL string     `gorm:"size:500" json:"receipt_image_url"`
	ApprovedAt      *time.Time `json:"approved_at"`

	// Gateway settlement. The authority is assigned when a payment session is
	// opened and uniquely identifies this invoice on callback; NULL until then
	// so the unique index tolerates invoices that never go electronic.
	GatewayAuthority *string `gorm:"size:64;uniqueIndex" json:"gateway_authority,omitempty"`
	GatewayRefID     string  `gorm:"size:64" json:"gateway_ref_id,omitempty"`
}

// TableName overrides the table name
func (PreInvoice) TableName() string {
	return "pre_invoices"
}

// Settled reports whether the invoice has reached a terminal state.
func (inv *PreInvoice) Settled() bool {
	return inv.Status == InvoiceStatusApproved || inv.Status == InvoiceStatusRejected
}
