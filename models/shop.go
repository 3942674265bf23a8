package models

import (
	"time"

	"gorm.io/gorm"
)

type Shop struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Types     string         `gorm:"size:255" json:"types"` // comma-separated enabled tool types

	// License entitlement. The key and the bound fingerprint are secrets:
	// they never appear in API responses.
	LicenseKey            string     `gorm:"uniqueIndex;size:40;not null" json:"-"`
	IsActive              bool       `gorm:"default:true" json:"is_active"`
	IsActivated           bool       `gorm:"default:false" json:"is_activated"`
	ActivatedAt           *time.Time `json:"activated_at"`
	DeviceFingerprint     string     `gorm:"size:255" json:"-"`
	LicenseDurationMonths int        `gorm:"default:1" json:"license_duration_months"`
	LicenseExpiresAt      *time.Time `json:"license_expires_at"`

	Credit          int64 `gorm:"default:0" json:"credit"`
	GenerationCount int64 `gorm:"default:0" json:"generation_count"`
}

// TableName overrides the table name
func (Shop) TableName() string {
	return "shops"
}

// PublicShop is the view of a Shop returned to licensed devices.
type PublicShop struct {
	ID               uint       `json:"id"`
	Name             string     `json:"name"`
	Types            string     `json:"types"`
	IsActivated      bool       `json:"is_activated"`
	LicenseExpiresAt *time.Time `json:"license_expires_at"`
	Credit           int64      `json:"credit"`
	GenerationCount  int64      `json:"generation_count"`
}

func (s *Shop) Public() PublicShop {
	return PublicShop{
		ID:               s.ID,
		Name:             s.Name,
		Types:            s.Types,
		IsActivated:      s.IsActivated,
		LicenseExpiresAt: s.LicenseExpiresAt,
		Credit:           s.Credit,
		GenerationCount:  s.GenerationCount,
	}
}

// Expired reports whether the license window has closed. A shop that was
// never activated has no window and is not considered expired.
func (s *Shop) Expired(now time.Time) bool {
	return s.LicenseExpiresAt != nil && s.LicenseExpiresAt.Before(now)
}
