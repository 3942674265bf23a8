package store

import (
	"errors"
	"strings"
	"time"

	"github.com/yourusername/shop-license/models"
	"github.com/yourusername/shop-license/utils"
	"gorm.io/gorm"
)

// ErrNoRowsMatched signals that a conditional update found no row in the
// required state. Callers translate it into their own conflict semantics.
var ErrNoRowsMatched = errors.New("no rows matched the conditional update")

// keyInsertRetries bounds retries on a license-key unique collision. Hitting
// the bound means the key space is effectively exhausted or entropy is
// broken, so it is surfaced as a hard error rather than retried forever.
const keyInsertRetries = 5

type ShopStore struct {
	db *gorm.DB
}

func NewShopStore(db *gorm.DB) *ShopStore {
	return &ShopStore{db: db}
}

// Create inserts a new shop with a freshly generated license key, retrying
// generation a bounded number of times if the key collides at insert.
func (s *ShopStore) Create(shop *models.Shop) error {
	for attempt := 0; attempt < keyInsertRetries; attempt++ {
		key, err := utils.GenerateLicenseKey()
		if err != nil {
			return err
		}
		shop.LicenseKey = key

		err = s.db.Create(shop).Error
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
	}
	return errors.New("failed to generate a unique license key")
}

func (s *ShopStore) Get(id uint) (*models.Shop, error) {
	var shop models.Shop
	if err := s.db.First(&shop, id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (s *ShopStore) FindByKey(licenseKey string) (*models.Shop, error) {
	var shop models.Shop
	if err := s.db.Where("license_key = ?", licenseKey).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// ClaimActivation atomically binds a device to an unclaimed license. The
// WHERE clause re-checks every precondition inside the single UPDATE, so two
// concurrent activations of the same key cannot both win.
func (s *ShopStore) ClaimActivation(licenseKey, fingerprint string, now time.Time) (*models.Shop, error) {
	shop, err := s.FindByKey(licenseKey)
	if err != nil {
		return nil, err
	}

	expiresAt := now.AddDate(0, shop.LicenseDurationMonths, 0)
	res := s.db.Model(&models.Shop{}).
		Where("license_key = ? AND is_activated = ? AND is_active = ?", licenseKey, false, true).
		Updates(map[string]interface{}{
			"is_activated":       true,
			"activated_at":       now,
			"device_fingerprint": fingerprint,
			"license_expires_at": expiresAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNoRowsMatched
	}

	return s.FindByKey(licenseKey)
}

// GrantEntitlement applies the entitlement-granting transition: activate the
// shop and snapshot its credit, duration and expiry window. Values are set
// outright (never incremented) so replaying the grant is harmless.
func (s *ShopStore) GrantEntitlement(id uint, credit int64, durationMonths int, now time.Time) error {
	expiresAt := now.AddDate(0, durationMonths, 0)
	return s.db.Model(&models.Shop{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_activated":            true,
			"activated_at":            now,
			"license_duration_months": durationMonths,
			"license_expires_at":      expiresAt,
			"credit":                  credit,
		}).Error
}

// ConsumeCredit spends one generation credit. The credit floor is enforced
// in the UPDATE itself; a shop at zero credit matches no row.
func (s *ShopStore) ConsumeCredit(id uint) (*models.Shop, error) {
	res := s.db.Model(&models.Shop{}).
		Where("id = ? AND credit > 0", id).
		Updates(map[string]interface{}{
			"credit":           gorm.Expr("credit - 1"),
			"generation_count": gorm.Expr("generation_count + 1"),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNoRowsMatched
	}
	return s.Get(id)
}

// UpdateSettings applies admin edits. A duration change after activation
// recomputes the expiry from the original activation time, not from now.
func (s *ShopStore) UpdateSettings(id uint, fields map[string]interface{}) (*models.Shop, error) {
	shop, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if months, ok := fields["license_duration_months"].(int); ok && shop.ActivatedAt != nil {
		fields["license_expires_at"] = shop.ActivatedAt.AddDate(0, months, 0)
	}

	if err := s.db.Model(&models.Shop{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return nil, err
	}
	return s.Get(id)
}

// ResetLicense issues a fresh key and clears the activation so the shop can
// be re-activated on a different device. The old key stops matching on the
// device's next guarded request.
func (s *ShopStore) ResetLicense(id uint) (*models.Shop, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < keyInsertRetries; attempt++ {
		key, err := utils.GenerateLicenseKey()
		if err != nil {
			return nil, err
		}
		err = s.db.Model(&models.Shop{}).Where("id = ?", id).Updates(map[string]interface{}{
			"license_key":        key,
			"is_activated":       false,
			"activated_at":       nil,
			"device_fingerprint": "",
			"license_expires_at": nil,
		}).Error
		if err == nil {
			return s.Get(id)
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
	}
	return nil, errors.New("failed to generate a unique license key")
}

// Deactivate flips the admin kill-switch; shops referenced by invoices are
// never hard-deleted.
func (s *ShopStore) Deactivate(id uint) error {
	return s.db.Model(&models.Shop{}).Where("id = ?", id).Update("is_active", false).Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
