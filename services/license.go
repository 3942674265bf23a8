package services

import (
	"errors"
	"time"

	"github.com/yourusername/shop-license/models"
	"github.com/yourusername/shop-license/store"
	"github.com/yourusername/shop-license/utils"
	"gorm.io/gorm"
)

// LicenseService activates and validates shop licenses against device
// fingerprints, enforcing single-device binding and expiration.
type LicenseService struct {
	shops *store.ShopStore
}

func NewLicenseService(shops *store.ShopStore) *LicenseService {
	return &LicenseService{shops: shops}
}

// Activate claims an unused license for a device. The claim is a single
// conditional update, so concurrent activations of the same key resolve to
// exactly one winner. All failure modes collapse into ErrLicenseUnavailable.
func (s *LicenseService) Activate(licenseKey, fingerprint string) (*models.Shop, error) {
	licenseKey = utils.NormalizeLicenseKey(licenseKey)
	if licenseKey == "" {
		return nil, validationf("license key is required")
	}
	if fingerprint == "" {
		return nil, validationf("device fingerprint is required")
	}

	shop, err := s.shops.ClaimActivation(licenseKey, fingerprint, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, store.ErrNoRowsMatched) {
			return nil, ErrLicenseUnavailable
		}
		return nil, err
	}
	return shop, nil
}

// Validate re-checks an activated license for the device that claims it.
// Unlike Activate it reports the specific failure: validation is called by
// the bound client, which is a trusted context that needs to know why.
func (s *LicenseService) Validate(licenseKey, fingerprint string) (*models.Shop, error) {
	licenseKey = utils.NormalizeLicenseKey(licenseKey)
	if licenseKey == "" {
		return nil, validationf("license key is required")
	}

	shop, err := s.shops.FindByKey(licenseKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, err
	}

	switch {
	case !shop.IsActive:
		return nil, ErrLicenseDeactivated
	case !shop.IsActivated:
		return nil, ErrLicenseNotActivated
	case shop.DeviceFingerprint != fingerprint:
		return nil, ErrFingerprintMismatch
	case shop.Expired(time.Now()):
		return nil, ErrLicenseExpired
	}

	return shop, nil
}

// ConsumeGeneration spends one credit for an image generation and bumps the
// monotonic generation counter.
func (s *LicenseService) ConsumeGeneration(shopID uint) (*models.Shop, error) {
	shop, err := s.shops.ConsumeCredit(shopID)
	if err != nil {
		if errors.Is(err, store.ErrNoRowsMatched) {
			return nil, ErrInsufficientCredit
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return shop, nil
}
