package services

import (
	"errors"
	"fmt"
)

var (
	ErrShopNotFound    = errors.New("shop not found")
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrLicenseNotFound = errors.New("license not found")

	// ErrLicenseUnavailable is the single opaque activation failure. It
	// deliberately does not say whether the key is unknown, already claimed
	// or deactivated, so activation cannot be used as a key-enumeration
	// oracle.
	ErrLicenseUnavailable = errors.New("invalid or already-used license")

	ErrLicenseDeactivated  = errors.New("license has been deactivated")
	ErrLicenseNotActivated = errors.New("license has not been activated")
	ErrLicenseExpired      = errors.New("license has expired")
	ErrFingerprintMismatch = errors.New("license is bound to a different device")

	ErrInvoiceConflict    = errors.New("invoice is not in a state that allows this transition")
	ErrPaymentCancelled   = errors.New("payment was cancelled by the buyer")
	ErrInsufficientCredit = errors.New("shop has no remaining credit")
)

// ValidationError rejects malformed input before anything is persisted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
