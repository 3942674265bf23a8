package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/shop-license/gateway"
	"github.com/yourusername/shop-license/services"
)

// respondError maps service errors to HTTP responses with stable machine
// codes. Raw database and provider payloads never reach the client.
func respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Reason, "code": "validation"})
		return
	}

	var gatewayErr *gateway.Error
	if errors.As(err, &gatewayErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": gatewayErr.Message, "code": "gateway_error"})
		return
	}

	switch {
	case errors.Is(err, services.ErrShopNotFound),
		errors.Is(err, services.ErrInvoiceNotFound),
		errors.Is(err, services.ErrLicenseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
	case errors.Is(err, services.ErrLicenseUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "license_unavailable"})
	case errors.Is(err, services.ErrLicenseDeactivated):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "deactivated"})
	case errors.Is(err, services.ErrLicenseNotActivated):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "not_activated"})
	case errors.Is(err, services.ErrLicenseExpired):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "expired"})
	case errors.Is(err, services.ErrFingerprintMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "fingerprint_mismatch"})
	case errors.Is(err, services.ErrInvoiceConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "conflict"})
	case errors.Is(err, services.ErrInsufficientCredit):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error(), "code": "no_credit"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
