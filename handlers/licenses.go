package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/shop-license/middleware"
	"github.com/yourusername/shop-license/models"
	"github.com/yourusername/shop-license/services"
)

// LicenseHandler exposes activation and validation to the licensed client,
// plus the endpoints behind the per-request license guard.
type LicenseHandler struct {
	licenses *services.LicenseService
}

func NewLicenseHandler(licenses *services.LicenseService) *LicenseHandler {
	return &LicenseHandler{licenses: licenses}
}

type LicenseRequest struct {
	LicenseKey        string `json:"license_key" binding:"required"`
	DeviceFingerprint string `json:"device_fingerprint" binding:"required"`
}

// Activate binds the license to the calling device. The response exposes
// public shop fields only; the key and fingerprint are never echoed back.
func (h *LicenseHandler) Activate(c *gin.Context) {
	var req LicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shop, err := h.licenses.Activate(req.LicenseKey, req.DeviceFingerprint)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop.Public())
}

// Validate refreshes the bound device's cached entitlement view.
func (h *LicenseHandler) Validate(c *gin.Context) {
	var req LicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shop, err := h.licenses.Validate(req.LicenseKey, req.DeviceFingerprint)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shop.Public())
}

// Profile returns the guard-resolved shop for the licensed device.
func (h *LicenseHandler) Profile(c *gin.Context) {
	shop := contextShop(c)
	if shop == nil {
		return
	}
	c.JSON(http.StatusOK, shop.Public())
}

// ConsumeGeneration spends one credit for an image generation.
func (h *LicenseHandler) ConsumeGeneration(c *gin.Context) {
	shop := contextShop(c)
	if shop == nil {
		return
	}

	updated, err := h.licenses.ConsumeGeneration(shop.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated.Public())
}

func contextShop(c *gin.Context) *models.Shop {
	value, exists := c.Get(middleware.ShopContextKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Shop not found in context"})
		return nil
	}
	shop, ok := value.(*models.Shop)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid shop type in context"})
		return nil
	}
	return shop
}
