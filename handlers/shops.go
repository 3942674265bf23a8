package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/shop-license/models"
	"github.com/yourusername/shop-license/store"
	"gorm.io/gorm"
)

// ShopHandler exposes the admin shop operations.
type ShopHandler struct {
	shops *store.ShopStore
}

func NewShopHandler(shops *store.ShopStore) *ShopHandler {
	return &ShopHandler{shops: shops}
}

type CreateShopRequest struct {
	Name           string `json:"name" binding:"required"`
	Types          string `json:"types"`
	DurationMonths int    `json:"duration_months" binding:"required,gte=1"`
	Credit         int64  `json:"credit" binding:"gte=0"`
}

// CreateShop creates a shop with a server-generated license key. This is the
// only response that carries the key: the admin hands it to the buyer.
func (h *ShopHandler) CreateShop(c *gin.Context) {
	var req CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shop := models.Shop{
		Name:                  req.Name,
		Types:                 req.Types,
		IsActive:              true,
		LicenseDurationMonths: req.DurationMonths,
		Credit:                req.Credit,
	}
	if err := h.shops.Create(&shop); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create shop"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"shop":        shop.Public(),
		"license_key": shop.LicenseKey,
	})
}

func (h *ShopHandler) GetShop(c *gin.Context) {
	shop, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, shop)
}

type UpdateShopRequest struct {
	Name           *string `json:"name"`
	Types          *string `json:"types"`
	Credit         *int64  `json:"credit" binding:"omitempty,gte=0"`
	DurationMonths *int    `json:"duration_months" binding:"omitempty,gte=1"`
	IsActive       *bool   `json:"is_active"`
}

// UpdateShop applies admin edits. Changing the duration of an activated shop
// recomputes the expiry from the original activation time.
func (h *ShopHandler) UpdateShop(c *gin.Context) {
	shop, ok := h.lookup(c)
	if !ok {
		return
	}

	var req UpdateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Types != nil {
		fields["types"] = *req.Types
	}
	if req.Credit != nil {
		fields["credit"] = *req.Credit
	}
	if req.DurationMonths != nil {
		fields["license_duration_months"] = *req.DurationMonths
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	updated, err := h.shops.UpdateSettings(shop.ID, fields)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update shop"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// RegenerateLicense issues a fresh key and resets the device binding. The
// previously bound device is rejected at its next licensed request because
// its cached key no longer exists.
func (h *ShopHandler) RegenerateLicense(c *gin.Context) {
	shop, ok := h.lookup(c)
	if !ok {
		return
	}

	updated, err := h.shops.ResetLicense(shop.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to regenerate license"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shop":        updated.Public(),
		"license_key": updated.LicenseKey,
	})
}

func (h *ShopHandler) lookup(c *gin.Context) (*models.Shop, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shop id"})
		return nil, false
	}

	shop, err := h.shops.Get(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found", "code": "not_found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch shop"})
		}
		return nil, false
	}
	return shop, true
}
