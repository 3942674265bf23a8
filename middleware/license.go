package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/shop-license/store"
	"github.com/yourusername/shop-license/utils"
)

// LicenseHeader carries the shop's license key on every licensed API call.
const LicenseHeader = "X-License-Key"

// ShopContextKey is where the guard stores the resolved shop.
const ShopContextKey = "shop"

// LicenseAuthMiddleware guards every licensed-shop API call. It re-checks
// the stored shop record (kill-switch, activation, expiry) on each request
// but deliberately not the device fingerprint, which is not stable across
// sessions. Failures carry distinct machine codes: unlike activation, this
// is a trust boundary with the bound client, not a public oracle.
func LicenseAuthMiddleware(shops *store.ShopStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := utils.NormalizeLicenseKey(c.GetHeader(LicenseHeader))
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "License key header is required", "code": "missing"})
			c.Abort()
			return
		}

		shop, err := shops.FindByKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown license key", "code": "invalid"})
			c.Abort()
			return
		}

		switch {
		case !shop.IsActive:
			c.JSON(http.StatusForbidden, gin.H{"error": "License has been deactivated", "code": "deactivated"})
		case !shop.IsActivated:
			c.JSON(http.StatusForbidden, gin.H{"error": "License has not been activated", "code": "not_activated"})
		case shop.Expired(time.Now()):
			c.JSON(http.StatusForbidden, gin.H{"error": "License has expired", "code": "expired"})
		default:
			c.Set(ShopContextKey, shop)
			c.Next()
			return
		}
		c.Abort()
	}
}
