package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/shop-license/services"
	"github.com/yourusername/shop-license/store"
)

var licenseKeyFormat = regexp.MustCompile(`^([A-HJ-NP-Z2-9]{5}-){4}[A-HJ-NP-Z2-9]{5}$`)

func putJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	assert.NoError(t, err)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func setupShopRouter(t *testing.T) (*gin.Engine, *store.ShopStore) {
	t.Helper()
	db := setupTestDB(t)
	shops := store.NewShopStore(db)
	handler := NewShopHandler(shops)

	router := gin.New()
	router.POST("/shops", handler.CreateShop)
	router.GET("/shops/:id", handler.GetShop)
	router.PUT("/shops/:id", handler.UpdateShop)
	router.POST("/shops/:id/regenerate", handler.RegenerateLicense)
	return router, shops
}

func TestCreateShopEndpoint(t *testing.T) {
	router, _ := setupShopRouter(t)

	t.Run("Returns The Key Exactly Once", func(t *testing.T) {
		w := postJSON(t, router, "/shops", CreateShopRequest{
			Name:           "Corner Studio",
			Types:          "portrait",
			DurationMonths: 3,
			Credit:         50,
		})
		assert.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Shop       map[string]interface{} `json:"shop"`
			LicenseKey string                 `json:"license_key"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Regexp(t, licenseKeyFormat, resp.LicenseKey)
		assert.Equal(t, "Corner Studio", resp.Shop["name"])
		assert.NotContains(t, resp.Shop, "license_key")

		// the key is gone from every later read
		id := uint(resp.Shop["id"].(float64))
		w = httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/shops/%d", id), nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), resp.LicenseKey)
	})

	t.Run("Missing Name", func(t *testing.T) {
		w := postJSON(t, router, "/shops", gin.H{"duration_months": 3})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Zero Duration", func(t *testing.T) {
		w := postJSON(t, router, "/shops", gin.H{"name": "No Term", "duration_months": 0})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateShopEndpoint(t *testing.T) {
	router, shops := setupShopRouter(t)
	licenseService := services.NewLicenseService(shops)

	shop := createTestShop(t, shops)
	activated, err := licenseService.Activate(shop.LicenseKey, "FP-1")
	assert.NoError(t, err)

	t.Run("Duration Change Recomputes Expiry From Activation", func(t *testing.T) {
		w := putJSON(t, router, fmt.Sprintf("/shops/%d", shop.ID), gin.H{"duration_months": 6})
		assert.Equal(t, http.StatusOK, w.Code)

		updated, err := shops.Get(shop.ID)
		assert.NoError(t, err)
		assert.Equal(t, 6, updated.LicenseDurationMonths)
		wantExpiry := activated.ActivatedAt.AddDate(0, 6, 0)
		assert.WithinDuration(t, wantExpiry, *updated.LicenseExpiresAt, time.Second)
	})

	t.Run("Deactivation", func(t *testing.T) {
		w := putJSON(t, router, fmt.Sprintf("/shops/%d", shop.ID), gin.H{"is_active": false})
		assert.Equal(t, http.StatusOK, w.Code)

		updated, err := shops.Get(shop.ID)
		assert.NoError(t, err)
		assert.False(t, updated.IsActive)
	})

	t.Run("Unknown Shop", func(t *testing.T) {
		w := putJSON(t, router, "/shops/999", gin.H{"name": "Ghost"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRegenerateLicenseEndpoint(t *testing.T) {
	router, shops := setupShopRouter(t)
	licenseService := services.NewLicenseService(shops)

	shop := createTestShop(t, shops)
	oldKey := shop.LicenseKey
	_, err := licenseService.Activate(oldKey, "FP-1")
	assert.NoError(t, err)

	w := postJSON(t, router, fmt.Sprintf("/shops/%d/regenerate", shop.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		LicenseKey string `json:"license_key"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Regexp(t, licenseKeyFormat, resp.LicenseKey)
	assert.NotEqual(t, oldKey, resp.LicenseKey)

	// the binding is cleared: the old key is dead and the new one is claimable
	updated, err := shops.Get(shop.ID)
	assert.NoError(t, err)
	assert.False(t, updated.IsActivated)
	assert.Empty(t, updated.DeviceFingerprint)

	_, err = licenseService.Validate(oldKey, "FP-1")
	assert.ErrorIs(t, err, services.ErrLicenseNotFound)

	_, err = licenseService.Activate(resp.LicenseKey, "FP-2")
	assert.NoError(t, err)
}
