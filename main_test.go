package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/shop-license/config"
	"github.com/yourusername/shop-license/gateway"
)

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "shop-license-api",
		})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestBuildGateway(t *testing.T) {
	t.Run("Zarinpal", func(t *testing.T) {
		gw, err := buildGateway(&config.Config{PaymentProvider: "zarinpal", ZarinpalMerchant: "m-1"})
		assert.NoError(t, err)
		assert.IsType(t, &gateway.ZarinpalGateway{}, gw)
	})

	t.Run("PayPal", func(t *testing.T) {
		gw, err := buildGateway(&config.Config{PaymentProvider: "paypal", PayPalClientID: "c", PayPalSecret: "s", TomanEuroRate: 65000})
		assert.NoError(t, err)
		assert.IsType(t, &gateway.PayPalGateway{}, gw)
	})

	t.Run("Unknown Provider", func(t *testing.T) {
		gw, err := buildGateway(&config.Config{PaymentProvider: "stripe"})
		assert.Error(t, err)
		assert.Nil(t, gw)
	})
}
