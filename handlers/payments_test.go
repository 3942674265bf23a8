package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yourusername/shop-license/gateway"
	"github.com/yourusername/shop-license/models"
	"github.com/yourusername/shop-license/services"
	"github.com/yourusername/shop-license/store"
)

type MockGateway struct {
	RequestPaymentFunc func(ctx context.Context, price float64, description, callbackURL string) (*gateway.RequestResult, error)
	VerifyPaymentFunc  func(ctx context.Context, authority string, price float64) (*gateway.VerifyResult, error)
}

func (m *MockGateway) RequestPayment(ctx context.Context, price float64, description, callbackURL string) (*gateway.RequestResult, error) {
	return m.RequestPaymentFunc(ctx, price, description, callbackURL)
}

func (m *MockGateway) VerifyPayment(ctx context.Context, authority string, price float64) (*gateway.VerifyResult, error) {
	return m.VerifyPaymentFunc(ctx, authority, price)
}

func (m *MockGateway) PaymentURL(authority string) string {
	return "https://gateway.test/pay/" + authority
}

func (m *MockGateway) IsSuccess(code int) bool {
	return code == 100 || code == 101
}

func (m *MockGateway) CallbackApproved(status string) bool {
	return status == "OK"
}

func setupPaymentRouter(t *testing.T, mock *MockGateway) (*gin.Engine, *store.ShopStore, *services.InvoiceService, *models.Shop) {
	t.Helper()
	db := setupTestDB(t)
	shops := store.NewShopStore(db)
	invoices := store.NewInvoiceStore(db)
	invoiceService := services.NewInvoiceService(shops, invoices)
	settlement := services.NewSettlementService(invoices, invoiceService, mock, "http://api.test/payments/callback")
	handler := NewPaymentHandler(settlement, "/payment/success", "/payment/failure")
	shop := createTestShop(t, shops)

	router := gin.New()
	router.POST("/invoices/:id/pay", asShop(shop), handler.InitiatePayment)
	router.GET("/payments/callback", handler.Callback)
	return router, shops, invoiceService, shop
}

func TestInitiatePaymentEndpoint(t *testing.T) {
	mock := &MockGateway{
		RequestPaymentFunc: func(ctx context.Context, price float64, description, callbackURL string) (*gateway.RequestResult, error) {
			return &gateway.RequestResult{Authority: "A1", Code: 100}, nil
		},
	}
	router, shops, invoiceService, shop := setupPaymentRouter(t, mock)

	invoice, err := invoiceService.Create(services.CreateInvoiceParams{
		ShopID: shop.ID, BasePrice: 900, FinalPrice: 900, CreditCount: 700, DurationMonths: 12,
	})
	assert.NoError(t, err)

	t.Run("Returns The Hosted Payment URL", func(t *testing.T) {
		w := postJSON(t, router, fmt.Sprintf("/invoices/%d/pay", invoice.ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "https://gateway.test/pay/A1")
		assert.Contains(t, w.Body.String(), `"authority":"A1"`)
	})

	t.Run("Mapped Gateway Failure", func(t *testing.T) {
		mock.RequestPaymentFunc = func(ctx context.Context, price float64, description, callbackURL string) (*gateway.RequestResult, error) {
			return nil, &gateway.Error{Code: -11, Message: "merchant id is not active"}
		}

		w := postJSON(t, router, fmt.Sprintf("/invoices/%d/pay", invoice.ID), nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "merchant id is not active")
	})

	t.Run("Another Shops Invoice Reads As Missing", func(t *testing.T) {
		other := createTestShop(t, shops)
		foreign, err := invoiceService.Create(services.CreateInvoiceParams{
			ShopID: other.ID, BasePrice: 200, FinalPrice: 200, CreditCount: 20, DurationMonths: 1,
		})
		assert.NoError(t, err)

		w := postJSON(t, router, fmt.Sprintf("/invoices/%d/pay", foreign.ID), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		stored, err := invoiceService.Get(foreign.ID)
		assert.NoError(t, err)
		assert.Nil(t, stored.GatewayAuthority)
	})
}

func TestCallbackEndpoint(t *testing.T) {
	mock := &MockGateway{
		RequestPaymentFunc: func(ctx context.Context, price float64, description, callbackURL string) (*gateway.RequestResult, error) {
			return &gateway.RequestResult{Authority: "A1", Code: 100}, nil
		},
		VerifyPaymentFunc: func(ctx context.Context, authority string, price float64) (*gateway.VerifyResult, error) {
			return &gateway.VerifyResult{RefID: "REF-42", Code: 100}, nil
		},
	}
	router, _, invoiceService, shop := setupPaymentRouter(t, mock)

	invoice, err := invoiceService.Create(services.CreateInvoiceParams{
		ShopID: shop.ID, BasePrice: 900, FinalPrice: 900, CreditCount: 700, DurationMonths: 12,
	})
	assert.NoError(t, err)

	w := postJSON(t, router, fmt.Sprintf("/invoices/%d/pay", invoice.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	get := func(query string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/payments/callback?"+query, nil)
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Success Redirects With The Reference Id", func(t *testing.T) {
		w := get("Authority=A1&Status=OK")
		assert.Equal(t, http.StatusFound, w.Code)
		location := w.Header().Get("Location")
		assert.Contains(t, location, "/payment/success")
		assert.Contains(t, location, fmt.Sprintf("invoice_id=%d", invoice.ID))
		assert.Contains(t, location, "ref_id=REF-42")

		settled, err := invoiceService.Get(invoice.ID)
		assert.NoError(t, err)
		assert.Equal(t, "REF-42", settled.GatewayRefID)
	})

	t.Run("Replay Redirects To Success Again", func(t *testing.T) {
		w := get("Authority=A1&Status=OK")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "/payment/success")
	})

	t.Run("Order Token Is Accepted As The Authority", func(t *testing.T) {
		w := get("token=A1&Status=OK")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "/payment/success")
	})

	t.Run("Cancellation Redirects To Failure", func(t *testing.T) {
		mock.RequestPaymentFunc = func(ctx context.Context, price float64, description, callbackURL string) (*gateway.RequestResult, error) {
			return &gateway.RequestResult{Authority: "A2", Code: 100}, nil
		}
		other, err := invoiceService.Create(services.CreateInvoiceParams{
			ShopID: shop.ID, BasePrice: 100, FinalPrice: 100, CreditCount: 10, DurationMonths: 1,
		})
		assert.NoError(t, err)
		w := postJSON(t, router, fmt.Sprintf("/invoices/%d/pay", other.ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = get("Authority=A2&Status=NOK")
		assert.Equal(t, http.StatusFound, w.Code)
		location := w.Header().Get("Location")
		assert.Contains(t, location, "/payment/failure")
		assert.Contains(t, location, "message=")

		stored, err := invoiceService.Get(other.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.InvoiceStatusPending, stored.Status)
	})

	t.Run("Unknown Authority Is Not Redirected", func(t *testing.T) {
		w := get("Authority=A-UNKNOWN&Status=OK")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
