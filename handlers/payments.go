package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/shop-license/gateway"
	"github.com/yourusername/shop-license/services"
)

// PaymentHandler exposes gateway payment initiation and the provider's
// callback endpoint.
type PaymentHandler struct {
	settlement *services.SettlementService
	successURL string
	failureURL string
}

func NewPaymentHandler(settlement *services.SettlementService, successURL, failureURL string) *PaymentHandler {
	return &PaymentHandler{settlement: settlement, successURL: successURL, failureURL: failureURL}
}

// InitiatePayment opens a gateway payment session for one of the calling
// shop's invoices and returns the hosted page the buyer is redirected to.
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	shop := contextShop(c)
	if shop == nil {
		return
	}

	session, err := h.settlement.Initiate(c.Request.Context(), id, shop.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Callback is invoked by the provider after the hosted flow. It is public;
// the only correlation is the authority token. On success the buyer lands on
// the success page with the reference id, otherwise on the failure page with
// a mapped message. A replayed success callback redirects to the success
// page again without changing anything.
func (h *PaymentHandler) Callback(c *gin.Context) {
	// Zarinpal redirects with Authority/Status; PayPal calls the return URL
	// with the order id as "token" and no status of its own.
	authority := c.Query("Authority")
	if authority == "" {
		authority = c.Query("token")
	}
	status := c.Query("Status")

	invoice, err := h.settlement.HandleCallback(c.Request.Context(), authority, status)
	if err != nil {
		if invoice == nil || errors.Is(err, services.ErrInvoiceNotFound) {
			// Unknown or missing authority: nothing to redirect for, do not guess.
			respondError(c, err)
			return
		}

		message := "payment failed"
		var gatewayErr *gateway.Error
		if errors.As(err, &gatewayErr) {
			message = gatewayErr.Message
		} else if errors.Is(err, services.ErrPaymentCancelled) {
			message = "payment was cancelled"
		}

		c.Redirect(http.StatusFound, fmt.Sprintf("%s?invoice_id=%d&message=%s",
			h.failureURL, invoice.ID, url.QueryEscape(message)))
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("%s?invoice_id=%d&ref_id=%s",
		h.successURL, invoice.ID, url.QueryEscape(invoice.GatewayRefID)))
}
