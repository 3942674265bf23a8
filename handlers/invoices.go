package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/shop-license/services"
	"github.com/yourusername/shop-license/storage"
)

// maxReceiptBytes caps receipt image uploads.
const maxReceiptBytes = 10 << 20

// InvoiceHandler exposes invoice creation, the manual settlement path
// (receipt upload + admin approval) and rejection.
type InvoiceHandler struct {
	invoices *services.InvoiceService
	storage  storage.ObjectStorage
}

func NewInvoiceHandler(invoices *services.InvoiceService, objectStorage storage.ObjectStorage) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, storage: objectStorage}
}

type CreateInvoiceRequest struct {
	ShopID             uint    `json:"shop_id" binding:"required"`
	BasePrice          float64 `json:"base_price" binding:"required,gt=0"`
	DiscountPercentage float64 `json:"discount_percentage" binding:"gte=0,lte=100"`
	FinalPrice         float64 `json:"final_price" binding:"required,gt=0"`
	CreditCount        int64   `json:"credit_count" binding:"required,gt=0"`
	DurationMonths     int     `json:"duration_months" binding:"required,gte=1"`
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invoice, err := h.invoices.Create(services.CreateInvoiceParams{
		ShopID:             req.ShopID,
		BasePrice:          req.BasePrice,
		DiscountPercentage: req.DiscountPercentage,
		FinalPrice:         req.FinalPrice,
		CreditCount:        req.CreditCount,
		DurationMonths:     req.DurationMonths,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	invoice, err := h.invoices.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// UploadReceipt accepts a multipart receipt image, stores it, and moves the
// invoice to paid. Only the shop that owns the invoice may upload; another
// tenant's invoice is indistinguishable from a missing one.
func (h *InvoiceHandler) UploadReceipt(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}
	shop := contextShop(c)
	if shop == nil {
		return
	}

	invoice, err := h.invoices.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if invoice.ShopID != shop.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found", "code": "not_found"})
		return
	}

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Receipt image is required"})
		return
	}
	if fileHeader.Size > maxReceiptBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Receipt image is too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read receipt image"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read receipt image"})
		return
	}

	object, err := h.storage.Store(data, "receipts")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store receipt image"})
		return
	}

	updated, err := h.invoices.UploadReceipt(id, object.URL)
	if err != nil {
		// The upload never reached the invoice; drop the orphaned object.
		_ = h.storage.Delete(object.ID)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ApproveInvoice settles the invoice manually and grants the shop its
// entitlement. Safe to call twice.
func (h *InvoiceHandler) ApproveInvoice(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	invoice, err := h.invoices.Approve(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) RejectInvoice(c *gin.Context) {
	id, ok := invoiceID(c)
	if !ok {
		return
	}

	invoice, err := h.invoices.Reject(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func invoiceID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice id"})
		return 0, false
	}
	return uint(id), true
}
