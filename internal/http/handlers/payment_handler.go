package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideway/internal/http/middleware"
	"rideway/internal/modules/payment"
	"rideway/internal/types"
)

type PaymentHandler struct {
	payments *payment.Service
}

func NewPaymentHandler(payments *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Transactions lists the caller's ledger, newest first.
func (h *PaymentHandler) Transactions(c *gin.Context) {
	limit, offset := pagination(c)
	out, err := h.payments.Transactions(c.Request.Context(), middleware.Caller(c), limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"transactions": out})
}

// Process charges a booking now with a stored payment method.
func (h *PaymentHandler) Process(c *gin.Context) {
	var req struct {
		BookingID string `json:"booking_id"`
		MethodID  string `json:"method_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.BookingID == "" {
		writeError(c, http.StatusBadRequest, "missing booking_id")
		return
	}
	tr, err := h.payments.Process(c.Request.Context(), middleware.Caller(c),
		types.ID(req.BookingID), types.ID(req.MethodID))
	if err != nil {
		writePaymentError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, tr)
}
