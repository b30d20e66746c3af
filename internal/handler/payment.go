package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lms_backend/internal/middleware"
	"lms_backend/internal/service"
	"lms_backend/pkg/logger"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	log            logger.Logger
}

func NewPaymentHandler(paymentService service.PaymentService, log logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		log:            log,
	}
}

type CheckoutRequest struct {
	CourseID  uuid.UUID `json:"course_id" binding:"required"`
	CardToken string    `json:"card_token" binding:"required"`
}

// Checkout charges the authenticated student and enrolls them on success.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	caller, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	tx, err := h.paymentService.Pay(c.Request.Context(), caller.ID, req.CourseID, req.CardToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	txs, err := h.paymentService.ListTransactions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}
