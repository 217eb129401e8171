package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"stitchkart/internal/service"
)

type PaymentHandler struct {
	payments service.PaymentService
}

func NewPaymentHandler(payments service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/payment/init/:orderId", h.init)
	r.POST("/payment/validate", h.validate)
}

type initPaymentResponse struct {
	PaymentURL string `json:"paymentUrl"`
}

func (h *PaymentHandler) init(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		sendValidationError(c, err)
		return
	}

	paymentURL, err := h.payments.InitPayment(c.Request.Context(), orderID)
	if err != nil {
		sendError(c, err)
		return
	}

	sendData(c, "Payment session initiated", initPaymentResponse{PaymentURL: paymentURL})
}

// validate is the gateway's asynchronous callback target. The failure
// branches reply with an informational message rather than an error status so
// the gateway treats the callback as delivered.
func (h *PaymentHandler) validate(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		sendValidationError(c, err)
		return
	}

	result, err := h.payments.Validate(c.Request.Context(), payload)
	if err != nil {
		sendError(c, err)
		return
	}

	sendData(c, result.Message, nil)
}
