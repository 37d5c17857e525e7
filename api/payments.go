package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/Domenick1991/hotelops/internal/service/payment"
	"github.com/gin-gonic/gin"
)

// SignatureHeader carries the gateway's HMAC over the raw webhook body.
const SignatureHeader = "X-Gateway-Signature"

type PaymentHandler struct {
	service payment.PaymentUseCase
}

type initiatePaymentRequest struct {
	BookingReference string            `json:"booking_reference" binding:"required"`
	AmountCents      int64             `json:"amount_cents" binding:"required,min=1"`
	Method           string            `json:"method" binding:"required"`
	ReceivedCents    int64             `json:"received_cents"`
	Metadata         map[string]string `json:"metadata"`
}

type refundRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required,min=1"`
	Reason      string `json:"reason"`
}

type webhookPayload struct {
	TransactionRef string `json:"transaction_ref"`
	Outcome        string `json:"outcome"`
}

type paymentResponse struct {
	ID          int64             `json:"id"`
	ExternalRef string            `json:"external_ref"`
	Status      string            `json:"status"`
	Method      string            `json:"method"`
	AmountCents int64             `json:"amount_cents"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   string            `json:"created_at"`
}

func NewPaymentHandler(service payment.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup, bookings *gin.RouterGroup) {
	router.POST("/", h.initiate)
	router.POST("/webhook", h.webhook)
	router.POST("/:id/refund", h.refund)
	bookings.GET("/:reference/payments", h.list)
	bookings.GET("/:reference/balance", h.balance)
}

func (h *PaymentHandler) initiate(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Initiate(c.Request.Context(), payment.InitiateInput{
		BookingReference: req.BookingReference,
		AmountCents:      req.AmountCents,
		Method:           domain.PaymentMethod(req.Method),
		ReceivedCents:    req.ReceivedCents,
		Metadata:         req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPaymentResponse(created))
}

// webhook is the reconciliation entry point. The raw body is read before
// binding so the signature is verified over exactly the bytes the gateway
// signed.
func (h *PaymentHandler) webhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.TransactionRef == "" || payload.Outcome == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction_ref and outcome are required"})
		return
	}

	settled, err := h.service.Reconcile(c.Request.Context(), payload.TransactionRef,
		domain.PaymentOutcome(payload.Outcome), c.GetHeader(SignatureHeader), raw)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPaymentResponse(settled))
}

func (h *PaymentHandler) refund(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	refund, err := h.service.Refund(c.Request.Context(), id, req.AmountCents, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPaymentResponse(refund))
}

func (h *PaymentHandler) list(c *gin.Context) {
	payments, err := h.service.ListPayments(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]paymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentResponse(&payments[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) balance(c *gin.Context) {
	state, err := h.service.PaidState(c.Request.Context(), c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func toPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		ExternalRef: p.ExternalRef,
		Status:      string(p.Status),
		Method:      string(p.Method),
		AmountCents: p.AmountCents,
		Metadata:    p.Metadata,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}
