package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/rs/zerolog"

	"github.com/jesuscorral/ticketwave/services/payment-service/internal/domain"
	"github.com/jesuscorral/ticketwave/services/payment-service/internal/service"
)

type Handler struct {
	svc *service.PaymentService
	omc *omise.Client
	log zerolog.Logger
}

func NewHandler(svc *service.PaymentService, omc *omise.Client, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, omc: omc, log: log.With().Str("component", "payment-http").Logger()}
}

func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.POST("/payments/:bookingId/charge", h.Charge)
	v1.GET("/payments/:bookingId", h.Get)
	r.POST("/webhooks/omise", h.Webhook)
}

// POST /v1/payments/:bookingId/charge
func (h *Handler) Charge(c *gin.Context) {
	var in struct {
		CardToken string `json:"cardToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.ChargeCard(c.Request.Context(), c.Param("bookingId"), in.CardToken)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrAlreadySettled):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /v1/payments/:bookingId
func (h *Handler) Get(c *gin.Context) {
	p, err := h.svc.PaymentForBooking(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

type incomingEvent struct {
	ID   string          `json:"id"`
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// POST /webhooks/omise
// The payload is untrusted; the event is re-fetched from Omise before any
// state changes.
func (h *Handler) Webhook(c *gin.Context) {
	var inc incomingEvent
	if err := c.ShouldBindJSON(&inc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	ev := &omise.Event{}
	if err := h.omc.Do(ev, &operations.RetrieveEvent{EventID: inc.ID}); err != nil {
		h.log.Warn().Err(err).Str("eventId", inc.ID).Msg("webhook event verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	switch ev.Key {
	case "charge.complete":
		raw, err := json.Marshal(ev.Data)
		if err != nil {
			h.log.Error().Err(err).Msg("marshal event data failed")
			c.Status(http.StatusOK)
			return
		}
		var ch omise.Charge
		if err := json.Unmarshal(raw, &ch); err != nil {
			h.log.Error().Err(err).Msg("unmarshal charge failed")
			c.Status(http.StatusOK)
			return
		}
		if err := h.svc.SettleCharge(c.Request.Context(), &ch); err != nil {
			h.log.Error().Err(err).Str("chargeId", ch.ID).Msg("settle charge failed")
		}
	default:
		h.log.Debug().Str("key", ev.Key).Msg("webhook event ignored")
	}

	c.Status(http.StatusOK)
}
