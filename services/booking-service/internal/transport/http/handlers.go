package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	twdomain "github.com/jesuscorral/ticketwave/pkg/domain"
	"github.com/jesuscorral/ticketwave/services/booking-service/internal/domain"
	"github.com/jesuscorral/ticketwave/services/booking-service/internal/service"
)

type Handler struct {
	svc *service.BookingService
}

func NewHandler(svc *service.BookingService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.POST("/bookings", h.Create)
	v1.POST("/bookings/:id/confirm", h.Confirm)
	v1.POST("/bookings/:id/cancel", h.Cancel)
	v1.GET("/bookings/:id", h.Get)
	v1.GET("/bookings", h.List)
}

// POST /v1/bookings
func (h *Handler) Create(c *gin.Context) {
	var in struct {
		EventID     string `json:"eventId" binding:"required"`
		UserID      string `json:"userId" binding:"required"`
		Quantity    int    `json:"quantity" binding:"required"`
		TotalAmount int64  `json:"totalAmount"`
		Currency    string `json:"currency"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Currency == "" {
		in.Currency = "EUR"
	}
	b, err := h.svc.Create(c.Request.Context(), service.CreateBookingInput{
		EventID:     in.EventID,
		UserID:      in.UserID,
		Quantity:    in.Quantity,
		TotalAmount: in.TotalAmount,
		Currency:    in.Currency,
	})
	if err != nil {
		if b != nil {
			// Booking committed; a side-effect handler failed.
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "booking": b})
			return
		}
		status := http.StatusBadRequest
		if !errors.Is(err, domain.ErrInvalidQuantity) && !errors.Is(err, domain.ErrInvalidAmount) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, b)
}

// POST /v1/bookings/:id/confirm
func (h *Handler) Confirm(c *gin.Context) {
	b, err := h.svc.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /v1/bookings/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&in)
	b, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), in.Reason)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /v1/bookings/:id
func (h *Handler) Get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /v1/bookings?page=1&page_size=20&user_id=...&event_id=...
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	items, total, err := h.svc.List(c.Request.Context(), page-1, size, c.Query("user_id"), c.Query("event_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

func writeDomainError(c *gin.Context, err error) {
	var invalid *twdomain.InvalidStateError
	var conflict *twdomain.ConflictError
	switch {
	case errors.Is(err, domain.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &invalid), errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
