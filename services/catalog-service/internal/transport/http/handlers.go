package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jesuscorral/ticketwave/services/catalog-service/internal/domain"
	"github.com/jesuscorral/ticketwave/services/catalog-service/internal/service"
)

type Handler struct {
	svc *service.ReservationService
}

func NewHandler(svc *service.ReservationService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.POST("/events", h.CreateEvent)
	v1.GET("/events/:id", h.GetEvent)
	v1.GET("/events/:id/availability", h.Availability)
}

// POST /v1/events
func (h *Handler) CreateEvent(c *gin.Context) {
	var in struct {
		Name     string `json:"name" binding:"required"`
		Venue    string `json:"venue"`
		StartsAt string `json:"startsAt" binding:"required"` // RFC3339
		Capacity int    `json:"capacity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	startsAt, err := time.Parse(time.RFC3339, in.StartsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startsAt must be RFC3339"})
		return
	}
	ev, err := h.svc.CreateEvent(c.Request.Context(), in.Name, in.Venue, startsAt, in.Capacity)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuantity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ev)
}

// GET /v1/events/:id
func (h *Handler) GetEvent(c *gin.Context) {
	ev, err := h.svc.Event(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ev)
}

// GET /v1/events/:id/availability
func (h *Handler) Availability(c *gin.Context) {
	n, err := h.svc.Availability(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"eventId": c.Param("id"), "available": n})
}
