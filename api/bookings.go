package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mastant/fieldsync/internal/service/lifecycle"
)

type BookingHandler struct {
	service lifecycle.UseCase
}

func NewBookingHandler(service lifecycle.UseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.POST("/refresh", h.refresh)
	router.POST("/:id/accept", h.accept)
	router.POST("/:id/decline", h.decline)
	router.POST("/:id/complete", h.complete)
}

func (h *BookingHandler) list(c *gin.Context) {
	views, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": views})
}

func (h *BookingHandler) refresh(c *gin.Context) {
	views, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": views})
}

func (h *BookingHandler) accept(c *gin.Context) {
	h.decide(c, h.service.Accept)
}

func (h *BookingHandler) decline(c *gin.Context) {
	h.decide(c, h.service.Decline)
}

func (h *BookingHandler) complete(c *gin.Context) {
	h.decide(c, h.service.Complete)
}

func (h *BookingHandler) decide(c *gin.Context, op func(ctx context.Context, bookingID int64) (*lifecycle.BookingView, error)) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	view, err := op(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": view})
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return 0, false
	}
	return id, true
}
