package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mastant/fieldsync/internal/service/lifecycle"
)

type QrHandler struct {
	service lifecycle.UseCase
}

func NewQrHandler(service lifecycle.UseCase) *QrHandler {
	return &QrHandler{service: service}
}

func (h *QrHandler) Register(router *gin.RouterGroup) {
	router.POST("/:id/qr", h.begin)
	router.GET("/:id/qr", h.status)
	router.DELETE("/:id/qr", h.cancel)
}

func (h *QrHandler) begin(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	obs, err := h.service.BeginQrObservation(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, obs)
}

func (h *QrHandler) status(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	obs, found := h.service.Observation(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no qr observation for booking"})
		return
	}
	c.JSON(http.StatusOK, obs)
}

func (h *QrHandler) cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	if !h.service.CancelQrObservation(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no qr observation for booking"})
		return
	}
	c.Status(http.StatusNoContent)
}
