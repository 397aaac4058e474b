package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mastant/fieldsync/internal/domain"
	"github.com/mastant/fieldsync/internal/repository"
	"github.com/mastant/fieldsync/internal/service/lifecycle"
)

// writeError maps service errors onto bridge responses. Transition refusals
// are conflicts with enough detail for the UI to explain itself; backend
// refusals keep their original status where one exists.
func writeError(c *gin.Context, err error) {
	var invalid *domain.InvalidTransitionError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusConflict, gin.H{
			"error":        invalid.Error(),
			"from":         string(invalid.From),
			"event":        string(invalid.Event),
			"precondition": invalid.Precondition,
		})
		return
	}

	if errors.Is(err, lifecycle.ErrNoQrPurpose) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	var generation *repository.GenerationError
	if errors.As(err, &generation) {
		status := generation.StatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": generation.Error()})
		return
	}

	var backend *repository.APIError
	if errors.As(err, &backend) {
		if backend.StatusCode == http.StatusNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": backend.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": backend.Error()})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
