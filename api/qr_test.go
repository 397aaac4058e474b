package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mastant/fieldsync/internal/domain"
	"github.com/mastant/fieldsync/internal/repository"
	"github.com/mastant/fieldsync/internal/service/lifecycle"
	"github.com/stretchr/testify/assert"
)

func TestQrHandler_begin(t *testing.T) {
	mockService := &MockUseCase{}
	handler := NewQrHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Request = httptest.NewRequest("POST", "/bookings/7/qr", nil)

	obs := &lifecycle.QrObservation{
		BookingID: 7,
		Purpose:   domain.QrPurposeStart,
		QrPayload: "FS-7-abcdef",
		Status:    domain.QrStatusGenerated,
	}
	mockService.On("BeginQrObservation", c.Request.Context(), int64(7)).Return(obs, nil)

	handler.begin(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response lifecycle.QrObservation
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "FS-7-abcdef", response.QrPayload)
	assert.Equal(t, domain.QrPurposeStart, response.Purpose)

	mockService.AssertExpectations(t)
}

func TestQrHandler_begin_WrongStatus(t *testing.T) {
	mockService := &MockUseCase{}
	handler := NewQrHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Request = httptest.NewRequest("POST", "/bookings/7/qr", nil)

	mockService.On("BeginQrObservation", c.Request.Context(), int64(7)).Return(nil, lifecycle.ErrNoQrPurpose)

	handler.begin(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// A backend refusal keeps its original status code.
func TestQrHandler_begin_GenerationRefused(t *testing.T) {
	mockService := &MockUseCase{}
	handler := NewQrHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Request = httptest.NewRequest("POST", "/bookings/7/qr", nil)

	refused := &repository.GenerationError{BookingID: 7, StatusCode: http.StatusConflict, Message: "active code exists"}
	mockService.On("BeginQrObservation", c.Request.Context(), int64(7)).Return(nil, refused)

	handler.begin(c)

	assert.Equal(t, http.StatusConflict, w.Code)

	var response map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "active code exists")
}

func TestQrHandler_status(t *testing.T) {
	mockService := &MockUseCase{}
	handler := NewQrHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Request = httptest.NewRequest("GET", "/bookings/7/qr", nil)

	obs := &lifecycle.QrObservation{
		BookingID:   7,
		Purpose:     domain.QrPurposeStart,
		Status:      domain.QrStatusCheckedIn,
		CheckinTime: "2024-01-20T12:05:00Z",
		Done:        true,
	}
	mockService.On("Observation", int64(7)).Return(obs, true)

	handler.status(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response lifecycle.QrObservation
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, domain.QrStatusCheckedIn, response.Status)
	assert.Equal(t, "2024-01-20T12:05:00Z", response.CheckinTime)
	assert.True(t, response.Done)
}

func TestQrHandler_status_NotFound(t *testing.T) {
	mockService := &MockUseCase{}
	handler := NewQrHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Request = httptest.NewRequest("GET", "/bookings/7/qr", nil)

	mockService.On("Observation", int64(7)).Return(nil, false)

	handler.status(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQrHandler_cancel(t *testing.T) {
	mockService := &MockUseCase{}
	handler := NewQrHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Request = httptest.NewRequest("DELETE", "/bookings/7/qr", nil)

	mockService.On("CancelQrObservation", int64(7)).Return(true)

	handler.cancel(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockService.AssertExpectations(t)
}

func TestQrHandler_cancel_NotFound(t *testing.T) {
	mockService := &MockUseCase{}
	handler := NewQrHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "99"}}
	c.Request = httptest.NewRequest("DELETE", "/bookings/99/qr", nil)

	mockService.On("CancelQrObservation", int64(99)).Return(false)

	handler.cancel(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
