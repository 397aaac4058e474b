package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mastant/fieldsync/internal/domain"
	"github.com/stretchr/testify/assert"
)

const bookingJSON = `{
	"id": 12,
	"status": "confirmed",
	"booking_date": "2024-01-20T09:00:00Z",
	"preferred_start_time": "2024-01-20T09:30:00Z",
	"work_location": "Sector 18, Noida",
	"manufacturer": {"name": "Acme Fabrication"},
	"booking_workers": [
		{"status": "assigned", "worker_price": 1500, "assigned_hours": 8, "category": {"name": "Welding"}}
	]
}`

func TestBookingRepository_List_ArrayShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/worker/bookings", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))
		assert.Equal(t, "assigned", r.URL.Query().Get("status"))

		w.Write([]byte(`{"success": true, "bookings": [` + bookingJSON + `], "total_bookings": 1, "current_page": 1}`))
	}))
	defer server.Close()

	repo := NewBookingRepository(newTestClient(server.URL))
	page, err := repo.ListWorkerBookings(context.Background(), ListParams{Page: 1, PerPage: 10, Status: domain.WorkerStatusAssigned})

	assert.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Len(t, page.Bookings, 1)

	b := page.Bookings[0]
	assert.Equal(t, int64(12), b.ID)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	assert.Equal(t, domain.WorkerStatusAssigned, b.Worker.Status)
	assert.Equal(t, "Welding", b.Worker.Category)
	assert.Equal(t, "Acme Fabrication", b.Manufacturer)
	assert.Equal(t, 1500.0, b.Worker.WorkerPrice)
}

func TestBookingRepository_List_PaginatorShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "bookings": {"data": [` + bookingJSON + `], "total": 37, "current_page": 2}}`))
	}))
	defer server.Close()

	repo := NewBookingRepository(newTestClient(server.URL))
	page, err := repo.ListWorkerBookings(context.Background(), ListParams{Page: 2})

	assert.NoError(t, err)
	assert.Equal(t, 37, page.Total)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, page.Bookings, 1)
}

func TestBookingRepository_List_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "token expired"}`))
	}))
	defer server.Close()

	repo := NewBookingRepository(newTestClient(server.URL))
	page, err := repo.ListWorkerBookings(context.Background(), ListParams{})

	assert.Error(t, err)
	assert.Nil(t, page)
	assert.Contains(t, err.Error(), "token expired")
}

func TestBookingRepository_GetWorkerBooking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/worker/bookings/12", r.URL.Path)
		w.Write([]byte(`{"success": true, "booking": ` + bookingJSON + `}`))
	}))
	defer server.Close()

	repo := NewBookingRepository(newTestClient(server.URL))
	b, err := repo.GetWorkerBooking(context.Background(), 12)

	assert.NoError(t, err)
	assert.Equal(t, int64(12), b.ID)
	assert.Equal(t, domain.WorkerStatusAssigned, b.Worker.Status)
}

func TestBookingRepository_GetWorkerBooking_BareShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bookingJSON))
	}))
	defer server.Close()

	repo := NewBookingRepository(newTestClient(server.URL))
	b, err := repo.GetWorkerBooking(context.Background(), 12)

	assert.NoError(t, err)
	assert.Equal(t, int64(12), b.ID)
}

func TestBookingRepository_UpdateWorkerStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/worker/bookings/12/status", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "confirmed", body["status"])

		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	repo := NewBookingRepository(newTestClient(server.URL))
	err := repo.UpdateWorkerStatus(context.Background(), 12, domain.WorkerStatusConfirmed)
	assert.NoError(t, err)
}

func TestBookingRepository_UpdateWorkerStatus_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "message": "booking is cancelled"}`))
	}))
	defer server.Close()

	repo := NewBookingRepository(newTestClient(server.URL))
	err := repo.UpdateWorkerStatus(context.Background(), 12, domain.WorkerStatusConfirmed)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "booking is cancelled")
}
