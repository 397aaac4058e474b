package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/mastant/fieldsync/internal/domain"
)

type ListParams struct {
	Page    int
	PerPage int
	Status  domain.WorkerStatus // empty means no filter
}

type BookingPage struct {
	Bookings    []domain.Booking
	Total       int
	CurrentPage int
}

type BookingRepository interface {
	ListWorkerBookings(ctx context.Context, params ListParams) (*BookingPage, error)
	GetWorkerBooking(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateWorkerStatus(ctx context.Context, id int64, status domain.WorkerStatus) error
}

type RESTBookingRepository struct {
	client *Client
}

func NewBookingRepository(client *Client) BookingRepository {
	return &RESTBookingRepository{client: client}
}

type bookingWire struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	BookingDate        string `json:"booking_date"`
	PreferredStartTime string `json:"preferred_start_time"`
	WorkLocation       string `json:"work_location"`
	Manufacturer       struct {
		Name string `json:"name"`
	} `json:"manufacturer"`
	BookingWorkers []struct {
		Status        string  `json:"status"`
		WorkerPrice   float64 `json:"worker_price"`
		AssignedHours float64 `json:"assigned_hours"`
		Category      struct {
			Name string `json:"name"`
		} `json:"category"`
	} `json:"booking_workers"`
}

func (w bookingWire) toDomain() domain.Booking {
	b := domain.Booking{
		ID:                 w.ID,
		Status:             domain.BookingStatus(w.Status),
		BookingDate:        parseBackendTime(w.BookingDate),
		PreferredStartTime: w.PreferredStartTime,
		WorkLocation:       w.WorkLocation,
		Manufacturer:       w.Manufacturer.Name,
	}
	// Only the first assignment is tracked; the backend sends at most one
	// active entry per worker.
	if len(w.BookingWorkers) > 0 {
		bw := w.BookingWorkers[0]
		b.Worker = domain.WorkerAssignment{
			Status:        domain.WorkerStatus(bw.Status),
			WorkerPrice:   bw.WorkerPrice,
			AssignedHours: bw.AssignedHours,
			Category:      bw.Category.Name,
		}
	}
	return b
}

var backendTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseBackendTime(value string) time.Time {
	for _, layout := range backendTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (r *RESTBookingRepository) ListWorkerBookings(ctx context.Context, params ListParams) (*BookingPage, error) {
	query := url.Values{}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}
	if params.Status != "" {
		query.Set("status", string(params.Status))
	}

	data, err := r.client.do(ctx, "GET", "/worker/bookings", query, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Success       *bool           `json:"success"`
		Message       string          `json:"message"`
		Bookings      json.RawMessage `json:"bookings"`
		TotalBookings int             `json:"total_bookings"`
		CurrentPage   int             `json:"current_page"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode bookings response: %w", err)
	}
	if envelope.Success != nil && !*envelope.Success {
		return nil, fmt.Errorf("list bookings rejected: %s", envelope.Message)
	}

	page := &BookingPage{Total: envelope.TotalBookings, CurrentPage: envelope.CurrentPage}

	// The bookings field arrives either as a plain array or wrapped in a
	// paginator object, depending on the backend version.
	var wires []bookingWire
	if err := json.Unmarshal(envelope.Bookings, &wires); err != nil {
		var paginator struct {
			Data        []bookingWire `json:"data"`
			Total       int           `json:"total"`
			CurrentPage int           `json:"current_page"`
		}
		if err := json.Unmarshal(envelope.Bookings, &paginator); err != nil {
			return nil, fmt.Errorf("decode bookings payload: %w", err)
		}
		wires = paginator.Data
		if page.Total == 0 {
			page.Total = paginator.Total
		}
		if page.CurrentPage == 0 {
			page.CurrentPage = paginator.CurrentPage
		}
	}

	for _, w := range wires {
		page.Bookings = append(page.Bookings, w.toDomain())
	}
	if page.CurrentPage == 0 {
		page.CurrentPage = 1
	}
	return page, nil
}

func (r *RESTBookingRepository) GetWorkerBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	data, err := r.client.do(ctx, "GET", fmt.Sprintf("/worker/bookings/%d", id), nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Success *bool        `json:"success"`
		Message string       `json:"message"`
		Booking *bookingWire `json:"booking"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Booking != nil {
		if envelope.Success != nil && !*envelope.Success {
			return nil, fmt.Errorf("get booking rejected: %s", envelope.Message)
		}
		b := envelope.Booking.toDomain()
		return &b, nil
	}

	var wire bookingWire
	if err := json.Unmarshal(data, &wire); err != nil || wire.ID == 0 {
		return nil, fmt.Errorf("decode booking %d response", id)
	}
	b := wire.toDomain()
	return &b, nil
}

func (r *RESTBookingRepository) UpdateWorkerStatus(ctx context.Context, id int64, status domain.WorkerStatus) error {
	body := map[string]string{"status": string(status)}
	data, err := r.client.do(ctx, "POST", fmt.Sprintf("/worker/bookings/%d/status", id), nil, body)
	if err != nil {
		return err
	}

	var resp struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &resp); err == nil && resp.Success != nil && !*resp.Success {
		return fmt.Errorf("status update rejected: %s", resp.Message)
	}
	return nil
}

var _ BookingRepository = (*RESTBookingRepository)(nil)
