package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mastant/fieldsync/internal/domain"
)

// GenerationError is the backend refusing to mint a QR code for a booking
// (wrong state, not found, auth failure). It is surfaced immediately and never
// retried automatically.
type GenerationError struct {
	BookingID  int64
	StatusCode int
	Message    string
}

func (e *GenerationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("qr generation refused for booking %d: %s", e.BookingID, e.Message)
	}
	return fmt.Sprintf("qr generation refused for booking %d", e.BookingID)
}

type QrRepository interface {
	Generate(ctx context.Context, bookingID int64) (*domain.QrSession, error)
	Status(ctx context.Context, bookingID int64) (*domain.QrSnapshot, error)
}

type RESTQrRepository struct {
	client *Client
}

func NewQrRepository(client *Client) QrRepository {
	return &RESTQrRepository{client: client}
}

func (r *RESTQrRepository) Generate(ctx context.Context, bookingID int64) (*domain.QrSession, error) {
	data, err := r.client.do(ctx, "POST", fmt.Sprintf("/worker/qr/generate/%d", bookingID), nil, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, &GenerationError{BookingID: bookingID, StatusCode: apiErr.StatusCode, Message: apiErr.Message}
		}
		return nil, err
	}

	var resp struct {
		Success   *bool  `json:"success"`
		Message   string `json:"message"`
		QrCode    string `json:"qr_code"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode qr generation response: %w", err)
	}
	if resp.Success != nil && !*resp.Success {
		return nil, &GenerationError{BookingID: bookingID, Message: resp.Message}
	}
	if resp.QrCode == "" {
		return nil, &GenerationError{BookingID: bookingID, Message: "backend returned no qr payload"}
	}

	return &domain.QrSession{
		BookingID: bookingID,
		Payload:   resp.QrCode,
		Status:    domain.QrStatusGenerated,
		ExpiresAt: parseBackendTime(resp.ExpiresAt),
	}, nil
}

// Status polls the redemption state. The backend answers either with a
// {success, qr_status, booking_status} envelope or with a bare check-in
// record; both are normalized here so nothing downstream branches on shape.
func (r *RESTQrRepository) Status(ctx context.Context, bookingID int64) (*domain.QrSnapshot, error) {
	data, err := r.client.do(ctx, "GET", fmt.Sprintf("/worker/qr/status/%d", bookingID), nil, nil)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Success       *bool   `json:"success"`
		Message       string  `json:"message"`
		QrStatus      string  `json:"qr_status"`
		BookingStatus string  `json:"booking_status"`
		Status        string  `json:"status"`
		CheckinTime   string  `json:"checkin_time"`
		CheckoutTime  string  `json:"checkout_time"`
		TotalHours    float64 `json:"total_hours"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode qr status response: %w", err)
	}

	switch {
	case raw.Success != nil:
		if !*raw.Success {
			return nil, fmt.Errorf("qr status poll rejected: %s", raw.Message)
		}
		if raw.QrStatus == "" {
			return nil, fmt.Errorf("qr status poll returned no qr_status")
		}
		return &domain.QrSnapshot{
			Status:        domain.QrStatus(raw.QrStatus),
			BookingStatus: domain.BookingStatus(raw.BookingStatus),
			CheckinTime:   raw.CheckinTime,
			CheckoutTime:  raw.CheckoutTime,
			TotalHours:    raw.TotalHours,
		}, nil
	case raw.Status != "":
		return &domain.QrSnapshot{
			Status:       domain.QrStatus(raw.Status),
			CheckinTime:  raw.CheckinTime,
			CheckoutTime: raw.CheckoutTime,
			TotalHours:   raw.TotalHours,
		}, nil
	default:
		return nil, fmt.Errorf("unrecognized qr status response shape")
	}
}

var _ QrRepository = (*RESTQrRepository)(nil)
