package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

type WorkerStatus string

const (
	WorkerStatusAssigned   WorkerStatus = "assigned"
	WorkerStatusConfirmed  WorkerStatus = "confirmed"
	WorkerStatusInProgress WorkerStatus = "in_progress"
	WorkerStatusCompleted  WorkerStatus = "completed"
	WorkerStatusCancelled  WorkerStatus = "cancelled"
)

// WorkerAssignment is the worker-level leg of a booking. Its status moves
// independently of the booking-level status, the backend keeps them loosely
// in sync.
type WorkerAssignment struct {
	Status        WorkerStatus `json:"status"`
	WorkerPrice   float64      `json:"worker_price"`
	AssignedHours float64      `json:"assigned_hours"`
	Category      string       `json:"category"`
}

type Booking struct {
	ID                 int64            `json:"id"`
	Status             BookingStatus    `json:"status"`
	BookingDate        time.Time        `json:"booking_date"`
	PreferredStartTime string           `json:"preferred_start_time"`
	WorkLocation       string           `json:"work_location"`
	Manufacturer       string           `json:"manufacturer"`
	Worker             WorkerAssignment `json:"worker"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// EffectiveStatus is the worker-level status the UI acts on; bookings without
// an assignment record count as freshly assigned.
func (b *Booking) EffectiveStatus() WorkerStatus {
	if b.Worker.Status == "" {
		return WorkerStatusAssigned
	}
	return b.Worker.Status
}

// IsOverdue reports whether the booking date has passed while work is still
// pending on the worker side. Derived on every call, never persisted: "now"
// keeps moving.
func (b *Booking) IsOverdue(now time.Time) bool {
	switch b.EffectiveStatus() {
	case WorkerStatusAssigned, WorkerStatusConfirmed, WorkerStatusInProgress:
		return b.BookingDate.Before(now)
	}
	return false
}
