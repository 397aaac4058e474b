package lifecycle

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/mastant/fieldsync/internal/domain"
	"github.com/mastant/fieldsync/internal/kafka"
	"github.com/mastant/fieldsync/internal/repository"
	"github.com/mastant/fieldsync/internal/service/qrsync"
)

// ErrNoQrPurpose means the assignment is not in a state that can hold a QR
// code: only confirmed (start) and in_progress (end) assignments qualify.
var ErrNoQrPurpose = errors.New("qr code not available for current worker status")

type UseCase interface {
	List(ctx context.Context) ([]BookingView, error)
	Refresh(ctx context.Context) ([]BookingView, error)
	Accept(ctx context.Context, bookingID int64) (*BookingView, error)
	Decline(ctx context.Context, bookingID int64) (*BookingView, error)
	Complete(ctx context.Context, bookingID int64) (*BookingView, error)
	BeginQrObservation(ctx context.Context, bookingID int64) (*QrObservation, error)
	Observation(bookingID int64) (*QrObservation, bool)
	CancelQrObservation(bookingID int64) bool
}

type Cache interface {
	GetBookings(ctx context.Context) ([]domain.Booking, error)
	SetBookings(ctx context.Context, bookings []domain.Booking) error
	InvalidateBookings(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// BookingView is a booking enriched with everything the presentation layer
// derives per render: effective worker status, the overdue flag and the
// allowed actions.
type BookingView struct {
	domain.Booking
	EffectiveStatus domain.WorkerStatus `json:"effective_status"`
	Overdue         bool                `json:"overdue"`
	Actions         []domain.Action     `json:"actions"`
}

// QrObservation is the caller-facing state of one QR observation. Timestamps
// are verbatim backend strings.
type QrObservation struct {
	BookingID    int64            `json:"booking_id"`
	Purpose      domain.QrPurpose `json:"purpose"`
	QrPayload    string           `json:"qr_payload"`
	ExpiresAt    time.Time        `json:"expires_at"`
	Status       domain.QrStatus  `json:"status"`
	Attempt      int              `json:"attempt,omitempty"`
	CheckinTime  string           `json:"checkin_time,omitempty"`
	CheckoutTime string           `json:"checkout_time,omitempty"`
	TotalHours   float64          `json:"total_hours,omitempty"`
	Done         bool             `json:"done"`
	Message      string           `json:"message,omitempty"`
}

type observation struct {
	view    QrObservation
	session *qrsync.Session
}

// Service drives the worker-side booking lifecycle against the marketplace
// backend: listing and refreshing assignments, accepting and declining,
// starting QR observations and folding their outcomes back into worker status.
type Service struct {
	bookings  repository.BookingRepository
	qr        repository.QrRepository
	observers *qrsync.Manager

	cache       Cache
	producer    Producer
	eventsTopic string
	perPage     int
	now         func() time.Time

	mu           sync.Mutex
	observations map[int64]*observation
}

type ServiceOption func(*Service)

func WithCache(cache Cache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

func WithProducer(producer Producer, topic string) ServiceOption {
	return func(s *Service) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

func WithPerPage(n int) ServiceOption {
	return func(s *Service) { s.perPage = n }
}

func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(
	bookings repository.BookingRepository,
	qr repository.QrRepository,
	observers *qrsync.Manager,
	opts ...ServiceOption,
) *Service {
	service := &Service{
		bookings:     bookings,
		qr:           qr,
		observers:    observers,
		perPage:      50,
		now:          time.Now,
		observations: make(map[int64]*observation),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// List serves the cached booking list when one exists and falls back to a
// full refresh otherwise.
func (s *Service) List(ctx context.Context) ([]BookingView, error) {
	if s.cache != nil {
		bookings, err := s.cache.GetBookings(ctx)
		if err != nil {
			log.Printf("WARNING: booking cache read failed: %v", err)
		} else if bookings != nil {
			return s.views(bookings), nil
		}
	}
	return s.Refresh(ctx)
}

// Refresh replaces local state wholesale with the backend's booking list.
// Bookings that turned cancelled or completed server-side get any live QR
// observation force-cancelled: the code they were watching is void.
func (s *Service) Refresh(ctx context.Context) ([]BookingView, error) {
	var all []domain.Booking
	for page := 1; ; page++ {
		result, err := s.bookings.ListWorkerBookings(ctx, repository.ListParams{Page: page, PerPage: s.perPage})
		if err != nil {
			return nil, err
		}
		all = append(all, result.Bookings...)
		if len(result.Bookings) == 0 || len(all) >= result.Total {
			break
		}
	}

	if s.cache != nil {
		if err := s.cache.SetBookings(ctx, all); err != nil {
			log.Printf("WARNING: booking cache write failed: %v", err)
		}
	}

	for i := range all {
		b := &all[i]
		if b.Status == domain.BookingStatusCancelled || b.Status == domain.BookingStatusCompleted ||
			b.EffectiveStatus() == domain.WorkerStatusCancelled || b.EffectiveStatus() == domain.WorkerStatusCompleted {
			s.dropObservation(b.ID, "booking left active state")
		}
	}

	return s.views(all), nil
}

func (s *Service) Accept(ctx context.Context, bookingID int64) (*BookingView, error) {
	return s.decide(ctx, bookingID, domain.EventAccept)
}

func (s *Service) Decline(ctx context.Context, bookingID int64) (*BookingView, error) {
	view, err := s.decide(ctx, bookingID, domain.EventDecline)
	if err == nil {
		s.dropObservation(bookingID, "booking declined")
	}
	return view, err
}

// Complete is the manual override for a checkout that never happened, the
// usual recovery after an observation ends in a connection loss.
func (s *Service) Complete(ctx context.Context, bookingID int64) (*BookingView, error) {
	view, err := s.decide(ctx, bookingID, domain.EventMarkComplete)
	if err == nil {
		s.dropObservation(bookingID, "completed manually")
	}
	return view, err
}

// decide runs one worker-initiated event through the transition table and, on
// success, pushes the new status to the backend.
func (s *Service) decide(ctx context.Context, bookingID int64, event domain.Event) (*BookingView, error) {
	booking, err := s.bookings.GetWorkerBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	from := booking.EffectiveStatus()
	next, err := domain.Transition(from, event, domain.TransitionContext{
		BookingStatus: booking.Status,
		Overdue:       booking.IsOverdue(s.now()),
		Qr:            s.snapshotFor(bookingID),
	})
	if err != nil {
		return nil, err
	}

	if err := s.bookings.UpdateWorkerStatus(ctx, bookingID, next); err != nil {
		return nil, err
	}
	booking.Worker.Status = next

	s.publish(ctx, kafka.WorkEvent{
		Type:         string(event),
		BookingID:    bookingID,
		WorkerStatus: string(next),
		At:           s.now(),
	})
	s.invalidate(ctx)

	view := s.view(*booking)
	return &view, nil
}

// BeginQrObservation mints a QR code for the booking and starts polling its
// redemption status. A prior observation for the same booking is superseded.
func (s *Service) BeginQrObservation(ctx context.Context, bookingID int64) (*QrObservation, error) {
	booking, err := s.bookings.GetWorkerBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	purpose, ok := domain.PurposeFor(booking.EffectiveStatus())
	if !ok {
		return nil, ErrNoQrPurpose
	}

	qrSession, err := s.qr.Generate(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// Polling must outlive the request that started it; only Cancel or a
	// terminal status ends it.
	session := s.observers.Begin(context.Background(), bookingID, purpose)

	obs := &observation{
		view: QrObservation{
			BookingID: bookingID,
			Purpose:   purpose,
			QrPayload: qrSession.Payload,
			ExpiresAt: qrSession.ExpiresAt,
			Status:    qrSession.Status,
		},
		session: session,
	}
	s.mu.Lock()
	s.observations[bookingID] = obs
	s.mu.Unlock()

	go s.consume(bookingID, session)

	view := obs.view
	return &view, nil
}

// Observation reports the current state of a booking's QR observation.
func (s *Service) Observation(bookingID int64) (*QrObservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs, ok := s.observations[bookingID]
	if !ok {
		return nil, false
	}
	view := obs.view
	return &view, true
}

// CancelQrObservation stops polling for the booking. The observation record
// stays readable, marked done.
func (s *Service) CancelQrObservation(bookingID int64) bool {
	s.mu.Lock()
	obs, ok := s.observations[bookingID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	s.observers.CancelFor(bookingID)

	s.mu.Lock()
	if !obs.view.Done {
		obs.view.Done = true
		obs.view.Message = "observation cancelled"
	}
	s.mu.Unlock()
	return true
}

// Shutdown stops every live observation.
func (s *Service) Shutdown() {
	s.observers.Shutdown()
}

// consume drains one session's event stream into the observation record and
// folds terminal redemptions back into worker status.
func (s *Service) consume(bookingID int64, session *qrsync.Session) {
	for ev := range session.Events() {
		s.mu.Lock()
		obs, ok := s.observations[bookingID]
		if !ok || obs.session != session {
			s.mu.Unlock()
			continue // superseded by a newer observation
		}

		switch ev.Type {
		case qrsync.EventAttemptFailed:
			obs.view.Attempt = ev.Attempt
		case qrsync.EventConnectionLost:
			obs.view.Done = true
			obs.view.Attempt = ev.Attempt
			obs.view.Message = "connection lost while checking qr status"
		case qrsync.EventStatusChanged:
			obs.view.Status = ev.Status
			obs.view.Attempt = 0
			if ev.Snapshot != nil {
				obs.view.CheckinTime = ev.Snapshot.CheckinTime
				obs.view.CheckoutTime = ev.Snapshot.CheckoutTime
				obs.view.TotalHours = ev.Snapshot.TotalHours
			}
			if ev.Terminal {
				obs.view.Done = true
				if ev.Status == domain.QrStatusExpired {
					obs.view.Message = "qr code expired"
				}
			}
		}
		s.mu.Unlock()

		if ev.Type == qrsync.EventStatusChanged && ev.Terminal && ev.Status != domain.QrStatusExpired {
			s.applyRedemption(bookingID, ev.Snapshot)
		}
	}
}

// applyRedemption reacts to a scanned QR code. The backend already advanced
// the status when the client scanned; the agent validates the step against its
// transition table, reports it outward and resyncs.
func (s *Service) applyRedemption(bookingID int64, snap *domain.QrSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var event domain.Event
	switch snap.Status {
	case domain.QrStatusCheckedIn:
		event = domain.EventCheckIn
	case domain.QrStatusCheckedOut:
		event = domain.EventCheckOut
	default:
		return
	}

	booking, err := s.bookings.GetWorkerBooking(ctx, bookingID)
	if err != nil {
		log.Printf("WARNING: booking %d fetch after qr redemption failed: %v", bookingID, err)
		s.invalidate(ctx)
		return
	}

	next, err := domain.Transition(booking.EffectiveStatus(), event, domain.TransitionContext{
		BookingStatus: booking.Status,
		Qr:            snap,
	})
	if err != nil {
		// The refresh below picks up whatever state the backend settled on.
		log.Printf("WARNING: booking %d: qr redemption did not match local state: %v", bookingID, err)
	} else {
		s.publish(ctx, kafka.WorkEvent{
			Type:         string(event),
			BookingID:    bookingID,
			WorkerStatus: string(next),
			QrStatus:     string(snap.Status),
			CheckinTime:  snap.CheckinTime,
			CheckoutTime: snap.CheckoutTime,
			TotalHours:   snap.TotalHours,
			At:           s.now(),
		})
	}

	s.invalidate(ctx)
	if _, err := s.Refresh(ctx); err != nil {
		log.Printf("WARNING: refresh after qr redemption failed: %v", err)
	}
}

func (s *Service) dropObservation(bookingID int64, reason string) {
	s.mu.Lock()
	obs, ok := s.observations[bookingID]
	if ok && !obs.view.Done {
		obs.view.Done = true
		obs.view.Message = reason
	}
	s.mu.Unlock()
	if ok {
		s.observers.CancelFor(bookingID)
	}
}

func (s *Service) snapshotFor(bookingID int64) *domain.QrSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs, ok := s.observations[bookingID]
	if !ok || obs.view.Status == "" {
		return nil
	}
	return &domain.QrSnapshot{
		Status:       obs.view.Status,
		CheckinTime:  obs.view.CheckinTime,
		CheckoutTime: obs.view.CheckoutTime,
		TotalHours:   obs.view.TotalHours,
	}
}

func (s *Service) views(bookings []domain.Booking) []BookingView {
	views := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, s.view(b))
	}
	return views
}

func (s *Service) view(b domain.Booking) BookingView {
	now := s.now()
	worker := b.EffectiveStatus()
	overdue := b.IsOverdue(now)
	return BookingView{
		Booking:         b,
		EffectiveStatus: worker,
		Overdue:         overdue,
		Actions:         domain.AllowedActions(worker, b.Status, overdue),
	}
}

func (s *Service) publish(ctx context.Context, event kafka.WorkEvent) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	key := strconv.FormatInt(event.BookingID, 10)
	if err := s.producer.Publish(ctx, s.eventsTopic, key, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for booking %d: %v", event.Type, event.BookingID, err)
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBookings(ctx); err != nil {
		log.Printf("WARNING: booking cache invalidation failed: %v", err)
	}
}

var _ UseCase = (*Service)(nil)
