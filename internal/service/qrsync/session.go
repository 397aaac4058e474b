package qrsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mastant/fieldsync/internal/domain"
)

// ErrConnectionFailed terminates a session after the consecutive-failure
// budget is exhausted. The caller may start a fresh session to retry.
var ErrConnectionFailed = errors.New("qr status polling: connection failed")

type EventType string

const (
	// EventStatusChanged fires once per observed status change, never for a
	// repeat of the same value.
	EventStatusChanged EventType = "status_changed"
	// EventAttemptFailed reports a transient poll failure ("attempt #N") while
	// the loop keeps retrying on its fixed interval.
	EventAttemptFailed EventType = "attempt_failed"
	// EventConnectionLost is the terminal event after the failure budget.
	EventConnectionLost EventType = "connection_lost"
)

type Event struct {
	Type     EventType
	Status   domain.QrStatus
	Snapshot *domain.QrSnapshot
	Attempt  int
	Err      error
	Terminal bool
}

// StatusFetcher is the one backend call the session needs.
type StatusFetcher interface {
	Status(ctx context.Context, bookingID int64) (*domain.QrSnapshot, error)
}

// SessionState is a point-in-time view for callers that poll the session
// instead of draining its event channel.
type SessionState struct {
	BookingID  int64
	Purpose    domain.QrPurpose
	LastStatus domain.QrStatus
	Failures   int
	Done       bool
}

// Session observes the redemption status of one booking's QR code. It owns all
// the per-observation mutable state the original UI kept in ambient timers:
// last observed status, consecutive failure count and a generation counter
// that lets late responses from superseded polls be discarded.
//
// One event stream per session; the channel closing is the teardown signal.
// Callers must drain the channel or call Cancel.
type Session struct {
	bookingID   int64
	purpose     domain.QrPurpose
	fetcher     StatusFetcher
	clock       Clock
	interval    time.Duration
	maxFailures int

	mu             sync.Mutex
	lastStatus     domain.QrStatus
	failures       int
	generation     uint64
	inflightCancel context.CancelFunc
	closed         bool

	events chan Event
	stop   chan struct{}
}

type SessionOption func(*Session)

func WithClock(clock Clock) SessionOption {
	return func(s *Session) { s.clock = clock }
}

func WithInterval(d time.Duration) SessionOption {
	return func(s *Session) { s.interval = d }
}

func WithFailureBudget(n int) SessionOption {
	return func(s *Session) { s.maxFailures = n }
}

func NewSession(bookingID int64, purpose domain.QrPurpose, fetcher StatusFetcher, opts ...SessionOption) *Session {
	s := &Session{
		bookingID:   bookingID,
		purpose:     purpose,
		fetcher:     fetcher,
		clock:       SystemClock(),
		interval:    2 * time.Second,
		maxFailures: 10,
		events:      make(chan Event, 16),
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) BookingID() int64          { return s.bookingID }
func (s *Session) Purpose() domain.QrPurpose { return s.purpose }

// Events delivers status changes, transient failures and the terminal event in
// observation order. The channel closes when the session ends for any reason.
func (s *Session) Events() <-chan Event { return s.events }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		BookingID:  s.bookingID,
		Purpose:    s.purpose,
		LastStatus: s.lastStatus,
		Failures:   s.failures,
		Done:       s.closed,
	}
}

// Run drives the polling loop: an immediate first check, then one check per
// interval, until a terminal status, cancellation or the failure budget stops
// it. No backoff, the interval is fixed.
func (s *Session) Run(ctx context.Context) {
	s.Tick(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Cancel()
			return
		case <-s.stop:
			return
		case <-ticker.C():
			s.Tick(ctx)
		}
	}
}

// Tick issues one poll. Only one request may be outstanding per session: a new
// tick cancels the previous request's context and bumps the generation, so a
// late resolution of the superseded poll is dropped instead of applied.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.inflightCancel != nil {
		s.inflightCancel()
	}
	s.generation++
	gen := s.generation
	reqCtx, cancel := context.WithCancel(ctx)
	s.inflightCancel = cancel
	s.mu.Unlock()

	go func() {
		snap, err := s.fetcher.Status(reqCtx, s.bookingID)
		s.apply(gen, snap, err)
	}()
}

// Cancel stops the session synchronously: no further polls are scheduled and
// an in-flight request's eventual resolution cannot resurrect the loop.
// Idempotent.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.inflightCancel != nil {
		s.inflightCancel()
	}
	close(s.stop)
	close(s.events)
}

func (s *Session) apply(gen uint64, snap *domain.QrSnapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A newer poll owns the session now, or the caller cancelled. Either way
	// this result is stale and must not be applied.
	if s.closed || gen != s.generation {
		return
	}

	if err != nil {
		s.failures++
		if s.failures >= s.maxFailures {
			s.closed = true
			close(s.stop)
			s.events <- Event{Type: EventConnectionLost, Attempt: s.failures, Err: ErrConnectionFailed, Terminal: true}
			close(s.events)
			return
		}
		s.events <- Event{Type: EventAttemptFailed, Attempt: s.failures, Err: err}
		return
	}

	s.failures = 0

	// Same status as last poll: no event, no downstream side effects.
	if snap.Status == s.lastStatus {
		return
	}
	s.lastStatus = snap.Status

	terminal := snap.Status.Terminal()
	if terminal {
		s.closed = true
		close(s.stop)
	}
	s.events <- Event{Type: EventStatusChanged, Status: snap.Status, Snapshot: snap, Terminal: terminal}
	if terminal {
		close(s.events)
	}
}
