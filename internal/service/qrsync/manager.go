package qrsync

import (
	"context"
	"sync"
	"time"

	"github.com/mastant/fieldsync/internal/domain"
)

// Manager keeps at most one live session per booking. Starting a new
// observation supersedes the previous one, matching the backend rule that only
// one non-expired QR code is meaningfully active per booking.
type Manager struct {
	fetcher     StatusFetcher
	clock       Clock
	interval    time.Duration
	maxFailures int

	mu       sync.Mutex
	sessions map[int64]*Session
}

type ManagerOption func(*Manager)

func WithManagerClock(clock Clock) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

func WithManagerInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.interval = d }
}

func WithManagerFailureBudget(n int) ManagerOption {
	return func(m *Manager) { m.maxFailures = n }
}

func NewManager(fetcher StatusFetcher, opts ...ManagerOption) *Manager {
	m := &Manager{
		fetcher:     fetcher,
		clock:       SystemClock(),
		interval:    2 * time.Second,
		maxFailures: 10,
		sessions:    make(map[int64]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Begin starts observing a booking's QR redemption and returns the session.
// Any prior session for the same booking is cancelled first.
func (m *Manager) Begin(ctx context.Context, bookingID int64, purpose domain.QrPurpose) *Session {
	m.mu.Lock()
	if old, ok := m.sessions[bookingID]; ok {
		old.Cancel()
	}
	session := NewSession(bookingID, purpose, m.fetcher,
		WithClock(m.clock),
		WithInterval(m.interval),
		WithFailureBudget(m.maxFailures),
	)
	m.sessions[bookingID] = session
	m.mu.Unlock()

	go session.Run(ctx)
	return session
}

func (m *Manager) Get(bookingID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[bookingID]
	return session, ok
}

// CancelFor stops any live observation for the booking. Reports whether a
// session existed.
func (m *Manager) CancelFor(bookingID int64) bool {
	m.mu.Lock()
	session, ok := m.sessions[bookingID]
	if ok {
		delete(m.sessions, bookingID)
	}
	m.mu.Unlock()

	if ok {
		session.Cancel()
	}
	return ok
}

// Shutdown cancels every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[int64]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Cancel()
	}
}
