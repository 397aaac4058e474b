package domain

import "fmt"

// Event is a worker-initiated or QR-driven attempt to move an assignment
// forward.
type Event string

const (
	EventAccept       Event = "accept"
	EventDecline      Event = "decline"
	EventCheckIn      Event = "qr_checkin"
	EventCheckOut     Event = "qr_checkout"
	EventMarkComplete Event = "mark_complete"
)

// TransitionContext carries the collaborating state a precondition may need.
type TransitionContext struct {
	BookingStatus BookingStatus
	Overdue       bool
	Qr            *QrSnapshot // latest observed QR state, nil when none
}

type InvalidTransitionError struct {
	From         WorkerStatus
	Event        Event
	Precondition string // unmet precondition, empty when the pair is simply not in the table
}

func (e *InvalidTransitionError) Error() string {
	if e.Precondition != "" {
		return fmt.Sprintf("invalid transition %q from %q: %s", e.Event, e.From, e.Precondition)
	}
	return fmt.Sprintf("invalid transition %q from %q", e.Event, e.From)
}

type rule struct {
	from         WorkerStatus
	event        Event
	to           WorkerStatus
	precondition string
	check        func(TransitionContext) bool
}

// The worker-side transition table. The manual paths (decline, mark complete)
// exist because QR scanning depends on a second physical party being present;
// the machine must tolerate that party never showing up.
var rules = []rule{
	{
		from: WorkerStatusAssigned, event: EventAccept, to: WorkerStatusConfirmed,
		precondition: "booking must be confirmed",
		check:        func(tc TransitionContext) bool { return tc.BookingStatus == BookingStatusConfirmed },
	},
	{
		from: WorkerStatusAssigned, event: EventDecline, to: WorkerStatusCancelled,
	},
	{
		from: WorkerStatusConfirmed, event: EventCheckIn, to: WorkerStatusInProgress,
		precondition: "client must have scanned the start QR code",
		check: func(tc TransitionContext) bool {
			return tc.Qr != nil && tc.Qr.Status == QrStatusCheckedIn
		},
	},
	{
		// "Accept Anyway": overdue bookings allow re-confirming in place so the
		// worker can proceed without a fresh assignment from the backend.
		from: WorkerStatusConfirmed, event: EventAccept, to: WorkerStatusConfirmed,
		precondition: "booking must be overdue",
		check:        func(tc TransitionContext) bool { return tc.Overdue },
	},
	{
		from: WorkerStatusInProgress, event: EventCheckOut, to: WorkerStatusCompleted,
		precondition: "client must have scanned the end QR code",
		check: func(tc TransitionContext) bool {
			return tc.Qr != nil && tc.Qr.Status == QrStatusCheckedOut
		},
	},
	{
		// Fallback when the client never scans the checkout code.
		from: WorkerStatusInProgress, event: EventMarkComplete, to: WorkerStatusCompleted,
	},
}

// Transition validates (from, event) against the table and returns the target
// status. Unknown pairs and unmet preconditions return *InvalidTransitionError
// and leave the caller's state untouched.
func Transition(from WorkerStatus, event Event, tc TransitionContext) (WorkerStatus, error) {
	for _, r := range rules {
		if r.from != from || r.event != event {
			continue
		}
		if r.check != nil && !r.check(tc) {
			return "", &InvalidTransitionError{From: from, Event: event, Precondition: r.precondition}
		}
		return r.to, nil
	}
	return "", &InvalidTransitionError{From: from, Event: event}
}
