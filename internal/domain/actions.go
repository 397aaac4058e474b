package domain

// Action is a UI affordance the presentation layer may offer for a booking.
type Action string

const (
	ActionAccept        Action = "accept"
	ActionAcceptAnyway  Action = "accept_anyway"
	ActionDecline       Action = "decline"
	ActionGenerateStart Action = "generate_qr_start"
	ActionGenerateEnd   Action = "generate_qr_end"
	ActionMarkComplete  Action = "mark_complete"
	ActionRate          Action = "rate"
)

// AllowedActions returns the action set for the given combination of worker
// status, booking status and overdue flag. Overdue widens the set (the accept
// bypass) without changing transition semantics.
func AllowedActions(worker WorkerStatus, booking BookingStatus, overdue bool) []Action {
	if booking == BookingStatusCancelled || booking == BookingStatusPending {
		return nil
	}

	if overdue {
		return overdueActions(worker, booking)
	}

	switch worker {
	case WorkerStatusAssigned:
		if booking == BookingStatusConfirmed {
			return []Action{ActionAccept, ActionDecline}
		}
	case WorkerStatusConfirmed:
		return []Action{ActionGenerateStart}
	case WorkerStatusInProgress:
		return []Action{ActionGenerateEnd, ActionMarkComplete}
	case WorkerStatusCompleted:
		return []Action{ActionRate}
	}
	return nil
}

func overdueActions(worker WorkerStatus, booking BookingStatus) []Action {
	switch worker {
	case WorkerStatusAssigned:
		if booking == BookingStatusConfirmed {
			return []Action{ActionAcceptAnyway}
		}
	case WorkerStatusConfirmed:
		return []Action{ActionGenerateStart}
	case WorkerStatusInProgress:
		return []Action{ActionGenerateEnd, ActionMarkComplete}
	}
	return nil
}
