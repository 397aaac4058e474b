package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition_AllowedPaths(t *testing.T) {
	scanned := func(status QrStatus) *QrSnapshot {
		return &QrSnapshot{Status: status, CheckinTime: "2024-01-15T10:00:00Z"}
	}

	testCases := []struct {
		name  string
		from  WorkerStatus
		event Event
		tc    TransitionContext
		want  WorkerStatus
	}{
		{
			name:  "worker accepts a confirmed booking",
			from:  WorkerStatusAssigned,
			event: EventAccept,
			tc:    TransitionContext{BookingStatus: BookingStatusConfirmed},
			want:  WorkerStatusConfirmed,
		},
		{
			name:  "worker declines",
			from:  WorkerStatusAssigned,
			event: EventDecline,
			want:  WorkerStatusCancelled,
		},
		{
			name:  "check-in scan starts work",
			from:  WorkerStatusConfirmed,
			event: EventCheckIn,
			tc:    TransitionContext{Qr: scanned(QrStatusCheckedIn)},
			want:  WorkerStatusInProgress,
		},
		{
			name:  "accept anyway on an overdue booking",
			from:  WorkerStatusConfirmed,
			event: EventAccept,
			tc:    TransitionContext{BookingStatus: BookingStatusConfirmed, Overdue: true},
			want:  WorkerStatusConfirmed,
		},
		{
			name:  "check-out scan completes work",
			from:  WorkerStatusInProgress,
			event: EventCheckOut,
			tc:    TransitionContext{Qr: scanned(QrStatusCheckedOut)},
			want:  WorkerStatusCompleted,
		},
		{
			name:  "manual mark complete fallback",
			from:  WorkerStatusInProgress,
			event: EventMarkComplete,
			want:  WorkerStatusCompleted,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Transition(tc.from, tc.event, tc.tc)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTransition_UnmetPreconditions(t *testing.T) {
	testCases := []struct {
		name  string
		from  WorkerStatus
		event Event
		tc    TransitionContext
	}{
		{
			name:  "accept while booking still pending",
			from:  WorkerStatusAssigned,
			event: EventAccept,
			tc:    TransitionContext{BookingStatus: BookingStatusPending},
		},
		{
			name:  "check-in without any QR observation",
			from:  WorkerStatusConfirmed,
			event: EventCheckIn,
		},
		{
			name:  "check-in while code only generated",
			from:  WorkerStatusConfirmed,
			event: EventCheckIn,
			tc:    TransitionContext{Qr: &QrSnapshot{Status: QrStatusGenerated}},
		},
		{
			name:  "accept anyway without overdue flag",
			from:  WorkerStatusConfirmed,
			event: EventAccept,
			tc:    TransitionContext{BookingStatus: BookingStatusConfirmed},
		},
		{
			name:  "check-out while code only generated",
			from:  WorkerStatusInProgress,
			event: EventCheckOut,
			tc:    TransitionContext{Qr: &QrSnapshot{Status: QrStatusGenerated}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Transition(tc.from, tc.event, tc.tc)
			assert.Empty(t, got)

			var invalid *InvalidTransitionError
			assert.True(t, errors.As(err, &invalid))
			assert.Equal(t, tc.from, invalid.From)
			assert.Equal(t, tc.event, invalid.Event)
			assert.NotEmpty(t, invalid.Precondition)
		})
	}
}

// Every (state, event) pair outside the table must be rejected, with current
// state and requested event reported back.
func TestTransition_TableCompleteness(t *testing.T) {
	statuses := []WorkerStatus{
		WorkerStatusAssigned,
		WorkerStatusConfirmed,
		WorkerStatusInProgress,
		WorkerStatusCompleted,
		WorkerStatusCancelled,
	}
	events := []Event{EventAccept, EventDecline, EventCheckIn, EventCheckOut, EventMarkComplete}

	inTable := map[WorkerStatus]map[Event]bool{
		WorkerStatusAssigned:   {EventAccept: true, EventDecline: true},
		WorkerStatusConfirmed:  {EventCheckIn: true, EventAccept: true},
		WorkerStatusInProgress: {EventCheckOut: true, EventMarkComplete: true},
	}

	// Context that satisfies every precondition, so only table membership decides.
	permissive := TransitionContext{
		BookingStatus: BookingStatusConfirmed,
		Overdue:       true,
		Qr:            &QrSnapshot{Status: QrStatusCheckedIn},
	}

	for _, from := range statuses {
		for _, event := range events {
			got, err := Transition(from, event, permissive)
			if inTable[from][event] {
				// checkedout rows need a checkout snapshot instead
				if event == EventCheckOut {
					got, err = Transition(from, event, TransitionContext{Qr: &QrSnapshot{Status: QrStatusCheckedOut}})
				}
				assert.NoError(t, err, "%s/%s should be allowed", from, event)
				assert.NotEmpty(t, got)
				continue
			}

			var invalid *InvalidTransitionError
			assert.True(t, errors.As(err, &invalid), "%s/%s should be rejected", from, event)
			assert.Equal(t, from, invalid.From)
			assert.Equal(t, event, invalid.Event)
		}
	}
}
