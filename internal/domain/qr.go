package domain

import "time"

type QrStatus string

const (
	QrStatusNotGenerated QrStatus = "not_generated"
	QrStatusGenerated    QrStatus = "generated"
	QrStatusCheckedIn    QrStatus = "checkedin"
	QrStatusCheckedOut   QrStatus = "checkedout"
	QrStatusExpired      QrStatus = "expired"
)

// Terminal reports whether observing this status ends a polling session.
func (s QrStatus) Terminal() bool {
	switch s {
	case QrStatusCheckedIn, QrStatusCheckedOut, QrStatusExpired:
		return true
	}
	return false
}

type QrPurpose string

const (
	QrPurposeStart QrPurpose = "start" // check-in at start of work
	QrPurposeEnd   QrPurpose = "end"   // check-out at end of work
)

// PurposeFor derives the QR purpose from the current worker status. Purpose is
// never stored; only confirmed and in_progress assignments may hold a code.
func PurposeFor(status WorkerStatus) (QrPurpose, bool) {
	switch status {
	case WorkerStatusConfirmed:
		return QrPurposeStart, true
	case WorkerStatusInProgress:
		return QrPurposeEnd, true
	}
	return "", false
}

// QrSession is a freshly minted code waiting to be scanned by the client.
type QrSession struct {
	BookingID int64
	Purpose   QrPurpose
	Payload   string
	Status    QrStatus
	ExpiresAt time.Time
}

// QrSnapshot is the normalized result of one status poll. The backend answers
// in two shapes (a success envelope and a bare check-in record); both collapse
// into this one type at the repository boundary. Timestamps stay verbatim
// backend strings, rendering is the caller's business.
type QrSnapshot struct {
	Status        QrStatus
	BookingStatus BookingStatus // empty when the backend returned a bare record
	CheckinTime   string
	CheckoutTime  string
	TotalHours    float64
}
