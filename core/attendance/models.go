package attendance

import (
	"fmt"
	"time"
)

// Session statuses
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Session provenance methods
const (
	MethodQRScan = "QR_SCAN"
)

// Scan outcomes
const (
	OutcomeCheckedIn  = "CHECKED_IN"
	OutcomeCheckedOut = "CHECKED_OUT"
	OutcomeFailed     = "FAILED"
)

// DateKeyLayout is the calendar-day format used for daily-aggregate queries.
const DateKeyLayout = "2006-01-02"

// Session is one member's visit record at a gym, open from check-in until
// check-out. A session is created OPEN and closed exactly once; CLOSED is
// terminal. CheckOutTime and DurationMinutes are set iff the session is
// CLOSED. DateKey always reflects the check-in instant, even for sessions
// spanning midnight.
type Session struct {
	ID              string     `json:"id"`
	MemberID        string     `json:"member_id"`
	GymID           string     `json:"gym_id"`
	CheckInTime     time.Time  `json:"check_in_time"`  // UTC
	CheckOutTime    *time.Time `json:"check_out_time"` // UTC, set on close
	Status          string     `json:"status"`
	DateKey         string     `json:"date_key"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Method          string     `json:"method"`
	CreatedAt       time.Time  `json:"created_at"` // UTC
}

func (s Session) IsOpen() bool { return s.Status == StatusOpen }

// ScanResult is the user-facing outcome of a scan event.
type ScanResult struct {
	Outcome         string `json:"outcome"` // CHECKED_IN | CHECKED_OUT | FAILED
	Message         string `json:"message"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

// QueryFilter narrows session listings. Zero fields are ignored;
// set fields are ANDed.
type QueryFilter struct {
	MemberID string `query:"member_id"`
	GymID    string `query:"gym_id"`
	Status   string `query:"status"`
	DateKey  string `query:"date"`
	Limit    int    `query:"limit"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.MemberID == "" && qf.GymID == "" && qf.Status == "" && qf.DateKey == "" && qf.Limit == 0
}

// FormatDuration renders whole minutes as "1h 35m".
func FormatDuration(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
