package models

import "time"

// Attendance status constants
const (
	AttendancePresent = "PRESENT"
	AttendanceLate    = "LATE"
	AttendanceAbsent  = "ABSENT"
	AttendanceHalfDay = "HALF_DAY"
)

// AttendanceRecord is one worker's attendance for one project and calendar
// date. Created on first clock-in (or an administrative absence mark),
// mutated by lunch/clock-out events, immutable once CheckOut is set.
type AttendanceRecord struct {
	ID         int64  `json:"id" db:"id"`
	EmployeeID string `json:"employee_id" db:"employee_id"`
	ProjectID  string `json:"project_id" db:"project_id"`
	Date       string `json:"date" db:"date"` // YYYY-MM-DD, UTC

	CheckIn  *time.Time `json:"check_in,omitempty" db:"check_in"`
	CheckOut *time.Time `json:"check_out,omitempty" db:"check_out"`

	// Latest lunch cycle; LunchMinutes accumulates across repeated cycles
	LunchStart   *time.Time `json:"lunch_start,omitempty" db:"lunch_start"`
	LunchEnd     *time.Time `json:"lunch_end,omitempty" db:"lunch_end"`
	LunchMinutes int        `json:"lunch_minutes" db:"lunch_minutes"`

	RegularHours float64 `json:"regular_hours" db:"regular_hours"`
	OTHours      float64 `json:"ot_hours" db:"ot_hours"`
	Status       string  `json:"status" db:"status"`
	LateMinutes  int     `json:"late_minutes" db:"late_minutes"`

	AbsenceReason *string `json:"absence_reason,omitempty" db:"absence_reason"`
	AbsenceNote   *string `json:"absence_note,omitempty" db:"absence_note"`
	MarkedBy      *string `json:"marked_by,omitempty" db:"marked_by"`

	Escalated   bool       `json:"escalated" db:"escalated"`
	EscalatedAt *time.Time `json:"escalated_at,omitempty" db:"escalated_at"`
	EscalatedBy *string    `json:"escalated_by,omitempty" db:"escalated_by"`

	// Audit trail of the geofence decision at each boundary event
	InsideGeofenceCheckIn  bool `json:"inside_geofence_check_in" db:"inside_geofence_check_in"`
	InsideGeofenceCheckOut bool `json:"inside_geofence_check_out" db:"inside_geofence_check_out"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OnLunch reports whether a lunch break is open (started, not yet ended).
func (r *AttendanceRecord) OnLunch() bool {
	return r.LunchStart != nil && r.LunchEnd == nil
}

// ClockedIn reports whether the worker is currently checked in (including
// while on lunch).
func (r *AttendanceRecord) ClockedIn() bool {
	return r.CheckIn != nil && r.CheckOut == nil
}

// ClockedOut reports whether the day is closed. Closed records are immutable.
func (r *AttendanceRecord) ClockedOut() bool {
	return r.CheckOut != nil
}
