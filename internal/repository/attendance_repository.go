package repository

import (
	"database/sql"
	"fmt"

	"github.com/sitepulse/tracking-backend-go/internal/apperrors"
	"github.com/sitepulse/tracking-backend-go/internal/models"
)

// AttendanceRepository handles database operations for attendance records
type AttendanceRepository struct {
	db *sql.DB
}

// NewAttendanceRepository creates a new attendance repository
func NewAttendanceRepository(db *sql.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `
	id, employee_id, project_id, date, check_in, check_out,
	lunch_start, lunch_end, lunch_minutes, regular_hours, ot_hours,
	status, late_minutes, absence_reason, absence_note, marked_by,
	escalated, escalated_at, escalated_by,
	inside_geofence_check_in, inside_geofence_check_out,
	created_at, updated_at
`

func scanAttendance(row interface{ Scan(...interface{}) error }) (*models.AttendanceRecord, error) {
	rec := &models.AttendanceRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.EmployeeID,
		&rec.ProjectID,
		&rec.Date,
		&rec.CheckIn,
		&rec.CheckOut,
		&rec.LunchStart,
		&rec.LunchEnd,
		&rec.LunchMinutes,
		&rec.RegularHours,
		&rec.OTHours,
		&rec.Status,
		&rec.LateMinutes,
		&rec.AbsenceReason,
		&rec.AbsenceNote,
		&rec.MarkedBy,
		&rec.Escalated,
		&rec.EscalatedAt,
		&rec.EscalatedBy,
		&rec.InsideGeofenceCheckIn,
		&rec.InsideGeofenceCheckOut,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetForDate retrieves the record for one (employee, project, date), or nil
// when the worker has no record yet for that day.
func (r *AttendanceRepository) GetForDate(employeeID, projectID, date string) (*models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records
		WHERE employee_id = ? AND project_id = ? AND date = ?`

	rec, err := scanAttendance(r.db.QueryRow(query, employeeID, projectID, date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return rec, nil
}

// Create inserts a new attendance record
func (r *AttendanceRepository) Create(rec *models.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (
			employee_id, project_id, date, check_in, status, late_minutes,
			absence_reason, absence_note, marked_by, regular_hours, ot_hours,
			inside_geofence_check_in
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		rec.EmployeeID,
		rec.ProjectID,
		rec.Date,
		rec.CheckIn,
		rec.Status,
		rec.LateMinutes,
		rec.AbsenceReason,
		rec.AbsenceNote,
		rec.MarkedBy,
		rec.RegularHours,
		rec.OTHours,
		rec.InsideGeofenceCheckIn,
	)
	if err != nil {
		return fmt.Errorf("failed to create attendance record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// Update persists lunch and clock-out mutations. The guard on check_out
// keeps closed records immutable even if a stale caller slips past the
// service-level state checks.
func (r *AttendanceRepository) Update(rec *models.AttendanceRecord) error {
	query := `
		UPDATE attendance_records
		SET check_out = ?, lunch_start = ?, lunch_end = ?, lunch_minutes = ?,
			regular_hours = ?, ot_hours = ?, status = ?,
			inside_geofence_check_out = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND check_out IS NULL
	`

	result, err := r.db.Exec(query,
		rec.CheckOut,
		rec.LunchStart,
		rec.LunchEnd,
		rec.LunchMinutes,
		rec.RegularHours,
		rec.OTHours,
		rec.Status,
		rec.InsideGeofenceCheckOut,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.Conflict(apperrors.CodeAlreadyClockedOut, "attendance record %d is closed", rec.ID)
	}
	return nil
}

// MarkEscalated sets the escalation flag. Escalation is an administrative
// audit flag and is allowed on closed records.
func (r *AttendanceRepository) MarkEscalated(rec *models.AttendanceRecord) error {
	query := `
		UPDATE attendance_records
		SET escalated = 1, escalated_at = ?, escalated_by = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.Exec(query, rec.EscalatedAt, rec.EscalatedBy, rec.ID); err != nil {
		return fmt.Errorf("failed to escalate attendance record: %w", err)
	}
	return nil
}
