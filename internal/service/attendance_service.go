package service

import (
	"fmt"
	"math"
	"time"

	"github.com/sitepulse/tracking-backend-go/internal/apperrors"
	"github.com/sitepulse/tracking-backend-go/internal/models"
)

// PolicyDefaults are the server-wide shift policy values used when a
// project row leaves a policy column unset.
type PolicyDefaults struct {
	ScheduledStart string // "HH:MM", UTC
	GraceMinutes   int
	RegularHours   float64
}

// AttendanceService drives the per-worker-per-day attendance session:
//
//	NOT_CLOCKED_IN -> CHECKED_IN -> (ON_LUNCH -> CHECKED_IN)* -> CHECKED_OUT
//
// Geofence admissibility is decided by the caller (TrackingService) before
// any method here runs; this service receives only the audit outcome.
// Callers must hold the per-(worker, date) lock.
type AttendanceService struct {
	store    AttendanceStore
	defaults PolicyDefaults
}

// NewAttendanceService creates a new attendance service
func NewAttendanceService(store AttendanceStore, defaults PolicyDefaults) *AttendanceService {
	return &AttendanceService{store: store, defaults: defaults}
}

// ClockIn opens the worker's attendance record for today.
func (s *AttendanceService) ClockIn(employeeID string, project *models.Project, insideGeofence bool, now time.Time) (*models.AttendanceRecord, error) {
	date := DateOf(now)

	existing, err := s.store.GetForDate(employeeID, project.ID, date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.CheckIn != nil {
			return nil, apperrors.Conflict(apperrors.CodeAlreadyClockedIn, "worker %s already clocked in on %s", employeeID, date)
		}
		// Day was administratively marked (e.g. ABSENT) without clock events
		return nil, apperrors.Conflict(apperrors.CodeAttendanceExists, "attendance for %s on %s already recorded as %s", employeeID, date, existing.Status)
	}

	lateMinutes, err := s.lateMinutes(project, now)
	if err != nil {
		return nil, err
	}

	status := models.AttendancePresent
	if lateMinutes > s.graceMinutes(project) {
		status = models.AttendanceLate
	}

	checkIn := now
	rec := &models.AttendanceRecord{
		EmployeeID:            employeeID,
		ProjectID:             project.ID,
		Date:                  date,
		CheckIn:               &checkIn,
		Status:                status,
		LateMinutes:           lateMinutes,
		InsideGeofenceCheckIn: insideGeofence,
	}
	if err := s.store.Create(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// LunchStart opens a lunch break.
func (s *AttendanceService) LunchStart(employeeID, projectID string, now time.Time) (*models.AttendanceRecord, error) {
	rec, err := s.openRecord(employeeID, projectID, now)
	if err != nil {
		return nil, err
	}
	if rec.OnLunch() {
		return nil, apperrors.Conflict(apperrors.CodeAlreadyOnLunch, "worker %s is already on lunch", employeeID)
	}

	start := now
	rec.LunchStart = &start
	rec.LunchEnd = nil
	if err := s.store.Update(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// LunchEnd closes the open lunch break and accumulates its duration. The
// accumulated minutes are informational until clock-out, where they are
// subtracted from total worked time.
func (s *AttendanceService) LunchEnd(employeeID, projectID string, now time.Time) (*models.AttendanceRecord, error) {
	rec, err := s.openRecord(employeeID, projectID, now)
	if err != nil {
		return nil, err
	}
	if !rec.OnLunch() {
		return nil, apperrors.Conflict(apperrors.CodeNotOnLunch, "worker %s has no open lunch break", employeeID)
	}

	end := now
	rec.LunchMinutes += wholeMinutes(now.Sub(*rec.LunchStart))
	rec.LunchEnd = &end
	if err := s.store.Update(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ClockOut closes the day and computes the regular/overtime split. The
// record is immutable afterwards; a new day creates a new record.
func (s *AttendanceService) ClockOut(employeeID string, project *models.Project, insideGeofence bool, now time.Time) (*models.AttendanceRecord, error) {
	rec, err := s.openRecord(employeeID, project.ID, now)
	if err != nil {
		return nil, err
	}
	if rec.OnLunch() {
		return nil, apperrors.Conflict(apperrors.CodeLunchInProgress, "worker %s must end lunch before clocking out", employeeID)
	}

	totalMinutes := wholeMinutes(now.Sub(*rec.CheckIn)) - rec.LunchMinutes
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	thresholdMinutes := int(math.Round(s.regularHours(project) * 60))

	regularMinutes := totalMinutes
	otMinutes := 0
	if totalMinutes > thresholdMinutes {
		regularMinutes = thresholdMinutes
		otMinutes = totalMinutes - thresholdMinutes
	}

	checkOut := now
	rec.CheckOut = &checkOut
	rec.RegularHours = roundHours(regularMinutes)
	rec.OTHours = roundHours(otMinutes)
	rec.InsideGeofenceCheckOut = insideGeofence
	if err := s.store.Update(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// MarkAbsence records an administrative absence for a day with no clock
// events. Independent of the geofence.
func (s *AttendanceService) MarkAbsence(employeeID, projectID, reason, note, markedBy string, now time.Time) (*models.AttendanceRecord, error) {
	date := DateOf(now)

	existing, err := s.store.GetForDate(employeeID, projectID, date)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict(apperrors.CodeAttendanceExists, "attendance for %s on %s already exists", employeeID, date)
	}

	rec := &models.AttendanceRecord{
		EmployeeID:    employeeID,
		ProjectID:     projectID,
		Date:          date,
		Status:        models.AttendanceAbsent,
		AbsenceReason: &reason,
		MarkedBy:      &markedBy,
	}
	if note != "" {
		rec.AbsenceNote = &note
	}
	if err := s.store.Create(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Escalate flags the worker's day for supervisor attention. Idempotent:
// re-escalating an escalated day is a no-op.
func (s *AttendanceService) Escalate(employeeID, projectID, markedBy string, now time.Time) (*models.AttendanceRecord, error) {
	date := DateOf(now)

	rec, err := s.store.GetForDate(employeeID, projectID, date)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperrors.NotFound(apperrors.CodeAttendanceNotFound, "no attendance record for %s on %s", employeeID, date)
	}
	if rec.Escalated {
		return rec, nil
	}

	at := now
	rec.Escalated = true
	rec.EscalatedAt = &at
	rec.EscalatedBy = &markedBy
	if err := s.store.MarkEscalated(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetForDate returns the worker's record for a date, or a not-found error.
func (s *AttendanceService) GetForDate(employeeID, projectID, date string) (*models.AttendanceRecord, error) {
	rec, err := s.store.GetForDate(employeeID, projectID, date)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperrors.NotFound(apperrors.CodeAttendanceNotFound, "no attendance record for %s on %s", employeeID, date)
	}
	return rec, nil
}

// openRecord loads today's record and verifies it is open for mutation.
func (s *AttendanceService) openRecord(employeeID, projectID string, now time.Time) (*models.AttendanceRecord, error) {
	rec, err := s.store.GetForDate(employeeID, projectID, DateOf(now))
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.CheckIn == nil {
		return nil, apperrors.Conflict(apperrors.CodeNotCheckedIn, "worker %s is not clocked in", employeeID)
	}
	if rec.ClockedOut() {
		return nil, apperrors.Conflict(apperrors.CodeAlreadyClockedOut, "worker %s already clocked out", employeeID)
	}
	return rec, nil
}

func (s *AttendanceService) scheduledStart(p *models.Project) string {
	if p.Policy.ScheduledStart != "" {
		return p.Policy.ScheduledStart
	}
	return s.defaults.ScheduledStart
}

func (s *AttendanceService) graceMinutes(p *models.Project) int {
	if p.Policy.GraceMinutes > 0 {
		return p.Policy.GraceMinutes
	}
	return s.defaults.GraceMinutes
}

func (s *AttendanceService) regularHours(p *models.Project) float64 {
	if p.Policy.RegularHours > 0 {
		return p.Policy.RegularHours
	}
	return s.defaults.RegularHours
}

func (s *AttendanceService) lateMinutes(p *models.Project, now time.Time) (int, error) {
	start := s.scheduledStart(p)
	parsed, err := time.Parse("15:04", start)
	if err != nil {
		return 0, fmt.Errorf("invalid scheduled start %q for project %s: %w", start, p.ID, err)
	}

	utc := now.UTC()
	scheduled := time.Date(utc.Year(), utc.Month(), utc.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)

	late := wholeMinutes(utc.Sub(scheduled))
	if late < 0 {
		late = 0
	}
	return late, nil
}

// wholeMinutes truncates a duration to whole minutes; all attendance math
// works in whole minutes before converting to hours.
func wholeMinutes(d time.Duration) int {
	return int(d / time.Minute)
}

// roundHours converts minutes to hours with two-decimal rounding for storage.
func roundHours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}
