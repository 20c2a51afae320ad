package service

import (
	"time"

	"github.com/sitepulse/tracking-backend-go/internal/models"
)

// Clock supplies the current time. Injected so state-machine behavior is
// testable at fixed instants.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }

// ProjectStore supplies project rows with geofence config and shift policy.
type ProjectStore interface {
	GetByID(id string) (*models.Project, error)
}

// AttendanceStore persists attendance records.
type AttendanceStore interface {
	GetForDate(employeeID, projectID, date string) (*models.AttendanceRecord, error)
	Create(rec *models.AttendanceRecord) error
	Update(rec *models.AttendanceRecord) error
	MarkEscalated(rec *models.AttendanceRecord) error
}

// TaskStore persists task assignments. Transition methods are conditional
// on the expected current status and report (false, nil) when the
// precondition no longer held at write time.
type TaskStore interface {
	GetByID(id string) (*models.TaskAssignment, error)
	ListForWorkerDate(employeeID, date string) ([]*models.TaskAssignment, error)
	FindActive(employeeID, date string) (*models.TaskAssignment, error)
	Start(id, actor string, now time.Time) (bool, error)
	Pause(id, actor, reason string, now time.Time) (bool, error)
	ResumeExclusive(employeeID, date, id, actor string, now time.Time) (autoPaused string, ok bool, err error)
	Complete(id, actor, fromStatus string, actualOutput float64, now time.Time) (bool, error)
	UpdateProgress(id string, progress, actualOutput float64) (bool, error)
	GetHistory(assignmentID string) ([]models.TaskHistoryEntry, error)
}

// DateOf formats the calendar-date key used to scope daily records and locks.
func DateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
