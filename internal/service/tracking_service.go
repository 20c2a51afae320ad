package service

import (
	"log"
	"math"

	"github.com/sitepulse/tracking-backend-go/internal/apperrors"
	"github.com/sitepulse/tracking-backend-go/internal/geofence"
	"github.com/sitepulse/tracking-backend-go/internal/models"
	"github.com/sitepulse/tracking-backend-go/internal/worklock"
)

// TrackingService is the entry point for every external tracking operation.
// It validates input, gates location-bound transitions on the geofence,
// and serializes each worker's mutations through the per-(worker, date)
// lock before delegating to the attendance or task state machine.
//
// All validation runs before the lock is taken; the critical section covers
// only the read-modify-write against the stores.
type TrackingService struct {
	projects   ProjectStore
	attendance *AttendanceService
	tasks      *TaskService
	locks      *worklock.Registry
	clock      Clock
}

// NewTrackingService creates a new tracking service
func NewTrackingService(projects ProjectStore, attendance *AttendanceService, tasks *TaskService, locks *worklock.Registry, clock Clock) *TrackingService {
	if clock == nil {
		clock = SystemClock()
	}
	return &TrackingService{
		projects:   projects,
		attendance: attendance,
		tasks:      tasks,
		locks:      locks,
		clock:      clock,
	}
}

// TaskResult is the outcome of a task transition, including the assignment
// auto-paused as a side effect of a resume (empty otherwise).
type TaskResult struct {
	Assignment *models.TaskAssignment `json:"assignment"`
	AutoPaused string                 `json:"auto_paused,omitempty"`
}

// ClockIn handles a worker's clock-in at the given position.
func (s *TrackingService) ClockIn(workerID, projectID string, coord models.Coordinate, accuracy float64) (*models.AttendanceRecord, error) {
	project, res, err := s.admit(workerID, projectID, coord, accuracy)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	release, err := s.lock(workerID, DateOf(now))
	if err != nil {
		return nil, err
	}
	defer release()

	return s.attendance.ClockIn(workerID, project, res.InsideGeofence, now)
}

// ClockOut handles a worker's clock-out at the given position.
func (s *TrackingService) ClockOut(workerID, projectID string, coord models.Coordinate, accuracy float64) (*models.AttendanceRecord, error) {
	project, res, err := s.admit(workerID, projectID, coord, accuracy)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	release, err := s.lock(workerID, DateOf(now))
	if err != nil {
		return nil, err
	}
	defer release()

	return s.attendance.ClockOut(workerID, project, res.InsideGeofence, now)
}

// LunchStart opens a lunch break at the given position.
func (s *TrackingService) LunchStart(workerID, projectID string, coord models.Coordinate, accuracy float64) (*models.AttendanceRecord, error) {
	_, _, err := s.admit(workerID, projectID, coord, accuracy)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	release, err := s.lock(workerID, DateOf(now))
	if err != nil {
		return nil, err
	}
	defer release()

	return s.attendance.LunchStart(workerID, projectID, now)
}

// LunchEnd closes the open lunch break at the given position.
func (s *TrackingService) LunchEnd(workerID, projectID string, coord models.Coordinate, accuracy float64) (*models.AttendanceRecord, error) {
	_, _, err := s.admit(workerID, projectID, coord, accuracy)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	release, err := s.lock(workerID, DateOf(now))
	if err != nil {
		return nil, err
	}
	defer release()

	return s.attendance.LunchEnd(workerID, projectID, now)
}

// MarkAbsence records an administrative absence. No geofence involved.
func (s *TrackingService) MarkAbsence(workerID, projectID, reason, note, markedBy string) (*models.AttendanceRecord, error) {
	if workerID == "" || projectID == "" {
		return nil, apperrors.Validation("workerId and projectId are required")
	}
	if reason == "" {
		return nil, apperrors.Validation("absence reason is required")
	}
	if _, err := s.projects.GetByID(projectID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	release, err := s.lock(workerID, DateOf(now))
	if err != nil {
		return nil, err
	}
	defer release()

	return s.attendance.MarkAbsence(workerID, projectID, reason, note, markedBy, now)
}

// Escalate flags a worker's day for supervisor attention. Idempotent.
func (s *TrackingService) Escalate(workerID, projectID, markedBy string) (*models.AttendanceRecord, error) {
	if workerID == "" || projectID == "" {
		return nil, apperrors.Validation("workerId and projectId are required")
	}
	if _, err := s.projects.GetByID(projectID); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	release, err := s.lock(workerID, DateOf(now))
	if err != nil {
		return nil, err
	}
	defer release()

	return s.attendance.Escalate(workerID, projectID, markedBy, now)
}

// AttendanceToday returns the worker's record for the current date.
func (s *TrackingService) AttendanceToday(workerID, projectID string) (*models.AttendanceRecord, error) {
	if workerID == "" || projectID == "" {
		return nil, apperrors.Validation("workerId and projectId are required")
	}
	return s.attendance.GetForDate(workerID, projectID, DateOf(s.clock.Now()))
}

// StartTask starts a QUEUED assignment, gated on the assignment's project
// geofence.
func (s *TrackingService) StartTask(workerID, taskID string, coord models.Coordinate, accuracy float64) (*TaskResult, error) {
	t, err := s.admitTask(workerID, taskID, coord, accuracy)
	if err != nil {
		return nil, err
	}

	release, err := s.lock(workerID, t.Date)
	if err != nil {
		return nil, err
	}
	defer release()

	started, err := s.tasks.Start(workerID, taskID, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &TaskResult{Assignment: started}, nil
}

// PauseTask pauses an active assignment. Pausing never needs location proof.
func (s *TrackingService) PauseTask(workerID, taskID, reason string) (*TaskResult, error) {
	if workerID == "" {
		return nil, apperrors.Validation("workerId is required")
	}
	t, err := s.tasks.Get(workerID, taskID)
	if err != nil {
		return nil, err
	}

	release, err := s.lock(workerID, t.Date)
	if err != nil {
		return nil, err
	}
	defer release()

	paused, err := s.tasks.Pause(workerID, taskID, reason, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &TaskResult{Assignment: paused}, nil
}

// ResumeTask resumes a PAUSED assignment, auto-pausing any other active
// assignment of the same worker in the same atomic update.
func (s *TrackingService) ResumeTask(workerID, taskID string, coord models.Coordinate, accuracy float64) (*TaskResult, error) {
	t, err := s.admitTask(workerID, taskID, coord, accuracy)
	if err != nil {
		return nil, err
	}

	release, err := s.lock(workerID, t.Date)
	if err != nil {
		return nil, err
	}
	defer release()

	resumed, autoPaused, err := s.tasks.Resume(workerID, taskID, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &TaskResult{Assignment: resumed, AutoPaused: autoPaused}, nil
}

// CompleteTask finishes an assignment with its actual output.
func (s *TrackingService) CompleteTask(workerID, taskID string, actualOutput float64) (*TaskResult, error) {
	if workerID == "" {
		return nil, apperrors.Validation("workerId is required")
	}
	t, err := s.tasks.Get(workerID, taskID)
	if err != nil {
		return nil, err
	}

	release, err := s.lock(workerID, t.Date)
	if err != nil {
		return nil, err
	}
	defer release()

	completed, err := s.tasks.Complete(workerID, taskID, actualOutput, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &TaskResult{Assignment: completed}, nil
}

// UpdateTaskProgress reports output against the daily target.
func (s *TrackingService) UpdateTaskProgress(workerID, taskID string, output float64) (*TaskResult, error) {
	if workerID == "" {
		return nil, apperrors.Validation("workerId is required")
	}
	t, err := s.tasks.Get(workerID, taskID)
	if err != nil {
		return nil, err
	}

	release, err := s.lock(workerID, t.Date)
	if err != nil {
		return nil, err
	}
	defer release()

	updated, err := s.tasks.UpdateProgress(workerID, taskID, output, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &TaskResult{Assignment: updated}, nil
}

// TasksForDay lists a worker's assignments for a date (today when empty).
func (s *TrackingService) TasksForDay(workerID, date string) ([]*models.TaskAssignment, error) {
	if workerID == "" {
		return nil, apperrors.Validation("workerId is required")
	}
	if date == "" {
		date = DateOf(s.clock.Now())
	}
	return s.tasks.ListForDay(workerID, date)
}

// TaskDetail returns one assignment with its history.
func (s *TrackingService) TaskDetail(workerID, taskID string) (*models.TaskAssignmentDetail, error) {
	if workerID == "" {
		return nil, apperrors.Validation("workerId is required")
	}
	return s.tasks.Detail(workerID, taskID)
}

// admit validates the request position and checks it against the project
// geofence. Pure computation; runs before any lock or transaction.
func (s *TrackingService) admit(workerID, projectID string, coord models.Coordinate, accuracy float64) (*models.Project, geofence.Result, error) {
	if err := validateLocation(workerID, coord, accuracy); err != nil {
		return nil, geofence.Result{}, err
	}
	if projectID == "" {
		return nil, geofence.Result{}, apperrors.Validation("projectId is required")
	}

	project, err := s.projects.GetByID(projectID)
	if err != nil {
		return nil, geofence.Result{}, err
	}

	res := geofence.Validate(coord, project.Geofence, accuracy)
	if err := gate(project, res, accuracy); err != nil {
		return nil, res, err
	}
	return project, res, nil
}

// admitTask loads the worker's assignment and gates on its project's fence.
func (s *TrackingService) admitTask(workerID, taskID string, coord models.Coordinate, accuracy float64) (*models.TaskAssignment, error) {
	if err := validateLocation(workerID, coord, accuracy); err != nil {
		return nil, err
	}

	t, err := s.tasks.Get(workerID, taskID)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(t.ProjectID)
	if err != nil {
		return nil, err
	}

	res := geofence.Validate(coord, project.Geofence, accuracy)
	if err := gate(project, res, accuracy); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TrackingService) lock(workerID, date string) (func(), error) {
	release, ok := s.locks.Acquire(workerID, date)
	if !ok {
		return nil, apperrors.Concurrency("worker %s has another update in flight; retry", workerID)
	}
	return release, nil
}

func gate(project *models.Project, res geofence.Result, accuracy float64) error {
	switch res.Reason {
	case geofence.ReasonConfigInvalid:
		return apperrors.Policy(apperrors.CodeConfigInvalid, "project %s has an invalid geofence radius", project.ID)
	case geofence.ReasonAccuracyTooLow:
		return apperrors.Policy(apperrors.CodeAccuracyTooLow, "GPS accuracy %.0fm exceeds the required %.0fm", accuracy, project.Geofence.RequiredAccuracyMeters)
	case geofence.ReasonOutside:
		return apperrors.Policy(apperrors.CodeOutsideGeofence, "position is %.0fm from site center, limit is %.0fm", res.DistanceMeters, project.Geofence.EffectiveRadius())
	}

	// Advisory accuracy: logged, never blocking, when strict mode is off
	if !project.Geofence.StrictMode && project.Geofence.RequiredAccuracyMeters > 0 && accuracy > project.Geofence.RequiredAccuracyMeters {
		log.Printf("low GPS accuracy %.0fm accepted for project %s (strict mode off)", accuracy, project.ID)
	}
	return nil
}

func validateLocation(workerID string, coord models.Coordinate, accuracy float64) error {
	if workerID == "" {
		return apperrors.Validation("workerId is required")
	}
	if math.IsNaN(coord.Latitude) || coord.Latitude < -90 || coord.Latitude > 90 {
		return apperrors.Validation("latitude %v is out of range", coord.Latitude)
	}
	if math.IsNaN(coord.Longitude) || coord.Longitude < -180 || coord.Longitude > 180 {
		return apperrors.Validation("longitude %v is out of range", coord.Longitude)
	}
	if math.IsNaN(accuracy) || accuracy < 0 {
		return apperrors.Validation("accuracy must be non-negative, got %v", accuracy)
	}
	return nil
}
