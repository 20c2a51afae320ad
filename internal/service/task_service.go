package service

import (
	"time"

	"github.com/sitepulse/tracking-backend-go/internal/apperrors"
	"github.com/sitepulse/tracking-backend-go/internal/models"
)

// TaskService drives the per-worker task assignment state machine:
//
//	QUEUED -> IN_PROGRESS <-> PAUSED -> COMPLETED
//
// It enforces the one-active-task invariant: for a given worker and date,
// at most one assignment is IN_PROGRESS at any instant. Starting a new task
// while another is active is rejected; only resume auto-pauses the other
// task, because switching active work must be an explicit worker choice.
//
// Callers must hold the per-(worker, date) lock; geofence admissibility for
// start/resume is decided by the caller.
type TaskService struct {
	store TaskStore
}

// NewTaskService creates a new task service
func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store}
}

// Get loads an assignment and verifies ownership. Assignments of other
// workers are reported as not found.
func (s *TaskService) Get(employeeID, id string) (*models.TaskAssignment, error) {
	t, err := s.store.GetByID(id)
	if err != nil {
		return nil, err
	}
	if t.EmployeeID != employeeID {
		return nil, apperrors.NotFound(apperrors.CodeTaskNotFound, "task assignment not found: %s", id)
	}
	return t, nil
}

// Start transitions a QUEUED assignment to IN_PROGRESS.
//
// Mobile clients retry on flaky connectivity, so starting an assignment
// that is already IN_PROGRESS succeeds as a no-op. Starting while a
// different assignment is active always fails ACTIVE_TASK_EXISTS.
func (s *TaskService) Start(employeeID, id string, now time.Time) (*models.TaskAssignment, error) {
	t, err := s.Get(employeeID, id)
	if err != nil {
		return nil, err
	}

	switch t.Status {
	case models.TaskInProgress:
		return t, nil
	case models.TaskCompleted:
		return nil, apperrors.Conflict(apperrors.CodeTaskAlreadyTerminal, "task %s is completed", id)
	}

	active, err := s.store.FindActive(employeeID, t.Date)
	if err != nil {
		return nil, err
	}
	if active != nil && active.ID != t.ID {
		return nil, apperrors.Conflict(apperrors.CodeActiveTaskExists, "task %s is already in progress; pause it first", active.ID)
	}

	if t.Status != models.TaskQueued {
		return nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "task %s is %s; paused tasks are resumed, not started", id, t.Status)
	}

	ok, err := s.store.Start(id, employeeID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Concurrency("task %s changed concurrently; retry", id)
	}
	return s.store.GetByID(id)
}

// Pause transitions an IN_PROGRESS assignment to PAUSED. Needs no location
// proof. Pausing an already-paused assignment is a no-op.
func (s *TaskService) Pause(employeeID, id, reason string, now time.Time) (*models.TaskAssignment, error) {
	t, err := s.Get(employeeID, id)
	if err != nil {
		return nil, err
	}

	switch t.Status {
	case models.TaskPaused:
		return t, nil
	case models.TaskCompleted:
		return nil, apperrors.Conflict(apperrors.CodeTaskAlreadyTerminal, "task %s is completed", id)
	case models.TaskQueued:
		return nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "task %s has not been started", id)
	}

	ok, err := s.store.Pause(id, employeeID, reason, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Concurrency("task %s changed concurrently; retry", id)
	}
	return s.store.GetByID(id)
}

// Resume transitions a PAUSED assignment back to IN_PROGRESS. Any other
// assignment of the worker that is currently active is demoted to PAUSED in
// the same atomic write; its ID is returned so the client can refresh it.
func (s *TaskService) Resume(employeeID, id string, now time.Time) (*models.TaskAssignment, string, error) {
	t, err := s.Get(employeeID, id)
	if err != nil {
		return nil, "", err
	}

	switch t.Status {
	case models.TaskInProgress:
		return t, "", nil
	case models.TaskCompleted:
		return nil, "", apperrors.Conflict(apperrors.CodeTaskAlreadyTerminal, "task %s is completed", id)
	case models.TaskQueued:
		return nil, "", apperrors.Conflict(apperrors.CodeInvalidTransition, "task %s has not been started", id)
	}

	autoPaused, ok, err := s.store.ResumeExclusive(employeeID, t.Date, id, employeeID, now)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", apperrors.Concurrency("task %s changed concurrently; retry", id)
	}

	resumed, err := s.store.GetByID(id)
	if err != nil {
		return nil, "", err
	}
	return resumed, autoPaused, nil
}

// Complete finishes an IN_PROGRESS or PAUSED assignment. Terminal: no
// further transitions are accepted. Completing a completed assignment is a
// no-op.
func (s *TaskService) Complete(employeeID, id string, actualOutput float64, now time.Time) (*models.TaskAssignment, error) {
	if actualOutput < 0 {
		return nil, apperrors.Validation("actualOutput must be non-negative, got %v", actualOutput)
	}

	t, err := s.Get(employeeID, id)
	if err != nil {
		return nil, err
	}

	switch t.Status {
	case models.TaskCompleted:
		return t, nil
	case models.TaskQueued:
		return nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "task %s has not been started", id)
	}

	ok, err := s.store.Complete(id, employeeID, t.Status, actualOutput, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Concurrency("task %s changed concurrently; retry", id)
	}
	return s.store.GetByID(id)
}

// UpdateProgress recomputes today's progress against the daily target.
// Allowed only while the assignment is IN_PROGRESS.
func (s *TaskService) UpdateProgress(employeeID, id string, output float64, now time.Time) (*models.TaskAssignment, error) {
	if output < 0 {
		return nil, apperrors.Validation("output must be non-negative, got %v", output)
	}

	t, err := s.Get(employeeID, id)
	if err != nil {
		return nil, err
	}
	if t.Status == models.TaskCompleted {
		return nil, apperrors.Conflict(apperrors.CodeTaskAlreadyTerminal, "task %s is completed", id)
	}
	if t.Status != models.TaskInProgress {
		return nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "progress can only be reported while task %s is in progress", id)
	}

	progress := Progress(output, t.Target.Quantity)
	ok, err := s.store.UpdateProgress(id, progress, output)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Concurrency("task %s changed concurrently; retry", id)
	}
	return s.store.GetByID(id)
}

// ListForDay returns the worker's assignments for one date in advisory
// sequence order. The order is a UI hint only; transitions always address
// an explicit assignment id.
func (s *TaskService) ListForDay(employeeID, date string) ([]*models.TaskAssignment, error) {
	return s.store.ListForWorkerDate(employeeID, date)
}

// Detail returns an assignment with its transition history.
func (s *TaskService) Detail(employeeID, id string) (*models.TaskAssignmentDetail, error) {
	t, err := s.Get(employeeID, id)
	if err != nil {
		return nil, err
	}
	history, err := s.store.GetHistory(id)
	if err != nil {
		return nil, err
	}
	return &models.TaskAssignmentDetail{Assignment: t, History: history}, nil
}

// Progress converts output against a daily target quantity to a 0-100
// percentage. A zero target yields zero progress rather than dividing.
func Progress(output, targetQuantity float64) float64 {
	if targetQuantity <= 0 {
		return 0
	}
	p := output / targetQuantity * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
