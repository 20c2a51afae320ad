package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/sitepulse/tracking-backend-go/internal/apperrors"
	"github.com/sitepulse/tracking-backend-go/internal/models"
)

// fixedClock returns a settable instant.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{t: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// fakeProjectStore serves projects from a map.
type fakeProjectStore struct {
	projects map[string]*models.Project
}

func (f *fakeProjectStore) GetByID(id string) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.CodeProjectNotFound, "project not found: %s", id)
	}
	cp := *p
	return &cp, nil
}

// fakeAttendanceStore mirrors the SQL repository's semantics in memory,
// including the closed-record immutability guard.
type fakeAttendanceStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]*models.AttendanceRecord
}

func newFakeAttendanceStore() *fakeAttendanceStore {
	return &fakeAttendanceStore{records: make(map[string]*models.AttendanceRecord)}
}

func attKey(employeeID, projectID, date string) string {
	return employeeID + "|" + projectID + "|" + date
}

func (f *fakeAttendanceStore) GetForDate(employeeID, projectID, date string) (*models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[attKey(employeeID, projectID, date)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeAttendanceStore) Create(rec *models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := attKey(rec.EmployeeID, rec.ProjectID, rec.Date)
	if _, ok := f.records[key]; ok {
		return fmt.Errorf("duplicate attendance record for %s", key)
	}
	f.nextID++
	rec.ID = f.nextID
	cp := *rec
	f.records[key] = &cp
	return nil
}

func (f *fakeAttendanceStore) Update(rec *models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := attKey(rec.EmployeeID, rec.ProjectID, rec.Date)
	stored, ok := f.records[key]
	if !ok {
		return fmt.Errorf("no attendance record for %s", key)
	}
	if stored.CheckOut != nil {
		return apperrors.Conflict(apperrors.CodeAlreadyClockedOut, "attendance record %d is closed", stored.ID)
	}
	cp := *rec
	f.records[key] = &cp
	return nil
}

func (f *fakeAttendanceStore) MarkEscalated(rec *models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := attKey(rec.EmployeeID, rec.ProjectID, rec.Date)
	stored, ok := f.records[key]
	if !ok {
		return fmt.Errorf("no attendance record for %s", key)
	}
	stored.Escalated = true
	stored.EscalatedAt = rec.EscalatedAt
	stored.EscalatedBy = rec.EscalatedBy
	return nil
}

// fakeTaskStore mirrors the SQL repository: conditional transitions that
// report ok=false when the precondition no longer holds, and an atomic
// ResumeExclusive. It also watches the one-active-task invariant after
// every mutation so races surface as recorded violations.
type fakeTaskStore struct {
	mu         sync.Mutex
	tasks      map[string]*models.TaskAssignment
	history    []models.TaskHistoryEntry
	violations int
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*models.TaskAssignment)}
}

func (f *fakeTaskStore) put(t *models.TaskAssignment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.tasks[t.ID] = &cp
}

func (f *fakeTaskStore) checkInvariant() {
	active := make(map[string]int)
	for _, t := range f.tasks {
		if t.Status == models.TaskInProgress {
			active[t.EmployeeID+"|"+t.Date]++
		}
	}
	for _, n := range active {
		if n > 1 {
			f.violations++
		}
	}
}

func (f *fakeTaskStore) GetByID(id string) (*models.TaskAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, apperrors.NotFound(apperrors.CodeTaskNotFound, "task assignment not found: %s", id)
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskStore) ListForWorkerDate(employeeID, date string) ([]*models.TaskAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TaskAssignment
	for _, t := range f.tasks {
		if t.EmployeeID == employeeID && t.Date == date {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) FindActive(employeeID, date string) (*models.TaskAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.EmployeeID == employeeID && t.Date == date && t.Status == models.TaskInProgress {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTaskStore) Start(id, actor string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || t.Status != models.TaskQueued {
		return false, nil
	}
	t.Status = models.TaskInProgress
	t.StartedAt = &now
	f.appendHistory(id, models.TaskQueued, models.TaskInProgress, actor, "", "", now)
	f.checkInvariant()
	return true, nil
}

func (f *fakeTaskStore) Pause(id, actor, reason string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || t.Status != models.TaskInProgress {
		return false, nil
	}
	t.Status = models.TaskPaused
	t.PausedAt = &now
	f.appendHistory(id, models.TaskInProgress, models.TaskPaused, actor, reason, "", now)
	f.checkInvariant()
	return true, nil
}

func (f *fakeTaskStore) ResumeExclusive(employeeID, date, id, actor string, now time.Time) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	target, ok := f.tasks[id]
	if !ok || target.Status != models.TaskPaused {
		return "", false, nil
	}

	autoPaused := ""
	for _, other := range f.tasks {
		if other.ID != id && other.EmployeeID == employeeID && other.Date == date && other.Status == models.TaskInProgress {
			other.Status = models.TaskPaused
			other.PausedAt = &now
			autoPaused = other.ID
			f.appendHistory(other.ID, models.TaskInProgress, models.TaskPaused, actor, "", id, now)
			break
		}
	}

	target.Status = models.TaskInProgress
	target.ResumedAt = &now
	f.appendHistory(id, models.TaskPaused, models.TaskInProgress, actor, "", "", now)
	f.checkInvariant()
	return autoPaused, true, nil
}

func (f *fakeTaskStore) Complete(id, actor, fromStatus string, actualOutput float64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || (t.Status != models.TaskInProgress && t.Status != models.TaskPaused) {
		return false, nil
	}
	t.Status = models.TaskCompleted
	t.CompletedAt = &now
	t.ActualOutput = actualOutput
	t.ProgressToday = 100
	f.appendHistory(id, fromStatus, models.TaskCompleted, actor, "", "", now)
	return true, nil
}

func (f *fakeTaskStore) UpdateProgress(id string, progress, actualOutput float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || t.Status != models.TaskInProgress {
		return false, nil
	}
	t.ProgressToday = progress
	t.ActualOutput = actualOutput
	return true, nil
}

func (f *fakeTaskStore) GetHistory(assignmentID string) ([]models.TaskHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TaskHistoryEntry
	for _, e := range f.history {
		if e.AssignmentID == assignmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) appendHistory(id, from, to, actor, reason, autoPausedBy string, now time.Time) {
	f.history = append(f.history, models.TaskHistoryEntry{
		ID:           fmt.Sprintf("h%d", len(f.history)+1),
		AssignmentID: id,
		FromStatus:   from,
		ToStatus:     to,
		Actor:        actor,
		Reason:       reason,
		AutoPausedBy: autoPausedBy,
		CreatedAt:    now,
	})
}
