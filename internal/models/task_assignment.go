package models

import "time"

// TaskAssignment status constants
const (
	TaskQueued     = "QUEUED"
	TaskInProgress = "IN_PROGRESS"
	TaskPaused     = "PAUSED"
	TaskCompleted  = "COMPLETED"
)

// DailyTarget is the quantity a worker is expected to produce on a task in
// one day (e.g. 25 m² of plastering).
type DailyTarget struct {
	Quantity    float64 `json:"quantity" db:"target_quantity"`
	Unit        string  `json:"unit" db:"target_unit"`
	Description string  `json:"description" db:"description"`
}

// TaskAssignment is one worker's assignment to one task for one date.
// Invariant: at most one assignment per (employee, date) may be
// IN_PROGRESS at any instant.
type TaskAssignment struct {
	ID         string `json:"id" db:"id"`
	EmployeeID string `json:"employee_id" db:"employee_id"`
	ProjectID  string `json:"project_id" db:"project_id"`
	Date       string `json:"date" db:"date"`         // YYYY-MM-DD, UTC
	Sequence   int    `json:"sequence" db:"sequence"` // advisory UI ordering only
	Status     string `json:"status" db:"status"`

	Target        DailyTarget `json:"target"`
	ProgressToday float64     `json:"progress_today" db:"progress_today"` // 0-100
	ActualOutput  float64     `json:"actual_output" db:"actual_output"`

	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	PausedAt    *time.Time `json:"paused_at,omitempty" db:"paused_at"`
	ResumedAt   *time.Time `json:"resumed_at,omitempty" db:"resumed_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Terminal reports whether the assignment accepts no further transitions.
func (t *TaskAssignment) Terminal() bool {
	return t.Status == TaskCompleted
}

// TaskHistoryEntry is one append-only record of a status transition.
type TaskHistoryEntry struct {
	ID           string    `json:"id" db:"id"`
	AssignmentID string    `json:"assignment_id" db:"assignment_id"`
	FromStatus   string    `json:"from_status" db:"from_status"`
	ToStatus     string    `json:"to_status" db:"to_status"`
	Actor        string    `json:"actor" db:"actor"`
	Reason       string    `json:"reason,omitempty" db:"reason"`
	AutoPausedBy string    `json:"auto_paused_by,omitempty" db:"auto_paused_by"` // assignment id whose resume demoted this one
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TaskAssignmentDetail bundles an assignment with its transition history
// for the single-assignment read endpoint.
type TaskAssignmentDetail struct {
	Assignment *TaskAssignment    `json:"assignment"`
	History    []TaskHistoryEntry `json:"history"`
}
