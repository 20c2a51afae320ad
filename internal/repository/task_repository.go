package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitepulse/tracking-backend-go/internal/apperrors"
	"github.com/sitepulse/tracking-backend-go/internal/database"
	"github.com/sitepulse/tracking-backend-go/internal/models"
)

// TaskRepository handles database operations for task assignments and their
// transition history.
//
// Every status change is written as a conditional UPDATE guarded by the
// expected current status, so a transition that lost a race affects zero
// rows and is reported to the caller instead of clobbering newer state.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `
	id, employee_id, project_id, date, sequence, status,
	target_quantity, target_unit, description, progress_today, actual_output,
	started_at, paused_at, resumed_at, completed_at, created_at, updated_at
`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.TaskAssignment, error) {
	t := &models.TaskAssignment{}
	err := row.Scan(
		&t.ID,
		&t.EmployeeID,
		&t.ProjectID,
		&t.Date,
		&t.Sequence,
		&t.Status,
		&t.Target.Quantity,
		&t.Target.Unit,
		&t.Target.Description,
		&t.ProgressToday,
		&t.ActualOutput,
		&t.StartedAt,
		&t.PausedAt,
		&t.ResumedAt,
		&t.CompletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new task assignment (supervisor assignment path, seeding, tests)
func (r *TaskRepository) Create(t *models.TaskAssignment) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = models.TaskQueued
	}

	query := `
		INSERT INTO task_assignments (
			id, employee_id, project_id, date, sequence, status,
			target_quantity, target_unit, description, progress_today, actual_output
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		t.ID,
		t.EmployeeID,
		t.ProjectID,
		t.Date,
		t.Sequence,
		t.Status,
		t.Target.Quantity,
		t.Target.Unit,
		t.Target.Description,
		t.ProgressToday,
		t.ActualOutput,
	)
	if err != nil {
		return fmt.Errorf("failed to create task assignment: %w", err)
	}
	return nil
}

// GetByID retrieves a task assignment by ID
func (r *TaskRepository) GetByID(id string) (*models.TaskAssignment, error) {
	query := `SELECT ` + taskColumns + ` FROM task_assignments WHERE id = ?`

	t, err := scanTask(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound(apperrors.CodeTaskNotFound, "task assignment not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task assignment: %w", err)
	}
	return t, nil
}

// ListForWorkerDate retrieves a worker's assignments for one date, ordered
// by the advisory sequence.
func (r *TaskRepository) ListForWorkerDate(employeeID, date string) ([]*models.TaskAssignment, error) {
	query := `SELECT ` + taskColumns + ` FROM task_assignments
		WHERE employee_id = ? AND date = ?
		ORDER BY sequence ASC, created_at ASC`

	rows, err := r.db.Query(query, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list task assignments: %w", err)
	}
	defer rows.Close()

	var tasks []*models.TaskAssignment
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task assignment: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// FindActive returns the worker's IN_PROGRESS assignment for the date, or
// nil when none is active.
func (r *TaskRepository) FindActive(employeeID, date string) (*models.TaskAssignment, error) {
	query := `SELECT ` + taskColumns + ` FROM task_assignments
		WHERE employee_id = ? AND date = ? AND status = ?`

	t, err := scanTask(r.db.QueryRow(query, employeeID, date, models.TaskInProgress))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active assignment: %w", err)
	}
	return t, nil
}

// Start transitions QUEUED -> IN_PROGRESS. Returns false when the
// assignment was no longer QUEUED at write time.
func (r *TaskRepository) Start(id, actor string, now time.Time) (bool, error) {
	ok := false
	err := database.TransactionOn(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE task_assignments
			SET status = ?, started_at = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND status = ?`,
			models.TaskInProgress, now, id, models.TaskQueued,
		)
		if err != nil {
			return fmt.Errorf("failed to start assignment: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		ok = true
		return appendHistoryTx(tx, models.TaskHistoryEntry{
			AssignmentID: id,
			FromStatus:   models.TaskQueued,
			ToStatus:     models.TaskInProgress,
			Actor:        actor,
		}, now)
	})
	return ok, err
}

// Pause transitions IN_PROGRESS -> PAUSED. Returns false when the
// assignment was not IN_PROGRESS at write time.
func (r *TaskRepository) Pause(id, actor, reason string, now time.Time) (bool, error) {
	ok := false
	err := database.TransactionOn(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE task_assignments
			SET status = ?, paused_at = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND status = ?`,
			models.TaskPaused, now, id, models.TaskInProgress,
		)
		if err != nil {
			return fmt.Errorf("failed to pause assignment: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		ok = true
		return appendHistoryTx(tx, models.TaskHistoryEntry{
			AssignmentID: id,
			FromStatus:   models.TaskInProgress,
			ToStatus:     models.TaskPaused,
			Actor:        actor,
			Reason:       reason,
		}, now)
	})
	return ok, err
}

// ResumeExclusive transitions PAUSED -> IN_PROGRESS for the target and, in
// the same transaction, demotes any other IN_PROGRESS assignment of the
// same worker to PAUSED with an auto-pause history entry. This is the one
// read-modify-write in the system that must be atomic: splitting the two
// writes is exactly how multiple IN_PROGRESS rows appear.
func (r *TaskRepository) ResumeExclusive(employeeID, date, id, actor string, now time.Time) (autoPaused string, ok bool, err error) {
	err = database.TransactionOn(r.db, func(tx *sql.Tx) error {
		var otherID string
		row := tx.QueryRow(`
			SELECT id FROM task_assignments
			WHERE employee_id = ? AND date = ? AND status = ? AND id != ?`,
			employeeID, date, models.TaskInProgress, id,
		)
		if scanErr := row.Scan(&otherID); scanErr != nil && scanErr != sql.ErrNoRows {
			return fmt.Errorf("failed to find active assignment: %w", scanErr)
		}

		if otherID != "" {
			result, execErr := tx.Exec(`
				UPDATE task_assignments
				SET status = ?, paused_at = ?, updated_at = CURRENT_TIMESTAMP
				WHERE id = ? AND status = ?`,
				models.TaskPaused, now, otherID, models.TaskInProgress,
			)
			if execErr != nil {
				return fmt.Errorf("failed to auto-pause assignment: %w", execErr)
			}
			if affected, _ := result.RowsAffected(); affected == 0 {
				return fmt.Errorf("auto-pause lost assignment %s", otherID)
			}
			if histErr := appendHistoryTx(tx, models.TaskHistoryEntry{
				AssignmentID: otherID,
				FromStatus:   models.TaskInProgress,
				ToStatus:     models.TaskPaused,
				Actor:        actor,
				AutoPausedBy: id,
			}, now); histErr != nil {
				return histErr
			}
		}

		result, execErr := tx.Exec(`
			UPDATE task_assignments
			SET status = ?, resumed_at = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND status = ?`,
			models.TaskInProgress, now, id, models.TaskPaused,
		)
		if execErr != nil {
			return fmt.Errorf("failed to resume assignment: %w", execErr)
		}
		affected, raErr := result.RowsAffected()
		if raErr != nil {
			return raErr
		}
		if affected == 0 {
			// Target left PAUSED under us; roll back the auto-pause too
			return errResumeLost
		}

		autoPaused = otherID
		ok = true
		return appendHistoryTx(tx, models.TaskHistoryEntry{
			AssignmentID: id,
			FromStatus:   models.TaskPaused,
			ToStatus:     models.TaskInProgress,
			Actor:        actor,
		}, now)
	})
	if err == errResumeLost {
		return "", false, nil
	}
	return autoPaused, ok, err
}

var errResumeLost = fmt.Errorf("resume target no longer paused")

// Complete transitions IN_PROGRESS|PAUSED -> COMPLETED and records the
// actual output. Returns false when the assignment was not resumable.
func (r *TaskRepository) Complete(id, actor string, fromStatus string, actualOutput float64, now time.Time) (bool, error) {
	ok := false
	err := database.TransactionOn(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE task_assignments
			SET status = ?, completed_at = ?, actual_output = ?,
				progress_today = 100, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND status IN (?, ?)`,
			models.TaskCompleted, now, actualOutput,
			id, models.TaskInProgress, models.TaskPaused,
		)
		if err != nil {
			return fmt.Errorf("failed to complete assignment: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		ok = true
		return appendHistoryTx(tx, models.TaskHistoryEntry{
			AssignmentID: id,
			FromStatus:   fromStatus,
			ToStatus:     models.TaskCompleted,
			Actor:        actor,
		}, now)
	})
	return ok, err
}

// UpdateProgress stores recomputed daily progress while IN_PROGRESS.
func (r *TaskRepository) UpdateProgress(id string, progress, actualOutput float64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE task_assignments
		SET progress_today = ?, actual_output = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		progress, actualOutput, id, models.TaskInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update progress: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetHistory retrieves the append-only transition log for an assignment
func (r *TaskRepository) GetHistory(assignmentID string) ([]models.TaskHistoryEntry, error) {
	query := `
		SELECT id, assignment_id, from_status, to_status, actor, reason,
			   auto_paused_by, created_at
		FROM task_history
		WHERE assignment_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(query, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task history: %w", err)
	}
	defer rows.Close()

	var entries []models.TaskHistoryEntry
	for rows.Next() {
		var e models.TaskHistoryEntry
		if err := rows.Scan(
			&e.ID,
			&e.AssignmentID,
			&e.FromStatus,
			&e.ToStatus,
			&e.Actor,
			&e.Reason,
			&e.AutoPausedBy,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func appendHistoryTx(tx *sql.Tx, e models.TaskHistoryEntry, now time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO task_history (
			id, assignment_id, from_status, to_status, actor, reason,
			auto_paused_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		e.AssignmentID,
		e.FromStatus,
		e.ToStatus,
		e.Actor,
		e.Reason,
		e.AutoPausedBy,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}
