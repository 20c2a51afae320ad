package database

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations holds the ordered schema history. The server ships as a single
// binary on site hardware, so migrations are embedded rather than loaded
// from disk.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_projects",
		SQL: `
			CREATE TABLE IF NOT EXISTS projects (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				center_lat REAL NOT NULL,
				center_lng REAL NOT NULL,
				radius_m REAL NOT NULL,
				allowed_variance_m REAL NOT NULL DEFAULT 0,
				required_accuracy_m REAL NOT NULL DEFAULT 0,
				strict_mode INTEGER NOT NULL DEFAULT 0,
				unrestricted INTEGER NOT NULL DEFAULT 0,
				scheduled_start TEXT,
				grace_minutes INTEGER,
				regular_hours REAL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
	{
		Version: 2,
		Name:    "create_attendance_records",
		SQL: `
			CREATE TABLE IF NOT EXISTS attendance_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				employee_id TEXT NOT NULL,
				project_id TEXT NOT NULL REFERENCES projects(id),
				date TEXT NOT NULL,
				check_in TIMESTAMP,
				check_out TIMESTAMP,
				lunch_start TIMESTAMP,
				lunch_end TIMESTAMP,
				lunch_minutes INTEGER NOT NULL DEFAULT 0,
				regular_hours REAL NOT NULL DEFAULT 0,
				ot_hours REAL NOT NULL DEFAULT 0,
				status TEXT NOT NULL,
				late_minutes INTEGER NOT NULL DEFAULT 0,
				absence_reason TEXT,
				absence_note TEXT,
				marked_by TEXT,
				escalated INTEGER NOT NULL DEFAULT 0,
				escalated_at TIMESTAMP,
				escalated_by TEXT,
				inside_geofence_check_in INTEGER NOT NULL DEFAULT 0,
				inside_geofence_check_out INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(employee_id, project_id, date)
			);
			CREATE INDEX IF NOT EXISTS idx_attendance_employee_date
				ON attendance_records(employee_id, date);
		`,
	},
	{
		Version: 3,
		Name:    "create_task_assignments",
		SQL: `
			CREATE TABLE IF NOT EXISTS task_assignments (
				id TEXT PRIMARY KEY,
				employee_id TEXT NOT NULL,
				project_id TEXT NOT NULL REFERENCES projects(id),
				date TEXT NOT NULL,
				sequence INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL DEFAULT 'QUEUED',
				target_quantity REAL NOT NULL DEFAULT 0,
				target_unit TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				progress_today REAL NOT NULL DEFAULT 0,
				actual_output REAL NOT NULL DEFAULT 0,
				started_at TIMESTAMP,
				paused_at TIMESTAMP,
				resumed_at TIMESTAMP,
				completed_at TIMESTAMP,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_task_employee_date
				ON task_assignments(employee_id, date);
		`,
	},
	{
		Version: 4,
		Name:    "create_task_history",
		SQL: `
			CREATE TABLE IF NOT EXISTS task_history (
				id TEXT PRIMARY KEY,
				assignment_id TEXT NOT NULL REFERENCES task_assignments(id),
				from_status TEXT NOT NULL,
				to_status TEXT NOT NULL,
				actor TEXT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				auto_paused_by TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_task_history_assignment
				ON task_history(assignment_id);
		`,
	},
	{
		// Storage-level backstop for the one-active-task invariant: a
		// second IN_PROGRESS row for the same worker and date cannot commit.
		Version: 5,
		Name:    "unique_active_assignment",
		SQL: `
			CREATE UNIQUE INDEX IF NOT EXISTS idx_one_active_per_worker
				ON task_assignments(employee_id, date)
				WHERE status = 'IN_PROGRESS';
		`,
	},
}

// MigrationManager manages database migrations
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// InitMigrationsTable creates the migrations tracking table
func (m *MigrationManager) InitMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := m.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// AppliedVersions returns the set of already-applied migration versions
func (m *MigrationManager) AppliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	return applied, nil
}

// Migrate applies all pending migrations in version order
func (m *MigrationManager) Migrate() error {
	if err := m.InitMigrationsTable(); err != nil {
		return err
	}

	applied, err := m.AppliedVersions()
	if err != nil {
		return err
	}

	pending := make([]Migration, 0, len(migrations))
	for _, mig := range migrations {
		if !applied[mig.Version] {
			pending = append(pending, mig)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, mig := range pending {
		err := TransactionOn(m.db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(mig.SQL); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", mig.Version, mig.Name, err)
			}
			if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", mig.Version, mig.Name); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", mig.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		log.Printf("Applied migration %d: %s", mig.Version, mig.Name)
	}

	return nil
}
