package repository

import (
	"database/sql"
	"fmt"

	"github.com/sitepulse/tracking-backend-go/internal/apperrors"
	"github.com/sitepulse/tracking-backend-go/internal/models"
)

// ProjectRepository handles database operations for projects. Project rows
// (including the geofence and shift policy) are managed by external tooling;
// the tracking core only reads them.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// GetByID retrieves a project with its geofence config and shift policy
func (r *ProjectRepository) GetByID(id string) (*models.Project, error) {
	query := `
		SELECT id, name, center_lat, center_lng, radius_m, allowed_variance_m,
			   required_accuracy_m, strict_mode, unrestricted,
			   scheduled_start, grace_minutes, regular_hours, created_at
		FROM projects
		WHERE id = ?
	`

	p := &models.Project{}
	var (
		scheduledStart sql.NullString
		graceMinutes   sql.NullInt64
		regularHours   sql.NullFloat64
	)
	err := r.db.QueryRow(query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Geofence.CenterLat,
		&p.Geofence.CenterLng,
		&p.Geofence.RadiusMeters,
		&p.Geofence.AllowedVarianceMeters,
		&p.Geofence.RequiredAccuracyMeters,
		&p.Geofence.StrictMode,
		&p.Geofence.Unrestricted,
		&scheduledStart,
		&graceMinutes,
		&regularHours,
		&p.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound(apperrors.CodeProjectNotFound, "project not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if scheduledStart.Valid {
		p.Policy.ScheduledStart = scheduledStart.String
	}
	if graceMinutes.Valid {
		p.Policy.GraceMinutes = int(graceMinutes.Int64)
	}
	if regularHours.Valid {
		p.Policy.RegularHours = regularHours.Float64
	}

	return p, nil
}

// Create inserts a project row (used by seeding and tests)
func (r *ProjectRepository) Create(p *models.Project) error {
	query := `
		INSERT INTO projects (
			id, name, center_lat, center_lng, radius_m, allowed_variance_m,
			required_accuracy_m, strict_mode, unrestricted,
			scheduled_start, grace_minutes, regular_hours
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		p.ID,
		p.Name,
		p.Geofence.CenterLat,
		p.Geofence.CenterLng,
		p.Geofence.RadiusMeters,
		p.Geofence.AllowedVarianceMeters,
		p.Geofence.RequiredAccuracyMeters,
		p.Geofence.StrictMode,
		p.Geofence.Unrestricted,
		nullString(p.Policy.ScheduledStart),
		nullInt(p.Policy.GraceMinutes),
		nullFloat(p.Policy.RegularHours),
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

func nullFloat(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}
