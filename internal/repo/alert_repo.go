package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/safezone/server/internal/model"
)

// AlertRepo persists incident reports
type AlertRepo interface {
	Create(ctx context.Context, alert model.Alert) (model.Alert, error)
	ListRecent(ctx context.Context, limit int) ([]model.Alert, error)
	FindDuplicate(ctx context.Context, alert model.Alert) (bool, error)
}

type alertRepo struct {
	db *sql.DB
}

func NewAlertRepo(db *sql.DB) AlertRepo {
	return &alertRepo{db: db}
}

const alertColumns = `id, type, severity, reported_at, lat, lng, description, reported_by, created_at, updated_at`

// Create inserts an alert. A zero Timestamp defaults to now.
func (r *alertRepo) Create(ctx context.Context, alert model.Alert) (model.Alert, error) {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	query := `
		INSERT INTO alerts (type, severity, reported_at, lat, lng, description, reported_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + alertColumns
	row := r.db.QueryRowContext(ctx, query,
		alert.Type,
		alert.Severity,
		alert.Timestamp,
		alert.Location.Lat,
		alert.Location.Lng,
		alert.Description,
		nullableUUID(alert.ReportedBy),
	)
	created, err := scanAlert(row)
	if err != nil {
		return model.Alert{}, fmt.Errorf("failed to insert alert: %w", err)
	}
	return created, nil
}

// ListRecent returns up to limit alerts, newest timestamp first
func (r *alertRepo) ListRecent(ctx context.Context, limit int) ([]model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts ORDER BY reported_at DESC, seq DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]model.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

// FindDuplicate reports whether an alert with the same type, severity,
// description and location already exists
func (r *alertRepo) FindDuplicate(ctx context.Context, alert model.Alert) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE type = $1 AND severity = $2 AND description = $3 AND lat = $4 AND lng = $5
		)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query,
		alert.Type, alert.Severity, alert.Description, alert.Location.Lat, alert.Location.Lng,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate alert: %w", err)
	}
	return exists, nil
}

func scanAlert(row rowScanner) (model.Alert, error) {
	var (
		a          model.Alert
		reportedBy uuid.NullUUID
	)
	err := row.Scan(
		&a.ID,
		&a.Type,
		&a.Severity,
		&a.Timestamp,
		&a.Location.Lat,
		&a.Location.Lng,
		&a.Description,
		&reportedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return model.Alert{}, err
	}
	if reportedBy.Valid {
		id := reportedBy.UUID
		a.ReportedBy = &id
	}
	return a, nil
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
