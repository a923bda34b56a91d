package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safezone/server/internal/model"
)

// SafeSpotRepo persists points of interest. Spots are created by seeding only.
type SafeSpotRepo interface {
	Create(ctx context.Context, spot model.SafeSpot) (model.SafeSpot, error)
	ListNewestFirst(ctx context.Context) ([]model.SafeSpot, error)
	// ListStoreOrder returns spots in insertion order. limit <= 0 means all.
	ListStoreOrder(ctx context.Context, limit int) ([]model.SafeSpot, error)
	FindByNameAndLocation(ctx context.Context, name string, loc model.Location) (bool, error)
}

type safeSpotRepo struct {
	db *sql.DB
}

func NewSafeSpotRepo(db *sql.DB) SafeSpotRepo {
	return &safeSpotRepo{db: db}
}

const safeSpotColumns = `id, name, type, address, lat, lng, created_at, updated_at`

func (r *safeSpotRepo) Create(ctx context.Context, spot model.SafeSpot) (model.SafeSpot, error) {
	query := `
		INSERT INTO safe_spots (name, type, address, lat, lng)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + safeSpotColumns
	created, err := scanSafeSpot(r.db.QueryRowContext(ctx, query,
		spot.Name, spot.Type, spot.Address, spot.Location.Lat, spot.Location.Lng,
	))
	if err != nil {
		return model.SafeSpot{}, fmt.Errorf("failed to insert safe spot: %w", err)
	}
	return created, nil
}

func (r *safeSpotRepo) ListNewestFirst(ctx context.Context) ([]model.SafeSpot, error) {
	return r.list(ctx, `SELECT `+safeSpotColumns+` FROM safe_spots ORDER BY created_at DESC, seq DESC`)
}

func (r *safeSpotRepo) ListStoreOrder(ctx context.Context, limit int) ([]model.SafeSpot, error) {
	if limit <= 0 {
		return r.list(ctx, `SELECT `+safeSpotColumns+` FROM safe_spots ORDER BY seq ASC`)
	}
	return r.list(ctx, `SELECT `+safeSpotColumns+` FROM safe_spots ORDER BY seq ASC LIMIT $1`, limit)
}

func (r *safeSpotRepo) FindByNameAndLocation(ctx context.Context, name string, loc model.Location) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM safe_spots WHERE name = $1 AND lat = $2 AND lng = $3)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, name, loc.Lat, loc.Lng).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check safe spot: %w", err)
	}
	return exists, nil
}

func (r *safeSpotRepo) list(ctx context.Context, query string, args ...any) ([]model.SafeSpot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query safe spots: %w", err)
	}
	defer rows.Close()

	spots := make([]model.SafeSpot, 0)
	for rows.Next() {
		s, err := scanSafeSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan safe spot: %w", err)
		}
		spots = append(spots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate safe spots: %w", err)
	}
	return spots, nil
}

func scanSafeSpot(row rowScanner) (model.SafeSpot, error) {
	var s model.SafeSpot
	err := row.Scan(&s.ID, &s.Name, &s.Type, &s.Address, &s.Location.Lat, &s.Location.Lng, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
