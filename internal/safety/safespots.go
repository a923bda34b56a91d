package safety

import (
	"context"
	"fmt"

	"github.com/safezone/server/internal/geo"
	"github.com/safezone/server/internal/model"
	"github.com/safezone/server/internal/repo"
)

// DefaultNearbyLimit applies when the caller gives no usable limit
const DefaultNearbyLimit = 5

type SafeSpotService struct {
	spots repo.SafeSpotRepo
}

func NewSafeSpotService(spots repo.SafeSpotRepo) *SafeSpotService {
	return &SafeSpotService{spots: spots}
}

// List returns every safe spot, most recently created first
func (s *SafeSpotService) List(ctx context.Context) ([]model.SafeSpot, error) {
	spots, err := s.spots.ListNewestFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("list safe spots: %w", err)
	}
	return spots, nil
}

// Nearest ranks spots by planar distance from origin. Without a usable origin
// it returns the first limit spots in store order.
func (s *SafeSpotService) Nearest(ctx context.Context, origin *geo.Point, limit int) ([]model.SafeSpot, error) {
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}

	if origin == nil || !origin.Valid() {
		spots, err := s.spots.ListStoreOrder(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("list safe spots: %w", err)
		}
		return spots, nil
	}

	spots, err := s.spots.ListStoreOrder(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list safe spots: %w", err)
	}
	return geo.Nearest(spots, *origin, spotPoint, limit), nil
}

func spotPoint(s model.SafeSpot) geo.Point {
	return geo.FromLocation(s.Location)
}
