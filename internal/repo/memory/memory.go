// Package memory provides in-process implementations of the repo interfaces.
// Insertion order is the store order, as with the seq column in Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safezone/server/internal/model"
	"github.com/safezone/server/internal/repo"
)

type UserRepo struct {
	mu    sync.RWMutex
	users []model.User
}

var _ repo.UserRepo = (*UserRepo)(nil)

func NewUserRepo() *UserRepo { return &UserRepo{} }

func (r *UserRepo) Create(_ context.Context, user model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	for _, u := range r.users {
		if u.Email == user.Email || u.Phone == user.Phone {
			return model.User{}, repo.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	user.ID = uuid.New()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users = append(r.users, user)
	return user, nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(email)
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *UserRepo) GetByPhone(_ context.Context, phone string) (model.User, error) {
	return r.find(func(u model.User) bool { return u.Phone == phone })
}

func (r *UserRepo) FindByEmailOrPhone(_ context.Context, email, phone string) (model.User, error) {
	email = strings.ToLower(email)
	return r.find(func(u model.User) bool { return u.Email == email || u.Phone == phone })
}

// Delete removes a user, for exercising tokens whose subject is gone
func (r *UserRepo) Delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, u := range r.users {
		if u.ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return
		}
	}
}

// Count returns the number of stored users
func (r *UserRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *UserRepo) find(match func(model.User) bool) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, repo.ErrNotFound
}

type AlertRepo struct {
	mu     sync.RWMutex
	alerts []model.Alert
}

var _ repo.AlertRepo = (*AlertRepo)(nil)

func NewAlertRepo() *AlertRepo { return &AlertRepo{} }

func (r *AlertRepo) Create(_ context.Context, alert model.Alert) (model.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if alert.Timestamp.IsZero() {
		alert.Timestamp = now
	}
	alert.ID = uuid.New()
	alert.CreatedAt, alert.UpdatedAt = now, now
	r.alerts = append(r.alerts, alert)
	return alert, nil
}

func (r *AlertRepo) ListRecent(_ context.Context, limit int) ([]model.Alert, error) {
	r.mu.RLock()
	out := make([]model.Alert, 0, len(r.alerts))
	for i := len(r.alerts) - 1; i >= 0; i-- {
		out = append(out, r.alerts[i])
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *AlertRepo) FindDuplicate(_ context.Context, alert model.Alert) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.alerts {
		if a.Type == alert.Type && a.Severity == alert.Severity &&
			a.Description == alert.Description && a.Location == alert.Location {
			return true, nil
		}
	}
	return false, nil
}

type SafeSpotRepo struct {
	mu    sync.RWMutex
	spots []model.SafeSpot
}

var _ repo.SafeSpotRepo = (*SafeSpotRepo)(nil)

func NewSafeSpotRepo() *SafeSpotRepo { return &SafeSpotRepo{} }

// Create stores a spot. A preset CreatedAt is kept so tests can control recency.
func (r *SafeSpotRepo) Create(_ context.Context, spot model.SafeSpot) (model.SafeSpot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	spot.ID = uuid.New()
	if spot.CreatedAt.IsZero() {
		spot.CreatedAt = now
	}
	spot.UpdatedAt = now
	r.spots = append(r.spots, spot)
	return spot, nil
}

func (r *SafeSpotRepo) ListNewestFirst(_ context.Context) ([]model.SafeSpot, error) {
	r.mu.RLock()
	out := make([]model.SafeSpot, 0, len(r.spots))
	for i := len(r.spots) - 1; i >= 0; i-- {
		out = append(out, r.spots[i])
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *SafeSpotRepo) ListStoreOrder(_ context.Context, limit int) ([]model.SafeSpot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.spots)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.SafeSpot, n)
	copy(out, r.spots[:n])
	return out, nil
}

func (r *SafeSpotRepo) FindByNameAndLocation(_ context.Context, name string, loc model.Location) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.spots {
		if s.Name == name && s.Location == loc {
			return true, nil
		}
	}
	return false, nil
}
