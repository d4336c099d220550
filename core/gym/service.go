package gym

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("gym not found")

type (
	Repository interface {
		CreateGym(ctx context.Context, g Gym) (Gym, error)
		GetGymByID(ctx context.Context, id string) (Gym, error)
		// FilterGyms applies AND operation on available QueryFilter fields,
		// most recently created first.
		FilterGyms(ctx context.Context, filter QueryFilter) ([]Gym, error)
		SetGymActive(ctx context.Context, id string, active bool) (Gym, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ng NewGym) (Gym, error) {
	return svc.repo.CreateGym(ctx, Gym{
		ID:        uuid.New().String(),
		Name:      ng.Name,
		Location:  ng.Location,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Gym, error) {
	return svc.repo.GetGymByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Gym, error) {
	filter.Clean()
	return svc.repo.FilterGyms(ctx, filter)
}

// SetActive toggles whether a gym accepts new members and check-ins.
// Gyms are never deleted; deactivation is the terminal-ish state.
func (svc *Service) SetActive(ctx context.Context, id string, active bool) (Gym, error) {
	return svc.repo.SetGymActive(ctx, id, active)
}
