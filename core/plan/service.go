package plan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("plan not found")

type (
	Repository interface {
		CreatePlan(ctx context.Context, p Plan) (Plan, error)
		GetPlanByID(ctx context.Context, id string) (Plan, error)
		QueryGymPlans(ctx context.Context, gymID string) ([]Plan, error)
		DeletePlan(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, gymID string, np NewPlan) (Plan, error) {
	return svc.repo.CreatePlan(ctx, Plan{
		ID:             uuid.New().String(),
		GymID:          gymID,
		Name:           np.Name,
		Price:          np.Price,
		DurationMonths: np.DurationMonths,
		Description:    np.Description,
		CreatedAt:      time.Now().UTC(),
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Plan, error) {
	return svc.repo.GetPlanByID(ctx, id)
}

func (svc *Service) QueryByGym(ctx context.Context, gymID string) ([]Plan, error) {
	return svc.repo.QueryGymPlans(ctx, gymID)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeletePlan(ctx, id)
}
