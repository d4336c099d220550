package inmemdb

import (
	"context"
	"sort"

	"github.com/mazoezi/backend/core/plan"
)

type planRepository struct {
	db *planTable
}

var _ plan.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *DB) *planRepository {
	return &planRepository{db: db.plan}
}

func (repo *planRepository) CreatePlan(_ context.Context, p plan.Plan) (plan.Plan, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *planRepository) GetPlanByID(_ context.Context, id string) (plan.Plan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return plan.Plan{}, plan.ErrNotFound
}

func (repo *planRepository) QueryGymPlans(_ context.Context, gymID string) ([]plan.Plan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var plans []plan.Plan
	for _, p := range repo.db.table {
		if p.GymID == gymID {
			plans = append(plans, *p)
		}
	}

	sort.Slice(plans, func(i, j int) bool { return plans[i].Price < plans[j].Price })
	return plans, nil
}

func (repo *planRepository) DeletePlan(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return plan.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
