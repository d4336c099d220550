package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/mazoezi/backend/core/gym"
)

type gymRepository struct {
	db *gymTable
}

var _ gym.Repository = (*gymRepository)(nil) // interface compliance check

func NewGymRepository(db *DB) *gymRepository {
	return &gymRepository{db: db.gym}
}

func (repo *gymRepository) CreateGym(_ context.Context, g gym.Gym) (gym.Gym, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[g.ID] = &g
	return g, nil
}

func (repo *gymRepository) GetGymByID(_ context.Context, id string) (gym.Gym, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.table[id]; ok {
		return *g, nil
	}
	return gym.Gym{}, gym.ErrNotFound
}

func (repo *gymRepository) FilterGyms(_ context.Context, filter gym.QueryFilter) ([]gym.Gym, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	var gyms []gym.Gym
	for _, g := range repo.db.table {
		if search != "" &&
			!strings.Contains(strings.ToLower(g.Name), search) &&
			!strings.Contains(strings.ToLower(g.Location), search) {
			continue
		}
		if filter.Active != nil && g.Active != *filter.Active {
			continue
		}
		gyms = append(gyms, *g)
	}

	sort.Slice(gyms, func(i, j int) bool { return gyms[i].CreatedAt.After(gyms[j].CreatedAt) })
	return gyms, nil
}

func (repo *gymRepository) SetGymActive(_ context.Context, id string, active bool) (gym.Gym, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	g, ok := repo.db.table[id]
	if !ok {
		return gym.Gym{}, gym.ErrNotFound
	}
	g.Active = active
	return *g, nil
}
