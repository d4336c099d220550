package inmemdb

import (
	"sync"

	"github.com/mazoezi/backend/core/attendance"
	"github.com/mazoezi/backend/core/gym"
	"github.com/mazoezi/backend/core/plan"
	"github.com/mazoezi/backend/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	gymTable struct {
		mutex sync.RWMutex
		table map[string]*gym.Gym
	}

	planTable struct {
		mutex sync.RWMutex
		table map[string]*plan.Plan
	}

	sessionTable struct {
		mutex sync.RWMutex
		table map[string]*attendance.Session
	}

	// DB is an in-memory store used by tests in place of postgres.
	DB struct {
		user    *userTable
		gym     *gymTable
		plan    *planTable
		session *sessionTable
	}
)

func Open() *DB {
	return &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		gym:     &gymTable{table: make(map[string]*gym.Gym)},
		plan:    &planTable{table: make(map[string]*plan.Plan)},
		session: &sessionTable{table: make(map[string]*attendance.Session)},
	}
}
