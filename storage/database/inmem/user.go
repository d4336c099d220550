package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mazoezi/backend/core"
	"github.com/mazoezi/backend/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

// query returns users most recently created first.
func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, usr := range repo.db.table {
		users = append(users, *usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}

	for _, usr := range repo.db.table {
		if usr.Email == email && !excluded[usr.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.table {
		if existing.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}

	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.table {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(_ context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	var users []user.User
	for _, usr := range repo.query() {
		if search != "" &&
			!strings.Contains(strings.ToLower(usr.Name), search) &&
			!strings.Contains(strings.ToLower(usr.Email), search) {
			continue
		}
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if filter.Status != "" && usr.Status != filter.Status {
			continue
		}
		if filter.GymID != "" && usr.GymID != filter.GymID {
			continue
		}
		users = append(users, usr)
	}

	// single-term ordering is enough for tests
	if len(ordering) > 0 {
		ord := ordering[0]
		sort.Slice(users, func(i, j int) bool {
			var less bool
			switch ord.Field {
			case "name":
				less = users[i].Name < users[j].Name
			case "email":
				less = users[i].Email < users[j].Email
			default:
				less = users[i].CreatedAt.Before(users[j].CreatedAt)
			}
			if ord.Ascending {
				return less
			}
			return !less
		})
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Name != "" {
		origUsr.Name = usr.Name
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if usr.Status != "" {
		origUsr.Status = usr.Status
	}
	if usr.GymID != "" {
		origUsr.GymID = usr.GymID
	}
	if usr.PhoneNumber != "" {
		origUsr.PhoneNumber = usr.PhoneNumber
	}
	if usr.Age != 0 {
		origUsr.Age = usr.Age
	}
	if usr.Gender != "" {
		origUsr.Gender = usr.Gender
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	origUsr.UpdatedAt = usr.UpdatedAt

	return *origUsr, nil
}

func (repo *userRepository) SetUserStatus(_ context.Context, id, status string) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.table[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.Status = status
	usr.UpdatedAt = time.Now().UTC()
	return *usr, nil
}

func (repo *userRepository) SetUserRole(_ context.Context, id, role, gymID string) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.table[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.Role = role
	usr.GymID = gymID
	usr.UpdatedAt = time.Now().UTC()
	return *usr, nil
}

func (repo *userRepository) AssignUserPlan(_ context.Context, id, planID string, expiry time.Time) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.table[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	expiry = expiry.UTC()
	usr.PlanID = planID
	usr.PlanExpiry = &expiry
	usr.UpdatedAt = time.Now().UTC()
	return *usr, nil
}

func (repo *userRepository) SetLastLogin(_ context.Context, id string, t time.Time) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.table[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.LastLogin = t.UTC()
	return *usr, nil
}
