package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mazoezi/backend/core"
	"github.com/mazoezi/backend/core/user"
)

const uniqueViolation = pq.ErrorCode("23505")

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	Role         string         `db:"role"`
	Status       string         `db:"status"`
	GymID        sql.NullString `db:"gym_id"`
	PhoneNumber  string         `db:"phone_number"`
	Age          int            `db:"age"`
	Gender       string         `db:"gender"`
	PlanID       sql.NullString `db:"plan_id"`
	PlanExpiry   *time.Time     `db:"plan_expiry"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    *time.Time     `db:"last_login"`
}

func (row userRow) user() user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		Role:         row.Role,
		Status:       row.Status,
		GymID:        row.GymID.String,
		PhoneNumber:  row.PhoneNumber,
		Age:          row.Age,
		Gender:       row.Gender,
		PlanID:       row.PlanID.String,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.PlanExpiry != nil {
		t := row.PlanExpiry.UTC()
		usr.PlanExpiry = &t
	}
	if row.LastLogin != nil {
		usr.LastLogin = row.LastLogin.UTC()
	}
	return usr
}

func users(rows []userRow) []user.User {
	usrs := make([]user.User, 0, len(rows))
	for _, row := range rows {
		usrs = append(usrs, row.user())
	}
	return usrs
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	var (
		q    = `SELECT count(*) FROM "user" WHERE email = $1`
		args = []interface{}{email}
	)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		args = append(args, pq.Array(ids))
		q += " AND NOT (id = ANY ($2))"
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, q, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
INSERT INTO "user" (id, name, email, role, status, gym_id, phone_number, age, gender, plan_id, plan_expiry, password_hash, created_at, updated_at)
VALUES (:id, :name, :email, :role, :status, :gym_id, :phone_number, :age, :gender, :plan_id, :plan_expiry, :password_hash, :created_at, :updated_at)`

	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
		Status:       usr.Status,
		GymID:        nullStr(usr.GymID),
		PhoneNumber:  usr.PhoneNumber,
		Age:          usr.Age,
		Gender:       usr.Gender,
		PlanID:       nullStr(usr.PlanID),
		PlanExpiry:   usr.PlanExpiry,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return row.user(), nil
}

func (repo *userRepository) getUser(ctx context.Context, field string, val interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE `+field+` = $1`, val); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "id", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email", email)
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	appendCond := func(field string, val interface{}) {
		args = append(args, val)
		conds = append(conds, field+" = $"+strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := "$" + strconv.Itoa(len(args))
		conds = append(conds, "(name ILIKE "+n+" OR email ILIKE "+n+")")
	}
	if filter.Role != "" {
		appendCond("role", filter.Role)
	}
	if filter.Status != "" {
		appendCond("status", filter.Status)
	}
	if filter.GymID != "" {
		appendCond("gym_id", filter.GymID)
	}

	q := `SELECT * FROM "user"`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		terms := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			terms = append(terms, ord.String())
		}
		q += " ORDER BY " + strings.Join(terms, ", ")
	} else {
		q += " ORDER BY created_at DESC"
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users(rows), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	// only save set fields
	var (
		sets = []string{"updated_at = :updated_at"}
		row  = userRow{ID: usr.ID, UpdatedAt: usr.UpdatedAt.UTC()}
	)
	if usr.Name != "" {
		sets = append(sets, "name = :name")
		row.Name = usr.Name
	}
	if usr.Email != "" {
		sets = append(sets, "email = :email")
		row.Email = usr.Email
	}
	if usr.Status != "" {
		sets = append(sets, "status = :status")
		row.Status = usr.Status
	}
	if usr.GymID != "" {
		sets = append(sets, "gym_id = :gym_id")
		row.GymID = nullStr(usr.GymID)
	}
	if usr.PhoneNumber != "" {
		sets = append(sets, "phone_number = :phone_number")
		row.PhoneNumber = usr.PhoneNumber
	}
	if usr.Age != 0 {
		sets = append(sets, "age = :age")
		row.Age = usr.Age
	}
	if usr.Gender != "" {
		sets = append(sets, "gender = :gender")
		row.Gender = usr.Gender
	}
	if usr.PasswordHash != nil {
		sets = append(sets, "password_hash = :password_hash")
		row.PasswordHash = usr.PasswordHash
	}

	q := `UPDATE "user" SET ` + strings.Join(sets, ", ") + " WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) update(ctx context.Context, id, set string, args ...interface{}) (user.User, error) {
	q := `UPDATE "user" SET ` + set + `, updated_at = now() WHERE id = $1 RETURNING *`

	var row userRow
	if err := repo.db.GetContext(ctx, &row, q, append([]interface{}{id}, args...)...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return row.user(), nil
}

func (repo *userRepository) SetUserStatus(ctx context.Context, id, status string) (user.User, error) {
	return repo.update(ctx, id, "status = $2", status)
}

func (repo *userRepository) SetUserRole(ctx context.Context, id, role, gymID string) (user.User, error) {
	return repo.update(ctx, id, "role = $2, gym_id = $3", role, nullStr(gymID))
}

func (repo *userRepository) AssignUserPlan(ctx context.Context, id, planID string, expiry time.Time) (user.User, error) {
	return repo.update(ctx, id, "plan_id = $2, plan_expiry = $3", planID, expiry.UTC())
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, t time.Time) (user.User, error) {
	return repo.update(ctx, id, "last_login = $2", t.UTC())
}
