package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mazoezi/backend/core/gym"
)

type gymRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Location  string    `db:"location"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

func (row gymRow) gym() gym.Gym {
	return gym.Gym{
		ID:        row.ID,
		Name:      row.Name,
		Location:  row.Location,
		Active:    row.Active,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

type gymRepository struct {
	db *sqlx.DB
}

var _ gym.Repository = (*gymRepository)(nil) // interface compliance check

func NewGymRepository(db *sqlx.DB) *gymRepository {
	return &gymRepository{db: db}
}

func (repo *gymRepository) CreateGym(ctx context.Context, g gym.Gym) (gym.Gym, error) {
	const q = `
INSERT INTO gym (id, name, location, active, created_at)
VALUES (:id, :name, :location, :active, :created_at)`

	row := gymRow{
		ID:        g.ID,
		Name:      g.Name,
		Location:  g.Location,
		Active:    g.Active,
		CreatedAt: g.CreatedAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return gym.Gym{}, errors.Wrap(err, "creating gym")
	}
	return row.gym(), nil
}

func (repo *gymRepository) GetGymByID(ctx context.Context, id string) (gym.Gym, error) {
	var row gymRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM gym WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return gym.Gym{}, gym.ErrNotFound
		}
		return gym.Gym{}, errors.Wrap(err, "getting gym")
	}
	return row.gym(), nil
}

func (repo *gymRepository) FilterGyms(ctx context.Context, filter gym.QueryFilter) ([]gym.Gym, error) {
	var (
		q    = `SELECT * FROM gym`
		args []interface{}
	)
	switch {
	case filter.Search != "" && filter.Active != nil:
		q += ` WHERE (name ILIKE $1 OR location ILIKE $1) AND active = $2`
		args = append(args, "%"+filter.Search+"%", *filter.Active)
	case filter.Search != "":
		q += ` WHERE name ILIKE $1 OR location ILIKE $1`
		args = append(args, "%"+filter.Search+"%")
	case filter.Active != nil:
		q += ` WHERE active = $1`
		args = append(args, *filter.Active)
	}
	q += ` ORDER BY created_at DESC`

	var rows []gymRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying gyms")
	}

	gyms := make([]gym.Gym, 0, len(rows))
	for _, row := range rows {
		gyms = append(gyms, row.gym())
	}
	return gyms, nil
}

func (repo *gymRepository) SetGymActive(ctx context.Context, id string, active bool) (gym.Gym, error) {
	const q = `UPDATE gym SET active = $2 WHERE id = $1 RETURNING *`

	var row gymRow
	if err := repo.db.GetContext(ctx, &row, q, id, active); err != nil {
		if err == sql.ErrNoRows {
			return gym.Gym{}, gym.ErrNotFound
		}
		return gym.Gym{}, errors.Wrap(err, "updating gym")
	}
	return row.gym(), nil
}
