package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mazoezi/backend/core/plan"
)

type planRow struct {
	ID             string    `db:"id"`
	GymID          string    `db:"gym_id"`
	Name           string    `db:"name"`
	Price          float64   `db:"price"`
	DurationMonths int       `db:"duration_months"`
	Description    string    `db:"description"`
	CreatedAt      time.Time `db:"created_at"`
}

func (row planRow) plan() plan.Plan {
	return plan.Plan{
		ID:             row.ID,
		GymID:          row.GymID,
		Name:           row.Name,
		Price:          row.Price,
		DurationMonths: row.DurationMonths,
		Description:    row.Description,
		CreatedAt:      row.CreatedAt.UTC(),
	}
}

type planRepository struct {
	db *sqlx.DB
}

var _ plan.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *sqlx.DB) *planRepository {
	return &planRepository{db: db}
}

func (repo *planRepository) CreatePlan(ctx context.Context, p plan.Plan) (plan.Plan, error) {
	const q = `
INSERT INTO plan (id, gym_id, name, price, duration_months, description, created_at)
VALUES (:id, :gym_id, :name, :price, :duration_months, :description, :created_at)`

	row := planRow{
		ID:             p.ID,
		GymID:          p.GymID,
		Name:           p.Name,
		Price:          p.Price,
		DurationMonths: p.DurationMonths,
		Description:    p.Description,
		CreatedAt:      p.CreatedAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return plan.Plan{}, errors.Wrap(err, "creating plan")
	}
	return row.plan(), nil
}

func (repo *planRepository) GetPlanByID(ctx context.Context, id string) (plan.Plan, error) {
	var row planRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM plan WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return plan.Plan{}, plan.ErrNotFound
		}
		return plan.Plan{}, errors.Wrap(err, "getting plan")
	}
	return row.plan(), nil
}

func (repo *planRepository) QueryGymPlans(ctx context.Context, gymID string) ([]plan.Plan, error) {
	const q = `SELECT * FROM plan WHERE gym_id = $1 ORDER BY price ASC`

	var rows []planRow
	if err := repo.db.SelectContext(ctx, &rows, q, gymID); err != nil {
		return nil, errors.Wrap(err, "querying plans")
	}

	plans := make([]plan.Plan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, row.plan())
	}
	return plans, nil
}

func (repo *planRepository) DeletePlan(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM plan WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting plan")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return plan.ErrNotFound
	}
	return nil
}
