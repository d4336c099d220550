package plan

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/mazoezi/backend/core"
)

// Plan is a membership offering owned by a single gym. Deleting a plan does
// not touch members already assigned to it; their stored expiry stands.
type Plan struct {
	ID             string    `json:"id"`
	GymID          string    `json:"gym_id"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	DurationMonths int       `json:"duration_months"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

// NewPlan contains information needed to create a new Plan.
type NewPlan struct {
	Name           string  `json:"name" validate:"required"`
	Price          float64 `json:"price" validate:"required,gt=0"`
	DurationMonths int     `json:"duration_months" validate:"required,gte=1"`
	Description    string  `json:"description"`
}

func (np *NewPlan) Validate(validate *validator.Validate, _ ut.Translator) error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	return validate.Struct(np)
}
