package gym

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/mazoezi/backend/core"
)

type Gym struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewGym contains information needed to register a new Gym.
type NewGym struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location" validate:"required"`
}

func (ng *NewGym) Validate(validate *validator.Validate, _ ut.Translator) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Location = core.CleanString(ng.Location)
	return validate.Struct(ng)
}

type QueryFilter struct {
	// Search does a case-insensitive match on Gym.Name or Gym.Location.
	Search string `query:"search"`
	Active *bool  `query:"active"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Active == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
