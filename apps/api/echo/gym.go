package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mazoezi/backend/core/gym"
)

type gymApi struct {
	svc        *gym.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerGymAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := gymApi{
		svc:        deps.GymSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	gg := g.Group("/gyms")

	// active gyms are public so fresh members can pick one during onboarding;
	// a same-prefix subgroup would shadow these, so jwt is attached per route
	gg.GET("", api.query)
	gg.GET("/:id", api.retrieve)

	gg.POST("", api.create, jwt, superAdminMiddleware())
	gg.PUT("/:id/active", api.setActive, jwt, superAdminMiddleware())
}

// Handlers

func (api *gymApi) create(ctx echo.Context) error {
	var data gym.NewGym
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGym")
	}
	if err := data.Validate(api.validate, api.translator); err != nil {
		return err
	}

	g, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating gym")
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *gymApi) query(ctx echo.Context) error {
	filter := new(gym.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []gym.Gym{})
	}

	gyms, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying gyms")
	}
	if gyms == nil {
		gyms = []gym.Gym{}
	}
	return ctx.JSON(http.StatusOK, gyms)
}

func (api *gymApi) retrieve(ctx echo.Context) error {
	g, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == gym.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting gym")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gymApi) setActive(ctx echo.Context) error {
	var data SetActiveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetActiveRequest")
	}
	if data.Active == nil {
		return errors.Wrap(echo.NewHTTPError(http.StatusBadRequest, "active is required"), "validating SetActiveRequest")
	}

	g, err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"), *data.Active)
	if err != nil {
		if errors.Cause(err) == gym.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating gym")
	}
	return ctx.JSON(http.StatusOK, g)
}

type SetActiveRequest struct {
	Active *bool `json:"active"`
}
