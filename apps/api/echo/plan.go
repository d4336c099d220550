package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mazoezi/backend/core/plan"
)

type planApi struct {
	svc        *plan.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerPlanAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := planApi{
		svc:        deps.PlanSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	g.GET("/gyms/:id/plans", api.queryGymPlans)

	// jwt goes on each route; a subgroup on the bare prefix would register
	// catch-alls that turn every unknown path into a 401
	g.POST("/gyms/:id/plans", api.create, jwt, gymAdminMiddleware())
	g.DELETE("/plans/:id", api.destroy, jwt, gymAdminMiddleware())
}

// Handlers

func (api *planApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	gymID := ctx.Param("id")
	// gym admins only manage plans of their own gym
	if !claims.IsSuperAdmin() && gymID != claims.GymID {
		return errHttpForbidden
	}

	var data plan.NewPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlan")
	}
	if err := data.Validate(api.validate, api.translator); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), gymID, data)
	if err != nil {
		return errors.Wrap(err, "creating plan")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *planApi) queryGymPlans(ctx echo.Context) error {
	plans, err := api.svc.QueryByGym(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying plans")
	}
	if plans == nil {
		plans = []plan.Plan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *planApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	p, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == plan.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting plan")
	}
	if !claims.IsSuperAdmin() && p.GymID != claims.GymID {
		return errHttpNotFound
	}

	if err := api.svc.Delete(ctx.Request().Context(), p.ID); err != nil {
		return errors.Wrap(err, "deleting plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}
