package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mazoezi/backend/core/report"
)

type reportApi struct {
	svc *report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := reportApi{svc: deps.ReportSvc}

	rg := g.Group("/reports", jwt)
	rg.GET("/member-dashboard", api.memberDashboard)
	rg.GET("/gym-dashboard", api.gymDashboard, gymAdminMiddleware())
	rg.GET("/platform-dashboard", api.platformDashboard, superAdminMiddleware())
}

// Handlers

func (api *reportApi) memberDashboard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	dash, err := api.svc.MemberDashboard(ctx.Request().Context(), claims.Subject, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "building member dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *reportApi) gymDashboard(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	gymID := adminGymID(ctx, claims)
	if gymID == "" {
		return errHttpNotFound
	}

	dash, err := api.svc.GymDashboard(ctx.Request().Context(), gymID, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "building gym dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *reportApi) platformDashboard(ctx echo.Context) error {
	dash, err := api.svc.PlatformDashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building platform dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
