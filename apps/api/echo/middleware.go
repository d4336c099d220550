package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// gymAdminMiddleware only lets gym admins (or super admins) through.
func gymAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsGymAdmin() || claims.IsSuperAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func superAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsSuperAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// adminGymID resolves the gym a request is scoped to: gym admins are pinned
// to their own gym, super admins may target any via the query param.
func adminGymID(ctx echo.Context, claims Claims) string {
	if claims.IsSuperAdmin() {
		return ctx.QueryParam("gym_id")
	}
	return claims.GymID
}
