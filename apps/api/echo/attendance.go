package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mazoezi/backend/core"
	"github.com/mazoezi/backend/core/attendance"
	"github.com/mazoezi/backend/core/gym"
	"github.com/mazoezi/backend/core/user"
)

type attendanceApi struct {
	svc              *attendance.Service
	gymSvc           *gym.Service
	userSvc          *user.Service
	validate         *validator.Validate
	requireActiveGym bool
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{
		svc:              deps.AttendanceSvc,
		gymSvc:           deps.GymSvc,
		userSvc:          deps.UserSvc,
		validate:         deps.Validate,
		requireActiveGym: deps.Conf.Attendance.RequireActiveGym,
	}

	ag := g.Group("/attendance", jwt)
	ag.POST("/scan", api.scan)
	ag.GET("/history", api.history)
	ag.GET("/sessions", api.querySessions, gymAdminMiddleware())
}

// Handlers

// scan turns a QR scan into a check-in or check-out. The member does not say
// which; the engine infers it from the existence of an open session.
func (api *attendanceApi) scan(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsMember() {
		return errHttpForbidden
	}

	var data ScanRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScanRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.userSvc, claims)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.Status != user.StatusActive {
		return errAccountNotActive
	}

	gymID := data.GymID()
	if api.requireActiveGym {
		g, err := api.gymSvc.GetByID(ctx.Request().Context(), gymID)
		if err != nil {
			if errors.Cause(err) == gym.ErrNotFound {
				return core.NewValidationError(nil, core.FieldError{Field: "code", Error: "unknown gym"})
			}
			return errors.Wrap(err, "getting gym")
		}
		if !g.Active {
			return core.NewValidationError(nil, core.FieldError{Field: "code", Error: "gym is not active"})
		}
	}

	result := api.svc.RecordScan(ctx.Request().Context(), usr.ID, gymID, time.Now().UTC())
	return ctx.JSON(http.StatusOK, result)
}

// history returns the calling member's own sessions, most recent first.
func (api *attendanceApi) history(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	sessions, err := api.svc.MemberHistory(ctx.Request().Context(), claims.Subject, limit)
	if err != nil {
		return errors.Wrap(err, "querying member history")
	}
	if sessions == nil {
		sessions = []attendance.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *attendanceApi) querySessions(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Session{})
	}
	// gym admins only ever see their own gym's sessions
	if !claims.IsSuperAdmin() {
		filter.GymID = claims.GymID
	}

	sessions, err := api.svc.GymSessions(ctx.Request().Context(), filter.GymID, filter.DateKey, filter.Limit)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if sessions == nil {
		sessions = []attendance.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

// ScanRequest carries the raw content of a scanned QR code. The code is
// either the gym ID itself or a JSON envelope such as {"gym_id": "..."};
// both key spellings in the wild are accepted.
type ScanRequest struct {
	Code string `json:"code" validate:"required"`
}

func (sr *ScanRequest) Validate(validate *validator.Validate) error {
	sr.Code = core.CleanString(sr.Code)
	return validate.Struct(sr)
}

func (sr ScanRequest) GymID() string {
	code := strings.TrimSpace(sr.Code)
	var envelope struct {
		GymID     string `json:"gym_id"`
		GymIDCaps string `json:"gymId"`
	}
	if err := json.Unmarshal([]byte(code), &envelope); err == nil {
		if envelope.GymID != "" {
			return envelope.GymID
		}
		if envelope.GymIDCaps != "" {
			return envelope.GymIDCaps
		}
	}
	return code
}
