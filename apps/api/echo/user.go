package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mazoezi/backend/core"
	"github.com/mazoezi/backend/core/user"
)

type userApi struct {
	svc        *user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:        deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	// TODO: rate limit `/password-reset` & `/password-reset-confirm`
	ug.POST("/register", api.register)
	ug.POST("/login", api.login)
	ug.POST("/password-reset", api.resetPassword)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.retrieveSelf)
	ag.PUT("/me", api.updateSelf)
	ag.POST("/onboarding", api.completeOnboarding)

	// gym admin endpoints
	ag.GET("", api.query, gymAdminMiddleware())
	ag.POST("/:id/approve", api.approve, gymAdminMiddleware())
	ag.POST("/:id/reject", api.reject, gymAdminMiddleware())
	ag.POST("/:id/assign-plan", api.assignPlan, gymAdminMiddleware())

	// super admin endpoints
	ag.POST("/promote-admin", api.promoteAdmin, superAdminMiddleware())
	ag.POST("/:id/demote", api.demoteAdmin, superAdminMiddleware())
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx, data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) retrieveSelf(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateSelf(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(usr, api.validate); err != nil {
		return err
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) completeOnboarding(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data user.Onboarding
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Onboarding")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.CompleteOnboarding(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "completing onboarding")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	// gym admins only ever see their own gym's members
	if !claims.IsSuperAdmin() {
		filter.GymID = claims.GymID
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Filter(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

// getScopedMember fetches the target member and checks that the calling admin
// manages the member's gym.
func (api *userApi) getScopedMember(ctx echo.Context) (user.User, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}

	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errHttpNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !claims.IsSuperAdmin() && usr.GymID != claims.GymID {
		return user.User{}, errHttpNotFound
	}
	return usr, nil
}

func (api *userApi) approve(ctx echo.Context) error {
	usr, err := api.getScopedMember(ctx)
	if err != nil {
		return err
	}

	usr, err = api.svc.Approve(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "approving member")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) reject(ctx echo.Context) error {
	usr, err := api.getScopedMember(ctx)
	if err != nil {
		return err
	}

	usr, err = api.svc.Reject(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "rejecting member")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) assignPlan(ctx echo.Context) error {
	usr, err := api.getScopedMember(ctx)
	if err != nil {
		return err
	}

	var data user.PlanAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PlanAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err = api.svc.AssignPlan(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "assigning plan")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) promoteAdmin(ctx echo.Context) error {
	var data user.PromoteAdmin
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PromoteAdmin")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Promote(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "email", Error: "no account with this email"})
		}
		return errors.Wrap(err, "promoting admin")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) demoteAdmin(ctx echo.Context) error {
	usr, err := api.svc.Demote(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "demoting admin")
	}
	return ctx.JSON(http.StatusOK, usr)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
