package user

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/mazoezi/backend/core"
	"github.com/mazoezi/backend/core/plan"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of
		// User.Name or User.Email. Derived plan statuses are resolved by the
		// Service, not here.
		FilterUsers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		// UpdateUser only saves set (non-zero) fields.
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetUserStatus(ctx context.Context, id, status string) (User, error)
		// SetUserRole updates the role and gym binding; an empty gymID
		// clears the binding (demotion).
		SetUserRole(ctx context.Context, id, role, gymID string) (User, error)
		AssignUserPlan(ctx context.Context, id, planID string, expiry time.Time) (User, error)
		SetLastLogin(ctx context.Context, id string, t time.Time) (User, error)
	}

	// PlanGetter is the slice of the plan store needed to validate
	// assignments.
	PlanGetter interface {
		GetPlanByID(ctx context.Context, id string) (plan.Plan, error)
	}

	Service struct {
		repo    Repository
		plans   PlanGetter
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, plans PlanGetter, mailSvc core.EmailService, conf *core.Config) *Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &Service{repo: repo, plans: plans, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) checkUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a fresh member account. The member still has to complete
// onboarding (gym choice) and be approved by that gym's admin.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      RoleMember,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Filter resolves the derived EXPIRED / EXPIRING_SOON statuses on top of the
// repository's stored-field filtering.
func (svc *Service) Filter(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	filter.Clean()

	derived := filter.Status
	if derived == PlanStateExpired || derived == PlanStateExpiringSoon {
		filter.Status = StatusActive
	} else {
		derived = ""
	}

	users, err := svc.repo.FilterUsers(ctx, filter, ordering...)
	if err != nil || derived == "" {
		return users, err
	}

	now := time.Now().UTC()
	kept := make([]User, 0, len(users))
	for _, usr := range users {
		switch derived {
		case PlanStateExpired:
			if usr.PlanExpired(now) {
				kept = append(kept, usr)
			}
		case PlanStateExpiringSoon:
			if usr.PlanExpiringSoon(now) {
				kept = append(kept, usr)
			}
		}
	}
	return kept, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	return svc.repo.SetLastLogin(ctx, usr.ID, time.Now().UTC())
}

// CompleteOnboarding stores the member's profile details and gym choice and
// queues them for approval.
func (svc *Service) CompleteOnboarding(ctx context.Context, id string, ob Onboarding) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.IsMember() {
		return User{}, core.NewValidationError(errors.New("only members can onboard"))
	}

	usr.GymID = ob.GymID
	usr.PhoneNumber = ob.PhoneNumber
	usr.Age = ob.Age
	usr.Gender = ob.Gender
	usr.Status = StatusPending
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Approve activates a pending member and sends them a welcome email.
func (svc *Service) Approve(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.IsMember() {
		return User{}, core.NewValidationError(errors.New("only members can be approved"))
	}

	usr, err = svc.repo.SetUserStatus(ctx, id, StatusActive)
	if err != nil {
		return User{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Membership approved",
		TemplateName: "welcome",
		TemplateData: struct{ Name string }{usr.Name},
	})
	return usr, nil
}

func (svc *Service) Reject(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.IsMember() {
		return User{}, core.NewValidationError(errors.New("only members can be rejected"))
	}
	return svc.repo.SetUserStatus(ctx, id, StatusRejected)
}

// AssignPlan binds a member to one of their gym's plans. The stored expiry is
// the assignment's end date; it outlives later deletion of the plan itself.
func (svc *Service) AssignPlan(ctx context.Context, memberID string, pa PlanAssignment) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, memberID)
	if err != nil {
		return User{}, err
	}
	if !usr.IsMember() {
		return User{}, core.NewValidationError(errors.New("plans can only be assigned to members"))
	}

	p, err := svc.plans.GetPlanByID(ctx, pa.PlanID)
	if err != nil {
		if err == plan.ErrNotFound {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "plan_id", Error: err.Error()})
		}
		return User{}, pkgerrors.Wrap(err, "getting plan")
	}
	if p.GymID != usr.GymID {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "plan_id", Error: "plan belongs to another gym"})
	}

	usr, err = svc.repo.AssignUserPlan(ctx, memberID, p.ID, pa.EndDate.UTC())
	if err != nil {
		return User{}, err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Plan assigned",
		TemplateName: "plan-assigned",
		TemplateData: struct {
			Name   string
			Plan   string
			Expiry string
		}{usr.Name, p.Name, pa.EndDate.UTC().Format("2006-01-02")},
	})
	return usr, nil
}

// Promote makes an existing account the admin of a gym.
func (svc *Service) Promote(ctx context.Context, pa PromoteAdmin) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, pa.Email)
	if err != nil {
		return User{}, err
	}
	return svc.repo.SetUserRole(ctx, usr.ID, RoleGymAdmin, pa.GymID)
}

// Demote strips admin rights and clears the gym binding.
func (svc *Service) Demote(ctx context.Context, id string) (User, error) {
	return svc.repo.SetUserRole(ctx, id, RoleMember, "")
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:          id,
		Name:        uu.Name,
		PhoneNumber: uu.PhoneNumber,
		Age:         uu.Age,
		Gender:      uu.Gender,
		UpdatedAt:   time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token := makeToken(usr)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{usr.Name, EncodeUID(usr), token},
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}
