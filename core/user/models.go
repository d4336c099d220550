package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/mazoezi/backend/core"
)

// Roles
const (
	RoleMember     = "USER"
	RoleGymAdmin   = "GYM_ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

var AllRoles = []string{RoleMember, RoleGymAdmin, RoleSuperAdmin}

// Membership statuses
const (
	StatusNew      = "NEW"     // signed up, onboarding not done
	StatusPending  = "PENDING" // onboarded, awaiting gym-admin approval
	StatusActive   = "ACTIVE"
	StatusRejected = "REJECTED"
)

// Derived plan states used by member listings.
const (
	PlanStateExpired      = "EXPIRED"
	PlanStateExpiringSoon = "EXPIRING_SOON"

	// members whose plan lapses within this window count as expiring soon
	ExpiryWarningWindow = 7 * 24 * time.Hour
)

type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	GymID       string `json:"gym_id,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Age         int    `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`

	// current plan assignment, if any
	PlanID     string     `json:"plan_id,omitempty"`
	PlanExpiry *time.Time `json:"plan_expiry,omitempty"` // UTC

	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsMember() bool     { return u.Role == RoleMember }
func (u *User) IsGymAdmin() bool   { return u.Role == RoleGymAdmin }
func (u *User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }

// PlanDaysLeft returns the whole days until the plan expires; negative once
// expired, nil without an assignment.
func (u *User) PlanDaysLeft(now time.Time) *int {
	if u.PlanExpiry == nil {
		return nil
	}
	days := int(u.PlanExpiry.Sub(now).Hours() / 24)
	return &days
}

func (u *User) PlanExpired(now time.Time) bool {
	return u.PlanExpiry != nil && u.PlanExpiry.Before(now)
}

func (u *User) PlanExpiringSoon(now time.Time) bool {
	return u.PlanExpiry != nil && !u.PlanExpired(now) && u.PlanExpiry.Before(now.Add(ExpiryWarningWindow))
}

// NewUser contains information needed to register a new account.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Email)
}

// Onboarding defines the profile details a fresh member provides when
// choosing their gym. Completing it moves the member to PENDING.
type Onboarding struct {
	GymID       string `json:"gym_id" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Age         int    `json:"age" validate:"required,gte=13,lte=120"`
	Gender      string `json:"gender" validate:"required,oneof=male female other"`
}

func (ob *Onboarding) Validate(validate *validator.Validate) error {
	ob.GymID = core.CleanString(ob.GymID)
	ob.PhoneNumber = core.CleanString(ob.PhoneNumber)
	return validate.Struct(ob)
}

// UpdateUser defines what profile information may be modified on an existing
// account. Zero fields are left untouched.
type UpdateUser struct {
	Name            string `json:"name"`
	PhoneNumber     string `json:"phone_number"`
	Age             int    `json:"age" validate:"omitempty,gte=13,lte=120"`
	Gender          string `json:"gender" validate:"omitempty,oneof=male female other"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	uu.PhoneNumber = core.CleanString(uu.PhoneNumber)
	return validate.Struct(uu)
}

// PlanAssignment binds a member to one of their gym's plans for a period.
type PlanAssignment struct {
	PlanID    string    `json:"plan_id" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

func (pa *PlanAssignment) Validate(validate *validator.Validate) error {
	if err := validate.Struct(pa); err != nil {
		return err
	}
	if !pa.EndDate.After(pa.StartDate) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date must be after start date"})
	}
	return nil
}

// PromoteAdmin names an existing account to become a gym's admin.
type PromoteAdmin struct {
	Email string `json:"email" validate:"required,email"`
	GymID string `json:"gym_id" validate:"required"`
}

func (pa *PromoteAdmin) Validate(validate *validator.Validate) error {
	pa.Email = core.CleanString(pa.Email, true /* lower */)
	pa.GymID = core.CleanString(pa.GymID)
	return validate.Struct(pa)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	// Search does a case-insensitive match on one of User.Name or User.Email.
	Search string `query:"search"`
	Role   string `query:"role"`
	Status string `query:"status"` // also accepts derived EXPIRED | EXPIRING_SOON
	GymID  string `query:"gym_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.Status == "" && qf.GymID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = strings.ToUpper(core.CleanString(qf.Status))
	qf.Role = strings.ToUpper(core.CleanString(qf.Role))
}
