package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/mazoezi/backend/core"
	"github.com/mazoezi/backend/core/plan"
	"github.com/mazoezi/backend/core/user"
	emailsvc "github.com/mazoezi/backend/services/email"
	inmemdb "github.com/mazoezi/backend/storage/database/inmem"
	testutil "github.com/mazoezi/backend/tests"
)

const gymID = "22222222-2222-2222-2222-222222222222"

func setup(t *testing.T) (*user.Service, user.Repository, plan.Repository) {
	t.Helper()

	conf := testutil.NewConfig()
	core.ParseEmailTemplates(conf, testutil.NewLogger())

	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	planRepo := inmemdb.NewPlanRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	return user.NewService(usrRepo, planRepo, mailSvc, conf), usrRepo, planRepo
}

func TestService_Register(t *testing.T) {
	svc, _, _ := setup(t)

	usr, err := svc.Register(context.Background(), user.NewUser{
		Name:     "Jane Doe",
		Email:    "jane@test.test",
		Password: "Str0ng and l0ng",
	})
	if err != nil {
		t.Fatalf("Register(): %v", err)
	}
	if usr.Role != user.RoleMember {
		t.Errorf("Role = %s, want %s", usr.Role, user.RoleMember)
	}
	if usr.Status != user.StatusNew {
		t.Errorf("Status = %s, want %s", usr.Status, user.StatusNew)
	}
	if err = usr.CheckPassword("Str0ng and l0ng"); err != nil {
		t.Errorf("CheckPassword(): %v", err)
	}

	// duplicate email is rejected by the store
	if _, err = svc.Register(context.Background(), user.NewUser{
		Name:     "Jane Again",
		Email:    "jane@test.test",
		Password: "An0ther passw0rd",
	}); err != user.ErrEmailExists {
		t.Errorf("Register() error = %v, want %v", err, user.ErrEmailExists)
	}
}

func TestService_CompleteOnboardingAndApprove(t *testing.T) {
	svc, usrRepo, _ := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, usrRepo, "u1", "Jane", "jane@test.test", "pwd", user.RoleMember, user.StatusNew, "")

	usr, err := svc.CompleteOnboarding(ctx, usr.ID, user.Onboarding{
		GymID:       gymID,
		PhoneNumber: "+254700000000",
		Age:         28,
		Gender:      "female",
	})
	if err != nil {
		t.Fatalf("CompleteOnboarding(): %v", err)
	}
	if usr.Status != user.StatusPending {
		t.Errorf("Status = %s, want %s", usr.Status, user.StatusPending)
	}
	if usr.GymID != gymID {
		t.Errorf("GymID = %s, want %s", usr.GymID, gymID)
	}

	sent := len(emailsvc.SentMessages)
	if usr, err = svc.Approve(ctx, usr.ID); err != nil {
		t.Fatalf("Approve(): %v", err)
	}
	if usr.Status != user.StatusActive {
		t.Errorf("Status = %s, want %s", usr.Status, user.StatusActive)
	}
	if len(emailsvc.SentMessages) != sent+1 {
		t.Fatalf("sent messages = %d, want %d", len(emailsvc.SentMessages), sent+1)
	}
	if msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]; msg.Subject != "Membership approved" {
		t.Errorf("Subject = %q", msg.Subject)
	}

	// admins cannot be approved
	admin := testutil.CreateUser(t, usrRepo, "a1", "Admin", "admin@test.test", "pwd", user.RoleGymAdmin, user.StatusActive, gymID)
	if _, err = svc.Approve(ctx, admin.ID); err == nil {
		t.Error("Approve() expected an error for a non-member")
	}
}

func TestService_Filter_derivedPlanStates(t *testing.T) {
	svc, usrRepo, _ := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	expired := testutil.CreateUser(t, usrRepo, "u1", "Expired", "expired@test.test", "", user.RoleMember, user.StatusActive, gymID)
	soon := testutil.CreateUser(t, usrRepo, "u2", "Soon", "soon@test.test", "", user.RoleMember, user.StatusActive, gymID)
	fine := testutil.CreateUser(t, usrRepo, "u3", "Fine", "fine@test.test", "", user.RoleMember, user.StatusActive, gymID)

	if _, err := usrRepo.AssignUserPlan(ctx, expired.ID, "p1", now.AddDate(0, 0, -1)); err != nil {
		t.Fatalf("AssignUserPlan(): %v", err)
	}
	if _, err := usrRepo.AssignUserPlan(ctx, soon.ID, "p1", now.AddDate(0, 0, 3)); err != nil {
		t.Fatalf("AssignUserPlan(): %v", err)
	}
	if _, err := usrRepo.AssignUserPlan(ctx, fine.ID, "p1", now.AddDate(0, 2, 0)); err != nil {
		t.Fatalf("AssignUserPlan(): %v", err)
	}

	tests := []struct {
		name   string
		status string
		want   []string
	}{
		{name: "expired", status: user.PlanStateExpired, want: []string{expired.ID}},
		{name: "expiring soon", status: user.PlanStateExpiringSoon, want: []string{soon.ID}},
		{name: "active", status: user.StatusActive, want: []string{expired.ID, soon.ID, fine.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := svc.Filter(ctx, user.QueryFilter{Status: tt.status})
			if err != nil {
				t.Fatalf("Filter(): %v", err)
			}
			got := make(map[string]bool, len(users))
			for _, u := range users {
				got[u.ID] = true
			}
			if len(users) != len(tt.want) {
				t.Fatalf("Filter() = %d users, want %d", len(users), len(tt.want))
			}
			for _, id := range tt.want {
				if !got[id] {
					t.Errorf("Filter() missing user %s", id)
				}
			}
		})
	}
}

func TestService_AssignPlan(t *testing.T) {
	svc, usrRepo, planRepo := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, usrRepo, "u1", "Jane", "jane@test.test", "", user.RoleMember, user.StatusActive, gymID)
	p := testutil.CreatePlan(t, planRepo, "p1", gymID, "Monthly", 50, 1)
	otherGymPlan := testutil.CreatePlan(t, planRepo, "p2", "other-gym", "Monthly", 50, 1)

	start := time.Now().UTC()
	end := start.AddDate(0, 1, 0)

	// a plan belonging to another gym is rejected
	_, err := svc.AssignPlan(ctx, usr.ID, user.PlanAssignment{PlanID: otherGymPlan.ID, StartDate: start, EndDate: end})
	if _, ok := err.(*core.ValidationError); !ok {
		t.Fatalf("AssignPlan() error = %v, want a validation error", err)
	}

	usr, err = svc.AssignPlan(ctx, usr.ID, user.PlanAssignment{PlanID: p.ID, StartDate: start, EndDate: end})
	if err != nil {
		t.Fatalf("AssignPlan(): %v", err)
	}
	if usr.PlanID != p.ID {
		t.Errorf("PlanID = %s, want %s", usr.PlanID, p.ID)
	}
	if usr.PlanExpiry == nil || !usr.PlanExpiry.Equal(end) {
		t.Errorf("PlanExpiry = %v, want %v", usr.PlanExpiry, end)
	}
}

func TestService_PasswordReset(t *testing.T) {
	svc, usrRepo, _ := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, usrRepo, "u1", "Jane", "jane@test.test", "old password", user.RoleMember, user.StatusActive, gymID)

	sent := len(emailsvc.SentMessages)
	if err := svc.RequestPasswordReset(ctx, usr.Email); err != nil {
		t.Fatalf("RequestPasswordReset(): %v", err)
	}
	if len(emailsvc.SentMessages) != sent+1 {
		t.Fatalf("sent messages = %d, want %d", len(emailsvc.SentMessages), sent+1)
	}

	msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
	data, ok := msg.TemplateData.(struct {
		Name  string
		UID   string
		Token string
	})
	if !ok {
		t.Fatalf("unexpected template data %T", msg.TemplateData)
	}

	err := svc.ResetPassword(ctx, user.ResetUserPassword{
		UID:             data.UID,
		Token:           data.Token,
		Password:        "new password 123",
		PasswordConfirm: "new password 123",
	})
	if err != nil {
		t.Fatalf("ResetPassword(): %v", err)
	}

	usr, err = usrRepo.GetUserByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID(): %v", err)
	}
	if err = usr.CheckPassword("new password 123"); err != nil {
		t.Errorf("CheckPassword(): %v", err)
	}

	// a used token no longer verifies (the hash changed)
	if err = svc.ResetPassword(ctx, user.ResetUserPassword{
		UID:             data.UID,
		Token:           data.Token,
		Password:        "yet another pwd",
		PasswordConfirm: "yet another pwd",
	}); err == nil {
		t.Error("ResetPassword() expected an error for a used token")
	}
}
