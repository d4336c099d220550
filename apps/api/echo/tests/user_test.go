package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	. "github.com/mazoezi/backend/apps/api/echo"
	"github.com/mazoezi/backend/core/user"
	testutil "github.com/mazoezi/backend/tests"
)

func TestUserAPI_register(t *testing.T) {
	srv := setup(t)
	path := "/v1/users/register"

	body := marchallObj(t, user.NewUser{
		Name:            "Jane Doe",
		Email:           "jane@test.test",
		Password:        "Str0ng&l0ng",
		PasswordConfirm: "Str0ng&l0ng",
	})
	req, rec := newRequest(http.MethodPost, path, body)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register code = %d: %s", rec.Code, rec.Body.String())
	}
	var usr user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("unmarshalling user: %v", err)
	}
	if usr.Role != user.RoleMember {
		t.Errorf("Role = %s, want %s", usr.Role, user.RoleMember)
	}
	if usr.Status != user.StatusNew {
		t.Errorf("Status = %s, want %s", usr.Status, user.StatusNew)
	}

	tests := []httpTest{
		{
			name: "password mismatch",
			body: marchallObj(t, user.NewUser{
				Name:            "John Doe",
				Email:           "john@test.test",
				Password:        "Str0ng&l0ng",
				PasswordConfirm: "s0methingElse",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "weak password",
			body: marchallObj(t, user.NewUser{
				Name:            "John Doe",
				Email:           "john@test.test",
				Password:        "pwd",
				PasswordConfirm: "pwd",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate email",
			body: marchallObj(t, user.NewUser{
				Name:            "Jane Again",
				Email:           "jane@test.test",
				Password:        "An0therPassw0rd",
				PasswordConfirm: "An0therPassw0rd",
			}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path, tt.body)
			srv.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d; wantCode %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestUserAPI_login(t *testing.T) {
	srv := setup(t)
	path := "/v1/users/login"

	testutil.CreateUser(t, usrRepo, "u1", "Jane", "jane@test.test", "Str0ng and l0ng", user.RoleMember, user.StatusActive, gym1ID)
	testutil.CreateUser(t, usrRepo, "u2", "Rejected", "rejected@test.test", "Str0ng and l0ng", user.RoleMember, user.StatusRejected, gym1ID)

	tests := []httpTest{
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Email: "jane@test.test", Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "unknown email",
			body:     marchallObj(t, LoginRequest{Email: "ghost@test.test", Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "rejected membership",
			body:     marchallObj(t, LoginRequest{Email: "rejected@test.test", Password: "Str0ng and l0ng"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "membership not active"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	req, rec := newRequest(http.MethodPost, path, marchallObj(t, LoginRequest{Email: "jane@test.test", Password: "Str0ng and l0ng"}))
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login code = %d: %s", rec.Code, rec.Body.String())
	}
	var res LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshalling LoginResponse: %v", err)
	}
	if res.Token == "" {
		t.Error("expected a token")
	}

	// the token authenticates follow-up requests
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", res.Token)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me code = %d: %s", rec.Code, rec.Body.String())
	}
	var usr user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("unmarshalling user: %v", err)
	}
	if usr.ID != "u1" {
		t.Errorf("ID = %s, want u1", usr.ID)
	}
	if usr.LastLogin.IsZero() {
		t.Error("expected lastLogin to be set")
	}
}

func TestUserAPI_onboarding(t *testing.T) {
	srv := setup(t)
	path := "/v1/users/onboarding"

	testutil.CreateGym(t, gymRepo, gym1ID, "Iron Temple", "Nairobi", true)
	usr := testutil.CreateUser(t, usrRepo, "u1", "Jane", "jane@test.test", "pwd", user.RoleMember, user.StatusNew, "")

	body := marchallObj(t, user.Onboarding{
		GymID:       gym1ID,
		PhoneNumber: "+254700000000",
		Age:         28,
		Gender:      "female",
	})
	req, rec := newAuthRequest(http.MethodPost, path, getToken(t, usr), body)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("onboarding code = %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("unmarshalling user: %v", err)
	}
	if usr.Status != user.StatusPending {
		t.Errorf("Status = %s, want %s", usr.Status, user.StatusPending)
	}
	if usr.GymID != gym1ID {
		t.Errorf("GymID = %s, want %s", usr.GymID, gym1ID)
	}
}

func TestUserAPI_query_scoping(t *testing.T) {
	srv := setup(t)
	path := "/v1/users"

	member1 := testutil.CreateUser(t, usrRepo, "u1", "Jane", "jane@test.test", "pwd", user.RoleMember, user.StatusActive, gym1ID)
	member2 := testutil.CreateUser(t, usrRepo, "u2", "John", "john@test.test", "pwd", user.RoleMember, user.StatusActive, gym2ID)
	admin := testutil.CreateUser(t, usrRepo, "u3", "Admin", "admin@test.test", "pwd", user.RoleGymAdmin, user.StatusActive, gym1ID)
	super := testutil.CreateUser(t, usrRepo, "u4", "Super", "super@test.test", "pwd", user.RoleSuperAdmin, user.StatusActive, "")

	// members cannot list users
	req, rec := newAuthRequest(http.MethodGet, path, getToken(t, member1))
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

	list := func(t *testing.T, path, token string) []user.User {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, path, token)
		srv.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("query code = %d: %s", rec.Code, rec.Body.String())
		}
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("unmarshalling users: %v", err)
		}
		return users
	}

	// a gym admin is pinned to their own gym, whatever the query says
	users := list(t, path+"?gym_id="+gym2ID, getToken(t, admin))
	for _, u := range users {
		if u.GymID != gym1ID {
			t.Errorf("user %s belongs to gym %s, want %s", u.ID, u.GymID, gym1ID)
		}
	}
	if len(users) != 2 { // member1 + admin
		t.Errorf("users = %d, want 2", len(users))
	}

	// a super admin may target any gym
	users = list(t, path+"?gym_id="+gym2ID, getToken(t, super))
	if len(users) != 1 || users[0].ID != member2.ID {
		t.Errorf("users = %v, want [%s]", users, member2.ID)
	}
}

func TestUserAPI_approve_scoping(t *testing.T) {
	srv := setup(t)

	pending1 := testutil.CreateUser(t, usrRepo, "u1", "Jane", "jane@test.test", "pwd", user.RoleMember, user.StatusPending, gym1ID)
	pending2 := testutil.CreateUser(t, usrRepo, "u2", "John", "john@test.test", "pwd", user.RoleMember, user.StatusPending, gym2ID)
	admin := testutil.CreateUser(t, usrRepo, "u3", "Admin", "admin@test.test", "pwd", user.RoleGymAdmin, user.StatusActive, gym1ID)
	adminToken := getToken(t, admin)

	// another gym's member looks like a missing record
	req, rec := newAuthRequest(http.MethodPost, "/v1/users/"+pending2.ID+"/approve", adminToken)
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/users/"+pending1.ID+"/approve", adminToken)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve code = %d: %s", rec.Code, rec.Body.String())
	}
	var usr user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("unmarshalling user: %v", err)
	}
	if usr.Status != user.StatusActive {
		t.Errorf("Status = %s, want %s", usr.Status, user.StatusActive)
	}
}

func TestUserAPI_promoteAdmin(t *testing.T) {
	srv := setup(t)
	path := "/v1/users/promote-admin"

	member := testutil.CreateUser(t, usrRepo, "u1", "Jane", "jane@test.test", "pwd", user.RoleMember, user.StatusActive, gym1ID)
	admin := testutil.CreateUser(t, usrRepo, "u2", "Admin", "admin@test.test", "pwd", user.RoleGymAdmin, user.StatusActive, gym1ID)
	super := testutil.CreateUser(t, usrRepo, "u3", "Super", "super@test.test", "pwd", user.RoleSuperAdmin, user.StatusActive, "")

	body := marchallObj(t, user.PromoteAdmin{Email: member.Email, GymID: gym2ID})

	// gym admins cannot mint admins
	req, rec := newAuthRequest(http.MethodPost, path, getToken(t, admin), body)
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

	// unknown email surfaces as a field error
	req, rec = newAuthRequest(http.MethodPost, path, getToken(t, super), marchallObj(t, user.PromoteAdmin{Email: "ghost@test.test", GymID: gym2ID}))
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"email": "no account with this email"}`)}, rec)

	req, rec = newAuthRequest(http.MethodPost, path, getToken(t, super), body)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("promote code = %d: %s", rec.Code, rec.Body.String())
	}
	var usr user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("unmarshalling user: %v", err)
	}
	if usr.Role != user.RoleGymAdmin {
		t.Errorf("Role = %s, want %s", usr.Role, user.RoleGymAdmin)
	}
	if usr.GymID != gym2ID {
		t.Errorf("GymID = %s, want %s", usr.GymID, gym2ID)
	}
}
