package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mazoezi/backend/core/gym"
	"github.com/mazoezi/backend/core/plan"
	"github.com/mazoezi/backend/core/user"
	testutil "github.com/mazoezi/backend/tests"
)

func TestGymAPI(t *testing.T) {
	srv := setup(t)
	path := "/v1/gyms"

	admin := testutil.CreateUser(t, usrRepo, "u1", "Admin", "admin@test.test", "pwd", user.RoleGymAdmin, user.StatusActive, gym1ID)
	super := testutil.CreateUser(t, usrRepo, "u2", "Super", "super@test.test", "pwd", user.RoleSuperAdmin, user.StatusActive, "")
	superToken := getToken(t, super)

	body := marchallObj(t, gym.NewGym{Name: "Iron Temple", Location: "Nairobi"})

	// only super admins register gyms
	req, rec := newAuthRequest(http.MethodPost, path, getToken(t, admin), body)
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

	// and a missing token is rejected outright
	req, rec = newRequest(http.MethodPost, path, body)
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	req, rec = newAuthRequest(http.MethodPost, path, superToken, body)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create code = %d: %s", rec.Code, rec.Body.String())
	}
	var g gym.Gym
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("unmarshalling gym: %v", err)
	}
	if g.ID == "" || !g.Active {
		t.Errorf("gym = %+v, want an active gym with an ID", g)
	}

	// the listing is public; fresh members pick a gym during onboarding
	req, rec = newRequest(http.MethodGet, path)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query code = %d: %s", rec.Code, rec.Body.String())
	}
	var gyms []gym.Gym
	if err := json.Unmarshal(rec.Body.Bytes(), &gyms); err != nil {
		t.Fatalf("unmarshalling gyms: %v", err)
	}
	if len(gyms) != 1 {
		t.Fatalf("gyms = %d, want 1", len(gyms))
	}

	// deactivate, then filter on active
	req, rec = newAuthRequest(http.MethodPut, path+"/"+g.ID+"/active", superToken, marchallObj(t, map[string]bool{"active": false}))
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("setActive code = %d: %s", rec.Code, rec.Body.String())
	}

	req, rec = newRequest(http.MethodGet, path+"?active=true")
	srv.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &gyms); err != nil {
		t.Fatalf("unmarshalling gyms: %v", err)
	}
	if len(gyms) != 0 {
		t.Errorf("active gyms = %d, want 0", len(gyms))
	}

	req, rec = newRequest(http.MethodGet, path+"/nope")
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
}

func TestPlanAPI(t *testing.T) {
	srv := setup(t)

	testutil.CreateGym(t, gymRepo, gym1ID, "Iron Temple", "Nairobi", true)
	testutil.CreateGym(t, gymRepo, gym2ID, "Steel Works", "Mombasa", true)
	admin := testutil.CreateUser(t, usrRepo, "u1", "Admin", "admin@test.test", "pwd", user.RoleGymAdmin, user.StatusActive, gym1ID)
	adminToken := getToken(t, admin)

	body := marchallObj(t, plan.NewPlan{Name: "Monthly", Price: 50, DurationMonths: 1})

	// gym admins only manage their own gym's plans
	req, rec := newAuthRequest(http.MethodPost, "/v1/gyms/"+gym2ID+"/plans", adminToken, body)
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/gyms/"+gym1ID+"/plans", adminToken, body)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create code = %d: %s", rec.Code, rec.Body.String())
	}
	var p plan.Plan
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshalling plan: %v", err)
	}
	if p.GymID != gym1ID {
		t.Errorf("GymID = %s, want %s", p.GymID, gym1ID)
	}

	otherPlan := testutil.CreatePlan(t, planRepo, "p2", gym2ID, "Monthly", 40, 1)

	// a gym's plans are public
	req, rec = newRequest(http.MethodGet, "/v1/gyms/"+gym1ID+"/plans")
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query code = %d: %s", rec.Code, rec.Body.String())
	}
	var plans []plan.Plan
	if err := json.Unmarshal(rec.Body.Bytes(), &plans); err != nil {
		t.Fatalf("unmarshalling plans: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != p.ID {
		t.Errorf("plans = %v, want [%s]", plans, p.ID)
	}

	// another gym's plan looks like a missing record
	req, rec = newAuthRequest(http.MethodDelete, "/v1/plans/"+otherPlan.ID, adminToken)
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/plans/"+p.ID, adminToken)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete code = %d: %s", rec.Code, rec.Body.String())
	}
}

// unknown paths fall through to a plain 404, never an auth error
func TestAPI_unknownRoute(t *testing.T) {
	srv := setup(t)

	req, rec := newRequest(http.MethodGet, "/v1/nope")
	srv.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Not Found"})}, rec)
}
